// Package composer builds the single recordable stream a session previews and
// records, out of two independent device requests.
package composer

import (
	"context"
	"fmt"

	"github.com/OmGuptaIND/clipcam/media"
	"go.uber.org/zap"
)

// Composer requests audio and video separately so a refused camera does not
// also take the microphone down, and so each request carries its own constraints.
type Composer struct {
	host   media.Host
	logger *zap.Logger
}

func New(host media.Host, logger *zap.Logger) *Composer {
	return &Composer{
		host:   host,
		logger: logger,
	}
}

// Compose returns a new stream holding at most one microphone track and one
// camera track, the camera preferring facing. Tracks obtained but not merged
// are stopped. On failure nothing acquired is left running.
func (c *Composer) Compose(ctx context.Context, facing media.Facing) (*media.LiveStream, error) {
	audioStream, err := c.host.GetUserMedia(ctx, media.Constraints{
		Audio: &media.AudioConstraints{},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: audio: %w", media.ErrAcquisition, err)
	}

	videoStream, err := c.host.GetUserMedia(ctx, media.Constraints{
		Video: &media.VideoConstraints{FacingMode: facing.Mode()},
	})
	if err != nil {
		audioStream.Stop()
		return nil, fmt.Errorf("%w: video: %w", media.ErrAcquisition, err)
	}

	combined := media.NewLiveStream()
	audio := keepFirst(combined, audioStream, media.MicrophoneInput)
	video := keepFirst(combined, videoStream, media.CameraInput)

	if video == nil {
		combined.Stop()
		return nil, fmt.Errorf("%w: no %s track granted", media.ErrAcquisition, media.CameraInput)
	}

	c.logger.Debug("stream composed",
		zap.String("stream", combined.ID()),
		zap.String("facing", facing.String()),
		zap.Bool("audio", audio != nil),
		zap.String("video", video.Label()),
	)

	return combined, nil
}

// keepFirst moves the first track of kind from src into dst and stops every
// other track of src.
func keepFirst(dst, src *media.LiveStream, kind media.Kind) media.Track {
	var kept media.Track

	for _, t := range src.Tracks() {
		if kept == nil && t.Kind() == kind {
			kept = t
			dst.AddTrack(t)
			continue
		}
		t.Stop()
	}

	return kept
}

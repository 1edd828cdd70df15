// Package permission primes the host's permission prompt before any preview
// stream is built.
package permission

import (
	"context"
	"fmt"

	"github.com/OmGuptaIND/clipcam/media"
	"go.uber.org/zap"
)

// Negotiator asks the host for combined camera and microphone access and
// throws the resulting tracks away. The real preview stream is acquired
// separately afterwards, so a grant results in two acquisitions back to back.
type Negotiator struct {
	host   media.Host
	logger *zap.Logger
}

func NewNegotiator(host media.Host, logger *zap.Logger) *Negotiator {
	return &Negotiator{
		host:   host,
		logger: logger,
	}
}

// Request returns nil when access is granted. Every failure, whether the user
// refused or a device errored, is reported as media.ErrPermissionDenied.
func (n *Negotiator) Request(ctx context.Context) error {
	stream, err := n.host.GetUserMedia(ctx, media.Constraints{
		Audio: &media.AudioConstraints{},
		Video: &media.VideoConstraints{},
	})
	if err != nil {
		n.logger.Warn("getUserMedia error", zap.Error(err))
		return fmt.Errorf("%w: %w", media.ErrPermissionDenied, err)
	}

	stream.Stop()

	n.logger.Debug("media permission granted", zap.Int("released_tracks", len(stream.Tracks())))

	return nil
}

// Package mediatest provides an in-memory media.Host for exercising capture
// sessions without hardware.
package mediatest

import (
	"context"
	"fmt"
	"sync"

	"github.com/OmGuptaIND/clipcam/media"
)

// Host is a fake media.Host. Zero value enumerates nothing and grants every request.
type Host struct {
	Devices      []media.RawDevice
	EnumerateErr error
	EncoderErr   error

	// FailRequest, when set, is consulted before every GetUserMedia call with
	// the 1-based request number. A non-nil result fails that request.
	FailRequest func(n int, c media.Constraints) error

	// ExtraTracks adds that many surplus tracks of each requested kind.
	ExtraTracks int

	mu       sync.Mutex
	requests []media.Constraints
	tracks   []*media.BasicTrack
	encoders []*Encoder
}

// NewHost returns a host with one camera and one microphone.
func NewHost() *Host {
	return &Host{
		Devices: []media.RawDevice{
			{DeviceID: "cam-1", Kind: "videoinput", Label: "FaceTime HD Camera"},
			{DeviceID: "mic-1", Kind: "audioinput", Label: "Built-in Microphone"},
		},
	}
}

func (h *Host) EnumerateDevices(ctx context.Context) ([]media.RawDevice, error) {
	if h.EnumerateErr != nil {
		return nil, h.EnumerateErr
	}
	devices := make([]media.RawDevice, len(h.Devices))
	copy(devices, h.Devices)
	return devices, nil
}

func (h *Host) GetUserMedia(ctx context.Context, c media.Constraints) (*media.LiveStream, error) {
	h.mu.Lock()
	h.requests = append(h.requests, c)
	n := len(h.requests)
	fail := h.FailRequest
	h.mu.Unlock()

	if fail != nil {
		if err := fail(n, c); err != nil {
			return nil, err
		}
	}

	stream := media.NewLiveStream()
	if c.Audio != nil {
		for i := 0; i <= h.ExtraTracks; i++ {
			stream.AddTrack(h.newTrack(n, i, media.MicrophoneInput, "Built-in Microphone"))
		}
	}
	if c.Video != nil {
		label := "camera " + c.Video.FacingMode
		for i := 0; i <= h.ExtraTracks; i++ {
			stream.AddTrack(h.newTrack(n, i, media.CameraInput, label))
		}
	}
	return stream, nil
}

func (h *Host) newTrack(req, i int, kind media.Kind, label string) *media.BasicTrack {
	t := media.NewTrack(fmt.Sprintf("req%d-%s-%d", req, kind, i), kind, label, nil)

	h.mu.Lock()
	h.tracks = append(h.tracks, t)
	h.mu.Unlock()
	return t
}

func (h *Host) NewEncoder(config media.EncoderConfig) (media.Encoder, error) {
	if h.EncoderErr != nil {
		return nil, h.EncoderErr
	}
	e := &Encoder{Config: config}

	h.mu.Lock()
	h.encoders = append(h.encoders, e)
	h.mu.Unlock()
	return e, nil
}

// Requests returns every GetUserMedia request seen so far.
func (h *Host) Requests() []media.Constraints {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]media.Constraints, len(h.requests))
	copy(out, h.requests)
	return out
}

// LiveTracks returns the tracks handed out and not yet stopped.
func (h *Host) LiveTracks() []media.Track {
	h.mu.Lock()
	defer h.mu.Unlock()

	var live []media.Track
	for _, t := range h.tracks {
		if !t.Stopped() {
			live = append(live, t)
		}
	}
	return live
}

// Encoders returns every encoder created so far.
func (h *Host) Encoders() []*Encoder {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*Encoder, len(h.encoders))
	copy(out, h.encoders)
	return out
}

// LastEncoder returns the most recently created encoder, or nil.
func (h *Host) LastEncoder() *Encoder {
	encoders := h.Encoders()
	if len(encoders) == 0 {
		return nil
	}
	return encoders[len(encoders)-1]
}

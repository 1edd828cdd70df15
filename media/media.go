// Package media holds the device-facing model shared by every part of a capture
// session: device kinds, tracks, live streams, request constraints, and the Host
// and Encoder interfaces that platform backends implement.
package media

import (
	"context"
	"fmt"
	"time"
)

// Kind is the canonical kind of a capture or playback device.
type Kind int

const (
	KindUnknown Kind = iota
	CameraInput
	MicrophoneInput
	SpeakerOutput
)

func (k Kind) String() string {
	switch k {
	case CameraInput:
		return "videoinput"
	case MicrophoneInput:
		return "audioinput"
	case SpeakerOutput:
		return "audiooutput"
	default:
		return "unknown"
	}
}

// ParseKind normalizes the kind labels reported by hosts. Older engines report
// "audio" and "video" instead of the input variants.
func ParseKind(s string) Kind {
	switch s {
	case "audio", "audioinput":
		return MicrophoneInput
	case "video", "videoinput":
		return CameraInput
	case "audiooutput":
		return SpeakerOutput
	default:
		return KindUnknown
	}
}

// Facing selects which physical camera a video request should prefer.
type Facing int

const (
	Front Facing = iota
	Rear
)

// Mode returns the facingMode constraint value for f.
func (f Facing) Mode() string {
	if f == Rear {
		return "environment"
	}
	return "user"
}

func (f Facing) String() string {
	if f == Rear {
		return "rear"
	}
	return "front"
}

// Flip returns the opposite facing.
func (f Facing) Flip() Facing {
	if f == Rear {
		return Front
	}
	return Rear
}

// RawDevice is a device entry as a host reports it, before normalization.
type RawDevice struct {
	ID       string `json:"id"`
	DeviceID string `json:"deviceId"`
	Kind     string `json:"kind"`
	Label    string `json:"label"`
}

// VideoConstraints for a video device request.
type VideoConstraints struct {
	DeviceID   string
	FacingMode string // "user" or "environment"
	Width      int
	Height     int
	FrameRate  int
}

// AudioConstraints for an audio device request.
type AudioConstraints struct {
	DeviceID string
}

// Constraints describe one device request. A nil member is not requested.
type Constraints struct {
	Audio *AudioConstraints
	Video *VideoConstraints
}

// EncoderConfig is the fixed codec configuration a recording pass uses.
type EncoderConfig struct {
	MimeType  string
	Timeslice time.Duration
}

// FragmentFunc receives encoded fragments in the order the encoder produces them.
type FragmentFunc func(data []byte)

// Encoder turns a live stream into a sequence of encoded fragments.
type Encoder interface {
	// Start begins encoding stream, delivering fragments to onFragment.
	Start(stream *LiveStream, onFragment FragmentFunc) error

	// Pause suspends encoding. Fragments already produced are kept.
	Pause() error

	// Resume continues a paused pass against stream, which may differ from
	// the stream the pass started with.
	Resume(stream *LiveStream) error

	// Stop finalizes the pass. Every fragment has been delivered when Stop returns.
	Stop() error
}

// Host is the platform capability a session runs against. Hosts that cannot
// enumerate devices or record return ErrNotSupported from the matching method.
type Host interface {
	EnumerateDevices(ctx context.Context) ([]RawDevice, error)
	GetUserMedia(ctx context.Context, constraints Constraints) (*LiveStream, error)
	NewEncoder(config EncoderConfig) (Encoder, error)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (f Facing) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Facing) UnmarshalText(b []byte) error {
	switch string(b) {
	case "front", "user":
		*f = Front
	case "rear", "environment":
		*f = Rear
	default:
		return fmt.Errorf("unknown facing %q", b)
	}
	return nil
}

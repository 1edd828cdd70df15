// Package prober decides whether a host can capture at all, before any
// permission prompt is shown.
package prober

import (
	"context"
	"errors"

	"github.com/OmGuptaIND/clipcam/media"
	"go.uber.org/zap"
)

// CaptureCapability is the outcome of a probe. It is computed once per session.
type CaptureCapability struct {
	HasCamera                bool `json:"hasCamera"`
	HasMicrophone            bool `json:"hasMicrophone"`
	HasSpeakerOutput         bool `json:"hasSpeakerOutput"`
	CameraAlreadyGranted     bool `json:"cameraAlreadyGranted"`
	MicrophoneAlreadyGranted bool `json:"microphoneAlreadyGranted"`
}

// Compatible reports whether both a camera and a microphone are present.
func (c CaptureCapability) Compatible() bool {
	return c.HasCamera && c.HasMicrophone
}

// DeviceDescriptor is a normalized device entry.
type DeviceDescriptor struct {
	ID    string     `json:"id"`
	Kind  media.Kind `json:"kind"`
	Label string     `json:"label"`
}

// DisplayLabel returns a label fit for showing to the user. Hosts hide labels
// until a permission has been granted, and never expose them on insecure origins.
func (d DeviceDescriptor) DisplayLabel(secure bool) string {
	if d.Label != "" {
		return d.Label
	}
	if !secure {
		return "HTTPs is required to get label of this " + d.Kind.String() + " device."
	}
	return "Please invoke getUserMedia once."
}

type deviceKey struct {
	id   string
	kind media.Kind
}

// Descriptors normalizes raw entries, dropping unknown kinds and duplicates.
func Descriptors(raw []media.RawDevice) []DeviceDescriptor {
	seen := make(map[deviceKey]struct{}, len(raw))
	descriptors := make([]DeviceDescriptor, 0, len(raw))

	for _, r := range raw {
		kind := media.ParseKind(r.Kind)
		if kind == media.KindUnknown {
			continue
		}

		id := r.ID
		if id == "" {
			id = r.DeviceID
		}

		key := deviceKey{id, kind}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		descriptors = append(descriptors, DeviceDescriptor{ID: id, Kind: kind, Label: r.Label})
	}

	return descriptors
}

// Capability folds descriptors into a CaptureCapability. A visible label means
// access to that kind was granted before.
func Capability(descriptors []DeviceDescriptor) CaptureCapability {
	var c CaptureCapability

	for _, d := range descriptors {
		switch d.Kind {
		case media.CameraInput:
			c.HasCamera = true
			if d.Label != "" {
				c.CameraAlreadyGranted = true
			}
		case media.MicrophoneInput:
			c.HasMicrophone = true
			if d.Label != "" {
				c.MicrophoneAlreadyGranted = true
			}
		case media.SpeakerOutput:
			c.HasSpeakerOutput = true
		}
	}

	return c
}

// Probe enumerates the host's devices. It never fails: a host that cannot
// enumerate reports no devices at all.
func Probe(ctx context.Context, host media.Host, logger *zap.Logger) CaptureCapability {
	raw, err := host.EnumerateDevices(ctx)
	if err != nil {
		if errors.Is(err, media.ErrNotSupported) {
			logger.Info("device enumeration not supported by host")
		} else {
			logger.Warn("device enumeration failed", zap.Error(err))
		}
		return CaptureCapability{}
	}

	c := Capability(Descriptors(raw))

	logger.Info("browser support for media",
		zap.Bool("camera", c.HasCamera),
		zap.Bool("microphone", c.HasMicrophone),
		zap.Bool("speaker", c.HasSpeakerOutput),
		zap.Bool("cameraAlreadyGranted", c.CameraAlreadyGranted),
		zap.Bool("microphoneAlreadyGranted", c.MicrophoneAlreadyGranted),
	)

	return c
}

// Package native is the media.Host for a Linux machine: V4L2 cameras found
// through sysfs, audio endpoints through PortAudio, and recording through ffmpeg.
package native

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/OmGuptaIND/clipcam/ffmpeg"
	"github.com/OmGuptaIND/clipcam/media"
	"go.uber.org/zap"
)

type HostOptions struct {
	SysfsRoot string
	DevRoot   string

	// AudioDevices defaults to PortAudioDevices.
	AudioDevices func() ([]AudioDevice, error)

	FFmpegPath     string
	SegmentDir     string
	ShowFfmpegLogs bool

	Logger *zap.Logger
}

type Host struct {
	opts   HostOptions
	logger *zap.Logger
}

func NewHost(opts HostOptions) *Host {
	if opts.SysfsRoot == "" {
		opts.SysfsRoot = "/sys/class/video4linux"
	}
	if opts.DevRoot == "" {
		opts.DevRoot = "/dev"
	}
	if opts.AudioDevices == nil {
		opts.AudioDevices = PortAudioDevices
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Host{
		opts:   opts,
		logger: opts.Logger.Named("native"),
	}
}

func (h *Host) EnumerateDevices(ctx context.Context) ([]media.RawDevice, error) {
	cameras, err := ListCameras(h.opts.SysfsRoot, h.opts.DevRoot)
	if err != nil {
		return nil, err
	}

	var devices []media.RawDevice
	for _, c := range cameras {
		devices = append(devices, media.RawDevice{
			DeviceID: c.Path,
			Kind:     media.CameraInput.String(),
			Label:    c.Name,
		})
	}

	audio, err := h.opts.AudioDevices()
	if err != nil {
		h.logger.Warn("audio enumeration failed", zap.Error(err))
		return devices, nil
	}

	for _, a := range audio {
		if a.InputChannels > 0 {
			devices = append(devices, media.RawDevice{DeviceID: a.Name, Kind: media.MicrophoneInput.String(), Label: a.Name})
		}
		if a.OutputChannels > 0 {
			devices = append(devices, media.RawDevice{DeviceID: a.Name, Kind: media.SpeakerOutput.String(), Label: a.Name})
		}
	}

	return devices, nil
}

// GetUserMedia opens the requested devices. Either every requested track is
// returned or none is left open.
func (h *Host) GetUserMedia(ctx context.Context, c media.Constraints) (*media.LiveStream, error) {
	if c.Audio == nil && c.Video == nil {
		return nil, errors.New("no media requested")
	}

	stream := media.NewLiveStream()

	if c.Video != nil {
		track, err := h.openCamera(*c.Video)
		if err != nil {
			return nil, err
		}
		stream.AddTrack(track)
	}

	if c.Audio != nil {
		track, err := h.openMicrophone(*c.Audio)
		if err != nil {
			stream.Stop()
			return nil, err
		}
		stream.AddTrack(track)
	}

	return stream, nil
}

func (h *Host) NewEncoder(config media.EncoderConfig) (media.Encoder, error) {
	return ffmpeg.NewEncoder(ffmpeg.EncoderOptions{
		FFmpegPath:     h.opts.FFmpegPath,
		SegmentDir:     h.opts.SegmentDir,
		Config:         config,
		ShowFfmpegLogs: h.opts.ShowFfmpegLogs,
		Logger:         h.logger,
	})
}

func (h *Host) openCamera(c media.VideoConstraints) (*deviceTrack, error) {
	cameras, err := ListCameras(h.opts.SysfsRoot, h.opts.DevRoot)
	if err != nil {
		return nil, err
	}

	var camera Camera
	var ok bool
	if c.DeviceID != "" {
		for _, cam := range cameras {
			if cam.Path == c.DeviceID {
				camera, ok = cam, true
			}
		}
	} else {
		camera, ok = PickCamera(cameras, c.FacingMode)
	}
	if !ok {
		return nil, errors.New("NotFoundError: no camera available")
	}

	f, err := os.OpenFile(camera.Path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %w", media.ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("NotReadableError: %w", err)
	}

	h.logger.Debug("camera opened", zap.String("device", camera.Path), zap.String("label", camera.Name))

	input := []string{"-f", "v4l2"}
	if c.FrameRate > 0 {
		input = append(input, "-framerate", fmt.Sprint(c.FrameRate))
	}
	if c.Width > 0 && c.Height > 0 {
		input = append(input, "-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height))
	}
	input = append(input, "-i", camera.Path)

	return &deviceTrack{
		BasicTrack: media.NewTrack(camera.Path, media.CameraInput, camera.Name, func() { f.Close() }),
		input:      input,
	}, nil
}

func (h *Host) openMicrophone(c media.AudioConstraints) (*deviceTrack, error) {
	audio, err := h.opts.AudioDevices()
	if err != nil {
		return nil, fmt.Errorf("NotReadableError: %w", err)
	}

	for _, a := range audio {
		if a.InputChannels == 0 || (c.DeviceID != "" && a.Name != c.DeviceID) {
			continue
		}

		return &deviceTrack{
			BasicTrack: media.NewTrack(a.Name, media.MicrophoneInput, a.Name, nil),
			input:      []string{"-f", "alsa", "-i", ALSAInput(a.Name)},
		}, nil
	}

	return nil, errors.New("NotFoundError: no microphone available")
}

type deviceTrack struct {
	*media.BasicTrack
	input []string
}

func (t *deviceTrack) InputArgs() []string {
	return t.input
}

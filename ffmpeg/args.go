package ffmpeg

import (
	"fmt"
	"strconv"
	"time"

	"github.com/OmGuptaIND/clipcam/media"
)

// Source is a track ffmpeg can open directly.
type Source interface {
	media.Track
	// InputArgs returns the demuxer flags and -i argument for the track.
	InputArgs() []string
}

// InputArgs collects the input flags of every track of stream, video first.
func InputArgs(stream *media.LiveStream) ([]string, error) {
	var args []string
	var haveVideo bool

	for _, kind := range []media.Kind{media.CameraInput, media.MicrophoneInput} {
		for _, t := range stream.Tracks() {
			if t.Kind() != kind || t.Stopped() {
				continue
			}
			src, ok := t.(Source)
			if !ok {
				return nil, fmt.Errorf("%w: track %s cannot be opened by ffmpeg", media.ErrNotSupported, t.ID())
			}
			args = append(args, src.InputArgs()...)
			if kind == media.CameraInput {
				haveVideo = true
			}
		}
	}

	if !haveVideo {
		return nil, media.ErrNoActiveStream
	}

	return args, nil
}

// SegmentArgs returns the full ffmpeg command line that encodes inputs into
// segments of length timeslice named after pattern, numbered from start.
func SegmentArgs(inputs []string, pattern string, start int, timeslice time.Duration) []string {
	seconds := strconv.FormatFloat(timeslice.Seconds(), 'f', -1, 64)

	args := []string{"-loglevel", "error", "-y"}
	args = append(args, inputs...)
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-force_key_frames", "expr:gte(t,n_forced*"+seconds+")",
		"-c:a", "libopus",
		"-b:a", "128k",
		"-f", "segment",
		"-segment_format", "matroska",
		"-segment_time", seconds,
		"-segment_start_number", strconv.Itoa(start),
		"-reset_timestamps", "1",
		pattern,
	)

	return args
}

package ffmpeg_test

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/OmGuptaIND/clipcam/ffmpeg"
	"github.com/OmGuptaIND/clipcam/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFFmpeg writes one segment on start and one more after it is told to
// quit, the way ffmpeg closes its last segment.
const fakeFFmpeg = `#!/bin/sh
start=0
prev=""
for a in "$@"; do
  if [ "$prev" = "-segment_start_number" ]; then start=$a; fi
  prev=$a
  pattern=$a
done
printf "seg%s" "$start" > "$(printf "$pattern" "$start")"
read cmd
n=$((start+1))
printf "seg%s" "$n" > "$(printf "$pattern" "$n")"
exit 0
`

func fakeBinary(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}

	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte(fakeFFmpeg), 0o755))
	return path
}

func camera() *media.LiveStream {
	return media.NewLiveStream(deviceTrack{media.NewTrack("cam", media.CameraInput, "cam", nil), []string{"-f", "v4l2", "-i", "/dev/video0"}})
}

func TestEncoderLifecycle(t *testing.T) {
	segments := t.TempDir()
	enc, err := ffmpeg.NewEncoder(ffmpeg.EncoderOptions{
		FFmpegPath: fakeBinary(t),
		SegmentDir: segments,
		Config:     media.EncoderConfig{Timeslice: time.Second},
	})
	require.NoError(t, err)

	var mu sync.Mutex
	var got []string
	onFragment := func(data []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(data))
	}
	fragments := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), got...)
	}

	require.NoError(t, enc.Start(camera(), onFragment))
	assert.Error(t, enc.Start(camera(), onFragment))

	require.NoError(t, enc.Pause())
	assert.Equal(t, []string{"seg0", "seg1"}, fragments())
	assert.Error(t, enc.Pause())

	require.NoError(t, enc.Resume(camera()))
	require.NoError(t, enc.Stop())
	assert.Equal(t, []string{"seg0", "seg1", "seg2", "seg3"}, fragments())

	_, err = os.Stat(filepath.Join(segments, enc.ID))
	assert.True(t, os.IsNotExist(err))
	assert.Error(t, enc.Stop())
}

func TestNewEncoderWithoutFFmpeg(t *testing.T) {
	_, err := ffmpeg.NewEncoder(ffmpeg.EncoderOptions{FFmpegPath: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorIs(t, err, media.ErrNotSupported)
}

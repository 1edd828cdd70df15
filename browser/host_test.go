package browser_test

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/OmGuptaIND/clipcam/browser"
	"github.com/OmGuptaIND/clipcam/media"
	"github.com/OmGuptaIND/clipcam/prober"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chromium(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("launches chromium")
	}
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("chromium not installed")
	return ""
}

func TestFakeMediaRecording(t *testing.T) {
	path := chromium(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	host, err := browser.NewHost(ctx, browser.HostOptions{
		ChromePath: path,
		Headless:   true,
		FakeMedia:  true,
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	defer host.Close()

	capability := prober.Probe(ctx, host, zap.NewNop())
	assert.True(t, capability.Compatible())

	stream, err := host.GetUserMedia(ctx, media.Constraints{
		Audio: &media.AudioConstraints{},
		Video: &media.VideoConstraints{FacingMode: "user"},
	})
	require.NoError(t, err)
	defer stream.Stop()
	require.Len(t, stream.VideoTracks(), 1)

	enc, err := host.NewEncoder(media.EncoderConfig{MimeType: "video/webm;codecs=h264", Timeslice: 200 * time.Millisecond})
	require.NoError(t, err)

	var mu sync.Mutex
	var size int
	require.NoError(t, enc.Start(stream, func(data []byte) {
		mu.Lock()
		size += len(data)
		mu.Unlock()
	}))

	time.Sleep(time.Second)
	require.NoError(t, enc.Stop())

	mu.Lock()
	defer mu.Unlock()
	assert.Positive(t, size)
}

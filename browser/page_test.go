package browser

import (
	"encoding/base64"
	"testing"

	"github.com/OmGuptaIND/clipcam/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFragment(t *testing.T) {
	payload := `{"id":"rec-1","seq":3,"data":"` + base64.StdEncoding.EncodeToString([]byte("webm")) + `"}`

	id, data, err := decodeFragment(payload)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", id)
	assert.Equal(t, []byte("webm"), data)

	_, _, err = decodeFragment(`{"id":"rec-1","data":"***"}`)
	assert.Error(t, err)

	_, _, err = decodeFragment(`not json`)
	assert.Error(t, err)
}

func TestDecodeStopped(t *testing.T) {
	id, err := decodeStopped(`{"id":"rec-2"}`)
	require.NoError(t, err)
	assert.Equal(t, "rec-2", id)
}

func TestPageConstraints(t *testing.T) {
	c := pageConstraints(media.Constraints{Audio: &media.AudioConstraints{}})
	assert.Equal(t, true, c["audio"])
	assert.Equal(t, false, c["video"])

	c = pageConstraints(media.Constraints{Video: &media.VideoConstraints{FacingMode: "environment", Width: 640}})
	assert.Equal(t, false, c["audio"])
	assert.Equal(t, map[string]any{"facingMode": "environment", "width": 640}, c["video"])

	c = pageConstraints(media.Constraints{
		Audio: &media.AudioConstraints{DeviceID: "mic"},
		Video: &media.VideoConstraints{},
	})
	assert.Equal(t, map[string]any{"deviceId": map[string]string{"exact": "mic"}}, c["audio"])
	assert.Equal(t, true, c["video"])
}

func TestCall(t *testing.T) {
	expr, err := call("startRecorder", "id", []string{"a", "b"}, "video/webm", int64(1000))
	require.NoError(t, err)
	assert.Equal(t, `window.__clipcam.startRecorder("id", ["a","b"], "video/webm", 1000)`, expr)
}

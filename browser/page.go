package browser

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/OmGuptaIND/clipcam/media"
)

const (
	fragmentBinding = "clipcamFragment"
	stoppedBinding  = "clipcamStopped"
)

// bootstrap installs the page side registry of tracks and recorders. Every
// recorder ships its blobs through a promise chain so the stop notification
// always trails the last fragment.
const bootstrap = `(() => {
  if (window.__clipcam) return true;
  const toBase64 = (buf) => {
    let s = "";
    const bytes = new Uint8Array(buf);
    for (let i = 0; i < bytes.length; i += 0x8000) {
      s += String.fromCharCode.apply(null, bytes.subarray(i, i + 0x8000));
    }
    return btoa(s);
  };
  const cc = { tracks: {}, recorders: {}, seq: 0 };
  cc.enumerate = async () => {
    if (!navigator.mediaDevices || !navigator.mediaDevices.enumerateDevices) return null;
    const devices = await navigator.mediaDevices.enumerateDevices();
    return devices.map((d) => ({ deviceId: d.deviceId, kind: d.kind, label: d.label }));
  };
  cc.getUserMedia = async (constraints) => {
    const stream = await navigator.mediaDevices.getUserMedia(constraints);
    return stream.getTracks().map((t) => {
      cc.tracks[t.id] = t;
      return { id: t.id, kind: t.kind, label: t.label };
    });
  };
  cc.stopTrack = (id) => {
    const t = cc.tracks[id];
    if (t) { t.stop(); delete cc.tracks[id]; }
    return true;
  };
  cc.startRecorder = (id, trackIds, mimeType, timeslice) => {
    if (typeof MediaRecorder === "undefined") throw new Error("NotSupportedError: MediaRecorder");
    const tracks = trackIds.map((t) => cc.tracks[t]).filter(Boolean);
    const opts = MediaRecorder.isTypeSupported(mimeType) ? { mimeType } : {};
    const rec = new MediaRecorder(new MediaStream(tracks), opts);
    let chain = Promise.resolve();
    let seq = 0;
    rec.ondataavailable = (e) => {
      const n = seq++;
      chain = chain.then(() => e.data.arrayBuffer()).then((buf) => {
        if (buf.byteLength > 0) {
          window.` + fragmentBinding + `(JSON.stringify({ id, seq: n, data: toBase64(buf) }));
        }
      });
    };
    rec.onstop = () => {
      chain = chain.then(() => window.` + stoppedBinding + `(JSON.stringify({ id })));
    };
    cc.recorders[id] = rec;
    rec.start(timeslice);
    return rec.mimeType;
  };
  cc.stopRecorder = (id) => {
    const rec = cc.recorders[id];
    if (!rec) return false;
    delete cc.recorders[id];
    if (rec.state !== "inactive") rec.stop();
    return true;
  };
  window.__clipcam = cc;
  return true;
})()`

type pageDevice struct {
	DeviceID string `json:"deviceId"`
	Kind     string `json:"kind"`
	Label    string `json:"label"`
}

type pageTrack struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

type fragmentPayload struct {
	ID   string `json:"id"`
	Seq  int    `json:"seq"`
	Data string `json:"data"`
}

type stoppedPayload struct {
	ID string `json:"id"`
}

func decodeFragment(payload string) (string, []byte, error) {
	var p fragmentPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", nil, fmt.Errorf("bad fragment payload: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return "", nil, fmt.Errorf("bad fragment data: %w", err)
	}

	return p.ID, data, nil
}

func decodeStopped(payload string) (string, error) {
	var p stoppedPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("bad stop payload: %w", err)
	}
	return p.ID, nil
}

// pageConstraints renders c as a getUserMedia constraints object.
func pageConstraints(c media.Constraints) map[string]any {
	out := map[string]any{"audio": false, "video": false}

	if c.Audio != nil {
		if c.Audio.DeviceID != "" {
			out["audio"] = map[string]any{"deviceId": map[string]string{"exact": c.Audio.DeviceID}}
		} else {
			out["audio"] = true
		}
	}

	if v := c.Video; v != nil {
		video := map[string]any{}
		if v.DeviceID != "" {
			video["deviceId"] = map[string]string{"exact": v.DeviceID}
		}
		if v.FacingMode != "" {
			video["facingMode"] = v.FacingMode
		}
		if v.Width > 0 {
			video["width"] = v.Width
		}
		if v.Height > 0 {
			video["height"] = v.Height
		}
		if v.FrameRate > 0 {
			video["frameRate"] = v.FrameRate
		}
		if len(video) == 0 {
			out["video"] = true
		} else {
			out["video"] = video
		}
	}

	return out
}

// call renders a call of the page registry function fn with JSON arguments.
func call(fn string, args ...any) (string, error) {
	expr := "window.__clipcam." + fn + "("
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", err
		}
		if i > 0 {
			expr += ", "
		}
		expr += string(b)
	}
	return expr + ")", nil
}

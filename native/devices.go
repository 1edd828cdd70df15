package native

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// Camera is a V4L2 capture node.
type Camera struct {
	Name string
	Path string
}

// AudioDevice is an audio endpoint as PortAudio reports it.
type AudioDevice struct {
	Name           string
	InputChannels  int
	OutputChannels int
}

// ListCameras reads the capture nodes under sysfsRoot (normally
// /sys/class/video4linux) and maps them to device files under devRoot.
// Metadata nodes, which report a non-zero index, are skipped.
func ListCameras(sysfsRoot, devRoot string) ([]Camera, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	type numbered struct {
		n int
		Camera
	}
	var found []numbered

	for _, e := range entries {
		node := e.Name()
		if !strings.HasPrefix(node, "video") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(node, "video"))
		if err != nil {
			continue
		}

		if index, err := os.ReadFile(filepath.Join(sysfsRoot, node, "index")); err == nil {
			if strings.TrimSpace(string(index)) != "0" {
				continue
			}
		}

		name := node
		if b, err := os.ReadFile(filepath.Join(sysfsRoot, node, "name")); err == nil {
			if s := strings.TrimSpace(string(b)); s != "" {
				name = s
			}
		}

		found = append(found, numbered{n, Camera{Name: name, Path: filepath.Join(devRoot, node)}})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	cameras := make([]Camera, len(found))
	for i, f := range found {
		cameras[i] = f.Camera
	}
	return cameras, nil
}

// PortAudioDevices lists the audio endpoints PortAudio can see.
func PortAudioDevices() ([]AudioDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: %w", err)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: %w", err)
	}

	devices := make([]AudioDevice, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, AudioDevice{
			Name:           info.Name,
			InputChannels:  info.MaxInputChannels,
			OutputChannels: info.MaxOutputChannels,
		})
	}
	return devices, nil
}

var (
	frontWords = []string{"front", "user", "integrated", "facetime", "webcam"}
	rearWords  = []string{"rear", "back", "environment", "world"}
)

// PickCamera chooses the camera for a facingMode constraint. A camera whose
// name says which way it faces wins; otherwise front takes the first camera
// and rear the last.
func PickCamera(cameras []Camera, facingMode string) (Camera, bool) {
	if len(cameras) == 0 {
		return Camera{}, false
	}

	words := frontWords
	if facingMode == "environment" {
		words = rearWords
	}

	for _, c := range cameras {
		name := strings.ToLower(c.Name)
		for _, w := range words {
			if strings.Contains(name, w) {
				return c, true
			}
		}
	}

	if facingMode == "environment" {
		return cameras[len(cameras)-1], true
	}
	return cameras[0], true
}

var alsaHW = regexp.MustCompile(`\((hw:\d+,\d+)\)`)

// ALSAInput returns the ALSA device ffmpeg should open for a PortAudio device name.
func ALSAInput(name string) string {
	if m := alsaHW.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return "default"
}

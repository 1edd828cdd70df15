package browser

import (
	"errors"
	"fmt"
	"sync"

	"github.com/OmGuptaIND/clipcam/media"
	"github.com/google/uuid"
)

// encoder runs one page MediaRecorder per segment of a pass. A page
// recorder cannot change its tracks, so Resume starts a new one.
type encoder struct {
	host   *Host
	config media.EncoderConfig

	mu         sync.Mutex
	onFragment media.FragmentFunc
	current    string
	started    bool
}

func (e *encoder) Start(stream *media.LiveStream, onFragment media.FragmentFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return errors.New("encoder already started")
	}

	e.onFragment = onFragment
	if err := e.begin(stream); err != nil {
		return err
	}
	e.started = true
	return nil
}

func (e *encoder) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == "" {
		return errors.New("encoder not running")
	}
	return e.end()
}

func (e *encoder) Resume(stream *media.LiveStream) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started || e.current != "" {
		return errors.New("encoder not paused")
	}
	return e.begin(stream)
}

func (e *encoder) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return errors.New("encoder not started")
	}
	e.started = false

	if e.current == "" {
		return nil
	}
	return e.end()
}

func (e *encoder) begin(stream *media.LiveStream) error {
	id := uuid.New().String()
	if err := e.host.startRecorder(id, stream, e.config, e.onFragment); err != nil {
		return fmt.Errorf("failed to start page recorder: %w", err)
	}
	e.current = id
	return nil
}

func (e *encoder) end() error {
	id := e.current
	e.current = ""
	return e.host.stopRecorder(id)
}

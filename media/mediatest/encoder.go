package mediatest

import (
	"errors"
	"sync"

	"github.com/OmGuptaIND/clipcam/media"
)

// Encoder is a fake media.Encoder. Tests push fragments with Emit.
type Encoder struct {
	Config media.EncoderConfig

	// Tail is delivered during Stop, before it returns.
	Tail [][]byte

	// StopGate, when set, holds Stop after the tail until it is closed.
	StopGate chan struct{}

	mu         sync.Mutex
	onFragment media.FragmentFunc
	streams    []*media.LiveStream
	running    bool
	paused     bool
	stops      int
	pauses     int
	resumes    int
}

func (e *Encoder) Start(stream *media.LiveStream, onFragment media.FragmentFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return errors.New("encoder already running")
	}
	e.onFragment = onFragment
	e.streams = append(e.streams, stream)
	e.running = true
	return nil
}

func (e *Encoder) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running || e.paused {
		return errors.New("encoder not running")
	}
	e.paused = true
	e.pauses++
	return nil
}

func (e *Encoder) Resume(stream *media.LiveStream) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.paused {
		return errors.New("encoder not paused")
	}
	e.paused = false
	e.resumes++
	e.streams = append(e.streams, stream)
	return nil
}

func (e *Encoder) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return errors.New("encoder not running")
	}
	cb := e.onFragment
	tail := e.Tail
	gate := e.StopGate
	e.mu.Unlock()

	for _, data := range tail {
		cb(data)
	}
	if gate != nil {
		<-gate
	}

	e.mu.Lock()
	e.running = false
	e.paused = false
	e.stops++
	e.mu.Unlock()
	return nil
}

// Emit delivers data as if the encoder had produced it.
func (e *Encoder) Emit(data []byte) {
	e.mu.Lock()
	cb := e.onFragment
	e.mu.Unlock()

	if cb != nil {
		cb(data)
	}
}

// Streams returns the streams the encoder was started or resumed with.
func (e *Encoder) Streams() []*media.LiveStream {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*media.LiveStream, len(e.streams))
	copy(out, e.streams)
	return out
}

func (e *Encoder) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Encoder) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Counts returns how many times Pause, Resume and Stop succeeded.
func (e *Encoder) Counts() (pauses, resumes, stops int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pauses, e.resumes, e.stops
}

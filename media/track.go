package media

import "sync"

// BasicTrack is a Track whose release is delegated to a callback. Hosts wrap
// their device handles in it.
type BasicTrack struct {
	id      string
	kind    Kind
	label   string
	release func()

	once    sync.Once
	mu      sync.RWMutex
	stopped bool
}

// NewTrack returns a live track. release runs once, on the first Stop.
func NewTrack(id string, kind Kind, label string, release func()) *BasicTrack {
	return &BasicTrack{
		id:      id,
		kind:    kind,
		label:   label,
		release: release,
	}
}

func (t *BasicTrack) ID() string    { return t.id }
func (t *BasicTrack) Kind() Kind    { return t.kind }
func (t *BasicTrack) Label() string { return t.label }

func (t *BasicTrack) Stop() {
	t.once.Do(func() {
		if t.release != nil {
			t.release()
		}
		t.mu.Lock()
		t.stopped = true
		t.mu.Unlock()
	})
}

func (t *BasicTrack) Stopped() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stopped
}

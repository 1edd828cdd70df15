package mediatest

import (
	"sync"
	"time"
)

// Ticker is a hand-driven countdown ticker.
type Ticker struct {
	ch chan time.Time

	mu    sync.Mutex
	stops int
}

func NewTicker() *Ticker {
	return &Ticker{ch: make(chan time.Time)}
}

func (t *Ticker) C() <-chan time.Time {
	return t.ch
}

func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
}

// Stops returns how many times Stop was called.
func (t *Ticker) Stops() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}

// Tick hands one tick to the receiver. It returns false when nothing
// received the tick within a second.
func (t *Ticker) Tick() bool {
	select {
	case t.ch <- time.Now():
		return true
	case <-time.After(time.Second):
		return false
	}
}

// TickN calls Tick n times and reports whether every tick was received.
func (t *Ticker) TickN(n int) bool {
	for i := 0; i < n; i++ {
		if !t.Tick() {
			return false
		}
	}
	return true
}

package recorder

import "time"

// FinalizableAt is the countdown value from which a manual stop is allowed.
const FinalizableAt = 5

// Countdown is the visible state of the recording timer.
type Countdown struct {
	Remaining   int  `json:"remaining"`
	Active      bool `json:"active"`
	Finalizable bool `json:"finalizable"`
	Urgent      bool `json:"urgent"`

	next int
}

func newCountdown(seconds int) *Countdown {
	return &Countdown{
		Remaining: seconds,
		Active:    true,
		next:      seconds,
	}
}

// tick shows the next value and applies the thresholds to it. It reports
// true once the shown value reaches zero.
func (c *Countdown) tick() bool {
	i := c.next
	c.Remaining = i

	if i > FinalizableAt {
		c.Finalizable = false
	} else {
		c.Finalizable = true
		c.Urgent = true
	}

	if i <= 0 {
		c.Active = false
		return true
	}

	c.next--
	return false
}

// Ticker delivers countdown ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewTickerFunc creates the Ticker a recording pass counts down with.
type NewTickerFunc func(d time.Duration) Ticker

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

// NewTimeTicker is the NewTickerFunc backed by time.Ticker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

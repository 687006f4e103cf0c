// Package schedule abstracts delayed execution so debounced work can run on
// real timers in production and on a manually advanced clock in tests.
package schedule

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Timer is a pending scheduled call.
type Timer interface {
	// Stop cancels the call. It reports whether the call was still pending.
	Stop() bool
}

// Scheduler runs f once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Clock schedules on a clockwork clock. Callbacks run on their own
// goroutine, for the real clock and the fake one alike.
type Clock struct {
	clock clockwork.Clock
}

// NewClock returns a Scheduler over c. A nil c is the real clock.
func NewClock(c clockwork.Clock) Clock {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return Clock{clock: c}
}

// AfterFunc implements Scheduler.
func (c Clock) AfterFunc(d time.Duration, f func()) Timer {
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	return c.clock.AfterFunc(d, f)
}

// Real schedules on the runtime's timers.
type Real struct{}

// AfterFunc implements Scheduler.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return NewClock(nil).AfterFunc(d, f)
}

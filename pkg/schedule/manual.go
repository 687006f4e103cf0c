package schedule

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Manual is a Scheduler driven by Advance. Due callbacks run synchronously on
// the goroutine calling Advance, earliest first, in scheduling order for ties.
// Virtual time is kept on a clockwork fake clock, which Clock exposes so other
// components can share it.
type Manual struct {
	mu      sync.Mutex
	clock   *clockwork.FakeClock
	start   time.Time
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	owner   *Manual
	due     time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

// NewManual returns a Manual clock at zero.
func NewManual() *Manual {
	clock := clockwork.NewFakeClock()
	return &Manual{clock: clock, start: clock.Now()}
}

// Clock returns the fake clock backing m.
func (m *Manual) Clock() *clockwork.FakeClock {
	return m.clock
}

// AfterFunc implements Scheduler.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{owner: m, due: m.clock.Now().Add(d), seq: m.seq, f: f}
	m.pending = append(m.pending, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Now returns the elapsed virtual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.Since(m.start)
}

// Pending returns how many callbacks are waiting.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, running every callback that becomes
// due, including ones scheduled by callbacks run during this call.
func (m *Manual) Advance(d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	target := m.clock.Now().Add(d)
	m.mu.Unlock()

	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		t.f()
	}

	m.mu.Lock()
	m.moveTo(target)
	m.mu.Unlock()
}

// RunPending runs everything due now without moving the clock.
func (m *Manual) RunPending() {
	m.Advance(0)
}

// moveTo must be called with mu held.
func (m *Manual) moveTo(at time.Time) {
	if now := m.clock.Now(); at.After(now) {
		m.clock.Advance(at.Sub(now))
	}
}

func (m *Manual) nextDue(target time.Time) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.pending[:0]
	for _, t := range m.pending {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.pending = live

	sort.SliceStable(m.pending, func(i, j int) bool {
		if !m.pending[i].due.Equal(m.pending[j].due) {
			return m.pending[i].due.Before(m.pending[j].due)
		}
		return m.pending[i].seq < m.pending[j].seq
	})
	if len(m.pending) == 0 || m.pending[0].due.After(target) {
		return nil
	}
	t := m.pending[0]
	t.fired = true
	m.moveTo(t.due)
	return t
}

package ui

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Dicklesworthstone/rowgrid/pkg/schedule"
)

// TimerMsg carries a due callback to the program. The grid runs it from
// Update, so work scheduled on a ProgramScheduler happens on the program's
// goroutine.
type TimerMsg struct {
	timer *programTimer
}

// Run calls the callback unless its timer was stopped or it already ran.
func (msg TimerMsg) Run() {
	if msg.timer != nil {
		msg.timer.run()
	}
}

// ProgramScheduler is a schedule.Scheduler whose callbacks run inside the
// program's Update. Handing it to the row model keeps every mutation of the
// row tree on the goroutine that renders it, while other goroutines may
// still queue transactions.
type ProgramScheduler struct {
	clock clockwork.Clock

	mu     sync.Mutex
	sender Sender
	held   []*programTimer
}

// NewProgramScheduler returns a scheduler on clock; nil is the real clock.
// Callbacks that come due before a sender is attached are held until Attach.
func NewProgramScheduler(clock clockwork.Clock) *ProgramScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ProgramScheduler{clock: clock}
}

// Attach sets the program callbacks are delivered to.
func (s *ProgramScheduler) Attach(sender Sender) {
	s.mu.Lock()
	s.sender = sender
	held := s.held
	s.held = nil
	s.mu.Unlock()

	for _, t := range held {
		go sender.Send(TimerMsg{timer: t})
	}
}

// AfterFunc implements schedule.Scheduler.
func (s *ProgramScheduler) AfterFunc(d time.Duration, f func()) schedule.Timer {
	t := &programTimer{f: f}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = s.clock.AfterFunc(d, func() { s.deliver(t) })
	return t
}

func (s *ProgramScheduler) deliver(t *programTimer) {
	s.mu.Lock()
	sender := s.sender
	if sender == nil {
		s.held = append(s.held, t)
	}
	s.mu.Unlock()

	if sender != nil {
		sender.Send(TimerMsg{timer: t})
	}
}

type programTimer struct {
	mu      sync.Mutex
	timer   clockwork.Timer
	f       func()
	stopped bool
	ran     bool
}

func (t *programTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.ran {
		return false
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
	return true
}

func (t *programTimer) run() {
	t.mu.Lock()
	if t.stopped || t.ran {
		t.mu.Unlock()
		return
	}
	t.ran = true
	t.mu.Unlock()
	t.f()
}

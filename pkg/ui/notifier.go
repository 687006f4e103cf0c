package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/rowgrid/pkg/rowmodel"
)

// Sender is the part of *tea.Program the notifier needs.
type Sender interface {
	Send(msg tea.Msg)
}

// EventsMsg tells the grid that engine events are waiting in its notifier.
type EventsMsg struct{}

// ProgramNotifier forwards row model events to a running program. Events are
// queued and a single EventsMsg is sent per burst; the grid drains the queue
// when it handles the message. Sending happens on its own goroutine since
// the row model may notify from inside the program's Update.
type ProgramNotifier struct {
	mu      sync.Mutex
	sender  Sender
	queue   []rowmodel.Event
	waiting bool
}

// NewProgramNotifier returns a notifier; the sender can be attached later
// with Attach once the program exists.
func NewProgramNotifier(sender Sender) *ProgramNotifier {
	return &ProgramNotifier{sender: sender}
}

// Attach sets the program events are forwarded to.
func (n *ProgramNotifier) Attach(sender Sender) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sender = sender
	if len(n.queue) > 0 && !n.waiting {
		n.wake()
	}
}

// Notify implements rowmodel.Notifier.
func (n *ProgramNotifier) Notify(e rowmodel.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queue = append(n.queue, e)
	if !n.waiting && n.sender != nil {
		n.wake()
	}
}

// wake must be called with mu held.
func (n *ProgramNotifier) wake() {
	n.waiting = true
	sender := n.sender
	go sender.Send(EventsMsg{})
}

// Drain returns and clears the queued events.
func (n *ProgramNotifier) Drain() []rowmodel.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.queue
	n.queue = nil
	n.waiting = false
	return out
}

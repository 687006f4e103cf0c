package rowmodel

import (
	"sync"

	"github.com/Dicklesworthstone/rowgrid/pkg/model"
)

// Event is a notification emitted by the row model. Events are delivered
// after the model has released its lock, in the order they were raised.
type Event interface {
	EventName() string
}

// Event names.
const (
	EventModelUpdated             = "modelUpdated"
	EventRowDataChanged           = "rowDataChanged"
	EventRowDataUpdated           = "rowDataUpdated"
	EventSelectionChanged         = "selectionChanged"
	EventAsyncTransactionsFlushed = "asyncTransactionsFlushed"
	EventExpandCollapseAll        = "expandOrCollapseAll"
	EventRowGroupOpened           = "rowGroupOpened"
)

// ModelUpdatedEvent follows every refresh.
type ModelUpdatedEvent struct {
	Animate          bool
	KeepRenderedRows bool
	NewData          bool
	NewPage          bool
}

func (ModelUpdatedEvent) EventName() string { return EventModelUpdated }

// RowDataChangedEvent follows a full reload.
type RowDataChangedEvent struct{}

func (RowDataChangedEvent) EventName() string { return EventRowDataChanged }

// RowDataUpdatedEvent follows a transaction.
type RowDataUpdatedEvent struct{}

func (RowDataUpdatedEvent) EventName() string { return EventRowDataUpdated }

// SelectionChangedEvent is raised once per operation that changed selection.
type SelectionChangedEvent struct {
	Source string
}

func (SelectionChangedEvent) EventName() string { return EventSelectionChanged }

// AsyncTransactionsFlushedEvent carries one result per batched transaction.
type AsyncTransactionsFlushedEvent struct {
	Results []model.TransactionResult
}

func (AsyncTransactionsFlushedEvent) EventName() string { return EventAsyncTransactionsFlushed }

// ExpandCollapseAllEvent follows ExpandOrCollapseAll.
type ExpandCollapseAllEvent struct {
	Source string
}

func (ExpandCollapseAllEvent) EventName() string { return EventExpandCollapseAll }

// RowGroupOpenedEvent follows SetRowExpanded.
type RowGroupOpenedEvent struct {
	Node     *model.RowNode
	Expanded bool
}

func (RowGroupOpenedEvent) EventName() string { return EventRowGroupOpened }

// Notifier receives events. Implementations may call back into the row
// model.
type Notifier interface {
	Notify(e Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(e Event)

// Notify implements Notifier.
func (f NotifierFunc) Notify(e Event) { f(e) }

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

// Recorder is a Notifier that keeps every event. It is safe for concurrent
// use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Notify implements Notifier.
func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventName()
	}
	return out
}

// Count returns how many events named name were recorded.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

// Reset forgets every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Package rowmodel is the client-side row model: it owns the row tree, runs
// the stage pipeline on every change, lays the displayed rows out vertically
// and answers the queries a renderer needs.
//
// Exported methods serialise on the model's lock, so any goroutine may call
// them. The *model.RowNode values the queries return are live, though: later
// changes rewrite their data, geometry and child arrays without the reader
// holding any lock. A renderer that reads nodes must therefore be the only
// goroutine that changes the model, which includes running batched
// transactions; give the model a Scheduler that runs callbacks on that
// goroutine. Queuing with BatchUpdateRowData from elsewhere is fine.
//
// Events raised while a method runs are delivered after the model's lock is
// released, so a Notifier may call back into the model.
package rowmodel

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dicklesworthstone/rowgrid/pkg/model"
	"github.com/Dicklesworthstone/rowgrid/pkg/nodes"
	"github.com/Dicklesworthstone/rowgrid/pkg/schedule"
	"github.com/Dicklesworthstone/rowgrid/pkg/stage"
)

// Row height defaults.
const (
	DefaultRowHeight       = 25
	DefaultDetailRowHeight = 300
)

// DomLayoutNormal is the layout in which row heights may be estimated.
const DomLayoutNormal = "normal"

// GridOptions is the grid configuration the row model consults.
type GridOptions struct {
	RowID           nodes.RowIDFunc
	IsRowMaster     func(data any) bool
	IsRowSelectable func(data any) bool

	// RowHeightFunc measures a row. When set, rows start with an estimated
	// height and are measured once they scroll into view.
	RowHeightFunc func(n *model.RowNode) int

	SuppressParentsInRowNodes bool
	TreeData                  bool
	MasterDetail              bool
	PivotMode                 bool

	// GroupDefaultExpanded is the depth below which rows start expanded;
	// -1 expands everything.
	GroupDefaultExpanded int

	AsyncTransactionWaitMillis int

	SuppressModelUpdateAfterUpdateTransaction bool
	RememberGroupStateWhenNewData             bool
	SuppressMaintainUnsortedOrder             bool

	RowHeight       int
	DetailRowHeight int
	DomLayout       string
}

// Options wires a ClientSideRowModel to its collaborators. Only Grid is
// required; nil collaborators get defaults.
type Options struct {
	Grid   GridOptions
	Stages stage.Set

	Logger    logrus.FieldLogger
	Scheduler schedule.Scheduler
	Notifier  Notifier
}

// ClientSideRowModel is the row model for a fully loaded, in-memory row set.
type ClientSideRowModel struct {
	mu sync.Mutex

	grid     GridOptions
	stages   stage.Set
	log      logrus.FieldLogger
	sched    schedule.Scheduler
	notifier Notifier

	root          *model.RowNode
	nodeManager   *nodes.Manager
	rowsToDisplay []*model.RowNode
	pipeline      []pipelineStep

	batch      []batchItem
	batchTimer schedule.Timer
	batchGen   int

	// pendingGroupState is applied after the next grouping pass.
	pendingGroupState map[string]bool

	pending []Event
}

// New returns an empty row model.
func New(opts Options) *ClientSideRowModel {
	m := &ClientSideRowModel{
		grid:     opts.Grid,
		stages:   opts.Stages,
		log:      opts.Logger,
		sched:    opts.Scheduler,
		notifier: opts.Notifier,
		root:     model.NewRootNode(),
	}
	if m.log == nil {
		m.log = logrus.StandardLogger()
	}
	if m.sched == nil {
		m.sched = schedule.Real{}
	}
	if m.notifier == nil {
		m.notifier = nopNotifier{}
	}

	m.nodeManager = nodes.NewManager(m.root, nodes.Options{
		RowID:                     opts.Grid.RowID,
		IsRowMaster:               opts.Grid.IsRowMaster,
		IsRowSelectable:           opts.Grid.IsRowSelectable,
		GroupLevels:               m.groupLevels,
		TreeData:                  opts.Grid.TreeData,
		MasterDetail:              opts.Grid.MasterDetail,
		SuppressParentsInRowNodes: opts.Grid.SuppressParentsInRowNodes,
		GroupDefaultExpanded:      opts.Grid.GroupDefaultExpanded,
		Logger:                    m.log,
	})
	m.pipeline = m.buildPipeline()
	return m
}

func (m *ClientSideRowModel) groupLevels() int {
	if m.stages.GroupLevels == nil {
		return 0
	}
	return m.stages.GroupLevels()
}

// locked runs fn under the lock and then delivers the events fn raised.
func (m *ClientSideRowModel) locked(fn func()) {
	m.mu.Lock()
	fn()
	events := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, e := range events {
		m.notifier.Notify(e)
	}
}

func (m *ClientSideRowModel) emit(e Event) {
	m.pending = append(m.pending, e)
}

// SetRowData replaces every row. rows must be a slice; anything else is
// logged and leaves the model empty.
func (m *ClientSideRowModel) SetRowData(rows any) {
	m.locked(func() {
		m.setRowData(rows)
	})
}

func (m *ClientSideRowModel) setRowData(rows any) {
	groupState := m.groupState()
	m.nodeManager.SetRowData(rows)
	m.emit(RowDataChangedEvent{})
	m.refreshModel(RefreshParams{
		Step:       StepEverything,
		GroupState: groupState,
		NewData:    true,
	})
}

// SetImmutableRowData replaces the rows while keeping the nodes of rows
// whose id survives. It needs a row id function; without one it falls back
// to SetRowData.
func (m *ClientSideRowModel) SetImmutableRowData(rows any) {
	m.locked(func() {
		if m.grid.RowID == nil {
			m.log.Warn("immutable row data needs a row id function; replacing all rows instead")
			m.setRowData(rows)
			return
		}
		items, ok := nodes.AsRows(rows)
		if !ok {
			m.setRowData(rows)
			return
		}
		tx, order := m.createTransactionForRowData(items)
		m.updateRowData(tx, order)
	})
}

func (m *ClientSideRowModel) createTransactionForRowData(items []any) (model.Transaction, map[string]int) {
	existing := m.nodeManager.CopyOfNodesMap()
	var tx model.Transaction
	var order map[string]int
	if !m.grid.SuppressMaintainUnsortedOrder {
		order = make(map[string]int, len(items))
	}

	for i, data := range items {
		id := m.grid.RowID(data)
		if order != nil {
			order[id] = i
		}
		node, ok := existing[id]
		if !ok {
			tx.Add = append(tx.Add, data)
			continue
		}
		if !nodes.SameData(node.Data, data) {
			tx.Update = append(tx.Update, data)
		}
		delete(existing, id)
	}

	// Walk the leaves rather than the map so removals keep load order.
	for _, n := range m.root.AllLeafChildren {
		if _, gone := existing[n.ID]; gone {
			tx.Remove = append(tx.Remove, n.Data)
		}
	}
	return tx, order
}

// UpdateRowData applies tx now and refreshes the model.
func (m *ClientSideRowModel) UpdateRowData(tx model.Transaction) model.TransactionResult {
	var result model.TransactionResult
	m.locked(func() {
		result = m.updateRowData(tx, nil)
	})
	return result
}

func (m *ClientSideRowModel) updateRowData(tx model.Transaction, order map[string]int) model.TransactionResult {
	result, toUnselect := m.nodeManager.UpdateRowData(tx, order)
	if order == nil && tx.HasAddIndex() {
		order = m.createRowNodeOrder()
	}
	m.commonUpdateRowData([]model.TransactionResult{result}, order, toUnselect)
	return result
}

// commonUpdateRowData refreshes after transactions and settles selection.
func (m *ClientSideRowModel) commonUpdateRowData(results []model.TransactionResult, order map[string]int, toUnselect []*model.RowNode) {
	m.refreshModel(RefreshParams{
		Step:             StepEverything,
		Transactions:     results,
		RowNodeOrder:     order,
		KeepRenderedRows: true,
		KeepEditingRows:  true,
		Animate:          true,
	})
	m.updateSelectionAfterTransactions(toUnselect)
	m.emit(RowDataUpdatedEvent{})
}

// createRowNodeOrder captures the current leaf order, so rows inserted at
// an index stay there when no sort is applied.
func (m *ClientSideRowModel) createRowNodeOrder() map[string]int {
	if m.grid.SuppressMaintainUnsortedOrder {
		return nil
	}
	order := make(map[string]int, len(m.root.AllLeafChildren))
	for i, n := range m.root.AllLeafChildren {
		order[n.ID] = i
	}
	return order
}

func (m *ClientSideRowModel) asyncWait() time.Duration {
	return time.Duration(m.grid.AsyncTransactionWaitMillis) * time.Millisecond
}

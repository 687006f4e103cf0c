package rowmodel

import (
	"github.com/Dicklesworthstone/rowgrid/pkg/changedpath"
	"github.com/Dicklesworthstone/rowgrid/pkg/model"
	"github.com/Dicklesworthstone/rowgrid/pkg/stage"
)

// Step is where a refresh starts. A refresh runs its step and every step
// after it, reusing the earlier steps' last output.
type Step int

const (
	StepEverything Step = iota
	StepFilter
	StepPivot
	StepAggregate
	StepSort
	StepMap
)

func (s Step) String() string {
	switch s {
	case StepEverything:
		return "everything"
	case StepFilter:
		return "filter"
	case StepPivot:
		return "pivot"
	case StepAggregate:
		return "aggregate"
	case StepSort:
		return "sort"
	case StepMap:
		return "map"
	default:
		return "unknown"
	}
}

// RefreshParams describes one refresh.
type RefreshParams struct {
	Step Step

	// GroupState maps group key paths to their expanded flag; it is applied
	// right after grouping.
	GroupState map[string]bool

	KeepRenderedRows bool
	KeepEditingRows  bool
	Animate          bool
	NewData          bool
	NewPage          bool

	// Transactions is nil unless the refresh follows row edits.
	Transactions []model.TransactionResult
	RowNodeOrder map[string]int

	AfterColumnsChanged bool
}

type pipelineStep struct {
	step Step
	run  func(ctx *stage.Context, p RefreshParams)
}

func (m *ClientSideRowModel) buildPipeline() []pipelineStep {
	return []pipelineStep{
		{StepEverything, m.doRowGrouping},
		{StepFilter, m.doFilter},
		{StepPivot, m.doPivot},
		{StepAggregate, m.doAggregate},
		{StepSort, m.doSort},
		{StepMap, m.doRowsToDisplay},
	}
}

// RefreshModel re-runs the pipeline from p.Step.
func (m *ClientSideRowModel) RefreshModel(p RefreshParams) {
	m.locked(func() {
		m.refreshModel(p)
	})
}

func (m *ClientSideRowModel) refreshModel(p RefreshParams) {
	if m.isSuppressModelUpdateAfterUpdateTransaction(p) {
		return
	}

	cp := changedpath.New(false, m.root)
	if p.Transactions == nil || m.grid.TreeData {
		cp.SetInactive()
	}
	ctx := &stage.Context{
		RootNode:            m.root,
		Transactions:        p.Transactions,
		RowNodeOrder:        p.RowNodeOrder,
		ChangedPath:         cp,
		AfterColumnsChanged: p.AfterColumnsChanged,
	}

	start := len(m.pipeline)
	for i, ps := range m.pipeline {
		if ps.step == p.Step {
			start = i
			break
		}
	}
	for _, ps := range m.pipeline[start:] {
		ps.run(ctx, p)
	}

	displayed := m.setRowTops()
	m.clearRowTopAndRowIndex(cp, displayed)

	m.emit(ModelUpdatedEvent{
		Animate:          p.Animate,
		KeepRenderedRows: p.KeepRenderedRows,
		NewData:          p.NewData,
		NewPage:          p.NewPage,
	})
}

// isSuppressModelUpdateAfterUpdateTransaction reports whether the refresh
// follows transactions that only updated rows and configuration says such
// updates need no refresh.
func (m *ClientSideRowModel) isSuppressModelUpdateAfterUpdateTransaction(p RefreshParams) bool {
	if !m.grid.SuppressModelUpdateAfterUpdateTransaction || p.Transactions == nil {
		return false
	}
	for _, tx := range p.Transactions {
		if tx.HasAddsOrRemoves() {
			return false
		}
	}
	return true
}

func (m *ClientSideRowModel) doRowGrouping(ctx *stage.Context, p RefreshParams) {
	if m.stages.Group == nil {
		m.root.ChildrenAfterGroup = m.root.AllLeafChildren
		if m.root.Sibling != nil {
			m.root.Sibling.ChildrenAfterGroup = m.root.ChildrenAfterGroup
		}
		return
	}

	m.stages.Group.Execute(ctx)
	if p.GroupState != nil {
		m.restoreGroupState(p.GroupState)
	}
	if m.pendingGroupState != nil {
		m.restoreGroupState(m.pendingGroupState)
		m.pendingGroupState = nil
	}
}

func (m *ClientSideRowModel) doFilter(ctx *stage.Context, _ RefreshParams) {
	if m.stages.Filter == nil {
		(&stage.FilterStage{}).Execute(ctx)
		return
	}
	m.stages.Filter.Execute(ctx)
}

func (m *ClientSideRowModel) doPivot(ctx *stage.Context, _ RefreshParams) {
	if m.stages.Pivot != nil {
		m.stages.Pivot.Execute(ctx)
	}
}

func (m *ClientSideRowModel) doAggregate(ctx *stage.Context, _ RefreshParams) {
	if m.stages.Aggregate != nil {
		m.stages.Aggregate.Execute(ctx)
	}
}

func (m *ClientSideRowModel) doSort(ctx *stage.Context, _ RefreshParams) {
	if m.stages.Sort == nil {
		(&stage.SortStage{}).Execute(ctx)
		return
	}
	m.stages.Sort.Execute(ctx)
}

func (m *ClientSideRowModel) doRowsToDisplay(ctx *stage.Context, _ RefreshParams) {
	if m.stages.Flatten == nil {
		m.rowsToDisplay = (&stage.FlattenStage{PivotMode: m.grid.PivotMode}).Execute(ctx)
		return
	}
	m.rowsToDisplay = m.stages.Flatten.Execute(ctx)
}

// setRowTops lays the displayed rows out top to bottom and returns the set
// of displayed nodes.
func (m *ClientSideRowModel) setRowTops() map[*model.RowNode]struct{} {
	displayed := make(map[*model.RowNode]struct{}, len(m.rowsToDisplay))
	allowEstimate := m.grid.DomLayout == "" || m.grid.DomLayout == DomLayoutNormal

	next := 0
	for i, row := range m.rowsToDisplay {
		displayed[row] = struct{}{}
		if !row.HasRowHeight() {
			h, estimated := m.rowHeightFor(row, allowEstimate)
			row.SetRowHeight(h, estimated)
		}
		row.SetRowTop(next)
		row.SetRowIndex(i)
		next += row.RowHeight
	}
	return displayed
}

// clearRowTopAndRowIndex removes geometry from every node that is no longer
// displayed. With an active changed path the children of a closed, untouched
// group cannot have been displayed before, so they are skipped. A closed group
// on the path may have just received a displayed row.
func (m *ClientSideRowModel) clearRowTopAndRowIndex(cp *changedpath.ChangedPath, displayed map[*model.RowNode]struct{}) {
	active := cp.IsActive()
	clearIfNotDisplayed := func(n *model.RowNode) {
		if n == nil {
			return
		}
		if _, ok := displayed[n]; !ok {
			n.ClearRowTopAndRowIndex()
		}
	}

	var recurse func(n *model.RowNode)
	recurse = func(n *model.RowNode) {
		clearIfNotDisplayed(n)
		clearIfNotDisplayed(n.DetailNode)
		clearIfNotDisplayed(n.Sibling)
		if !n.HasChildren() {
			return
		}
		if active && !n.IsRoot() && !n.Expanded && !cp.Contains(n) {
			return
		}
		for _, child := range n.ChildrenAfterGroup {
			recurse(child)
		}
	}
	recurse(m.root)
}

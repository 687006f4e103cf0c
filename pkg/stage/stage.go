// Package stage defines the contract between the row model and the
// transformation pipeline (group, filter, pivot, aggregate, sort, flatten)
// and ships simple reference stages.
//
// Every stage reads the previous child array of each node and writes its own
// (ChildrenAfterGroup, ChildrenAfterFilter, ChildrenAfterSort, ...). Stages
// run synchronously under the row model's lock and must not call back into
// the row model.
package stage

import (
	"github.com/Dicklesworthstone/rowgrid/pkg/changedpath"
	"github.com/Dicklesworthstone/rowgrid/pkg/model"
)

// Context is handed to every stage on every run.
type Context struct {
	RootNode *model.RowNode

	// Transactions is set when the refresh was caused by row edits.
	Transactions []model.TransactionResult

	// RowNodeOrder maps leaf ids to their wanted position when the caller
	// asked to keep an explicit order.
	RowNodeOrder map[string]int

	// ChangedPath is never nil; when inactive every node must be visited.
	ChangedPath *changedpath.ChangedPath

	AfterColumnsChanged bool
}

// Stage is one step of the pipeline.
type Stage interface {
	Execute(ctx *Context)
}

// Flattener is the last stage: it returns the displayed rows in order.
type Flattener interface {
	Execute(ctx *Context) []*model.RowNode
}

// Func adapts a function to Stage.
type Func func(ctx *Context)

// Execute implements Stage.
func (f Func) Execute(ctx *Context) { f(ctx) }

// FlattenFunc adapts a function to Flattener.
type FlattenFunc func(ctx *Context) []*model.RowNode

// Execute implements Flattener.
func (f FlattenFunc) Execute(ctx *Context) []*model.RowNode { return f(ctx) }

// Set is the installed pipeline. Any field may be nil; the row model then
// degrades to the simplest behaviour for that step.
type Set struct {
	Group     Stage
	Filter    Stage
	Pivot     Stage
	Aggregate Stage
	Sort      Stage
	Flatten   Flattener

	// GroupLevels reports how many grouping levels the group stage applies.
	GroupLevels func() int
}

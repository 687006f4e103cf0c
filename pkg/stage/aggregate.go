package stage

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Dicklesworthstone/rowgrid/pkg/model"
)

// AggFunc names a reduction over the numeric values of a field.
type AggFunc string

const (
	AggSum   AggFunc = "sum"
	AggAvg   AggFunc = "avg"
	AggMin   AggFunc = "min"
	AggMax   AggFunc = "max"
	AggCount AggFunc = "count"
)

// Valid reports whether f is a known reduction.
func (f AggFunc) Valid() bool {
	switch f {
	case AggSum, AggAvg, AggMin, AggMax, AggCount:
		return true
	}
	return false
}

// AggColumn aggregates one field.
type AggColumn struct {
	Field string
	Func  AggFunc
}

// Key is the AggData key the result is stored under.
func (c AggColumn) Key() string {
	return fmt.Sprintf("%s(%s)", c.Func, c.Field)
}

// AggregateStage computes AggData for every changed group (and the root)
// from the filtered leaves below it.
type AggregateStage struct {
	Columns []AggColumn
}

// Execute implements Stage.
func (a *AggregateStage) Execute(ctx *Context) {
	if len(a.Columns) == 0 {
		return
	}
	ctx.ChangedPath.ForEachChangedNodeDepthFirst(a.aggregateNode, false, false)
}

func (a *AggregateStage) aggregateNode(n *model.RowNode) {
	leaves := filteredLeaves(n, nil)
	agg := make(map[string]float64, len(a.Columns))
	for _, col := range a.Columns {
		if col.Func == AggCount {
			agg[col.Key()] = float64(len(leaves))
			continue
		}
		values := make([]float64, 0, len(leaves))
		for _, leaf := range leaves {
			if v, ok := number(Field(leaf.Data, col.Field)); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		agg[col.Key()] = reduce(col.Func, values)
	}
	n.AggData = agg
	if n.Sibling != nil {
		n.Sibling.AggData = agg
	}
}

func reduce(fn AggFunc, values []float64) float64 {
	switch fn {
	case AggAvg:
		return stat.Mean(values, nil)
	case AggMin:
		return floats.Min(values)
	case AggMax:
		return floats.Max(values)
	default:
		return floats.Sum(values)
	}
}

func filteredLeaves(n *model.RowNode, out []*model.RowNode) []*model.RowNode {
	for _, child := range n.ChildrenAfterFilter {
		if child.Group {
			out = filteredLeaves(child, out)
		} else {
			out = append(out, child)
		}
	}
	return out
}

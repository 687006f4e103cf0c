package stage

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/rowgrid/pkg/changedpath"
	"github.com/Dicklesworthstone/rowgrid/pkg/model"
	"github.com/Dicklesworthstone/rowgrid/pkg/nodes"
)

func rec(id, team string, n float64) map[string]any {
	return map[string]any{"id": id, "team": team, "n": n}
}

func newTree(t *testing.T, rows ...any) (*model.RowNode, *nodes.Manager) {
	t.Helper()
	root := model.NewRootNode()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	m := nodes.NewManager(root, nodes.Options{
		RowID:  func(d any) string { return d.(map[string]any)["id"].(string) },
		Logger: log,
	})
	m.SetRowData(rows)
	return root, m
}

func fullContext(root *model.RowNode) *Context {
	cp := changedpath.New(false, root)
	cp.SetInactive()
	return &Context{RootNode: root, ChangedPath: cp}
}

func ids(rows []*model.RowNode) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func runAll(ctx *Context, stages ...Stage) {
	for _, s := range stages {
		s.Execute(ctx)
	}
}

func TestPipeline_GroupFilterSortAggregateFlatten(t *testing.T) {
	root, _ := newTree(t, rec("r0", "a", 1), rec("r1", "b", 5), rec("r2", "a", 3))
	ctx := fullContext(root)

	group := NewGroupStage(-1, FieldKey("team"))
	filter := &FilterStage{Predicate: func(d any) bool {
		v, _ := number(Field(d, "n"))
		return v >= 2
	}}
	sorter := &SortStage{Compare: ByField("n", true)}
	agg := &AggregateStage{Columns: []AggColumn{{Field: "n", Func: AggSum}, {Field: "n", Func: AggCount}}}
	runAll(ctx, group, filter, sorter, agg)

	require.Equal(t, []string{"row-group-a", "row-group-b"}, ids(root.ChildrenAfterGroup))
	require.Equal(t, 2, root.AllChildrenCount)
	require.Equal(t, []string{"row-group-b", "row-group-a"}, ids(root.ChildrenAfterSort))
	require.Equal(t, 8.0, root.AggData["sum(n)"])
	require.Equal(t, 2.0, root.AggData["count(n)"])

	groupA := root.ChildrenAfterGroup[0]
	require.True(t, groupA.LeafGroup)
	require.Equal(t, []string{"r0", "r2"}, ids(groupA.ChildrenAfterGroup))
	require.Equal(t, []string{"r2"}, ids(groupA.ChildrenAfterFilter))
	require.Equal(t, 3.0, groupA.AggData["sum(n)"])

	rows := (&FlattenStage{}).Execute(ctx)
	require.Equal(t, []string{"row-group-b", "r1", "row-group-a", "r2"}, ids(rows))
	require.Equal(t, []int{0, 1, 0, 1}, []int{rows[0].UILevel, rows[1].UILevel, rows[2].UILevel, rows[3].UILevel})
}

func TestFlatten_Variants(t *testing.T) {
	tests := []struct {
		name    string
		flatten FlattenStage
		want    []string
	}{
		{"default", FlattenStage{}, []string{"row-group-a", "r0", "r2", "row-group-b", "r1"}},
		{"footers", FlattenStage{GroupIncludeFooter: true}, []string{
			"row-group-a", "r0", "r2", "rowGroupFooter_row-group-a",
			"row-group-b", "r1", "rowGroupFooter_row-group-b",
		}},
		{"total footer", FlattenStage{GroupIncludeTotalFooter: true}, []string{
			"row-group-a", "r0", "r2", "row-group-b", "r1", model.TotalFooterIDPrefix,
		}},
		{"pivot", FlattenStage{PivotMode: true}, []string{"row-group-a", "row-group-b"}},
		{"hide open parents", FlattenStage{GroupHideOpenParents: true}, []string{"r0", "r2", "r1"}},
		{"remove single children", FlattenStage{GroupRemoveSingleChildren: true}, []string{"row-group-a", "r0", "r2", "r1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, _ := newTree(t, rec("r0", "a", 1), rec("r1", "b", 5), rec("r2", "a", 3))
			ctx := fullContext(root)
			runAll(ctx, NewGroupStage(-1, FieldKey("team")), &FilterStage{}, &SortStage{})
			require.Equal(t, tt.want, ids(tt.flatten.Execute(ctx)))
		})
	}
}

func TestFlatten_ClosedGroupHidesChildren(t *testing.T) {
	root, _ := newTree(t, rec("r0", "a", 1), rec("r1", "b", 5))
	ctx := fullContext(root)
	runAll(ctx, NewGroupStage(0, FieldKey("team")), &FilterStage{}, &SortStage{})

	require.Equal(t, []string{"row-group-a", "row-group-b"}, ids((&FlattenStage{}).Execute(ctx)))
}

func TestFlatten_MasterDetail(t *testing.T) {
	root, _ := newTree(t, rec("r0", "a", 1), rec("r1", "b", 5))
	ctx := fullContext(root)
	runAll(ctx, NewGroupStage(0), &FilterStage{}, &SortStage{})

	master := root.AllLeafChildren[0]
	master.Master = true
	master.Expanded = true

	rows := (&FlattenStage{}).Execute(ctx)
	require.Equal(t, []string{"r0", "detail_r0", "r1"}, ids(rows))
	require.True(t, rows[1].Detail)
	require.False(t, rows[1].Selectable)
	require.Same(t, master, rows[1].Parent)

	again := (&FlattenStage{}).Execute(ctx)
	require.Same(t, rows[1], again[1], "detail node is created once")
}

func TestGroup_TransactionMovesLeafAndDropsEmptyGroup(t *testing.T) {
	root, m := newTree(t, rec("r0", "a", 1), rec("r1", "b", 5))
	group := NewGroupStage(-1, FieldKey("team"))
	ctx := fullContext(root)
	runAll(ctx, group, &FilterStage{}, &SortStage{})
	groupB := root.ChildrenAfterGroup[1]
	groupB.SetRowTop(25)
	groupB.SetRowIndex(2)

	res, _ := m.UpdateRowData(model.Transaction{Update: []any{rec("r1", "a", 5)}}, nil)
	ctx = &Context{
		RootNode:     root,
		Transactions: []model.TransactionResult{res},
		ChangedPath:  changedpath.New(false, root),
	}
	runAll(ctx, group, &FilterStage{}, &SortStage{})

	require.Equal(t, []string{"row-group-a"}, ids(root.ChildrenAfterSort))
	require.Equal(t, []string{"r0", "r1"}, ids(root.ChildrenAfterSort[0].ChildrenAfterSort))
	require.Equal(t, 2, root.AllChildrenCount)
	require.False(t, groupB.IsDisplayed(), "vanished group loses its geometry")
	require.True(t, ctx.ChangedPath.Contains(groupB))
}

func TestGroup_ReusesGroupNodes(t *testing.T) {
	root, m := newTree(t, rec("r0", "a", 1))
	group := NewGroupStage(0, FieldKey("team"))
	ctx := fullContext(root)
	group.Execute(ctx)
	first := root.ChildrenAfterGroup[0]
	first.Expanded = true

	res, _ := m.UpdateRowData(model.Transaction{Add: []any{rec("r1", "a", 2)}}, nil)
	ctx.Transactions = []model.TransactionResult{res}
	group.Execute(ctx)

	require.Same(t, first, root.ChildrenAfterGroup[0])
	require.True(t, first.Expanded, "expansion survives regrouping")
	require.Len(t, first.AllLeafChildren, 2)
}

func TestGroup_NoColumnsIsPassThrough(t *testing.T) {
	root, _ := newTree(t, rec("r0", "a", 1), rec("r1", "b", 5))
	ctx := fullContext(root)
	NewGroupStage(-1).Execute(ctx)

	require.Equal(t, []string{"r0", "r1"}, ids(root.ChildrenAfterGroup))
	require.Equal(t, 0, root.ChildrenAfterGroup[0].Level)
}

func TestSort_RowNodeOrderWithoutComparator(t *testing.T) {
	root, _ := newTree(t, rec("r0", "a", 1), rec("r1", "b", 5), rec("r2", "c", 3))
	ctx := fullContext(root)
	ctx.RowNodeOrder = map[string]int{"r2": 0, "r0": 1, "r1": 2}
	runAll(ctx, NewGroupStage(-1), &FilterStage{}, &SortStage{})

	require.Equal(t, []string{"r2", "r0", "r1"}, ids(root.ChildrenAfterSort))
	require.Equal(t, []string{"r0", "r1", "r2"}, ids(root.ChildrenAfterFilter), "filtered slice is not reordered")
	require.True(t, root.ChildrenAfterSort[0].FirstChild)
	require.True(t, root.ChildrenAfterSort[2].LastChild)
	require.Equal(t, 1, root.ChildrenAfterSort[1].ChildIndex)
}

func TestAggregate_Reductions(t *testing.T) {
	root, _ := newTree(t, rec("r0", "a", 1), rec("r1", "a", 5), rec("r2", "a", 3))
	ctx := fullContext(root)
	cols := []AggColumn{
		{Field: "n", Func: AggSum},
		{Field: "n", Func: AggAvg},
		{Field: "n", Func: AggMin},
		{Field: "n", Func: AggMax},
		{Field: "missing", Func: AggMax},
	}
	runAll(ctx, NewGroupStage(-1), &FilterStage{}, &AggregateStage{Columns: cols})

	require.Equal(t, 9.0, root.AggData["sum(n)"])
	require.Equal(t, 3.0, root.AggData["avg(n)"])
	require.Equal(t, 1.0, root.AggData["min(n)"])
	require.Equal(t, 5.0, root.AggData["max(n)"])
	_, ok := root.AggData["max(missing)"]
	require.False(t, ok, "no values means no result")
}

func TestAggFunc_Valid(t *testing.T) {
	require.True(t, AggAvg.Valid())
	require.False(t, AggFunc("median").Valid())
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		a, b any
		want int
	}{
		{2.0, 10.0, -1},
		{"2", 10.0, -1},
		{"b", "a", 1},
		{nil, "a", -1},
		{"x", "x", 0},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, CompareValues(tt.a, tt.b), "%v vs %v", tt.a, tt.b)
	}
}

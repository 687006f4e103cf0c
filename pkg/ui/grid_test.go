package ui

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/rowgrid/pkg/config"
	"github.com/Dicklesworthstone/rowgrid/pkg/model"
	"github.com/Dicklesworthstone/rowgrid/pkg/recipe"
	"github.com/Dicklesworthstone/rowgrid/pkg/rowmodel"
	"github.com/Dicklesworthstone/rowgrid/pkg/schedule"
)

func records() []any {
	return []any{
		map[string]any{"id": "1", "group": "ops", "value": 5.0},
		map[string]any{"id": "2", "group": "dev", "value": 2.0},
		map[string]any{"id": "3", "group": "ops", "value": 9.0},
		map[string]any{"id": "4", "group": "dev", "value": 4.0},
	}
}

type fixture struct {
	grid     GridModel
	rows     *rowmodel.ClientSideRowModel
	notifier *ProgramNotifier
	copied   []string
	copyErr  error
}

func newFixture(t *testing.T, r recipe.Recipe, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RowIDField = "id"
	cfg.GroupDefaultExpanded = -1
	if mutate != nil {
		mutate(&cfg)
	}
	set, err := recipe.Compile(r, recipe.CompileOptions{GroupDefaultExpanded: cfg.GroupDefaultExpanded})
	require.NoError(t, err)

	logger, _ := logtest.NewNullLogger()
	f := &fixture{notifier: NewProgramNotifier(nil)}
	f.rows = rowmodel.New(rowmodel.Options{
		Grid:      cfg.GridOptions(),
		Stages:    set,
		Logger:    logger,
		Scheduler: schedule.NewManual(),
		Notifier:  f.notifier,
	})
	f.rows.SetRowData(records())

	theme := DefaultTheme(lipgloss.NewRenderer(io.Discard))
	f.grid = NewGridModel(f.rows, Options{
		Theme:    &theme,
		Notifier: f.notifier,
		Clipboard: func(s string) error {
			if f.copyErr != nil {
				return f.copyErr
			}
			f.copied = append(f.copied, s)
			return nil
		},
		MarkdownStyle: "notty",
		Logger:        logger,
	})
	f.send(tea.WindowSizeMsg{Width: 80, Height: 20})
	return f
}

func (f *fixture) send(msg tea.Msg) tea.Cmd {
	next, cmd := f.grid.Update(msg)
	f.grid = next.(GridModel)
	return cmd
}

func (f *fixture) press(keys ...string) {
	for _, k := range keys {
		f.send(keyMsg(k))
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "pgdown":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	case "pgup":
		return tea.KeyMsg{Type: tea.KeyPgUp}
	case "home":
		return tea.KeyMsg{Type: tea.KeyHome}
	case "end":
		return tea.KeyMsg{Type: tea.KeyEnd}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestGrid_RendersGroupedRows(t *testing.T) {
	f := newFixture(t, recipe.GroupedRecipe(), nil)
	view := f.grid.View()

	require.Contains(t, view, "group  id  value")
	require.Contains(t, view, "▾ [ ] group: dev (2)  count(value)=2 sum(value)=6")
	require.Contains(t, view, "  • [ ] dev    2   2")
	require.Contains(t, view, "Σ     Total  count(value)=4 sum(value)=20")
	require.Contains(t, view, "row 1/7")
}

func TestGrid_Navigation(t *testing.T) {
	f := newFixture(t, recipe.GroupedRecipe(), nil)
	require.Equal(t, model.GroupIDPrefix+"dev", f.grid.CursorNode().ID)

	f.press("down", "j")
	require.Equal(t, "4", f.grid.CursorNode().ID)

	f.press("up")
	require.Equal(t, "2", f.grid.CursorNode().ID)

	f.press("end")
	require.Equal(t, 6, f.grid.Cursor())
	f.press("down")
	require.Equal(t, 6, f.grid.Cursor(), "cursor stays on the last row")

	f.press("home")
	require.Equal(t, 0, f.grid.Cursor())
	f.press("up")
	require.Equal(t, 0, f.grid.Cursor())
}

func TestGrid_PageKeysUseRowGeometry(t *testing.T) {
	f := newFixture(t, recipe.GroupedRecipe(), nil)

	f.press("pgdown")
	require.Equal(t, 6, f.grid.Cursor(), "a page is taller than every row")

	f.press("pgup")
	require.Equal(t, 0, f.grid.Cursor())
}

func TestGrid_ToggleExpand(t *testing.T) {
	f := newFixture(t, recipe.GroupedRecipe(), nil)

	f.press("enter")
	require.Len(t, f.rows.GetRowsToDisplay(), 5)
	require.Contains(t, f.grid.View(), "▸ [ ] group: dev (2)")

	f.press("space")
	require.Len(t, f.rows.GetRowsToDisplay(), 7)

	f.press("down", "enter")
	require.Len(t, f.rows.GetRowsToDisplay(), 7, "leaves do not expand")

	f.press("C")
	require.Len(t, f.rows.GetRowsToDisplay(), 3)
	f.press("E")
	require.Len(t, f.rows.GetRowsToDisplay(), 7)
}

func TestGrid_SelectionAndCopy(t *testing.T) {
	f := newFixture(t, recipe.GroupedRecipe(), nil)

	f.press("y")
	require.Equal(t, "nothing selected", f.grid.Status())
	require.Empty(t, f.copied)

	f.press("down", "s")
	require.Contains(t, f.grid.View(), "▾ [-] group: dev (2)")
	f.press("y")
	require.Equal(t, []string{"2"}, f.copied)
	require.Equal(t, "copied 1 ids", f.grid.Status())

	f.press("up", "s")
	f.press("y")
	require.Equal(t, "2\n4", f.copied[1])
	require.Contains(t, f.grid.View(), "2 selected")

	f.press("s")
	require.Empty(t, f.rows.GetSelectedNodes())
}

func TestGrid_CopyFailure(t *testing.T) {
	f := newFixture(t, recipe.GroupedRecipe(), nil)
	f.copyErr = errors.New("no clipboard")

	f.press("down", "s", "y")
	require.Equal(t, "copy failed: no clipboard", f.grid.Status())
}

func TestGrid_FooterAndTotalIgnoreKeys(t *testing.T) {
	f := newFixture(t, recipe.GroupedRecipe(), nil)
	f.press("end", "s", "enter")

	require.Empty(t, f.rows.GetSelectedNodes())
	require.Len(t, f.rows.GetRowsToDisplay(), 7)
}

func TestGrid_MasterDetailRows(t *testing.T) {
	f := newFixture(t, recipe.DefaultRecipe(), func(c *config.Config) {
		c.MasterDetail = true
		c.GroupDefaultExpanded = 0
	})
	require.Len(t, f.rows.GetRowsToDisplay(), 4)

	f.press("enter")
	rows := f.rows.GetRowsToDisplay()
	require.Len(t, rows, 5)
	require.True(t, rows[1].Detail)
	require.Equal(t, 3, rows[1].RowHeight)

	view := f.grid.View()
	require.Contains(t, view, "↳")
	require.Contains(t, view, "      group: ops")
	require.Contains(t, view, "      id: 1")

	f.press("down", "down")
	require.Equal(t, "2", f.grid.CursorNode().ID)
}

func TestGrid_DetailPanel(t *testing.T) {
	f := newFixture(t, recipe.GroupedRecipe(), nil)
	f.press("down", "d")

	require.True(t, f.grid.ShowingDetail())
	require.Contains(t, f.grid.View(), "field")

	f.press("d")
	require.False(t, f.grid.ShowingDetail())
}

func TestDetailMarkdown(t *testing.T) {
	leaf := &model.RowNode{ID: "2", Data: map[string]any{"id": "2", "value": 2.0}}
	require.Equal(t, "## 2\n\n| field | value |\n|---|---|\n| id | 2 |\n| value | 2 |\n", detailMarkdown(leaf))

	group := &model.RowNode{Group: true, Field: "group", Key: "dev", AllChildrenCount: 2,
		AggData: map[string]float64{"sum(value)": 6}}
	require.Equal(t, "## group: dev\n\n2 rows\n\n| aggregate | value |\n|---|---|\n| sum(value) | 6 |\n", detailMarkdown(group))
}

func TestGrid_Help(t *testing.T) {
	f := newFixture(t, recipe.GroupedRecipe(), nil)

	f.press("?")
	require.True(t, f.grid.ShowingHelp())
	require.Contains(t, f.grid.View(), "expand / collapse all")

	f.press("down")
	require.False(t, f.grid.ShowingHelp())
	require.Equal(t, 0, f.grid.Cursor(), "the closing key is swallowed")
}

func TestGrid_Quit(t *testing.T) {
	f := newFixture(t, recipe.GroupedRecipe(), nil)

	cmd := f.send(keyMsg("q"))
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestGrid_EventsAreDrained(t *testing.T) {
	f := newFixture(t, recipe.GroupedRecipe(), nil)
	require.Zero(t, f.grid.EventCount())

	f.send(EventsMsg{})
	require.Positive(t, f.grid.EventCount())
	require.Equal(t, rowmodel.EventModelUpdated, f.grid.LastEvent())
	require.Empty(t, f.notifier.Drain())
	require.Contains(t, f.grid.View(), "last event: modelUpdated")
}

func TestGrid_Empty(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	rows := rowmodel.New(rowmodel.Options{Logger: logger})
	theme := DefaultTheme(lipgloss.NewRenderer(io.Discard))
	g := NewGridModel(rows, Options{Theme: &theme, MarkdownStyle: "notty", Logger: logger})

	require.Equal(t, "Loading...", g.View())
	next, _ := g.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	g = next.(GridModel)
	require.Contains(t, g.View(), "No rows to display.")
	require.Nil(t, g.CursorNode())
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *fakeSender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func TestProgramNotifier_CoalescesWakeups(t *testing.T) {
	n := NewProgramNotifier(nil)
	n.Notify(rowmodel.RowDataChangedEvent{})

	s := &fakeSender{}
	n.Attach(s)
	require.Eventually(t, func() bool { return s.count() == 1 }, time.Second, time.Millisecond)

	n.Notify(rowmodel.ModelUpdatedEvent{})
	events := n.Drain()
	require.Len(t, events, 2)
	require.Equal(t, 1, s.count(), "one wakeup per undrained burst")

	n.Notify(rowmodel.ModelUpdatedEvent{})
	require.Eventually(t, func() bool { return s.count() == 2 }, time.Second, time.Millisecond)
}

func TestRenderPlain(t *testing.T) {
	f := newFixture(t, recipe.GroupedRecipe(), nil)

	var buf bytes.Buffer
	require.NoError(t, RenderPlain(&buf, f.rows, nil, 0))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Equal(t, []string{
		"      group  id  value",
		"▾ [ ] group: dev (2)  count(value)=2 sum(value)=6",
		"  • [ ] dev    2   2",
		"  • [ ] dev    4   4",
		"▾ [ ] group: ops (2)  count(value)=2 sum(value)=14",
		"  • [ ] ops    1   5",
		"  • [ ] ops    3   9",
		"Σ     Total  count(value)=4 sum(value)=20",
	}, lines)
}

func TestRenderPlain_TruncatesToWidth(t *testing.T) {
	f := newFixture(t, recipe.GroupedRecipe(), nil)

	var buf bytes.Buffer
	require.NoError(t, RenderPlain(&buf, f.rows, []string{"id"}, 12))
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		require.LessOrEqual(t, lipgloss.Width(line), 12, line)
	}
}

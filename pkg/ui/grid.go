// Package ui provides the terminal viewer for a row model: a scrolling grid
// of the displayed rows with expand, selection and detail interactions.
package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/sirupsen/logrus"

	"github.com/Dicklesworthstone/rowgrid/pkg/model"
	"github.com/Dicklesworthstone/rowgrid/pkg/rowmodel"
)

// RowModel is the row model surface the grid drives.
type RowModel interface {
	RowSource
	IsEmpty() bool
	GetRowBounds(index int) (rowmodel.RowBounds, bool)
	GetRowIndexAtPixel(pixel int) int
	EnsureRowHeightsValid(startPixel, endPixel, startLimit, endLimit int) bool
	SetRowExpanded(n *model.RowNode, expanded bool)
	ExpandOrCollapseAll(expand bool)
	SetSelected(n *model.RowNode, selected bool)
	GetSelectedNodes() []*model.RowNode
}

// Options configures a GridModel.
type Options struct {
	// Columns lists the record fields shown per leaf. Empty derives them
	// from the data.
	Columns []string

	Theme *Theme

	// Notifier, when set, is drained on EventsMsg.
	Notifier *ProgramNotifier

	// Clipboard writes copied text. Nil uses the system clipboard.
	Clipboard func(string) error

	// MarkdownStyle is a glamour standard style name; empty picks one from
	// the terminal background.
	MarkdownStyle string

	Logger logrus.FieldLogger
}

// GridModel is the bubbletea model of the viewer.
type GridModel struct {
	rows     RowModel
	notifier *ProgramNotifier
	theme    Theme
	columns  []string
	fixedCol bool
	copyFn   func(string) error
	mdStyle  string
	log      logrus.FieldLogger

	viewport viewport.Model
	md       *glamour.TermRenderer
	layout   layout
	display  []*model.RowNode
	detail   string

	cursor     int
	width      int
	height     int
	ready      bool
	showDetail bool
	showHelp   bool
	status     string
	lastEvent  string
	eventCount int
}

// NewGridModel returns a grid over rows.
func NewGridModel(rows RowModel, opts Options) GridModel {
	theme := DefaultTheme(nil)
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return GridModel{
		rows:     rows,
		notifier: opts.Notifier,
		theme:    theme,
		columns:  opts.Columns,
		fixedCol: len(opts.Columns) > 0,
		copyFn:   copyFn,
		mdStyle:  opts.MarkdownStyle,
		log:      log,
		viewport: viewport.New(0, 0),
	}
}

// Init implements tea.Model.
func (m GridModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m GridModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.md = m.newMarkdownRenderer()
		m.refresh()

	case EventsMsg:
		if m.notifier != nil {
			for _, e := range m.notifier.Drain() {
				m.eventCount++
				m.lastEvent = e.EventName()
			}
		}
		m.refresh()

	case TimerMsg:
		msg.Run()

	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			m.cursor--
		case "down", "j":
			m.cursor++
		case "pgup":
			m.page(-1)
		case "pgdown":
			m.page(1)
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			m.cursor = len(m.display) - 1
		case "enter", " ":
			m.toggleExpand()
		case "s":
			m.toggleSelected()
		case "E":
			m.rows.ExpandOrCollapseAll(true)
		case "C":
			m.rows.ExpandOrCollapseAll(false)
		case "y":
			m.copySelected()
		case "d":
			m.showDetail = !m.showDetail
			m.resize()
		case "?":
			m.showHelp = true
			return m, nil
		default:
			return m, nil
		}
		m.refresh()
	}
	return m, nil
}

// page moves the cursor by one body height using row geometry, so tall rows
// count for what they occupy.
func (m *GridModel) page(dir int) {
	bounds, ok := m.rows.GetRowBounds(m.cursor)
	if !ok {
		return
	}
	target := bounds.RowTop + dir*max(m.viewport.Height, 1)
	if idx := m.rows.GetRowIndexAtPixel(target); idx >= 0 {
		m.cursor = idx
	}
}

func (m *GridModel) toggleExpand() {
	n := m.CursorNode()
	if n == nil || n.Footer || n.Detail {
		return
	}
	if !n.Group && !n.Master {
		return
	}
	m.rows.SetRowExpanded(n, !n.Expanded)
}

func (m *GridModel) toggleSelected() {
	n := m.CursorNode()
	if n == nil || n.Footer || n.Detail || !n.Selectable {
		return
	}
	m.rows.SetSelected(n, n.SelectedState() != model.Selected)
}

func (m *GridModel) copySelected() {
	selected := m.rows.GetSelectedNodes()
	if len(selected) == 0 {
		m.status = "nothing selected"
		return
	}
	ids := make([]string, len(selected))
	for i, n := range selected {
		ids[i] = n.ID
	}
	if err := m.copyFn(strings.Join(ids, "\n")); err != nil {
		m.log.WithError(err).Warn("clipboard write failed")
		m.status = "copy failed: " + err.Error()
		return
	}
	m.status = fmt.Sprintf("copied %d ids", len(ids))
}

func (m *GridModel) newMarkdownRenderer() *glamour.TermRenderer {
	wrap := max(m.width-4, 20)
	style := glamour.WithAutoStyle()
	if m.mdStyle != "" {
		style = glamour.WithStandardStyle(m.mdStyle)
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wrap))
	if err != nil {
		m.log.WithError(err).Warn("markdown renderer unavailable, detail panel shows plain text")
		return nil
	}
	return r
}

// bodyHeight is what remains for rows after header, status line and the
// detail panel.
func (m *GridModel) bodyHeight() int {
	h := m.height - 2
	if m.showDetail {
		h -= m.detailHeight()
	}
	return max(h, 1)
}

func (m *GridModel) detailHeight() int {
	return max(m.height/3, 3)
}

func (m *GridModel) resize() {
	m.viewport.Width = m.width
	m.viewport.Height = m.bodyHeight()
}

// refresh re-reads the displayed rows and rebuilds the body.
func (m *GridModel) refresh() {
	if !m.ready {
		return
	}
	m.resize()

	top := m.viewport.YOffset
	if m.rows.EnsureRowHeightsValid(top, top+m.viewport.Height, -1, -1) {
		m.log.Debug("row heights changed while rendering")
	}
	m.display = m.rows.GetRowsToDisplay()
	m.cursor = max(min(m.cursor, len(m.display)-1), 0)

	if !m.fixedCol {
		m.columns = DeriveColumns(m.display)
	}
	m.layout = newLayout(m.display, m.columns, m.width)

	lines := make([]string, 0, len(m.display))
	for i, n := range m.display {
		line := m.layout.line(n)
		switch {
		case i == m.cursor:
			line = m.theme.Selected.Render(line)
		case n.Footer:
			line = m.theme.Footer.Render(line)
		case n.Group:
			line = m.theme.Header.Render(line)
		}
		lines = append(lines, line)
		lines = append(lines, m.layout.extraLines(n)...)
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.scrollToCursor()

	if m.showDetail {
		m.detail = m.renderDetail(m.CursorNode())
	}
}

// scrollToCursor keeps every line of the cursor row inside the viewport.
func (m *GridModel) scrollToCursor() {
	bounds, ok := m.rows.GetRowBounds(m.cursor)
	if !ok || bounds.RowTop < 0 {
		return
	}
	switch {
	case bounds.RowTop < m.viewport.YOffset:
		m.viewport.SetYOffset(bounds.RowTop)
	case bounds.RowTop+bounds.RowHeight > m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(bounds.RowTop + bounds.RowHeight - m.viewport.Height)
	}
}

// detailMarkdown describes a row as markdown.
func detailMarkdown(n *model.RowNode) string {
	var sb strings.Builder
	switch {
	case n.Group:
		fmt.Fprintf(&sb, "## %s: %s\n\n", n.Field, n.Key)
		fmt.Fprintf(&sb, "%d rows\n\n", n.AllChildrenCount)
		if len(n.AggData) > 0 {
			sb.WriteString("| aggregate | value |\n|---|---|\n")
			for _, kv := range fields(aggRecord(n.AggData)) {
				fmt.Fprintf(&sb, "| %s | %s |\n", kv[0], kv[1])
			}
		}
	default:
		fmt.Fprintf(&sb, "## %s\n\n", n.ID)
		sb.WriteString("| field | value |\n|---|---|\n")
		for _, kv := range fields(n.Data) {
			fmt.Fprintf(&sb, "| %s | %s |\n", kv[0], kv[1])
		}
	}
	return sb.String()
}

func aggRecord(agg map[string]float64) map[string]any {
	out := make(map[string]any, len(agg))
	for k, v := range agg {
		out[k] = v
	}
	return out
}

func (m *GridModel) renderDetail(n *model.RowNode) string {
	if n == nil {
		return ""
	}
	text := detailMarkdown(n)
	if m.md != nil {
		if rendered, err := m.md.Render(text); err == nil {
			text = rendered
		}
	}
	return text
}

// View implements tea.Model.
func (m GridModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return RenderHelp(m.theme, m.width)
	}

	r := m.theme.Renderer
	var sb strings.Builder
	sb.WriteString(m.theme.Header.Render(m.layout.header()))
	sb.WriteString("\n")

	if m.rows.IsEmpty() {
		body := r.NewStyle().Foreground(m.theme.Muted).Render("No rows to display.")
		sb.WriteString(body)
		sb.WriteString(strings.Repeat("\n", max(m.bodyHeight()-1, 0)))
	} else {
		sb.WriteString(m.viewport.View())
	}
	sb.WriteString("\n")

	if m.showDetail {
		panel := r.NewStyle().
			Height(m.detailHeight()).
			MaxHeight(m.detailHeight()).
			Render(strings.TrimRight(m.detail, "\n"))
		sb.WriteString(panel)
		sb.WriteString("\n")
	}

	sb.WriteString(r.NewStyle().Foreground(m.theme.Muted).Render(m.statusLine()))
	return sb.String()
}

func (m GridModel) statusLine() string {
	parts := []string{fmt.Sprintf("row %d/%d", min(m.cursor+1, len(m.display)), len(m.display))}
	if n := len(m.rows.GetSelectedNodes()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	if m.lastEvent != "" {
		parts = append(parts, "last event: "+m.lastEvent)
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	parts = append(parts, "? help")
	return m.layout.fit(strings.Join(parts, " · "))
}

// Cursor returns the index of the highlighted displayed row.
func (m GridModel) Cursor() int { return m.cursor }

// CursorNode returns the highlighted row, nil when nothing is displayed.
func (m GridModel) CursorNode() *model.RowNode {
	if m.cursor < 0 || m.cursor >= len(m.display) {
		return nil
	}
	return m.display[m.cursor]
}

// Status returns the last status message.
func (m GridModel) Status() string { return m.status }

// LastEvent returns the name of the last forwarded engine event.
func (m GridModel) LastEvent() string { return m.lastEvent }

// EventCount returns how many engine events have been forwarded.
func (m GridModel) EventCount() int { return m.eventCount }

// ShowingDetail reports whether the detail panel is open.
func (m GridModel) ShowingDetail() bool { return m.showDetail }

// ShowingHelp reports whether the help modal is open.
func (m GridModel) ShowingHelp() bool { return m.showHelp }

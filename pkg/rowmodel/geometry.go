package rowmodel

import (
	"sort"

	"github.com/Dicklesworthstone/rowgrid/pkg/model"
)

// RowBounds is the vertical extent of a displayed row.
type RowBounds struct {
	RowTop    int
	RowHeight int
}

func (m *ClientSideRowModel) rowHeightFor(n *model.RowNode, allowEstimate bool) (int, bool) {
	if m.grid.RowHeightFunc != nil {
		if allowEstimate {
			return m.defaultRowHeight(), true
		}
		h := m.grid.RowHeightFunc(n)
		if h <= 0 {
			m.log.WithField("row_id", n.ID).
				Warn("row height function returned a non-positive height; using 1")
			h = 1
		}
		return h, false
	}
	if n.Detail && m.grid.MasterDetail {
		if m.grid.DetailRowHeight > 0 {
			return m.grid.DetailRowHeight, false
		}
		return DefaultDetailRowHeight, false
	}
	return m.defaultRowHeight(), false
}

func (m *ClientSideRowModel) defaultRowHeight() int {
	if m.grid.RowHeight > 0 {
		return m.grid.RowHeight
	}
	return DefaultRowHeight
}

// GetRowIndexAtPixel returns the index of the displayed row covering pixel.
// Pixels above the first row map to 0 and pixels at or below the last row's
// top map to the last index. It returns -1 when nothing is displayed.
func (m *ClientSideRowModel) GetRowIndexAtPixel(pixel int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rowIndexAtPixel(pixel)
}

func (m *ClientSideRowModel) rowIndexAtPixel(pixel int) int {
	rows := m.rowsToDisplay
	if len(rows) == 0 {
		return -1
	}
	if pixel <= 0 {
		return 0
	}
	last := len(rows) - 1
	if pixel >= rows[last].RowTop {
		return last
	}
	// Tops are non-decreasing, so the first row ending below pixel covers it.
	return sort.Search(last, func(i int) bool {
		return rows[i].RowTop+rows[i].RowHeight > pixel
	})
}

// EnsureRowHeightsValid measures every estimated row between startPixel and
// endPixel, clamped to the index limits, and lays the rows out again until
// a pass measures nothing new. A negative endLimit means no limit. It
// reports whether any height changed.
func (m *ClientSideRowModel) EnsureRowHeightsValid(startPixel, endPixel, startLimit, endLimit int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	for {
		measured := false
		if len(m.rowsToDisplay) > 0 {
			first := max(m.rowIndexAtPixel(startPixel), startLimit, 0)
			last := m.rowIndexAtPixel(endPixel)
			if endLimit >= 0 {
				last = min(last, endLimit)
			}
			for i := first; i <= last && i < len(m.rowsToDisplay); i++ {
				row := m.rowsToDisplay[i]
				if !row.RowHeightEstimated {
					continue
				}
				h, _ := m.rowHeightFor(row, false)
				row.SetRowHeight(h, false)
				measured = true
			}
		}
		if !measured {
			return changed
		}
		changed = true
		m.setRowTops()
	}
}

// ResetRowHeights forgets every row height and lays the rows out again.
func (m *ClientSideRowModel) ResetRowHeights() {
	m.locked(func() {
		clearHeight := func(n *model.RowNode) {
			if n == nil {
				return
			}
			n.ClearRowHeight()
			if n.DetailNode != nil {
				n.DetailNode.ClearRowHeight()
			}
			if n.Sibling != nil {
				n.Sibling.ClearRowHeight()
			}
		}
		clearHeight(m.root)
		model.ForEachNode(m.root, model.TraverseAfterGroup, func(n *model.RowNode, _ int) {
			clearHeight(n)
		})
		m.onRowHeightChanged()
	})
}

// OnRowHeightChanged lays the rows out again after callers changed heights.
func (m *ClientSideRowModel) OnRowHeightChanged() {
	m.locked(m.onRowHeightChanged)
}

func (m *ClientSideRowModel) onRowHeightChanged() {
	m.refreshModel(RefreshParams{
		Step:             StepMap,
		KeepRenderedRows: true,
		KeepEditingRows:  true,
	})
}

// GetRowBounds returns the extent of the displayed row at index.
func (m *ClientSideRowModel) GetRowBounds(index int) (RowBounds, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.rowsToDisplay) {
		return RowBounds{}, false
	}
	row := m.rowsToDisplay[index]
	return RowBounds{RowTop: row.RowTop, RowHeight: row.RowHeight}, true
}

// GetCurrentPageHeight returns the total height of the displayed rows.
func (m *ClientSideRowModel) GetCurrentPageHeight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rowsToDisplay) == 0 {
		return 0
	}
	last := m.rowsToDisplay[len(m.rowsToDisplay)-1]
	return last.RowTop + last.RowHeight
}

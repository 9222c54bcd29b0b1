package editor

import (
	tea "github.com/charmbracelet/bubbletea"

	"hexlens/internal/edit"
	"hexlens/internal/hexgrid"
)

// Screen layout of the main view. Rows start below the legend, the title
// line and the column header; columns follow hexgrid.FormatRow.
const (
	gridTop    = 3
	offsetCols = 10
	hexCols    = hexgrid.Width*3 + 1
	asciiLeft  = offsetCols + hexCols + 2
)

type lane int

const (
	laneOffset lane = iota
	laneHex
	laneASCII
)

// hexColumn returns the screen column of cell i in the hex lane.
func hexColumn(i int) int {
	x := offsetCols + i*3
	if i >= 8 {
		x++
	}
	return x
}

// hitTest maps a screen position to a loaded offset.
func (m *Model) hitTest(x, y int) (uint64, lane, bool) {
	rows := m.grid.Rows()
	r := y - gridTop
	if r < 0 || r >= len(rows) {
		return 0, 0, false
	}
	row := rows[r]

	switch {
	case x < offsetCols:
		return row.Offset, laneOffset, true
	case x >= asciiLeft && x < asciiLeft+len(row.Cells):
		return row.Offset + uint64(x-asciiLeft), laneASCII, true
	case x < offsetCols+hexCols:
		for i := len(row.Cells) - 1; i >= 0; i-- {
			if x >= hexColumn(i) {
				if x > hexColumn(i)+1 {
					return 0, 0, false
				}
				return row.Offset + uint64(i), laneHex, true
			}
		}
	}
	return 0, 0, false
}

// handleMouse drives the selection tracker with press, motion and release,
// or picks an edit target when edit mode is on.
func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.view != ViewMain {
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if msg.Action == tea.MouseActionPress {
			return m, m.moveCursor(-hexgrid.Width)
		}
		return m, nil
	case tea.MouseButtonWheelDown:
		if msg.Action == tea.MouseActionPress {
			return m, m.moveCursor(hexgrid.Width)
		}
		return m, nil
	}

	offset, ln, ok := m.hitTest(msg.X, msg.Y)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !ok {
			return m, nil
		}
		if m.proto.EditMode() {
			m.pickEditTarget(offset, ln)
			return m, nil
		}
		m.cursor = offset
		m.tracker.Begin(offset)

	case tea.MouseActionMotion:
		if !m.tracker.Dragging() {
			return m, nil
		}
		if ok {
			m.cursor = offset
			m.tracker.Extend(offset)
		} else if msg.Y >= gridTop+len(m.grid.Rows()) {
			// Dragging below the grid clamps to the last loaded byte.
			m.tracker.Extend(m.grid.Loaded().End())
		}

	case tea.MouseActionRelease:
		if m.tracker.Dragging() {
			m.tracker.End()
		}
	}
	return m, nil
}

func (m *Model) pickEditTarget(offset uint64, ln lane) {
	switch m.proto.State().(type) {
	case edit.Viewing, edit.Editing:
	default:
		return
	}
	kind := edit.KindCell
	switch ln {
	case laneOffset:
		kind = edit.KindRow
	case laneASCII:
		kind = edit.KindAsciiChar
	}
	m.cursor = offset
	if err := m.proto.Select(kind, offset); err != nil {
		m.setError(err)
	}
}

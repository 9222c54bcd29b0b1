package editor

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"hexlens/internal/edit"
	"hexlens/internal/hexgrid"
	"hexlens/internal/logger"
	"hexlens/internal/source"
	"hexlens/internal/stats"
	"hexlens/internal/types"
)

const (
	minBlockSize = 256
	maxBlockSize = 1 << 20
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case lengthMsg:
		waiting := m.statsWaiting
		m.statsWaiting = false
		if msg.err != nil {
			m.statsBusy = false
			m.setError(msg.err)
			return m, nil
		}
		m.fileLen, m.lenOK = msg.n, true
		if waiting {
			return m, m.computeStats()
		}
		return m, nil

	case gridLoadedMsg:
		m.applyLoad(msg.res)
		return m, nil

	case statsMsg:
		return m, m.applyStats(msg.res)

	case commitMsg:
		return m, m.applyCommit(msg.res)

	case findMsg:
		return m, m.applyFind(msg)
	}

	return m, nil
}

func (m *Model) applyLoad(res hexgrid.LoadResult) {
	_, err := m.grid.Apply(res)
	if types.KindOf(err) == types.ErrKindStale {
		return
	}
	if err != nil {
		m.setError(err)
		m.clampCursor()
		return
	}
	m.clampCursor()
}

func (m *Model) applyStats(res stats.Result) tea.Cmd {
	out, err := m.stats.Apply(res)
	if types.KindOf(err) == types.ErrKindStale {
		return nil
	}
	m.statsBusy = false
	if err != nil {
		m.setError(err)
		return nil
	}
	m.statsRes = &out
	if n := len(out.Failures); n > 0 {
		m.setStatus("%d of %d chunks could not be read", n, n+len(out.Blocks))
	}
	return nil
}

func (m *Model) applyCommit(res edit.CommitResult) tea.Cmd {
	if err := m.proto.Finish(res); err != nil {
		m.setError(fmt.Errorf("commit failed: %w", err))
		return nil
	}
	m.setStatus("wrote %d bytes at 0x%08X", len(res.Edit.Bytes), res.Edit.Target)
	m.statsRes = nil
	if m.view == ViewStats {
		return m.computeStats()
	}
	return nil
}

func (m *Model) applyFind(msg findMsg) tea.Cmd {
	m.findBusy = false
	if msg.err != nil {
		m.setError(msg.err)
		return nil
	}
	m.pattern = msg.pattern
	m.matches = msg.matches
	if len(m.matches) == 0 {
		m.setStatus("no matches")
		return nil
	}
	m.matchIdx = 0
	for i, match := range m.matches {
		if match.Offset >= msg.from {
			m.matchIdx = i
			break
		}
	}
	return m.showMatch()
}

func (m *Model) showMatch() tea.Cmd {
	match := m.matches[m.matchIdx]
	m.setStatus("match %d of %d at 0x%08X", m.matchIdx+1, len(m.matches), match.Offset)
	return m.jump(match.Offset)
}

func (m *Model) computeStats() tea.Cmd {
	if r, ok := m.stats.Cached(m.fileID, m.blockSize); ok {
		m.statsRes = &r
		m.statsBusy = false
		return nil
	}
	m.statsBusy = true
	if !m.lenOK {
		m.statsWaiting = true
		return m.lengthCmd()
	}
	return m.statsCmd(m.stats.Begin(m.fileID, m.fileLen, m.blockSize))
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Clear status message on any key
	m.statusMsg = ""
	m.statusErr = false

	switch m.proto.State().(type) {
	case edit.Editing:
		return m.handleEditKey(msg)
	case edit.PendingConfirmation:
		return m.handleConfirmKey(msg)
	case edit.Committing:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.setStatus("writing...")
		return m, nil
	}

	switch m.view {
	case ViewHelp:
		return m.handleHelpKey(msg)
	case ViewStats:
		return m.handleStatsKey(msg)
	case ViewFind:
		return m.handleFindKey(msg)
	case ViewGoto:
		return m.handleGotoKey(msg)
	default:
		return m.handleMainKey(msg)
	}
}

func (m *Model) handleMainKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	// Navigation
	case key.Matches(msg, k.Up):
		return m, m.moveCursor(-hexgrid.Width)
	case key.Matches(msg, k.Down):
		return m, m.moveCursor(hexgrid.Width)
	case key.Matches(msg, k.Left):
		return m, m.moveCursor(-1)
	case key.Matches(msg, k.Right):
		return m, m.moveCursor(1)
	case key.Matches(msg, k.PageUp):
		return m, m.page(false)
	case key.Matches(msg, k.PageDown):
		return m, m.page(true)
	case key.Matches(msg, k.Home):
		m.tracker.Clear()
		m.cursor -= m.cursor % hexgrid.Width
	case key.Matches(msg, k.End):
		m.tracker.Clear()
		if row, ok := m.grid.RowAt(m.cursor); ok {
			m.cursor = row.End() - 1
		}

	// Selection
	case key.Matches(msg, k.SelectUp):
		m.selectMove(-hexgrid.Width)
	case key.Matches(msg, k.SelectDown):
		m.selectMove(hexgrid.Width)
	case key.Matches(msg, k.SelectLeft):
		m.selectMove(-1)
	case key.Matches(msg, k.SelectRight):
		m.selectMove(1)
	case key.Matches(msg, k.Copy):
		m.copy()

	// Editing
	case key.Matches(msg, k.EditMode):
		on := !m.proto.EditMode()
		if err := m.proto.SetEditMode(on); err != nil {
			m.setError(err)
		} else if on {
			m.setStatus("edit mode on")
		} else {
			m.setStatus("edit mode off")
		}
	case key.Matches(msg, k.EditCell):
		m.beginEdit(edit.KindCell)
	case key.Matches(msg, k.EditChar):
		m.beginEdit(edit.KindAsciiChar)
	case key.Matches(msg, k.EditRow):
		m.beginEdit(edit.KindRow)
	case key.Matches(msg, k.EditASCIIRow):
		m.beginEdit(edit.KindAsciiRow)

	// Commands
	case key.Matches(msg, k.Find):
		m.view = ViewFind
		m.findInput = ""
	case key.Matches(msg, k.NextMatch):
		if len(m.matches) > 0 {
			m.matchIdx = (m.matchIdx + 1) % len(m.matches)
			return m, m.showMatch()
		}
	case key.Matches(msg, k.Goto):
		m.view = ViewGoto
		m.gotoInput = ""
	case key.Matches(msg, k.Stats):
		m.view = ViewStats
		return m, m.computeStats()
	case key.Matches(msg, k.ToggleBookmark):
		m.toggleBookmark()
	case key.Matches(msg, k.NextBookmark):
		return m, m.nextBookmark()
	case key.Matches(msg, k.Help):
		m.view = ViewHelp
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	}

	return m, nil
}

// moveCursor moves by delta bytes, loading the adjacent page when the cursor
// leaves the loaded range.
func (m *Model) moveCursor(delta int64) tea.Cmd {
	m.tracker.Clear()

	target, ok := m.offsetBy(delta)
	if !ok {
		return nil
	}
	loaded := m.grid.Loaded()
	if loaded.Contains(target) {
		m.cursor = target
		return nil
	}
	if target < loaded.Offset {
		req, err := m.grid.PrevPage()
		if err != nil {
			m.setError(err)
			return nil
		}
		m.cursor = target
		return m.loadCmd(req)
	}
	if m.lenOK && target >= m.fileLen {
		return nil
	}
	req, err := m.grid.NextPage()
	if err != nil {
		m.setError(err)
		return nil
	}
	m.cursor = target
	return m.loadCmd(req)
}

func (m *Model) offsetBy(delta int64) (uint64, bool) {
	if delta < 0 {
		d := uint64(-delta)
		if d > m.cursor {
			return 0, m.cursor != 0
		}
		return m.cursor - d, true
	}
	next := m.cursor + uint64(delta)
	return next, next >= m.cursor
}

func (m *Model) page(forward bool) tea.Cmd {
	m.tracker.Clear()
	_, target := m.grid.Target()
	var (
		req hexgrid.LoadRequest
		err error
	)
	if forward {
		if m.lenOK && target.Offset+uint64(m.grid.PageLength()) >= m.fileLen {
			return nil
		}
		req, err = m.grid.NextPage()
	} else {
		req, err = m.grid.PrevPage()
	}
	if err != nil {
		m.setError(err)
		return nil
	}
	// Keep the cursor at the same position relative to the page. The window
	// may lag behind target while an earlier load is in flight.
	var rel uint64
	if target.Contains(m.cursor) {
		rel = m.cursor - target.Offset
	}
	m.cursor = req.Range.Offset + rel
	return m.loadCmd(req)
}

// selectMove extends the selection from the cursor by delta within the
// loaded range.
func (m *Model) selectMove(delta int64) {
	if m.proto.EditMode() {
		return
	}
	if _, ok := m.tracker.Current(); !ok {
		if !m.tracker.Begin(m.cursor) {
			return
		}
		m.tracker.End()
	}
	target, ok := m.offsetBy(delta)
	if !ok || !m.grid.Loaded().Contains(target) {
		return
	}
	m.cursor = target
	m.tracker.Adjust(target)
}

func (m *Model) copy() {
	data := m.tracker.Bytes()
	if len(data) == 0 {
		if c, ok := m.grid.CellAt(m.cursor); ok {
			data = []byte{c.Value}
		}
	}
	if len(data) == 0 {
		return
	}
	text := strings.ToUpper(hex.EncodeToString(data))
	if err := m.copyFn(text); err != nil {
		m.setError(fmt.Errorf("clipboard: %w", err))
		return
	}
	m.setStatus("copied %d bytes", len(data))
}

func (m *Model) beginEdit(kind edit.Kind) {
	if !m.proto.EditMode() {
		m.setStatus("press %s to enable edit mode", m.keys.EditMode.Help().Key)
		return
	}
	if err := m.proto.Select(kind, m.cursor); err != nil {
		m.setError(err)
	}
}

func (m *Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ed := m.proto.State().(edit.Editing)

	switch msg.Type {
	case tea.KeyEscape:
		m.proto.Escape()
	case tea.KeyEnter:
		if _, err := m.proto.Submit(); err != nil {
			m.setError(err)
		}
	case tea.KeyTab:
		if ed.Kind.MultiByte() {
			return m, nil
		}
		if err := m.proto.Tab(); err != nil {
			m.setError(err)
		}
		if cur, ok := m.proto.State().(edit.Editing); ok {
			m.cursor = cur.Target
		}
	case tea.KeyBackspace:
		if r := []rune(ed.Input); len(r) > 0 {
			m.proto.SetInput(string(r[:len(r)-1]))
		}
	case tea.KeyCtrlU:
		m.proto.SetInput("")
	case tea.KeySpace:
		m.proto.SetInput(ed.Input + " ")
	case tea.KeyRunes:
		m.proto.SetInput(ed.Input + string(msg.Runes))
	}
	return m, nil
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "a", "A":
		m.proto.Acknowledge()
	case "y", "Y", "enter":
		req, err := m.proto.Confirm()
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus("writing...")
		return m, m.commitCmd(req)
	case "n", "N", "esc":
		m.proto.Cancel()
	}
	return m, nil
}

func (m *Model) handleHelpKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "?", "f1", "q":
		m.view = ViewMain
	}
	return m, nil
}

func (m *Model) handleStatsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "s", "q":
		m.view = ViewMain
	case "+", "=":
		if m.blockSize < maxBlockSize {
			m.blockSize *= 2
			return m, m.computeStats()
		}
	case "-", "_":
		if m.blockSize > minBlockSize {
			m.blockSize /= 2
			return m, m.computeStats()
		}
	case "r":
		m.stats.Invalidate(m.fileID)
		return m, m.computeStats()
	}
	return m, nil
}

func (m *Model) handleFindKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.view = ViewMain
	case tea.KeyEnter:
		pattern, err := source.ParsePattern(m.findInput)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.view = ViewMain
		m.findBusy = true
		return m, m.findCmd(pattern, m.cursor+1)
	case tea.KeyBackspace:
		if len(m.findInput) > 0 {
			m.findInput = m.findInput[:len(m.findInput)-1]
		}
	case tea.KeySpace:
		m.findInput += " "
	default:
		char := msg.String()
		if isHexChar(char) || char == "x" || char == "X" {
			m.findInput += char
		}
	}
	return m, nil
}

func (m *Model) handleGotoKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.view = ViewMain
	case tea.KeyEnter:
		m.view = ViewMain
		offset, err := ParseOffset(m.gotoInput)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.tracker.Clear()
		return m, m.jump(offset)
	case tea.KeyBackspace:
		if len(m.gotoInput) > 0 {
			m.gotoInput = m.gotoInput[:len(m.gotoInput)-1]
		}
	default:
		char := msg.String()
		if len(char) == 1 && (isHexChar(char) || char == "x" || char == "X") {
			m.gotoInput += char
		}
	}
	return m, nil
}

// ParseOffset accepts a decimal or 0x-prefixed hex offset.
func ParseOffset(s string) (uint64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, errors.New("empty offset")
	}
	var (
		n   uint64
		err error
	)
	if strings.HasPrefix(s, "0x") {
		n, err = strconv.ParseUint(s[2:], 16, 64)
	} else {
		n, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, types.Wrap(types.ErrKindInvalidHexInput, fmt.Sprintf("invalid offset %q", s), err)
	}
	return n, nil
}

func (m *Model) toggleBookmark() {
	if m.bookmarks == nil {
		m.setStatus("bookmarks need a state store")
		return
	}
	on, err := m.bookmarks.Toggle(context.Background(), m.fileID, m.cursor, "")
	if err != nil {
		logger.Warn("bookmark toggle failed", "error", err)
		m.setError(err)
		return
	}
	if on {
		m.marks[m.cursor] = true
		m.setStatus("bookmarked 0x%08X", m.cursor)
	} else {
		delete(m.marks, m.cursor)
		m.setStatus("removed bookmark 0x%08X", m.cursor)
	}
}

func (m *Model) nextBookmark() tea.Cmd {
	if m.bookmarks == nil {
		return nil
	}
	bm, ok, err := m.bookmarks.Next(context.Background(), m.fileID, m.cursor)
	if err != nil {
		m.setError(err)
		return nil
	}
	if !ok {
		m.setStatus("no bookmarks")
		return nil
	}
	m.tracker.Clear()
	return m.jump(bm.Offset)
}

func isHexChar(s string) bool {
	if len(s) != 1 {
		return false
	}
	c := s[0]
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

package editor

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	overlay "github.com/rmhubbert/bubbletea-overlay"

	"hexlens/internal/decode"
	"hexlens/internal/edit"
	"hexlens/internal/hexgrid"
	"hexlens/internal/stats"
)

// staticView adapts rendered text to tea.Model for the overlay.
type staticView string

func (s staticView) Init() tea.Cmd                       { return nil }
func (s staticView) Update(tea.Msg) (tea.Model, tea.Cmd) { return s, nil }
func (s staticView) View() string                        { return string(s) }

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder

	// Legend
	b.WriteString(m.renderLegend())
	b.WriteString("\n")

	switch m.view {
	case ViewHelp:
		b.WriteString(m.renderHelp())
	case ViewStats:
		b.WriteString(m.renderStats())
	case ViewFind:
		b.WriteString(m.renderFind())
	case ViewGoto:
		b.WriteString(m.renderGoto())
	default:
		b.WriteString(m.renderMainView())
	}

	// Status message
	if m.statusMsg != "" {
		b.WriteString("\n")
		if m.statusErr {
			b.WriteString(m.styles.Error.Render(m.statusMsg))
		} else {
			b.WriteString(m.statusMsg)
		}
	}

	if pc, ok := m.proto.State().(edit.PendingConfirmation); ok {
		dialog := overlay.New(
			staticView(m.renderConfirmDialog(pc)),
			staticView(b.String()),
			overlay.Center,
			overlay.Center,
			0,
			0,
		)
		return dialog.View()
	}

	return b.String()
}

func (m *Model) renderLegend() string {
	var items []string

	hl := func(text string, highlightIdx int) string {
		var result strings.Builder
		for i, ch := range text {
			if i == highlightIdx {
				result.WriteString(m.styles.LegendHighlight.Render(string(ch)))
			} else {
				result.WriteString(m.styles.Legend.Render(string(ch)))
			}
		}
		return result.String()
	}

	// Always visible
	items = append(items, hl("Quit", 0))
	items = append(items, m.styles.LegendHighlight.Render("?")+m.styles.Legend.Render("Help"))

	switch m.view {
	case ViewMain:
		items = append(items, hl("Find", 0))
		items = append(items, hl("Goto", 0))
		items = append(items, hl("Stats", 0))
		items = append(items, hl("Bookmark", 0))
		items = append(items, hl("Yank", 0))
		if m.proto.EditMode() {
			items = append(items, hl("Edit:on", 0))
			items = append(items, m.styles.LegendHighlight.Render("⏎")+m.styles.Legend.Render("byte"))
			items = append(items, hl("ascii", 0))
			items = append(items, hl("row", 0))
			items = append(items, hl("text row", 0))
		} else {
			items = append(items, hl("Edit", 0))
			items = append(items, m.styles.Disabled.Render("byte ascii row text row"))
		}
	case ViewStats:
		items = append(items, m.styles.LegendHighlight.Render("+/-")+m.styles.Legend.Render(" block size"))
		items = append(items, hl("recompute", 0))
		items = append(items, m.styles.LegendHighlight.Render("ESC")+m.styles.Legend.Render(" Back"))
	default:
		items = append(items, m.styles.LegendHighlight.Render("ESC")+m.styles.Legend.Render(" Back"))
	}

	legend := strings.Join(items, m.styles.Legend.Render(" | "))
	return m.styles.Legend.Width(m.width).Render(legend)
}

func (m *Model) renderMainView() string {
	var b strings.Builder

	b.WriteString(m.renderTitle())
	b.WriteString("\n")
	b.WriteString(m.renderColumnHeader())
	b.WriteString("\n")

	if len(m.grid.Rows()) == 0 {
		b.WriteString("\n(no data at this offset)\n")
	} else {
		b.WriteString(m.renderGrid())
		b.WriteString("\n")
	}

	if ed, ok := m.proto.State().(edit.Editing); ok {
		b.WriteString("\n")
		b.WriteString(m.renderEditLine(ed))
	}

	b.WriteString("\n")
	b.WriteString(m.renderDecoder())

	return b.String()
}

func (m *Model) renderTitle() string {
	size := "?"
	if m.lenOK {
		size = fmt.Sprintf("%d bytes", m.fileLen)
	}
	parts := []string{
		m.styles.HelpTitle.Render(m.name),
		size,
		fmt.Sprintf("offset 0x%08X", m.cursor),
	}
	if sel, ok := m.tracker.Current(); ok {
		parts = append(parts, m.styles.Selection.Render(
			fmt.Sprintf("sel 0x%X-0x%X (%d)", sel.Start, sel.End, sel.Len())))
	}
	if m.proto.EditMode() {
		parts = append(parts, m.styles.Edit.Render(" EDIT "))
	}
	if m.findBusy {
		parts = append(parts, "searching...")
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderColumnHeader() string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", offsetCols))

	cursorCol := int(m.cursor % hexgrid.Width)
	for i := 0; i < hexgrid.Width; i++ {
		label := fmt.Sprintf("%02X", i)
		if i == cursorCol {
			label = m.styles.IndexMarker.Render(label)
		}
		b.WriteString(label)
		b.WriteString(" ")
		if i == 7 {
			b.WriteString(" ")
		}
	}
	return b.String()
}

// editSpan returns the byte range the edit protocol is working on.
func (m *Model) editSpan() (uint64, uint64, bool) {
	switch s := m.proto.State().(type) {
	case edit.Editing:
		if !s.Kind.MultiByte() {
			return s.Target, s.Target, true
		}
		if row, ok := m.grid.RowAt(s.Target); ok {
			return row.Offset, row.End() - 1, true
		}
	case edit.PendingConfirmation:
		return s.Edit.Target, s.Edit.End() - 1, true
	case edit.Committing:
		return s.Edit.Target, s.Edit.End() - 1, true
	}
	return 0, 0, false
}

func (m *Model) inMatch(offset uint64) bool {
	n := uint64(len(m.pattern))
	if n == 0 {
		return false
	}
	for _, match := range m.matches {
		if offset >= match.Offset && offset < match.Offset+n {
			return true
		}
	}
	return false
}

func (m *Model) cellStyle(offset uint64) lipgloss.Style {
	if start, end, ok := m.editSpan(); ok && offset >= start && offset <= end {
		return m.styles.Edit
	}
	if sel, ok := m.tracker.Current(); ok && sel.Contains(offset) {
		return m.styles.Selection
	}
	if offset == m.cursor {
		return m.styles.Cursor
	}
	if m.inMatch(offset) {
		return m.styles.Match
	}
	return m.styles.Normal
}

func (m *Model) renderGrid() string {
	rows := m.grid.Rows()
	lines := make([]string, 0, len(rows))

	for _, row := range rows {
		offsetStr := fmt.Sprintf("%08X  ", row.Offset)
		switch {
		case m.rowMarked(row):
			offsetStr = m.styles.Bookmark.Render(offsetStr)
		case m.cursor >= row.Offset && m.cursor < row.End():
			offsetStr = m.styles.IndexMarker.Render(offsetStr)
		}

		var hexLine, asciiLine strings.Builder
		for i := 0; i < hexgrid.Width; i++ {
			if i < len(row.Cells) {
				c := row.Cells[i]
				style := m.cellStyle(c.Offset)
				hexLine.WriteString(style.Render(fmt.Sprintf("%02X", c.Value)))
				asciiLine.WriteString(style.Render(string(c.Char())))
			} else {
				hexLine.WriteString("  ")
			}
			hexLine.WriteString(" ")
			if i == 7 {
				hexLine.WriteString(" ")
			}
		}

		lines = append(lines, offsetStr+hexLine.String()+" |"+asciiLine.String()+"|")
	}

	return strings.Join(lines, "\n")
}

func (m *Model) rowMarked(row hexgrid.Row) bool {
	for o := row.Offset; o < row.End(); o++ {
		if m.marks[o] {
			return true
		}
	}
	return false
}

func (m *Model) renderEditLine(ed edit.Editing) string {
	var hint string
	switch ed.Kind {
	case edit.KindCell:
		hint = "two hex digits, TAB next byte"
	case edit.KindAsciiChar:
		hint = "one character, TAB next byte"
	case edit.KindRow:
		hint = "up to 16 hex bytes separated by spaces"
	case edit.KindAsciiRow:
		hint = "up to 16 characters, padded with spaces"
	}
	return fmt.Sprintf("%s %s @ 0x%08X: %s_  %s",
		m.styles.Edit.Render(" EDIT "),
		ed.Kind,
		ed.Target,
		ed.Input,
		m.styles.HelpDesc.Render("("+hint+", ENTER stage, ESC abort)"))
}

func (m *Model) renderDecoder() string {
	data := m.decoderBytes()
	if len(data) == 0 {
		return m.styles.DecoderLabel.Render("(nothing to decode)")
	}

	table := decode.Decode(data)

	var b strings.Builder
	b.WriteString(m.styles.DecoderLabel.Render(fmt.Sprintf("Decoding %d bytes", table.Length)))
	b.WriteString("\n")

	perLine := 4
	if m.width > 0 && m.width < 100 {
		perLine = 2
	}
	n := 0
	for _, v := range table.Values {
		if v.Kind == decode.KindText || v.Kind == decode.KindBits || v.Kind == decode.KindBig {
			continue
		}
		b.WriteString(m.widthStyle(v.Width).Render(fmt.Sprintf("%-10s", v.Label)))
		b.WriteString(" ")
		b.WriteString(m.styles.DecoderValue.Render(fmt.Sprintf("%-22s", truncate(v.String(), 22))))
		n++
		if n%perLine == 0 {
			b.WriteString("\n")
		}
	}
	if n%perLine != 0 {
		b.WriteString("\n")
	}

	// Wide values get a line each.
	for _, v := range table.Values {
		if v.Kind != decode.KindText && v.Kind != decode.KindBits && v.Kind != decode.KindBig {
			continue
		}
		b.WriteString(m.styles.DecoderLabel.Render(fmt.Sprintf("%-12s ", v.Label)))
		if v.Err != nil {
			b.WriteString(m.styles.Disabled.Render(v.String()))
		} else {
			b.WriteString(m.styles.DecoderValue.Render(truncate(v.String(), 64)))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) widthStyle(w int) lipgloss.Style {
	switch w {
	case 2:
		return m.styles.Bit16
	case 4:
		return m.styles.Bit32
	case 8:
		return m.styles.Bit64
	case 16:
		return m.styles.Bit128
	}
	return m.styles.DecoderLabel
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// sparkline compresses the 256 bucket histogram into width columns.
func sparkline(hist []stats.Bucket, width int) string {
	if len(hist) == 0 || width <= 0 {
		return ""
	}
	per := (len(hist) + width - 1) / width
	sums := make([]uint64, 0, width)
	var max uint64
	for i := 0; i < len(hist); i += per {
		var s uint64
		for j := i; j < i+per && j < len(hist); j++ {
			s += hist[j].Frequency
		}
		sums = append(sums, s)
		if s > max {
			max = s
		}
	}
	out := make([]rune, len(sums))
	for i, s := range sums {
		level := 0
		if max > 0 && s > 0 {
			level = int(math.Ceil(float64(s)/float64(max)*float64(len(sparkLevels)))) - 1
		}
		out[i] = sparkLevels[level]
	}
	return string(out)
}

// entropyBar renders bits in [0, 8] as a bar of width cells.
func entropyBar(bits float64, width int) string {
	filled := int(math.Round(bits / 8 * float64(width)))
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func (m *Model) renderStats() string {
	var b strings.Builder
	b.WriteString("\nSTATISTICS\n")
	b.WriteString("==========\n\n")
	b.WriteString(fmt.Sprintf("Block size: %d bytes\n", m.blockSize))

	if m.statsBusy {
		b.WriteString("\nComputing...\n")
		return b.String()
	}
	res := m.statsRes
	if res == nil {
		b.WriteString("\nNo result yet.\n")
		return b.String()
	}
	if res.Bytes == 0 {
		b.WriteString("\nNo bytes could be read.\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Read:       %d bytes in %d blocks", res.Bytes, len(res.Blocks)))
	if len(res.Failures) > 0 {
		b.WriteString(m.styles.Error.Render(fmt.Sprintf(" (%d failed)", len(res.Failures))))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Entropy:    %.4f bits/byte\n\n", res.Overall))

	b.WriteString("Byte histogram (00..FF)\n")
	b.WriteString(sparkline(res.Histogram, 64))
	b.WriteString("\n\n")

	b.WriteString("Block entropy\n")
	for _, blk := range res.Blocks {
		style := m.styles.EntropyLow
		if blk.Bits >= 7 {
			style = m.styles.EntropyHigh
		}
		b.WriteString(fmt.Sprintf("  %08X  %s  %.3f\n", blk.Offset, style.Render(entropyBar(blk.Bits, 32)), blk.Bits))
	}

	return b.String()
}

func (m *Model) renderHelp() string {
	var b strings.Builder
	b.WriteString("\nHELP - hexlens\n")
	b.WriteString("==============\n")

	for _, section := range m.keys.helpSections() {
		b.WriteString("\n")
		b.WriteString(m.styles.HelpTitle.Render(section.title))
		b.WriteString("\n")
		for _, kb := range section.bindings {
			h := kb.Help()
			b.WriteString("  ")
			b.WriteString(m.styles.HelpKey.Render(fmt.Sprintf("%-14s", h.Key)))
			b.WriteString(m.styles.HelpDesc.Render(h.Desc))
			b.WriteString("\n")
		}
	}

	b.WriteString("\nMOUSE\n")
	b.WriteString("  Drag over bytes to select them; the decoder shows the selection.\n")
	b.WriteString("  In edit mode, click a byte, a character or a row offset to edit it.\n")
	b.WriteString("\nPress ESC or ? to close this help screen.\n")
	return b.String()
}

func (m *Model) renderFind() string {
	var b strings.Builder
	b.WriteString("\nFIND\n")
	b.WriteString("====\n\n")
	b.WriteString("Hex pattern: ")
	b.WriteString(m.findInput)
	b.WriteString("_\n\n")
	b.WriteString("(e.g. 53 51 4C 69 74 65)\n")
	if len(m.matches) > 0 {
		b.WriteString(fmt.Sprintf("\nPrevious search: %d matches\n", len(m.matches)))
	}
	b.WriteString("\nPress Enter to search, ESC to close\n")
	return b.String()
}

func (m *Model) renderGoto() string {
	var b strings.Builder
	b.WriteString("\nGOTO OFFSET\n")
	b.WriteString("===========\n\n")
	b.WriteString("Offset: ")
	b.WriteString(m.gotoInput)
	b.WriteString("_\n\n")
	b.WriteString("(Prefix with 0x for hex offset)\n")
	b.WriteString("\nPress Enter to go, ESC to close\n")

	return b.String()
}

func (m *Model) renderConfirmDialog(pc edit.PendingConfirmation) string {
	var b strings.Builder
	e := pc.Edit
	b.WriteString(m.styles.HelpTitle.Render(fmt.Sprintf("Write %d byte(s) at 0x%08X?", len(e.Bytes), e.Target)))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("old: % X\n", e.Old))
	b.WriteString(fmt.Sprintf("new: % X\n", e.Bytes))

	if pc.Warning != "" {
		b.WriteString("\n")
		if pc.Acked {
			b.WriteString(m.styles.Disabled.Render("warning acknowledged: " + pc.Warning))
		} else {
			b.WriteString(m.styles.Warning.Render("warning: " + pc.Warning))
			b.WriteString("\n(A) acknowledge")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n(Y)es / (N)o")
	return m.styles.Dialog.Render(b.String())
}

package hexgrid

import (
	"fmt"
	"strings"
)

// FormatRow renders a row as a classic dump line:
//
//	00000000  53 51 4C 69 74 65 20 66  6F 72 6D 61 74 20 33 00  |SQLite format 3.|
func FormatRow(r Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%08X  ", r.Offset)
	for i := 0; i < Width; i++ {
		if i < len(r.Cells) {
			fmt.Fprintf(&b, "%02X ", r.Cells[i].Value)
		} else {
			b.WriteString("   ")
		}
		if i == 7 {
			b.WriteByte(' ')
		}
	}
	b.WriteString(" |")
	b.WriteString(r.ASCII())
	b.WriteString("|")
	return b.String()
}

// Format renders rows one per line.
func Format(rows []Row) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(FormatRow(r))
		b.WriteByte('\n')
	}
	return b.String()
}

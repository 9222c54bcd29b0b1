package edit

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"hexlens/internal/hexgrid"
	"hexlens/internal/types"
)

func invalid(format string, args ...any) error {
	return types.New(types.ErrKindInvalidHexInput, fmt.Sprintf(format, args...))
}

func tooLong(n, width int) error {
	return types.New(types.ErrKindRowLengthExceeded, fmt.Sprintf("%d bytes exceed row width %d", n, width))
}

// ParseCell accepts exactly two hex digits.
func ParseCell(input string) (byte, error) {
	s := strings.TrimSpace(input)
	if len(s) != 2 {
		return 0, invalid("expected two hex digits, got %q", input)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return 0, invalid("expected two hex digits, got %q", input)
	}
	return b[0], nil
}

// ParseChar accepts one character; code points above 0xFF are clamped.
func ParseChar(input string) (byte, error) {
	if utf8.RuneCountInString(input) != 1 {
		return 0, invalid("expected one character, got %q", input)
	}
	r, size := utf8.DecodeRuneInString(input)
	if r == utf8.RuneError && size <= 1 {
		return 0, invalid("invalid character %q", input)
	}
	return clamp(r), nil
}

// ParseRow accepts whitespace separated two-digit hex tokens, at most width
// of them.
func ParseRow(input string, width int) ([]byte, error) {
	tokens := strings.Fields(input)
	if len(tokens) == 0 {
		return nil, invalid("no hex bytes given")
	}
	if len(tokens) > width {
		return nil, tooLong(len(tokens), width)
	}
	out := make([]byte, len(tokens))
	for i, tok := range tokens {
		if len(tok) != 2 {
			return nil, invalid("token %d %q is not two hex digits", i+1, tok)
		}
		b, err := hex.DecodeString(tok)
		if err != nil {
			return nil, invalid("token %d %q is not two hex digits", i+1, tok)
		}
		out[i] = b[0]
	}
	return out, nil
}

// ParseASCIIRow converts up to width characters to bytes and pads the result
// with spaces to width.
func ParseASCIIRow(input string, width int) ([]byte, error) {
	if !utf8.ValidString(input) {
		return nil, invalid("input is not valid text")
	}
	n := utf8.RuneCountInString(input)
	if n > width {
		return nil, tooLong(n, width)
	}
	out := make([]byte, 0, width)
	for _, r := range input {
		out = append(out, clamp(r))
	}
	for len(out) < width {
		out = append(out, ' ')
	}
	return out, nil
}

func clamp(r rune) byte {
	if r > 0xFF {
		return 0xFF
	}
	return byte(r)
}

// seed renders the current value of the target as editable input.
func seed(kind Kind, row hexgrid.Row, offset uint64) string {
	switch kind {
	case KindCell:
		return fmt.Sprintf("%02X", row.Cells[offset-row.Offset].Value)
	case KindAsciiChar:
		b := row.Cells[offset-row.Offset].Value
		if b >= 32 && b <= 126 {
			return string(rune(b))
		}
		return ""
	case KindRow:
		return row.Hex()
	case KindAsciiRow:
		// Leading printable run only; '.' placeholders are not file bytes.
		var b strings.Builder
		for _, c := range row.Cells {
			if c.Value < 32 || c.Value > 126 {
				break
			}
			b.WriteByte(c.Value)
		}
		return strings.TrimRight(b.String(), " ")
	}
	return ""
}

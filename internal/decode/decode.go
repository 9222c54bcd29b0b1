// Package decode interprets a byte sequence as a table of scalar values.
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Kind tells which field of a Value carries the result.
type Kind int

const (
	KindUint Kind = iota
	KindInt
	KindFloat
	KindTime
	KindText
	KindBig
	KindBits
)

// Value is one interpretation of the input bytes.
type Value struct {
	Label string
	Kind  Kind
	Width int // bytes consumed; 0 for string decodes of the whole input

	Uint  uint64
	Int   int64
	Float float64
	Time  time.Time
	Text  string
	Big   *big.Int

	// Err marks an interpretation that was attempted but failed, such as an
	// out-of-range timestamp or malformed UTF-8.
	Err error
}

// String renders the value for display.
func (v Value) String() string {
	if v.Err != nil {
		return "<" + v.Err.Error() + ">"
	}
	switch v.Kind {
	case KindUint:
		return strconv.FormatUint(v.Uint, 10)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		bits := 64
		if v.Width == 4 {
			bits = 32
		}
		return strconv.FormatFloat(v.Float, 'g', -1, bits)
	case KindTime:
		return v.Time.Format(time.RFC3339Nano)
	case KindText:
		return strconv.Quote(v.Text)
	case KindBig:
		return v.Big.String()
	case KindBits:
		return v.Text
	}
	return ""
}

// Table is the ordered result of Decode.
type Table struct {
	Length int
	Values []Value
}

// Lookup returns the value with the given label.
func (t Table) Lookup(label string) (Value, bool) {
	for _, v := range t.Values {
		if v.Label == label {
			return v, true
		}
	}
	return Value{}, false
}

// Labels lists the labels in table order.
func (t Table) Labels() []string {
	out := make([]string, len(t.Values))
	for i, v := range t.Values {
		out[i] = v.Label
	}
	return out
}

var (
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrNotASCII         = errors.New("not ascii")
	ErrInvalidUTF8      = errors.New("invalid utf-8")
	ErrOddLength        = errors.New("odd length")
	ErrBadSurrogate     = errors.New("unpaired surrogate")
)

// Timestamps outside [minTime, maxTime) are reported as invalid.
var (
	minTime = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	maxTime = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// maxBits is how many leading bytes the bit rendering shows.
const maxBits = 8

// Decode interprets b under every interpretation its length allows. It has
// no side effects; equal inputs give equal tables.
func Decode(b []byte) Table {
	t := Table{Length: len(b)}
	add := func(v Value) { t.Values = append(t.Values, v) }

	le, be := binary.LittleEndian, binary.BigEndian

	if len(b) >= 1 {
		add(Value{Label: "uint8", Kind: KindUint, Width: 1, Uint: uint64(b[0])})
		add(Value{Label: "int8", Kind: KindInt, Width: 1, Int: int64(int8(b[0]))})
		add(bitsValue(b))
	}

	if len(b) >= 2 {
		ul, ub := le.Uint16(b), be.Uint16(b)
		add(Value{Label: "uint16_le", Kind: KindUint, Width: 2, Uint: uint64(ul)})
		add(Value{Label: "uint16_be", Kind: KindUint, Width: 2, Uint: uint64(ub)})
		add(Value{Label: "int16_le", Kind: KindInt, Width: 2, Int: int64(int16(ul))})
		add(Value{Label: "int16_be", Kind: KindInt, Width: 2, Int: int64(int16(ub))})
	}

	if len(b) >= 4 {
		ul, ub := le.Uint32(b), be.Uint32(b)
		add(Value{Label: "uint32_le", Kind: KindUint, Width: 4, Uint: uint64(ul)})
		add(Value{Label: "uint32_be", Kind: KindUint, Width: 4, Uint: uint64(ub)})
		add(Value{Label: "int32_le", Kind: KindInt, Width: 4, Int: int64(int32(ul))})
		add(Value{Label: "int32_be", Kind: KindInt, Width: 4, Int: int64(int32(ub))})
		add(Value{Label: "float32_le", Kind: KindFloat, Width: 4, Float: float64(math.Float32frombits(ul))})
		add(Value{Label: "float32_be", Kind: KindFloat, Width: 4, Float: float64(math.Float32frombits(ub))})
		add(timeValue("unix32", 4, time.Unix(int64(ul), 0)))
	}

	if len(b) >= 8 {
		ul, ub := le.Uint64(b), be.Uint64(b)
		add(Value{Label: "uint64_le", Kind: KindUint, Width: 8, Uint: ul})
		add(Value{Label: "uint64_be", Kind: KindUint, Width: 8, Uint: ub})
		add(Value{Label: "int64_le", Kind: KindInt, Width: 8, Int: int64(ul)})
		add(Value{Label: "int64_be", Kind: KindInt, Width: 8, Int: int64(ub)})
		add(Value{Label: "float64_le", Kind: KindFloat, Width: 8, Float: math.Float64frombits(ul)})
		add(Value{Label: "float64_be", Kind: KindFloat, Width: 8, Float: math.Float64frombits(ub)})
		add(timeValue("unix64_ms", 8, time.UnixMilli(int64(ul))))
	}

	if len(b) >= 16 {
		add(Value{Label: "uint128_le", Kind: KindBig, Width: 16, Big: int128(b[:16], false, false)})
		add(Value{Label: "uint128_be", Kind: KindBig, Width: 16, Big: int128(b[:16], true, false)})
		add(Value{Label: "int128_le", Kind: KindBig, Width: 16, Big: int128(b[:16], false, true)})
		add(Value{Label: "int128_be", Kind: KindBig, Width: 16, Big: int128(b[:16], true, true)})
	}

	add(textValue("ascii", decodeASCII(b)))
	add(textValue("utf8", decodeUTF8(b)))
	add(textValue("utf16le", decodeUTF16(b, unicode.LittleEndian)))
	add(textValue("utf16be", decodeUTF16(b, unicode.BigEndian)))
	add(textValue("windows1252", decodeWindows1252(b)))

	return t
}

func bitsValue(b []byte) Value {
	n := len(b)
	if n > maxBits {
		n = maxBits
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("%08b", b[i])
	}
	return Value{Label: "bits", Kind: KindBits, Width: n, Text: strings.Join(parts, " ")}
}

func timeValue(label string, width int, ts time.Time) Value {
	ts = ts.UTC()
	v := Value{Label: label, Kind: KindTime, Width: width}
	if ts.Before(minTime) || !ts.Before(maxTime) {
		v.Err = ErrInvalidTimestamp
		return v
	}
	v.Time = ts
	return v
}

type textResult struct {
	s   string
	err error
}

func textValue(label string, r textResult) Value {
	return Value{Label: label, Kind: KindText, Text: r.s, Err: r.err}
}

// int128 interprets 16 bytes as a two's complement or unsigned integer.
func int128(b []byte, bigEndian, signed bool) *big.Int {
	var high, low uint64
	if bigEndian {
		high = binary.BigEndian.Uint64(b[:8])
		low = binary.BigEndian.Uint64(b[8:])
	} else {
		low = binary.LittleEndian.Uint64(b[:8])
		high = binary.LittleEndian.Uint64(b[8:])
	}

	n := new(big.Int).SetUint64(high)
	n.Lsh(n, 64)
	n.Or(n, new(big.Int).SetUint64(low))

	if signed && high&(1<<63) != 0 {
		max := new(big.Int).Lsh(big.NewInt(1), 128)
		n.Sub(n, max)
	}
	return n
}

func decodeASCII(b []byte) textResult {
	for i, c := range b {
		if c >= 0x80 {
			return textResult{err: fmt.Errorf("%w: byte 0x%02X at %d", ErrNotASCII, c, i)}
		}
	}
	return textResult{s: string(b)}
}

func decodeUTF8(b []byte) textResult {
	if !utf8.Valid(b) {
		return textResult{err: ErrInvalidUTF8}
	}
	return textResult{s: string(b)}
}

func decodeUTF16(b []byte, order unicode.Endianness) textResult {
	if len(b)%2 != 0 {
		return textResult{err: ErrOddLength}
	}
	if err := checkSurrogates(b, order); err != nil {
		return textResult{err: err}
	}
	out, err := unicode.UTF16(order, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return textResult{err: err}
	}
	return textResult{s: string(out)}
}

// checkSurrogates rejects high surrogates not followed by a low surrogate and
// stray low surrogates; the x/text decoder would silently replace them.
func checkSurrogates(b []byte, order unicode.Endianness) error {
	unit := func(i int) uint16 {
		if order == unicode.BigEndian {
			return binary.BigEndian.Uint16(b[i:])
		}
		return binary.LittleEndian.Uint16(b[i:])
	}
	for i := 0; i < len(b); i += 2 {
		u := unit(i)
		switch {
		case u >= 0xD800 && u <= 0xDBFF:
			if i+2 >= len(b) {
				return fmt.Errorf("%w at %d", ErrBadSurrogate, i)
			}
			if next := unit(i + 2); next < 0xDC00 || next > 0xDFFF {
				return fmt.Errorf("%w at %d", ErrBadSurrogate, i)
			}
			i += 2
		case u >= 0xDC00 && u <= 0xDFFF:
			return fmt.Errorf("%w at %d", ErrBadSurrogate, i)
		}
	}
	return nil
}

func decodeWindows1252(b []byte) textResult {
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return textResult{err: err}
	}
	return textResult{s: string(out)}
}

// Package hexgrid turns a byte range of a file into rows of addressable cells
// and tracks the user's byte selection over them.
package hexgrid

import (
	"context"
	"fmt"
	"strings"

	"hexlens/internal/logger"
	"hexlens/internal/source"
	"hexlens/internal/types"
)

const (
	// Width is the number of cells in a full row.
	Width = 16

	// DefaultPageLength is the number of bytes loaded per page.
	DefaultPageLength = 256
)

// Range is a window into a file.
type Range struct {
	Offset uint64
	Length uint32
}

// NewRange validates that offset+length does not overflow.
func NewRange(offset uint64, length uint32) (Range, error) {
	if offset+uint64(length) < offset {
		return Range{}, types.New(types.ErrKindOffsetOutOfRange,
			fmt.Sprintf("range 0x%X+%d overflows", offset, length))
	}
	return Range{Offset: offset, Length: length}, nil
}

// End returns the first offset past the range.
func (r Range) End() uint64 { return r.Offset + uint64(r.Length) }

// Contains reports whether offset lies inside the range.
func (r Range) Contains(offset uint64) bool {
	return offset >= r.Offset && offset < r.End()
}

// Cell is one byte at an absolute offset.
type Cell struct {
	Offset uint64
	Value  byte
}

// Char returns the printable character for the cell, or '.'.
func (c Cell) Char() byte { return printable(c.Value) }

func printable(b byte) byte {
	if b >= 32 && b <= 126 {
		return b
	}
	return '.'
}

// Row is up to Width consecutive cells. Cells[i].Offset == Offset+i.
type Row struct {
	Offset uint64
	Cells  []Cell
}

// End returns the first offset past the row.
func (r Row) End() uint64 { return r.Offset + uint64(len(r.Cells)) }

// Bytes returns the row's values.
func (r Row) Bytes() []byte {
	out := make([]byte, len(r.Cells))
	for i, c := range r.Cells {
		out[i] = c.Value
	}
	return out
}

// Hex renders the row as space separated two-digit tokens.
func (r Row) Hex() string {
	parts := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		parts[i] = fmt.Sprintf("%02X", c.Value)
	}
	return strings.Join(parts, " ")
}

// ASCII renders the row's character lane.
func (r Row) ASCII() string {
	out := make([]byte, len(r.Cells))
	for i, c := range r.Cells {
		out[i] = c.Char()
	}
	return string(out)
}

// Partition splits data read at base into rows of Width cells; the last row
// may be short.
func Partition(base uint64, data []byte) []Row {
	rows := make([]Row, 0, (len(data)+Width-1)/Width)
	for i := 0; i < len(data); i += Width {
		end := i + Width
		if end > len(data) {
			end = len(data)
		}
		row := Row{Offset: base + uint64(i), Cells: make([]Cell, end-i)}
		for j := i; j < end; j++ {
			row.Cells[j-i] = Cell{Offset: base + uint64(j), Value: data[j]}
		}
		rows = append(rows, row)
	}
	return rows
}

// LoadRequest identifies one grid load. Gen orders requests issued by a Grid.
type LoadRequest struct {
	Gen    uint64
	FileID string
	Range  Range
}

// LoadResult carries the outcome of a LoadRequest back to the Grid.
type LoadResult struct {
	LoadRequest
	Data []byte
	Err  error
}

// Fetch performs the read for req. It touches no Grid state and may run off
// the event loop.
func Fetch(ctx context.Context, src source.ByteSource, req LoadRequest) LoadResult {
	data, err := src.Read(ctx, req.FileID, req.Range.Offset, req.Range.Length)
	return LoadResult{LoadRequest: req, Data: data, Err: err}
}

// Grid holds the rows of the most recently loaded range.
//
// Loads are split into Begin, Fetch and Apply so the I/O can run
// asynchronously; Apply drops any result whose generation is not the latest
// one issued by Begin.
type Grid struct {
	pageLen uint32
	gen     uint64

	// most recent request
	targetFile string
	target     Range

	// what the rows currently show
	fileID string
	window Range
	loaded Range
	rows   []Row
}

func New(pageLen uint32) *Grid {
	if pageLen == 0 {
		pageLen = DefaultPageLength
	}
	return &Grid{pageLen: pageLen}
}

func (g *Grid) PageLength() uint32 { return g.pageLen }

// SetPageLength changes the page step used by paging and future loads.
func (g *Grid) SetPageLength(n uint32) {
	if n == 0 {
		n = DefaultPageLength
	}
	g.pageLen = n
}

// Generation returns the generation of the latest request.
func (g *Grid) Generation() uint64 { return g.gen }

// FileID returns the file the rows belong to.
func (g *Grid) FileID() string { return g.fileID }

// Rows returns the current rows. Callers must not modify them.
func (g *Grid) Rows() []Row { return g.rows }

// Window returns the requested range behind the current rows.
func (g *Grid) Window() Range { return g.window }

// Loaded returns the range actually covered by the current rows; it is
// shorter than Window near the end of the file.
func (g *Grid) Loaded() Range { return g.loaded }

// Target returns the file and range of the most recent request.
func (g *Grid) Target() (string, Range) { return g.targetFile, g.target }

// Begin issues a new generation for a load of length bytes at offset.
func (g *Grid) Begin(fileID string, offset uint64, length uint32) (LoadRequest, error) {
	r, err := NewRange(offset, length)
	if err != nil {
		return LoadRequest{}, err
	}
	g.gen++
	g.targetFile = fileID
	g.target = r
	return LoadRequest{Gen: g.gen, FileID: fileID, Range: r}, nil
}

// Apply installs res if it answers the latest request. Stale results return
// types.ErrStale and leave the grid untouched; failed results keep the
// previous rows. A non-empty request past offset 0 that reads nothing is at or beyond end of file and
// fails with OffsetOutOfRange.
func (g *Grid) Apply(res LoadResult) ([]Row, error) {
	if res.Gen != g.gen {
		logger.Debug("discarding stale grid load", "gen", res.Gen, "current", g.gen, "offset", res.Range.Offset)
		return nil, types.Wrap(types.ErrKindStale, fmt.Sprintf("grid load gen %d", res.Gen), types.ErrStale)
	}
	if res.Err == nil && len(res.Data) == 0 && res.Range.Offset > 0 && res.Range.Length > 0 {
		res.Err = types.New(types.ErrKindOffsetOutOfRange,
			fmt.Sprintf("offset 0x%X is at or past end of file", res.Range.Offset))
	}
	if res.Err != nil {
		g.targetFile, g.target = g.fileID, g.window
		logger.Warn("grid load failed", "file", res.FileID, "offset", res.Range.Offset, "error", res.Err)
		return nil, res.Err
	}

	data := res.Data
	if uint64(len(data)) > uint64(res.Range.Length) {
		data = data[:res.Range.Length]
	}
	g.rows = Partition(res.Range.Offset, data)
	g.fileID = res.FileID
	g.window = res.Range
	g.loaded = Range{Offset: res.Range.Offset, Length: uint32(len(data))}
	logger.Debug("grid loaded", "file", res.FileID, "offset", res.Range.Offset, "bytes", len(data), "rows", len(g.rows))
	return g.rows, nil
}

// Load reads length bytes at offset and replaces the rows.
func (g *Grid) Load(ctx context.Context, src source.ByteSource, fileID string, offset uint64, length uint32) ([]Row, error) {
	req, err := g.Begin(fileID, offset, length)
	if err != nil {
		return nil, err
	}
	return g.Apply(Fetch(ctx, src, req))
}

// NextPage begins a load one page after the most recent request. It refuses
// when the current rows already end short of their window.
func (g *Grid) NextPage() (LoadRequest, error) {
	if g.target == g.window && g.targetFile == g.fileID && g.loaded.Length < g.window.Length {
		return LoadRequest{}, types.New(types.ErrKindOffsetOutOfRange, "already at end of file")
	}
	next := g.target.Offset + uint64(g.pageLen)
	if next < g.target.Offset {
		return LoadRequest{}, types.New(types.ErrKindOffsetOutOfRange, "page offset overflows")
	}
	return g.Begin(g.targetFile, next, g.pageLen)
}

// PrevPage begins a load one page before the most recent request, clamped at 0.
func (g *Grid) PrevPage() (LoadRequest, error) {
	prev := uint64(0)
	if g.target.Offset > uint64(g.pageLen) {
		prev = g.target.Offset - uint64(g.pageLen)
	}
	return g.Begin(g.targetFile, prev, g.pageLen)
}

// Reload begins a load of the window currently shown.
func (g *Grid) Reload() (LoadRequest, error) {
	return g.Begin(g.fileID, g.window.Offset, g.window.Length)
}

// PageForward loads the next page.
func (g *Grid) PageForward(ctx context.Context, src source.ByteSource) ([]Row, error) {
	req, err := g.NextPage()
	if err != nil {
		return nil, err
	}
	return g.Apply(Fetch(ctx, src, req))
}

// PageBackward loads the previous page.
func (g *Grid) PageBackward(ctx context.Context, src source.ByteSource) ([]Row, error) {
	req, err := g.PrevPage()
	if err != nil {
		return nil, err
	}
	return g.Apply(Fetch(ctx, src, req))
}

// CellAt returns the loaded cell at offset.
func (g *Grid) CellAt(offset uint64) (Cell, bool) {
	row, ok := g.RowAt(offset)
	if !ok {
		return Cell{}, false
	}
	return row.Cells[offset-row.Offset], true
}

// RowAt returns the loaded row containing offset.
func (g *Grid) RowAt(offset uint64) (Row, bool) {
	if !g.loaded.Contains(offset) {
		return Row{}, false
	}
	i := (offset - g.loaded.Offset) / Width
	return g.rows[i], true
}

// Slice returns a copy of the loaded bytes in the inclusive range [start, end].
func (g *Grid) Slice(start, end uint64) []byte {
	if end < start || !g.loaded.Contains(start) || !g.loaded.Contains(end) {
		return nil
	}
	out := make([]byte, 0, end-start+1)
	for o := start; o <= end; o++ {
		c, _ := g.CellAt(o)
		out = append(out, c.Value)
	}
	return out
}

package edit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hexlens/internal/hexgrid"
	"hexlens/internal/source"
	"hexlens/internal/types"
)

type fakeStats struct{ invalidated []string }

func (f *fakeStats) Invalidate(fileID string) { f.invalidated = append(f.invalidated, fileID) }

type fakeJournal struct{ edits []PendingEdit }

func (f *fakeJournal) Record(e PendingEdit) error {
	f.edits = append(f.edits, e)
	return nil
}

type readOnlySource struct{ *source.MemorySource }

func (readOnlySource) Write(ctx context.Context, fileID string, offset uint64, data []byte) error {
	return types.New(types.ErrKindSourceUnavailable, "read-only")
}

type fixture struct {
	src     *source.MemorySource
	grid    *hexgrid.Grid
	proto   *Protocol
	stats   *fakeStats
	journal *fakeJournal
}

// newFixture loads a 40 byte file: two full rows and an 8 byte final row.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	data := []byte("SQLite format 3\x00")
	for i := 0x10; i < 0x20; i++ {
		data = append(data, byte(i))
	}
	data = append(data, []byte("abcdefgh")...)

	src := source.NewMemorySource()
	src.Add("f", data)

	g := hexgrid.New(hexgrid.DefaultPageLength)
	_, err := g.Load(context.Background(), src, "f", 0, hexgrid.DefaultPageLength)
	require.NoError(t, err)

	f := &fixture{src: src, grid: g, stats: &fakeStats{}, journal: &fakeJournal{}}
	f.proto = New(g, hexgrid.NewTracker(g), Options{Stats: f.stats, Journal: f.journal})
	require.NoError(t, f.proto.SetEditMode(true))
	return f
}

func (f *fixture) file() []byte {
	b, _ := f.src.Bytes("f")
	return b
}

func TestRowEditStagesSixBytes(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.proto.Select(KindRow, 0x13))
	ed, ok := f.proto.State().(Editing)
	require.True(t, ok)
	assert.Equal(t, uint64(0x10), ed.Target, "row edits snap to the row base")
	assert.Equal(t, "10 11 12 13 14 15 16 17 18 19 1A 1B 1C 1D 1E 1F", ed.Input)

	require.NoError(t, f.proto.SetInput("53 51 4C 69 74 65"))
	pe, err := f.proto.Submit()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10), pe.Target)
	assert.Equal(t, []byte("SQLite"), pe.Bytes)
	assert.Equal(t, []byte{0x10, 0x11, 0x12, 0x13, 0x14, 0x15}, pe.Old)

	pc, ok := f.proto.State().(PendingConfirmation)
	require.True(t, ok)
	assert.False(t, pc.Acked)
	assert.NotEmpty(t, pc.Warning)
}

func TestRowEditCommit(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.proto.Select(KindRow, 0x10))
	require.NoError(t, f.proto.SetInput("53 51 4C 69 74 65"))
	_, err := f.proto.Submit()
	require.NoError(t, err)

	// The multi-byte warning must be acknowledged first.
	_, err = f.proto.Confirm()
	assert.True(t, errors.Is(err, types.ErrState))
	assert.IsType(t, PendingConfirmation{}, f.proto.State())

	require.NoError(t, f.proto.Acknowledge())
	require.NoError(t, f.proto.Commit(context.Background(), f.src))

	assert.IsType(t, Viewing{}, f.proto.State())
	assert.Equal(t, []byte("SQLite"), f.file()[0x10:0x16])
	assert.Equal(t, byte(0x16), f.file()[0x16], "bytes past the edit are untouched")

	c, ok := f.grid.CellAt(0x10)
	require.True(t, ok)
	assert.Equal(t, byte(0x53), c.Value, "grid reloaded after commit")

	assert.Equal(t, []string{"f"}, f.stats.invalidated)
	require.Len(t, f.journal.edits, 1)
	assert.Equal(t, KindRow, f.journal.edits[0].Kind)
}

func TestInvalidRowStaysEditing(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.proto.Select(KindRow, 0))
	require.NoError(t, f.proto.SetInput("GG 00"))
	_, err := f.proto.Submit()
	assert.True(t, errors.Is(err, types.ErrInvalidHexInput))

	ed, ok := f.proto.State().(Editing)
	require.True(t, ok)
	assert.Equal(t, "GG 00", ed.Input)

	for _, input := range []string{"", "   ", "5", "531", "53 5"} {
		require.NoError(t, f.proto.SetInput(input))
		_, err := f.proto.Submit()
		assert.True(t, errors.Is(err, types.ErrInvalidHexInput), "input %q", input)
	}
	assert.IsType(t, Editing{}, f.proto.State())
}

func TestRowLengthExceeded(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.proto.Select(KindRow, 0))
	require.NoError(t, f.proto.SetInput("00 01 02 03 04 05 06 07 08 09 0A 0B 0C 0D 0E 0F 10"))
	_, err := f.proto.Submit()
	assert.True(t, errors.Is(err, types.ErrRowLengthExceeded))

	// The final row is only 8 bytes wide.
	require.NoError(t, f.proto.Select(KindRow, 0x24))
	require.NoError(t, f.proto.SetInput("00 01 02 03 04 05 06 07 08"))
	_, err = f.proto.Submit()
	assert.True(t, errors.Is(err, types.ErrRowLengthExceeded))
	assert.IsType(t, Editing{}, f.proto.State())
}

func TestAsciiRowPadsToWidth(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.proto.Select(KindAsciiRow, 0x05))
	ed := f.proto.State().(Editing)
	assert.Equal(t, "SQLite format 3", ed.Input)

	require.NoError(t, f.proto.SetInput("AB"))
	pe, err := f.proto.Submit()
	require.NoError(t, err)
	want := append([]byte{0x41, 0x42}, bytes.Repeat([]byte{0x20}, 14)...)
	assert.Equal(t, want, pe.Bytes)
	assert.Len(t, pe.Bytes, 16)
	assert.Contains(t, f.proto.State().(PendingConfirmation).Warning, "filled with spaces")

	require.NoError(t, f.proto.Acknowledge())
	require.NoError(t, f.proto.Commit(context.Background(), f.src))
	assert.Equal(t, want, f.file()[:16])
}

func TestAsciiRowSeedStopsAtNonPrintable(t *testing.T) {
	f := newFixture(t)

	// 0x10..0x1F are all control bytes.
	require.NoError(t, f.proto.Select(KindAsciiRow, 0x14))
	assert.Equal(t, "", f.proto.State().(Editing).Input)

	f.src.Add("f", append([]byte("ab\x01cd"), bytes.Repeat([]byte{0x7F}, 11)...))
	_, err := f.grid.Load(context.Background(), f.src, "f", 0, hexgrid.DefaultPageLength)
	require.NoError(t, err)

	require.NoError(t, f.proto.Select(KindAsciiRow, 0))
	ed := f.proto.State().(Editing)
	assert.Equal(t, "ab", ed.Input)
	assert.NotContains(t, ed.Input, ".")
}

func TestAsciiRowShortFinalRow(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.proto.Select(KindAsciiRow, 0x20))
	require.NoError(t, f.proto.SetInput("AB"))
	pe, err := f.proto.Submit()
	require.NoError(t, err)
	assert.Equal(t, []byte("AB      "), pe.Bytes)

	require.NoError(t, f.proto.Select(KindAsciiRow, 0x20))
	require.NoError(t, f.proto.SetInput("123456789"))
	_, err = f.proto.Submit()
	assert.True(t, errors.Is(err, types.ErrRowLengthExceeded))
}

func TestCellEdit(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.proto.Select(KindCell, 5))
	assert.Equal(t, "65", f.proto.State().(Editing).Input)

	require.NoError(t, f.proto.SetInput("ff"))
	pe, err := f.proto.Submit()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, pe.Bytes)
	assert.True(t, f.proto.State().(PendingConfirmation).Acked, "single byte edits need no acknowledgement")

	require.NoError(t, f.proto.Commit(context.Background(), f.src))
	assert.Equal(t, byte(0xFF), f.file()[5])

	require.NoError(t, f.proto.Select(KindCell, 5))
	for _, input := range []string{"F", "FFF", "G0", ""} {
		require.NoError(t, f.proto.SetInput(input))
		_, err := f.proto.Submit()
		assert.True(t, errors.Is(err, types.ErrInvalidHexInput), "input %q", input)
	}
}

func TestAsciiCharEdit(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.proto.Select(KindAsciiChar, 0))
	assert.Equal(t, "S", f.proto.State().(Editing).Input)

	require.NoError(t, f.proto.SetInput("€"))
	pe, err := f.proto.Submit()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, pe.Bytes, "code points above 0xFF clamp")

	require.NoError(t, f.proto.Select(KindAsciiChar, 0))
	require.NoError(t, f.proto.SetInput("ab"))
	_, err = f.proto.Submit()
	assert.True(t, errors.Is(err, types.ErrInvalidHexInput))

	// Non-printable bytes seed an empty buffer.
	require.NoError(t, f.proto.Select(KindAsciiChar, 0x0F))
	assert.Equal(t, "", f.proto.State().(Editing).Input)
}

func TestCommitFailureKeepsGrid(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.proto.Select(KindCell, 0))
	require.NoError(t, f.proto.SetInput("00"))
	_, err := f.proto.Submit()
	require.NoError(t, err)

	err = f.proto.Commit(context.Background(), readOnlySource{f.src})
	assert.True(t, errors.Is(err, types.ErrSourceUnavailable))
	assert.IsType(t, Viewing{}, f.proto.State())

	c, _ := f.grid.CellAt(0)
	assert.Equal(t, byte('S'), c.Value)
	assert.Equal(t, byte('S'), f.file()[0])
	assert.Empty(t, f.stats.invalidated)
	assert.Empty(t, f.journal.edits)
}

func TestTab(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.proto.Select(KindCell, 0x0F))
	require.NoError(t, f.proto.SetInput("AA"))
	require.NoError(t, f.proto.Tab())

	ed := f.proto.State().(Editing)
	assert.Equal(t, uint64(0x10), ed.Target, "wraps to the next row")
	assert.Equal(t, "10", ed.Input, "input reseeded")

	require.NoError(t, f.proto.Select(KindAsciiChar, 0x27))
	require.NoError(t, f.proto.Tab())
	assert.Equal(t, uint64(0x27), f.proto.State().(Editing).Target, "no-op at the end of the loaded range")

	require.NoError(t, f.proto.Select(KindRow, 0))
	assert.True(t, errors.Is(f.proto.Tab(), types.ErrState))
}

func TestEscape(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.proto.Escape())
	assert.IsType(t, Viewing{}, f.proto.State())

	require.NoError(t, f.proto.Select(KindCell, 1))
	require.NoError(t, f.proto.Escape())
	assert.IsType(t, Viewing{}, f.proto.State())

	require.NoError(t, f.proto.Select(KindRow, 0))
	_, err := f.proto.Submit()
	require.NoError(t, err)
	require.NoError(t, f.proto.Escape())
	assert.IsType(t, Viewing{}, f.proto.State())

	require.NoError(t, f.proto.Select(KindCell, 1))
	_, err = f.proto.Submit()
	require.NoError(t, err)
	require.NoError(t, f.proto.Cancel())
	assert.IsType(t, Viewing{}, f.proto.State())
}

func TestSelectRequiresEditMode(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.proto.SetEditMode(false))

	err := f.proto.Select(KindCell, 0)
	assert.True(t, errors.Is(err, types.ErrState))
	assert.IsType(t, Viewing{}, f.proto.State())

	require.NoError(t, f.proto.SetEditMode(true))
	err = f.proto.Select(KindCell, 0x100)
	assert.True(t, errors.Is(err, types.ErrOffsetOutOfRange))
}

func TestSelectDiscardsPreviousInput(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.proto.Select(KindCell, 0))
	require.NoError(t, f.proto.SetInput("00"))
	require.NoError(t, f.proto.Select(KindCell, 1))

	ed := f.proto.State().(Editing)
	assert.Equal(t, uint64(1), ed.Target)
	assert.Equal(t, "51", ed.Input)
}

func TestCommittingRefusesTransitions(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.proto.Select(KindCell, 0))
	_, err := f.proto.Submit()
	require.NoError(t, err)

	req, err := f.proto.Confirm()
	require.NoError(t, err)
	assert.IsType(t, Committing{}, f.proto.State())

	assert.True(t, errors.Is(f.proto.Select(KindCell, 1), types.ErrState))
	assert.True(t, errors.Is(f.proto.Escape(), types.ErrState))
	assert.True(t, errors.Is(f.proto.SetEditMode(false), types.ErrState))
	_, err = f.proto.Confirm()
	assert.True(t, errors.Is(err, types.ErrState))

	stale := req
	stale.Seq--
	assert.True(t, errors.Is(f.proto.Finish(CommitResult{CommitRequest: stale}), types.ErrState))

	require.NoError(t, f.proto.Finish(Execute(context.Background(), f.src, req)))
	assert.IsType(t, Viewing{}, f.proto.State())
}

func TestReloadSupersededByNavigation(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.proto.Select(KindCell, 0))
	require.NoError(t, f.proto.SetInput("00"))
	_, err := f.proto.Submit()
	require.NoError(t, err)

	req, err := f.proto.Confirm()
	require.NoError(t, err)
	res := Execute(context.Background(), f.src, req)

	// The user pages away before the commit lands.
	nav, err := f.grid.Begin("f", 0x10, hexgrid.DefaultPageLength)
	require.NoError(t, err)

	require.NoError(t, f.proto.Finish(res))
	assert.Equal(t, byte(0), f.file()[0])

	_, err = f.grid.Apply(hexgrid.Fetch(context.Background(), f.src, nav))
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10), f.grid.Window().Offset)
}

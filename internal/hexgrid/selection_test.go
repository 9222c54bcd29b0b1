package hexgrid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedGrid(t *testing.T, offset uint64, length uint32) *Grid {
	t.Helper()
	g := New(length)
	_, err := g.Load(context.Background(), newSource(seq(256)), "f", offset, length)
	require.NoError(t, err)
	return g
}

func TestSelectionOrderedRegardlessOfDirection(t *testing.T) {
	tr := NewTracker(loadedGrid(t, 0, 64))

	require.True(t, tr.Begin(20))
	sel, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, Selection{Start: 20, End: 20}, sel)

	tr.Extend(5)
	sel, _ = tr.Current()
	assert.Equal(t, Selection{Start: 5, End: 20}, sel)

	tr.Extend(30)
	sel, _ = tr.Current()
	assert.Equal(t, Selection{Start: 20, End: 30}, sel)
	assert.Equal(t, uint64(11), sel.Len())
}

func TestSelectionClampedToLoadedRange(t *testing.T) {
	tr := NewTracker(loadedGrid(t, 16, 32))

	assert.False(t, tr.Begin(8), "begin outside the grid is ignored")
	require.True(t, tr.Begin(20))

	tr.Extend(1000)
	sel, _ := tr.Current()
	assert.Equal(t, Selection{Start: 20, End: 47}, sel)

	tr.Extend(0)
	sel, _ = tr.Current()
	assert.Equal(t, Selection{Start: 16, End: 20}, sel)
}

func TestEndFreezesWithoutClearing(t *testing.T) {
	g := loadedGrid(t, 0, 64)
	tr := NewTracker(g)

	tr.Begin(4)
	tr.Extend(7)
	_, frozen := tr.Frozen()
	assert.False(t, frozen, "not frozen while dragging")

	tr.End()
	sel, ok := tr.Frozen()
	require.True(t, ok)
	assert.Equal(t, Selection{Start: 4, End: 7}, sel)
	assert.Equal(t, []byte{4, 5, 6, 7}, tr.Bytes())

	// Motion after release does not move the frozen selection.
	assert.False(t, tr.Extend(10))
	sel, _ = tr.Current()
	assert.Equal(t, uint64(7), sel.End)
}

func TestEditModeClearsAndBlocksSelection(t *testing.T) {
	tr := NewTracker(loadedGrid(t, 0, 64))
	tr.Begin(1)
	tr.Extend(3)
	tr.End()

	tr.SetEditMode(true)
	_, ok := tr.Current()
	assert.False(t, ok)
	assert.False(t, tr.Begin(2))

	tr.SetEditMode(false)
	assert.True(t, tr.Begin(2))
}

func TestSelectionSurvivesReloadWhileInRange(t *testing.T) {
	ctx := context.Background()
	src := newSource(seq(256))
	g := New(64)
	_, err := g.Load(ctx, src, "f", 0, 64)
	require.NoError(t, err)

	tr := NewTracker(g)
	tr.Begin(40)
	tr.Extend(50)
	tr.End()

	_, err = g.Load(ctx, src, "f", 32, 64)
	require.NoError(t, err)
	sel, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, Selection{Start: 40, End: 50}, sel)

	_, err = g.Load(ctx, src, "f", 128, 64)
	require.NoError(t, err)
	_, ok = tr.Current()
	assert.False(t, ok, "selection outside the new range is not reported")
}

func TestAdjustFromKeyboard(t *testing.T) {
	tr := NewTracker(loadedGrid(t, 0, 64))
	assert.False(t, tr.Adjust(3), "no selection to adjust")

	tr.Begin(10)
	tr.End()
	require.True(t, tr.Adjust(12))
	sel, _ := tr.Frozen()
	assert.Equal(t, Selection{Start: 10, End: 12}, sel)
}

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hexlens/internal/edit"
	"hexlens/internal/types"
)

func openSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// backends runs fn against every KV implementation.
func backends(t *testing.T, fn func(t *testing.T, kv KV)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, openSQLite(t)) })
}

func TestOpenPragmas(t *testing.T) {
	s := openSQLite(t)
	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "ns", "k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get(context.Background(), "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestKV(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()

		_, err := kv.Get(ctx, "ns", "missing")
		assert.True(t, errors.Is(err, types.ErrNotFound))

		require.NoError(t, kv.Put(ctx, "ns", "b", []byte("2")))
		require.NoError(t, kv.Put(ctx, "ns", "a", []byte("1")))
		require.NoError(t, kv.Put(ctx, "other", "a", []byte("x")))
		require.NoError(t, kv.Put(ctx, "ns", "b", []byte("3")))

		v, err := kv.Get(ctx, "ns", "b")
		require.NoError(t, err)
		assert.Equal(t, []byte("3"), v)

		list, err := kv.List(ctx, "ns")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "a", list[0].Key)
		assert.Equal(t, "b", list[1].Key)

		require.NoError(t, kv.Delete(ctx, "ns", "a"))
		require.NoError(t, kv.Delete(ctx, "ns", "never-existed"))
		list, err = kv.List(ctx, "ns")
		require.NoError(t, err)
		assert.Len(t, list, 1)

		list, err = kv.List(ctx, "empty")
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestBookmarks(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		b := NewBookmarks(kv)

		require.NoError(t, b.Add(ctx, "f", 0x200, "page 2"))
		require.NoError(t, b.Add(ctx, "f", 0x10, "header"))
		require.NoError(t, b.Add(ctx, "g", 0x10, "other file"))

		list, err := b.List(ctx, "f")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, uint64(0x10), list[0].Offset)
		assert.Equal(t, "header", list[0].Label)
		assert.Equal(t, uint64(0x200), list[1].Offset)

		next, ok, err := b.Next(ctx, "f", 0x10)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint64(0x200), next.Offset)

		next, _, _ = b.Next(ctx, "f", 0x200)
		assert.Equal(t, uint64(0x10), next.Offset, "wraps to the first bookmark")

		on, err := b.Toggle(ctx, "f", 0x10, "")
		require.NoError(t, err)
		assert.False(t, on)
		on, err = b.Toggle(ctx, "f", 0x20, "")
		require.NoError(t, err)
		assert.True(t, on)

		list, _ = b.List(ctx, "f")
		require.Len(t, list, 2)
		assert.Equal(t, uint64(0x20), list[0].Offset)

		_, ok, err = b.Next(ctx, "none", 0)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestHistory(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		h := NewHistory(kv, 3)

		for _, o := range []uint64{0, 0x100, 0x100, 0x200, 0x300} {
			require.NoError(t, h.Push(ctx, "f", o))
		}

		offsets, err := h.Offsets(ctx, "f")
		require.NoError(t, err)
		assert.Equal(t, []uint64{0x100, 0x200, 0x300}, offsets)

		last, ok, err := h.Last(ctx, "f")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint64(0x300), last)

		_, ok, err = h.Last(ctx, "g")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestJournal(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		j := NewJournal(kv, 2)
		j.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

		edits := []edit.PendingEdit{
			{FileID: "f", Kind: edit.KindCell, Target: 1, Bytes: []byte{0xAA}, Old: []byte{0x01}},
			{FileID: "f", Kind: edit.KindRow, Target: 0x10, Bytes: []byte("SQLite"), Old: []byte{0, 0, 0, 0, 0, 0}},
			{FileID: "f", Kind: edit.KindAsciiChar, Target: 2, Bytes: []byte{'x'}, Old: []byte{'y'}},
		}
		for _, e := range edits {
			require.NoError(t, j.Record(e))
		}

		entries, err := j.Entries(ctx, "f")
		require.NoError(t, err)
		require.Len(t, entries, 2, "oldest entry trimmed")

		assert.Equal(t, "row", entries[0].Kind)
		assert.Equal(t, uint64(0x10), entries[0].Offset)
		assert.Equal(t, "53514c697465", entries[0].New)
		assert.Equal(t, "000000000000", entries[0].Old)
		assert.Equal(t, "ascii", entries[1].Kind)
		assert.True(t, j.now().Equal(entries[1].Time))

		id, err := uuid.Parse(entries[1].ID)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), id.Version())
	})
}

func TestJournalSatisfiesEditJournal(t *testing.T) {
	var _ edit.Journal = NewJournal(NewMemory(), 0)
}

package store

import (
	"context"
	"strconv"

	"github.com/google/uuid"
)

// DefaultHistoryLimit is the number of offsets kept per file.
const DefaultHistoryLimit = 50

// History records the offsets a file was viewed at, oldest first.
// Keys are UUIDv7 strings, which sort by creation time.
type History struct {
	kv    KV
	limit int
}

func NewHistory(kv KV, limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{kv: kv, limit: limit}
}

func historyNS(fileID string) string { return "history:" + fileID }

// Push appends offset unless it repeats the latest entry, then trims the
// history to its limit.
func (h *History) Push(ctx context.Context, fileID string, offset uint64) error {
	ns := historyNS(fileID)
	entries, err := h.kv.List(ctx, ns)
	if err != nil {
		return err
	}
	value := strconv.FormatUint(offset, 10)
	if n := len(entries); n > 0 && string(entries[n-1].Value) == value {
		return nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	if err := h.kv.Put(ctx, ns, id.String(), []byte(value)); err != nil {
		return err
	}

	for excess := len(entries) + 1 - h.limit; excess > 0; excess-- {
		if err := h.kv.Delete(ctx, ns, entries[0].Key); err != nil {
			return err
		}
		entries = entries[1:]
	}
	return nil
}

// Offsets returns the recorded offsets, oldest first.
func (h *History) Offsets(ctx context.Context, fileID string) ([]uint64, error) {
	entries, err := h.kv.List(ctx, historyNS(fileID))
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(entries))
	for _, e := range entries {
		o, err := strconv.ParseUint(string(e.Value), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// Last returns the most recent offset.
func (h *History) Last(ctx context.Context, fileID string) (uint64, bool, error) {
	offsets, err := h.Offsets(ctx, fileID)
	if err != nil || len(offsets) == 0 {
		return 0, false, err
	}
	return offsets[len(offsets)-1], true, nil
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Bookmark is a labelled offset in a file.
type Bookmark struct {
	Offset  uint64    `json:"offset" yaml:"offset"`
	Label   string    `json:"label" yaml:"label"`
	Created time.Time `json:"created" yaml:"created"`
}

// Bookmarks keeps per-file bookmarks, one per offset.
type Bookmarks struct {
	kv  KV
	now func() time.Time
}

func NewBookmarks(kv KV) *Bookmarks {
	return &Bookmarks{kv: kv, now: time.Now}
}

func bookmarkNS(fileID string) string { return "bookmarks:" + fileID }

// Keys sort in offset order.
func offsetKey(offset uint64) string { return fmt.Sprintf("%016x", offset) }

// Toggle adds a bookmark at offset, or removes the one already there. It
// reports whether the offset is bookmarked afterwards.
func (b *Bookmarks) Toggle(ctx context.Context, fileID string, offset uint64, label string) (bool, error) {
	ns, key := bookmarkNS(fileID), offsetKey(offset)
	if _, err := b.kv.Get(ctx, ns, key); err == nil {
		return false, b.kv.Delete(ctx, ns, key)
	}
	return true, b.Add(ctx, fileID, offset, label)
}

// Add stores a bookmark, replacing any at the same offset.
func (b *Bookmarks) Add(ctx context.Context, fileID string, offset uint64, label string) error {
	v, err := json.Marshal(Bookmark{Offset: offset, Label: label, Created: b.now().UTC()})
	if err != nil {
		return err
	}
	return b.kv.Put(ctx, bookmarkNS(fileID), offsetKey(offset), v)
}

// Remove deletes the bookmark at offset.
func (b *Bookmarks) Remove(ctx context.Context, fileID string, offset uint64) error {
	return b.kv.Delete(ctx, bookmarkNS(fileID), offsetKey(offset))
}

// List returns the file's bookmarks in offset order.
func (b *Bookmarks) List(ctx context.Context, fileID string) ([]Bookmark, error) {
	entries, err := b.kv.List(ctx, bookmarkNS(fileID))
	if err != nil {
		return nil, err
	}
	out := make([]Bookmark, 0, len(entries))
	for _, e := range entries {
		var bm Bookmark
		if err := json.Unmarshal(e.Value, &bm); err != nil {
			return nil, fmt.Errorf("bookmark %s: %w", e.Key, err)
		}
		out = append(out, bm)
	}
	return out, nil
}

// Next returns the first bookmark after offset, wrapping to the first one.
func (b *Bookmarks) Next(ctx context.Context, fileID string, offset uint64) (Bookmark, bool, error) {
	list, err := b.List(ctx, fileID)
	if err != nil || len(list) == 0 {
		return Bookmark{}, false, err
	}
	for _, bm := range list {
		if bm.Offset > offset {
			return bm, true, nil
		}
	}
	return list[0], true, nil
}

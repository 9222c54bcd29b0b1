package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hexlens/internal/edit"
)

// DefaultJournalLimit is the number of edits kept per file.
const DefaultJournalLimit = 500

// JournalEntry describes one committed edit.
type JournalEntry struct {
	ID     string    `json:"id" yaml:"id"`
	FileID string    `json:"file" yaml:"file"`
	Offset uint64    `json:"offset" yaml:"offset"`
	Kind   string    `json:"kind" yaml:"kind"`
	Old    string    `json:"old" yaml:"old"`
	New    string    `json:"new" yaml:"new"`
	Time   time.Time `json:"time" yaml:"time"`
}

// Journal is an append-only log of committed edits per file. It records what
// changed; it does not undo.
type Journal struct {
	kv    KV
	limit int
	now   func() time.Time
}

func NewJournal(kv KV, limit int) *Journal {
	if limit <= 0 {
		limit = DefaultJournalLimit
	}
	return &Journal{kv: kv, limit: limit, now: time.Now}
}

func journalNS(fileID string) string { return "journal:" + fileID }

// Record appends a committed edit.
func (j *Journal) Record(e edit.PendingEdit) error {
	return j.Append(context.Background(), e)
}

// Append stores e under a new UUIDv7 id and trims the oldest entries past
// the limit.
func (j *Journal) Append(ctx context.Context, e edit.PendingEdit) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	entry := JournalEntry{
		ID:     id.String(),
		FileID: e.FileID,
		Offset: e.Target,
		Kind:   e.Kind.String(),
		Old:    hex.EncodeToString(e.Old),
		New:    hex.EncodeToString(e.Bytes),
		Time:   j.now().UTC(),
	}
	v, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	ns := journalNS(e.FileID)
	if err := j.kv.Put(ctx, ns, entry.ID, v); err != nil {
		return fmt.Errorf("journal append: %w", err)
	}

	entries, err := j.kv.List(ctx, ns)
	if err != nil {
		return err
	}
	for i := 0; i < len(entries)-j.limit; i++ {
		if err := j.kv.Delete(ctx, ns, entries[i].Key); err != nil {
			return err
		}
	}
	return nil
}

// Entries returns the file's journal, oldest first.
func (j *Journal) Entries(ctx context.Context, fileID string) ([]JournalEntry, error) {
	entries, err := j.kv.List(ctx, journalNS(fileID))
	if err != nil {
		return nil, err
	}
	out := make([]JournalEntry, 0, len(entries))
	for _, e := range entries {
		var je JournalEntry
		if err := json.Unmarshal(e.Value, &je); err != nil {
			return nil, fmt.Errorf("journal entry %s: %w", e.Key, err)
		}
		out = append(out, je)
	}
	return out, nil
}

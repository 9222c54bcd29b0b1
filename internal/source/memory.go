package source

import (
	"context"
	"sync"
)

// MemorySource is a ByteSource over in-memory files. It is safe for use from
// the goroutines that run I/O commands.
type MemorySource struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemorySource() *MemorySource {
	return &MemorySource{files: make(map[string][]byte)}
}

// Add registers data under fileID, replacing any previous content.
func (m *MemorySource) Add(fileID string, data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.files[fileID] = buf
	m.mu.Unlock()
}

// Remove forgets fileID.
func (m *MemorySource) Remove(fileID string) {
	m.mu.Lock()
	delete(m.files, fileID)
	m.mu.Unlock()
}

// Bytes returns a copy of the current content of fileID.
func (m *MemorySource) Bytes(fileID string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[fileID]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

func (m *MemorySource) Read(ctx context.Context, fileID string, offset uint64, length uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("read", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[fileID]
	if !ok {
		return nil, notFound(fileID)
	}
	start, end, err := readSpan(offset, length, uint64(len(data)))
	if err != nil {
		return nil, err
	}
	out := make([]byte, end-start)
	copy(out, data[start:end])
	return out, nil
}

func (m *MemorySource) Write(ctx context.Context, fileID string, offset uint64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return unavailable("write", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	buf, ok := m.files[fileID]
	if !ok {
		return notFound(fileID)
	}
	if err := writeSpan(offset, len(data), uint64(len(buf))); err != nil {
		return err
	}
	copy(buf[offset:], data)
	return nil
}

func (m *MemorySource) Length(ctx context.Context, fileID string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[fileID]
	if !ok {
		return 0, notFound(fileID)
	}
	return uint64(len(data)), nil
}

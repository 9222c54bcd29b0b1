package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is a KV held in process memory.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[namespace][key]
	if !ok {
		return nil, missing(namespace, key)
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Put(ctx context.Context, namespace, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		m.data[namespace] = ns
	}
	ns[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(ctx context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data[namespace], key)
	return nil
}

func (m *Memory) List(ctx context.Context, namespace string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns := m.data[namespace]
	out := make([]Entry, 0, len(ns))
	for k, v := range ns {
		out = append(out, Entry{Key: k, Value: append([]byte(nil), v...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) Close() error { return nil }

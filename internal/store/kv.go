// Package store persists bookmarks, navigation history and the edit journal
// behind a small key-value interface.
package store

import (
	"context"
	"fmt"

	"hexlens/internal/types"
)

// Entry is one key and its value.
type Entry struct {
	Key   string
	Value []byte
}

// KV is a namespaced key-value store. List returns entries in ascending key
// order. Get returns an error matching types.ErrNotFound for missing keys.
type KV interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Put(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	List(ctx context.Context, namespace string) ([]Entry, error)
	Close() error
}

func missing(namespace, key string) error {
	return types.New(types.ErrKindNotFound, fmt.Sprintf("%s/%s not found", namespace, key))
}

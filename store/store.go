package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no record.
var ErrNotFound = errors.New("store: not found")

// Record is the metadata of a stored blob.
type Record struct {
	Key       string
	Size      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists opaque byte payloads under a namespace and key.
// Implementations: MemoryStore, CachedStore, FirestoreStore, SQLiteStore.
type Store interface {
	Load(ctx context.Context, namespace, key string) ([]byte, error)
	Save(ctx context.Context, namespace, key string, data []byte) error
	Delete(ctx context.Context, namespace, key string) error
	List(ctx context.Context, namespace string) ([]Record, error)
}

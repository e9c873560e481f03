package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type blob struct {
	data      []byte
	createdAt time.Time
	updatedAt time.Time
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]map[string]*blob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]map[string]*blob)}
}

func (s *MemoryStore) Load(_ context.Context, namespace, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[namespace][key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", namespace, key, ErrNotFound)
	}
	return append([]byte(nil), b.data...), nil
}

func (s *MemoryStore) Save(_ context.Context, namespace, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.blobs[namespace]
	if ns == nil {
		ns = make(map[string]*blob)
		s.blobs[namespace] = ns
	}
	now := time.Now()
	b, ok := ns[key]
	if !ok {
		b = &blob{createdAt: now}
		ns[key] = b
	}
	b.data = append([]byte(nil), data...)
	b.updatedAt = now
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[namespace][key]; !ok {
		return fmt.Errorf("%s/%s: %w", namespace, key, ErrNotFound)
	}
	delete(s.blobs[namespace], key)
	return nil
}

// List returns the records of a namespace sorted by key.
func (s *MemoryStore) List(_ context.Context, namespace string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Record, 0, len(s.blobs[namespace]))
	for key, b := range s.blobs[namespace] {
		result = append(result, Record{
			Key:       key,
			Size:      len(b.data),
			CreatedAt: b.createdAt,
			UpdatedAt: b.updatedAt,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

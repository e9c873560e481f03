package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type entryKey struct {
	namespace string
	key       string
}

// dirtyState tracks what needs flushing for a single key.
type dirtyState struct {
	gen     uint64 // bumped on every local write
	deleted bool   // delete from the backing store instead of writing
}

// CachedStore wraps a backing Store with an in-memory cache.
// Reads are served from the cache, falling back to the backing store.
// Writes go to the cache and are flushed to the backing store
// periodically in the background.
type CachedStore struct {
	cache         *MemoryStore
	backing       Store
	mu            sync.Mutex
	dirty         map[entryKey]*dirtyState
	gen           uint64
	flushInterval time.Duration
	stop          chan struct{}
	done          chan struct{}
}

// NewCachedStore creates a CachedStore that caches in memory and flushes
// dirty keys to the backing store every flushInterval.
func NewCachedStore(backing Store, flushInterval time.Duration) *CachedStore {
	cs := &CachedStore{
		cache:         NewMemoryStore(),
		backing:       backing,
		dirty:         make(map[entryKey]*dirtyState),
		flushInterval: flushInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go cs.flushLoop()
	return cs
}

func (cs *CachedStore) Load(ctx context.Context, namespace, key string) ([]byte, error) {
	data, err := cs.cache.Load(ctx, namespace, key)
	if err == nil {
		return data, nil
	}
	cs.mu.Lock()
	ds := cs.dirty[entryKey{namespace, key}]
	cs.mu.Unlock()
	if ds != nil && ds.deleted {
		return nil, err
	}

	// Cache miss - load from backing store.
	data, err = cs.backing.Load(ctx, namespace, key)
	if err != nil {
		return nil, err
	}
	cs.cache.mu.Lock()
	ns := cs.cache.blobs[namespace]
	if ns == nil {
		ns = make(map[string]*blob)
		cs.cache.blobs[namespace] = ns
	}
	if _, exists := ns[key]; !exists {
		now := time.Now()
		ns[key] = &blob{data: append([]byte(nil), data...), createdAt: now, updatedAt: now}
	}
	cs.cache.mu.Unlock()
	return data, nil
}

func (cs *CachedStore) Save(ctx context.Context, namespace, key string, data []byte) error {
	if err := cs.cache.Save(ctx, namespace, key, data); err != nil {
		return err
	}
	cs.markDirty(entryKey{namespace, key}, false)
	return nil
}

func (cs *CachedStore) Delete(ctx context.Context, namespace, key string) error {
	if _, err := cs.Load(ctx, namespace, key); err != nil {
		return err
	}
	if err := cs.cache.Delete(ctx, namespace, key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	cs.markDirty(entryKey{namespace, key}, true)
	return nil
}

// List merges the backing store's records with unflushed local writes.
func (cs *CachedStore) List(ctx context.Context, namespace string) ([]Record, error) {
	backing, err := cs.backing.List(ctx, namespace)
	if err != nil {
		return nil, err
	}
	local, err := cs.cache.List(ctx, namespace)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]Record, len(backing)+len(local))
	for _, r := range backing {
		byKey[r.Key] = r
	}
	cs.mu.Lock()
	for _, r := range local {
		if _, ok := cs.dirty[entryKey{namespace, r.Key}]; ok {
			byKey[r.Key] = r
		}
	}
	for k, ds := range cs.dirty {
		if k.namespace == namespace && ds.deleted {
			delete(byKey, k.key)
		}
	}
	cs.mu.Unlock()

	result := make([]Record, 0, len(byKey))
	for _, r := range byKey {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (cs *CachedStore) markDirty(k entryKey, deleted bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.gen++
	cs.dirty[k] = &dirtyState{gen: cs.gen, deleted: deleted}
}

func (cs *CachedStore) flushLoop() {
	ticker := time.NewTicker(cs.flushInterval)
	defer ticker.Stop()
	defer close(cs.done)

	for {
		select {
		case <-ticker.C:
			cs.flush()
		case <-cs.stop:
			cs.flush()
			return
		}
	}
}

// flush writes all dirty keys to the backing store. Failed keys stay
// dirty and are retried on the next tick.
func (cs *CachedStore) flush() {
	cs.mu.Lock()
	snapshot := make(map[entryKey]dirtyState, len(cs.dirty))
	for k, ds := range cs.dirty {
		snapshot[k] = *ds
	}
	cs.mu.Unlock()

	ctx := context.Background()

	for k, ds := range snapshot {
		if ds.deleted {
			err := cs.backing.Delete(ctx, k.namespace, k.key)
			if err != nil && !errors.Is(err, ErrNotFound) {
				slog.Error("cached store: failed to delete", "namespace", k.namespace, "key", k.key, "error", err)
				continue
			}
		} else {
			data, err := cs.cache.Load(ctx, k.namespace, k.key)
			if err != nil {
				continue
			}
			if err := cs.backing.Save(ctx, k.namespace, k.key, data); err != nil {
				slog.Error("cached store: failed to flush", "namespace", k.namespace, "key", k.key, "error", err)
				continue
			}
		}

		// Only clear the key if nothing was written since the snapshot.
		cs.mu.Lock()
		if cur := cs.dirty[k]; cur != nil && cur.gen == ds.gen {
			delete(cs.dirty, k)
		}
		cs.mu.Unlock()
	}
}

// Dirty returns the number of keys waiting to be flushed.
func (cs *CachedStore) Dirty() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.dirty)
}

// Close signals the flush loop to perform a final flush and waits for it
// to complete.
func (cs *CachedStore) Close() {
	close(cs.stop)
	<-cs.done
}

package store

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"

	"github.com/alimasry/go-collab-cms/config"
)

// Opened is a Store together with the function that releases it.
type Opened struct {
	Store
	close func() error
}

// Close flushes pending writes and releases the backend.
func (o *Opened) Close() error {
	if o.close == nil {
		return nil
	}
	return o.close()
}

// Open builds the backend named by cfg. SQLite and Firestore backends are
// wrapped in a CachedStore flushing every cfg.FlushInterval.
func Open(ctx context.Context, cfg *config.Config) (*Opened, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory, "":
		slog.Info("store: using memory backend")
		return &Opened{Store: NewMemoryStore()}, nil

	case config.BackendSQLite:
		db, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		cs := NewCachedStore(db, cfg.FlushInterval)
		slog.Info("store: using sqlite backend", "path", cfg.SQLitePath, "flush_interval", cfg.FlushInterval)
		return &Opened{Store: cs, close: func() error {
			cs.Close()
			return db.Close()
		}}, nil

	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProject)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		cs := NewCachedStore(NewFirestoreStore(client), cfg.FlushInterval)
		slog.Info("store: using firestore backend", "project", cfg.FirestoreProject, "flush_interval", cfg.FlushInterval)
		return &Opened{Store: cs, close: func() error {
			cs.Close()
			return client.Close()
		}}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

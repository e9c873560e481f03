package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alimasry/go-collab-cms/config"
)

func TestOpen_Memory(t *testing.T) {
	st, err := Open(context.Background(), &config.Config{StoreBackend: config.BackendMemory})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if _, ok := st.Store.(*MemoryStore); !ok {
		t.Errorf("got %T, want *MemoryStore", st.Store)
	}
}

func TestOpen_SQLiteIsCached(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		StoreBackend:  config.BackendSQLite,
		SQLitePath:    filepath.Join(t.TempDir(), "open.db"),
		FlushInterval: time.Hour,
	}
	st, err := Open(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.Store.(*CachedStore); !ok {
		t.Fatalf("got %T, want *CachedStore", st.Store)
	}
	if err := st.Save(ctx, "projects", "p1", []byte("x")); err != nil {
		t.Fatal(err)
	}
	// Close flushes before releasing the database.
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	db, err := OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if data, err := db.Load(ctx, "projects", "p1"); err != nil || string(data) != "x" {
		t.Errorf("got %q, %v", data, err)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), &config.Config{StoreBackend: "etcd"}); err == nil {
		t.Error("expected an error")
	}
}

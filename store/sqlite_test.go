package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	s := testSQLiteStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "files", "doc1", []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "files", "doc1", []byte("hello again")); err != nil {
		t.Fatal(err)
	}

	data, err := s.Load(ctx, "files", "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello again" {
		t.Errorf("got %q", data)
	}

	if _, err := s.Load(ctx, "projects", "doc1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_ListAndDelete(t *testing.T) {
	s := testSQLiteStore(t)
	ctx := context.Background()

	s.Save(ctx, "files", "b", []byte("bb"))
	s.Save(ctx, "files", "a", []byte("a"))
	s.Save(ctx, "projects", "p", []byte("p"))

	recs, err := s.List(ctx, "files")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Key != "a" || recs[1].Key != "b" || recs[1].Size != 2 {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if recs[0].CreatedAt.IsZero() {
		t.Error("expected createdAt to be set")
	}

	if err := s.Delete(ctx, "files", "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "files", "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	recs, _ = s.List(ctx, "files")
	if len(recs) != 1 {
		t.Errorf("got %d records after delete, want 1", len(recs))
	}
}

func TestSQLiteStore_BehindCache(t *testing.T) {
	s := testSQLiteStore(t)
	ctx := context.Background()

	cs := NewCachedStore(s, time.Hour)
	cs.Save(ctx, "files", "doc1", []byte("cached"))
	cs.Close()

	data, err := s.Load(ctx, "files", "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "cached" {
		t.Errorf("got %q", data)
	}
}

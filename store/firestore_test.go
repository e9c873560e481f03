package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
)

func testFirestoreClient(t *testing.T) *firestore.Client {
	t.Helper()
	projectID := os.Getenv("FIRESTORE_PROJECT")
	if projectID == "" {
		t.Skip("FIRESTORE_PROJECT not set, skipping Firestore tests")
	}
	client, err := firestore.NewClient(context.Background(), projectID)
	if err != nil {
		t.Fatalf("failed to create Firestore client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// uniqueNamespace returns a collection name for test isolation.
func uniqueNamespace(t *testing.T) string {
	return fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
}

func cleanupNamespace(t *testing.T, s *FirestoreStore, namespace string) {
	t.Helper()
	ctx := context.Background()
	docs := s.collection(namespace).Documents(ctx)
	for {
		snap, err := docs.Next()
		if err != nil {
			break
		}
		snap.Ref.Delete(ctx)
	}
}

func TestFirestoreStore_SaveAndLoad(t *testing.T) {
	s := NewFirestoreStore(testFirestoreClient(t))
	ns := uniqueNamespace(t)
	t.Cleanup(func() { cleanupNamespace(t, s, ns) })
	ctx := context.Background()

	if err := s.Save(ctx, ns, "doc1", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, ns, "doc1", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	data, err := s.Load(ctx, ns, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v2" {
		t.Errorf("got %q, want v2", data)
	}

	if _, err := s.Load(ctx, ns, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFirestoreStore_ListAndDelete(t *testing.T) {
	s := NewFirestoreStore(testFirestoreClient(t))
	ns := uniqueNamespace(t)
	t.Cleanup(func() { cleanupNamespace(t, s, ns) })
	ctx := context.Background()

	s.Save(ctx, ns, "b", []byte("bb"))
	s.Save(ctx, ns, "a", []byte("a"))

	recs, err := s.List(ctx, ns)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Key != "a" || recs[1].Key != "b" {
		t.Fatalf("unexpected records: %+v", recs)
	}

	if err := s.Delete(ctx, ns, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, ns, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

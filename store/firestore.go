package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is a Firestore-backed implementation of Store. Each
// namespace is a collection and each key a document.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new FirestoreStore using the given Firestore client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) collection(namespace string) *firestore.CollectionRef {
	return s.client.Collection(namespace)
}

func (s *FirestoreStore) docRef(namespace, key string) *firestore.DocumentRef {
	return s.collection(namespace).Doc(key)
}

func (s *FirestoreStore) Load(ctx context.Context, namespace, key string) ([]byte, error) {
	snap, err := s.docRef(namespace, key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%s/%s: %w", namespace, key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	data, ok := snap.Data()["data"].([]byte)
	if !ok {
		return nil, fmt.Errorf("%s/%s: invalid data field", namespace, key)
	}
	return data, nil
}

func (s *FirestoreStore) Save(ctx context.Context, namespace, key string, data []byte) error {
	now := time.Now()
	ref := s.docRef(namespace, key)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "data", Value: data},
		{Path: "updatedAt", Value: now},
	})
	if status.Code(err) != codes.NotFound {
		return err
	}
	_, err = ref.Set(ctx, map[string]interface{}{
		"data":      data,
		"createdAt": now,
		"updatedAt": now,
	})
	return err
}

func (s *FirestoreStore) Delete(ctx context.Context, namespace, key string) error {
	ref := s.docRef(namespace, key)
	if _, err := ref.Get(ctx); status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s/%s: %w", namespace, key, ErrNotFound)
	} else if err != nil {
		return err
	}
	_, err := ref.Delete(ctx)
	return err
}

func (s *FirestoreStore) List(ctx context.Context, namespace string) ([]Record, error) {
	iter := s.collection(namespace).OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var result []Record
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		result = append(result, snapshotToRecord(snap))
	}
	return result, nil
}

func snapshotToRecord(snap *firestore.DocumentSnapshot) Record {
	data := snap.Data()
	payload, _ := data["data"].([]byte)
	createdAt, _ := data["createdAt"].(time.Time)
	updatedAt, _ := data["updatedAt"].(time.Time)
	return Record{
		Key:       snap.Ref.ID,
		Size:      len(payload),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS blobs (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	data       BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
)`

// SQLiteStore is a SQLite-backed implementation of Store.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sqlite %s: %w", path, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, namespace, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM blobs WHERE namespace = ? AND key = ?`, namespace, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", namespace, key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *SQLiteStore) Save(ctx context.Context, namespace, key string, data []byte) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (namespace, key, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		namespace, key, data, now, now)
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, namespace, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s/%s: %w", namespace, key, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, namespace string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, length(data), created_at, updated_at
		FROM blobs WHERE namespace = ? ORDER BY key`, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var (
			r                Record
			created, updated int64
		)
		if err := rows.Scan(&r.Key, &r.Size, &created, &updated); err != nil {
			return nil, err
		}
		r.CreatedAt = time.UnixMilli(created)
		r.UpdatedAt = time.UnixMilli(updated)
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

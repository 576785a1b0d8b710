package blobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS chat_blobs (
	    key          TEXT PRIMARY KEY,
	    name         TEXT        NOT NULL,
	    content_type TEXT        NOT NULL,
	    data         BYTEA       NOT NULL,
	    created_at   TIMESTAMPTZ NOT NULL
	)`

// PostgresStore keeps blobs in the chat_blobs table. Rows older than ttl are
// invisible to Load and removed by the blobsweep job.
type PostgresStore struct {
	base
	db  *sql.DB
	ttl time.Duration
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB, baseURL string, ttl time.Duration) *PostgresStore {
	return &PostgresStore{base: newBase(baseURL), db: db, ttl: ttl}
}

// EnsureSchema creates the blob table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create chat_blobs: %w", err)
	}
	return nil
}

func (s *PostgresStore) Store(ctx context.Context, data []byte, originalName string) (string, error) {
	blob, err := s.newBlob(data, originalName)
	if err != nil {
		return "", err
	}

	const ins = `
	  INSERT INTO chat_blobs (key, name, content_type, data, created_at)
	       VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.ExecContext(ctx, ins,
		blob.Key, blob.Name, blob.ContentType, blob.Data, blob.CreatedAt,
	); err != nil {
		return "", fmt.Errorf("store blob %s: %w", blob.Key, err)
	}
	zap.L().Debug("blob.stored",
		zap.String("key", blob.Key),
		zap.String("content_type", blob.ContentType),
		zap.Int("size", len(data)),
	)
	return s.URL(blob.Key), nil
}

func (s *PostgresStore) Load(ctx context.Context, key string) (*Blob, error) {
	const q = `SELECT name, content_type, data, created_at
	             FROM chat_blobs
	            WHERE key = $1 AND created_at > $2`
	blob := &Blob{Key: key}
	err := s.db.QueryRowContext(ctx, q, key, s.now().UTC().Add(-s.ttl)).
		Scan(&blob.Name, &blob.ContentType, &blob.Data, &blob.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load blob %s: %w", key, err)
	}
	return blob, nil
}

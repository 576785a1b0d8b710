package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "blob:"

// RedisStore keeps each blob as one JSON value that expires after ttl.
type RedisStore struct {
	base
	rdc *redis.Client
	ttl time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(rdc *redis.Client, baseURL string, ttl time.Duration) *RedisStore {
	return &RedisStore{base: newBase(baseURL), rdc: rdc, ttl: ttl}
}

func (s *RedisStore) Store(ctx context.Context, data []byte, originalName string) (string, error) {
	blob, err := s.newBlob(data, originalName)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(blob)
	if err != nil {
		return "", fmt.Errorf("encode blob: %w", err)
	}
	if err := s.rdc.Set(ctx, redisKeyPrefix+blob.Key, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store blob %s: %w", blob.Key, err)
	}
	zap.L().Debug("blob.stored",
		zap.String("key", blob.Key),
		zap.String("content_type", blob.ContentType),
		zap.Int("size", len(data)),
	)
	return s.URL(blob.Key), nil
}

func (s *RedisStore) Load(ctx context.Context, key string) (*Blob, error) {
	payload, err := s.rdc.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load blob %s: %w", key, err)
	}
	blob := &Blob{}
	if err := json.Unmarshal(payload, blob); err != nil {
		return nil, fmt.Errorf("decode blob %s: %w", key, err)
	}
	return blob, nil
}

package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, redismock.ClientMock) {
	t.Helper()
	rdc, mock := redismock.NewClientMock()
	s := NewRedisStore(rdc, "http://chat.local", time.Hour)
	s.base = testBase()
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return s, mock
}

func TestRedisStore_StoreAndLoad(t *testing.T) {
	ctx := context.Background()
	s, mock := newTestRedisStore(t)

	data := []byte("hello world")
	want := &Blob{
		Key:         "k1",
		Name:        "hello.txt",
		ContentType: "text/plain; charset=utf-8",
		Data:        data,
		CreatedAt:   fixedNow,
	}
	payload, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectSet("blob:k1", payload, time.Hour).SetVal("OK")
	url, err := s.Store(ctx, data, "hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "http://chat.local/uploads/k1", url)

	mock.ExpectGet("blob:k1").SetVal(string(payload))
	got, err := s.Load(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRedisStore_LoadMissing(t *testing.T) {
	s, mock := newTestRedisStore(t)

	mock.ExpectGet("blob:gone").RedisNil()
	_, err := s.Load(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_StoreError(t *testing.T) {
	s, mock := newTestRedisStore(t)
	boom := errors.New("boom")

	data := []byte("hello world")
	payload, err := json.Marshal(&Blob{
		Key: "k1", Name: "a.txt", ContentType: "text/plain; charset=utf-8",
		Data: data, CreatedAt: fixedNow,
	})
	require.NoError(t, err)

	mock.ExpectSet("blob:k1", payload, time.Hour).SetErr(boom)
	_, err = s.Store(context.Background(), data, "a.txt")
	assert.ErrorIs(t, err, boom)
}

func TestRedisStore_StoreEmpty(t *testing.T) {
	s, _ := newTestRedisStore(t)

	_, err := s.Store(context.Background(), nil, "a.txt")
	assert.ErrorIs(t, err, ErrEmpty)
}

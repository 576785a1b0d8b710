// Package blobstore keeps uploaded media and hands back the URL that chat
// messages carry.
package blobstore

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("blob not found")
	ErrEmpty    = errors.New("blob is empty")
)

type Blob struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"data"`
	CreatedAt   time.Time `json:"created_at"`
}

type Store interface {
	// Store saves data and returns the public URL it is served from.
	Store(ctx context.Context, data []byte, originalName string) (string, error)
	Load(ctx context.Context, key string) (*Blob, error)
}

// base holds what both backends share: key generation, clock and URL layout.
type base struct {
	baseURL string
	newKey  func() string
	now     func() time.Time
}

func newBase(baseURL string) base {
	return base{
		baseURL: strings.TrimRight(baseURL, "/"),
		newKey:  uuid.NewString,
		now:     time.Now,
	}
}

func (b base) newBlob(data []byte, originalName string) (*Blob, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	return &Blob{
		Key:         b.newKey(),
		Name:        cleanName(originalName),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
		CreatedAt:   b.now().UTC(),
	}, nil
}

// URL is where the blob with key is served.
func (b base) URL(key string) string {
	return b.baseURL + "/uploads/" + url.PathEscape(key)
}

func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}

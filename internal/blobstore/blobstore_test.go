package blobstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func testBase() base {
	b := newBase("http://chat.local/")
	b.newKey = func() string { return "k1" }
	b.now = func() time.Time { return fixedNow }
	return b
}

func TestBase_NewBlob(t *testing.T) {
	b := testBase()

	blob, err := b.newBlob([]byte("hello world"), "../../etc/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "k1", blob.Key)
	assert.Equal(t, "notes.txt", blob.Name)
	assert.Equal(t, "text/plain; charset=utf-8", blob.ContentType)
	assert.Equal(t, fixedNow, blob.CreatedAt)

	_, err = b.newBlob(nil, "x")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestBase_PNGIsSniffed(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	blob, err := testBase().newBlob(png, "pic.bin")
	require.NoError(t, err)
	assert.Equal(t, "image/png", blob.ContentType)
}

func TestCleanName(t *testing.T) {
	for in, want := range map[string]string{
		"photo.jpg":            "photo.jpg",
		`C:\Users\me\cat.gif`:  "cat.gif",
		"/":                    "upload",
		"":                     "upload",
		"dir/sub/../final.pdf": "final.pdf",
	} {
		assert.Equal(t, want, cleanName(in), in)
	}
}

func TestBase_URL(t *testing.T) {
	assert.Equal(t, "http://chat.local/uploads/k1", testBase().URL("k1"))
}

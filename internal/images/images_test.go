package images

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake image body")

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("image/png", 10, 100))
	assert.NoError(t, Validate("image/jpeg; charset=binary", 10, 100))
	assert.ErrorIs(t, Validate("application/pdf", 10, 100), ErrUnsupportedType)
	assert.ErrorIs(t, Validate("image/svg+xml", 10, 100), ErrUnsupportedType)
	assert.ErrorIs(t, Validate("image/gif", 101, 100), ErrTooLarge)
}

func TestNewKey(t *testing.T) {
	k := NewKey("Cover Art.PNG", "image/png")
	assert.True(t, strings.HasPrefix(k, KeyPrefix))
	assert.True(t, strings.HasSuffix(k, ".png"))

	assert.True(t, strings.HasSuffix(NewKey("blob", "image/webp"), ".webp"))
	assert.NotEqual(t, NewKey("a.png", "image/png"), NewKey("a.png", "image/png"))
}

func TestLocalStorePutAndDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewLocalStore(dir, "/uploads/", 1024)

	up, err := store.Put(ctx, "cover.png", "image/png", bytes.NewReader(pngBytes), int64(len(pngBytes)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(up.URL, "/uploads/reviews/"))
	assert.Equal(t, int64(len(pngBytes)), up.Size)

	onDisk := filepath.Join(dir, filepath.FromSlash(up.Key))
	data, err := os.ReadFile(onDisk)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	assert.True(t, store.Owns(up.URL))
	require.NoError(t, store.Delete(ctx, up.URL))
	_, err = os.Stat(onDisk)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, up.URL), "deleting a missing image is not an error")
}

func TestLocalStoreLegacyFilename(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewLocalStore(dir, "/uploads", 1024)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "reviews"), 0755))
	legacy := filepath.Join(dir, "reviews", "old-cover.jpg")
	require.NoError(t, os.WriteFile(legacy, []byte("jpg"), 0644))

	require.NoError(t, store.Delete(ctx, "old-cover.jpg"))
	_, err := os.Stat(legacy)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStoreRejects(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir(), "/uploads", 8)

	_, err := store.Put(ctx, "doc.pdf", "application/pdf", bytes.NewReader([]byte("x")), 1)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = store.Put(ctx, "big.png", "image/png", bytes.NewReader(pngBytes), int64(len(pngBytes)))
	assert.ErrorIs(t, err, ErrTooLarge)

	// declared size lies about the body
	_, err = store.Put(ctx, "sneaky.png", "image/png", bytes.NewReader(pngBytes), 4)
	assert.ErrorIs(t, err, ErrTooLarge)

	assert.False(t, store.Owns("https://cdn.example.com/reviews/a.png"))
	assert.False(t, store.Owns("../../etc/passwd"))
	assert.False(t, store.Owns(""))
	assert.ErrorIs(t, store.Delete(ctx, "https://cdn.example.com/a.png"), ErrNotOwned)
}

// fakeS3 records the requests an S3 client makes against a path-style endpoint.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	methods []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, r.Method+" "+r.URL.Path)

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestR2StorePutAndDelete(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewR2Store(ctx, R2Config{
		Endpoint:  srv.URL,
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "fairprice",
		PublicURL: "https://img.fairprice.example/",
		MaxSize:   1024,
	})
	require.NoError(t, err)

	up, err := store.Put(ctx, "cover.png", "image/png", bytes.NewReader(pngBytes), int64(len(pngBytes)))
	require.NoError(t, err)
	assert.Equal(t, "https://img.fairprice.example/"+up.Key, up.URL)

	fake.mu.Lock()
	stored, ok := fake.objects["/fairprice/"+up.Key]
	fake.mu.Unlock()
	require.True(t, ok, "object stored under bucket path, got %v", fake.methods)
	assert.Equal(t, pngBytes, stored)

	assert.True(t, store.Owns(up.URL))
	assert.False(t, store.Owns("https://elsewhere.example/reviews/a.png"))

	require.NoError(t, store.Delete(ctx, up.URL))
	fake.mu.Lock()
	_, ok = fake.objects["/fairprice/"+up.Key]
	fake.mu.Unlock()
	assert.False(t, ok)

	assert.ErrorIs(t, store.Delete(ctx, "https://elsewhere.example/x.png"), ErrNotOwned)
}

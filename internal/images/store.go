// Package images stores uploaded featured images on local disk or in an
// S3-compatible bucket (Cloudflare R2).
package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// KeyPrefix is the folder every review image is stored under.
const KeyPrefix = "reviews/"

var (
	ErrUnsupportedType = errors.New("invalid file type, only JPEG, PNG, WebP and GIF are allowed")
	ErrTooLarge        = errors.New("file too large")
	ErrNotOwned        = errors.New("image reference does not belong to this store")
)

var allowedTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif"}

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Upload describes a stored image.
type Upload struct {
	Filename    string    `json:"filename"`
	Key         string    `json:"pathname"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Store persists uploaded images.
//
// Delete accepts whatever a review stores in featuredImage: the URL returned
// by Put, the object key, or a bare legacy filename. Owns reports whether the
// reference points into this store.
type Store interface {
	Put(ctx context.Context, filename, contentType string, body io.Reader, size int64) (*Upload, error)
	Delete(ctx context.Context, ref string) error
	Owns(ref string) bool
}

// Validate checks the declared content type and size of an upload.
func Validate(contentType string, size, maxSize int64) error {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if !slices.Contains(allowedTypes, ct) {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	if size > maxSize {
		return fmt.Errorf("%w: %d bytes (max %d bytes)", ErrTooLarge, size, maxSize)
	}
	return nil
}

// NewKey returns a collision-free object key that keeps a sane extension.
func NewKey(filename, contentType string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" || len(ext) > 5 {
		ext = extByType[strings.ToLower(contentType)]
	}
	return KeyPrefix + uuid.NewString() + ext
}

// cleanKey turns a relative reference into an object key under KeyPrefix,
// rejecting anything that would escape it.
func cleanKey(ref string) (string, bool) {
	ref = strings.TrimPrefix(ref, "/")
	if !strings.HasPrefix(ref, KeyPrefix) {
		ref = KeyPrefix + ref
	}
	key := path.Clean(ref)
	if !strings.HasPrefix(key, KeyPrefix) || key == strings.TrimSuffix(KeyPrefix, "/") {
		return "", false
	}
	return key, true
}

func isRemoteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

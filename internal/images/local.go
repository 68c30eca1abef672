package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore writes images below a directory that the HTTP server exposes at URLPrefix.
type LocalStore struct {
	dir       string
	urlPrefix string
	maxSize   int64
}

// NewLocalStore returns a store rooted at dir; files are served under urlPrefix (e.g. "/uploads").
func NewLocalStore(dir, urlPrefix string, maxSize int64) *LocalStore {
	return &LocalStore{
		dir:       dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		maxSize:   maxSize,
	}
}

// Dir returns the upload root.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Put(ctx context.Context, filename, contentType string, body io.Reader, size int64) (*Upload, error) {
	if err := Validate(contentType, size, s.maxSize); err != nil {
		return nil, err
	}

	key := NewKey(filename, contentType)
	target := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}

	// Read one byte past the limit so a lying size header is still caught.
	written, err := io.Copy(f, io.LimitReader(body, s.maxSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > s.maxSize {
		err = fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.maxSize)
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		_ = os.Remove(target)
		return nil, err
	}

	return &Upload{
		Filename:    filepath.Base(target),
		Key:         key,
		URL:         s.urlPrefix + "/" + key,
		ContentType: contentType,
		Size:        written,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// Owns reports whether ref is a relative reference (legacy filename, key or
// local URL) rather than a remote URL.
func (s *LocalStore) Owns(ref string) bool {
	if ref == "" || isRemoteURL(ref) {
		return false
	}
	_, ok := s.key(ref)
	return ok
}

func (s *LocalStore) key(ref string) (string, bool) {
	ref = strings.TrimPrefix(ref, s.urlPrefix+"/")
	return cleanKey(ref)
}

func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if !s.Owns(ref) {
		return ErrNotOwned
	}
	key, _ := s.key(ref)

	if err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key))); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete image %s: %w", key, err)
	}
	return nil
}

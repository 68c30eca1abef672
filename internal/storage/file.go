package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bilgisen/fairprice/internal/logger"
	"github.com/bilgisen/fairprice/internal/metrics"
	"github.com/bilgisen/fairprice/internal/models"
	"github.com/bilgisen/fairprice/internal/slug"
)

const (
	fileBackend   = "file"
	documentExt   = ".json"
	tempFileMatch = ".*.tmp"
)

// FileStore keeps one JSON document per review in a directory, named {slug}.json.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the content directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+documentExt)
}

// ListAll reads every {slug}.json document in the content directory.
func (s *FileStore) ListAll(ctx context.Context) ([]*models.Review, error) {
	log := logger.Get()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Error().Err(err).Str("dir", s.dir).Msg("Failed to read content directory")
			metrics.ObserveStore(fileBackend, "list", "error")
		}
		return []*models.Review{}, nil
	}

	reviews := make([]*models.Review, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, documentExt) {
			continue
		}
		key := strings.TrimSuffix(name, documentExt)

		review, err := s.read(key)
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("Skipping unreadable review document")
			metrics.ObserveSkipped(fileBackend)
			continue
		}
		reviews = append(reviews, review)
	}

	metrics.ObserveStore(fileBackend, "list", "ok")
	return reviews, nil
}

// GetBySlug reads {slug}.json.
func (s *FileStore) GetBySlug(ctx context.Context, key string) (*models.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !slug.Valid(key) {
		return nil, ErrNotFound
	}

	review, err := s.read(key)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		metrics.ObserveStore(fileBackend, "get", "not_found")
		return nil, ErrNotFound
	case err != nil:
		metrics.ObserveStore(fileBackend, "get", "error")
		return nil, &IOError{Op: "read", Slug: key, Err: err}
	}

	metrics.ObserveStore(fileBackend, "get", "ok")
	return review, nil
}

func (s *FileStore) read(key string) (*models.Review, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, err
	}

	var review models.Review
	if err := json.Unmarshal(data, &review); err != nil {
		return nil, fmt.Errorf("failed to unmarshal review: %w", err)
	}

	// The file name is the key every other operation addresses, so it wins
	// over whatever slug the document body carries.
	if review.Slug != key {
		logger.Get().Warn().
			Str("file", key+documentExt).
			Str("document_slug", review.Slug).
			Msg("Review document slug does not match its file name")
		review.Slug = key
	}
	return &review, nil
}

// Save writes the review to a temporary file in the content directory and
// renames it over {slug}.json, so readers never observe a partial document.
func (s *FileStore) Save(ctx context.Context, review *models.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !slug.Valid(review.Slug) {
		return models.NewValidationError("slug", "must contain only lowercase letters, digits and single hyphens")
	}

	if err := s.write(review); err != nil {
		metrics.ObserveStore(fileBackend, "save", "error")
		return &IOError{Op: "write", Slug: review.Slug, Err: err}
	}

	metrics.ObserveStore(fileBackend, "save", "ok")
	return nil
}

func (s *FileStore) write(review *models.Review) (err error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create content directory: %w", err)
	}

	data, err := json.MarshalIndent(review, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal review: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+review.Slug+tempFileMatch)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err = os.Rename(tmpName, s.path(review.Slug)); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Delete removes {slug}.json.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !slug.Valid(key) {
		return ErrNotFound
	}

	if err := os.Remove(s.path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			metrics.ObserveStore(fileBackend, "delete", "not_found")
			return ErrNotFound
		}
		metrics.ObserveStore(fileBackend, "delete", "error")
		return &IOError{Op: "delete", Slug: key, Err: err}
	}

	metrics.ObserveStore(fileBackend, "delete", "ok")
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bilgisen/fairprice/internal/models"
)

// ErrNotFound is returned when no document exists for a slug.
var ErrNotFound = errors.New("review not found")

// IOError wraps a storage failure for a single document.
type IOError struct {
	Op   string
	Slug string
	Err  error
}

func (e *IOError) Error() string {
	if e.Slug == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Slug, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Repository persists review documents keyed by slug.
//
// ListAll returns every readable document in no particular order. Documents
// that cannot be read or decoded are logged and skipped, and a failure to
// enumerate the store yields an empty result; only context cancellation is
// returned as an error. GetBySlug and Delete return ErrNotFound for unknown
// slugs. Save replaces the document named after review.Slug atomically.
type Repository interface {
	ListAll(ctx context.Context) ([]*models.Review, error)
	GetBySlug(ctx context.Context, slug string) (*models.Review, error)
	Save(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, slug string) error
}

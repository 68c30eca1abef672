package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bilgisen/fairprice/internal/logger"
	"github.com/bilgisen/fairprice/internal/metrics"
	"github.com/bilgisen/fairprice/internal/models"
	"github.com/bilgisen/fairprice/internal/slug"
)

const sqlBackend = "sql"

// MEDIUMTEXT maps to TEXT affinity in sqlite and lifts the 64KB TEXT cap in MySQL.
const createReviewsTableSQL = `
CREATE TABLE IF NOT EXISTS reviews (
  slug       VARCHAR(200) NOT NULL PRIMARY KEY,
  body       MEDIUMTEXT   NOT NULL,
  updated_at VARCHAR(40)  NOT NULL
)`

const (
	selectAllReviewsSQL = `SELECT slug, body FROM reviews`
	selectReviewSQL     = `SELECT body FROM reviews WHERE slug = ?`
	deleteReviewSQL     = `DELETE FROM reviews WHERE slug = ?`
	insertReviewSQL     = `INSERT INTO reviews (slug, body, updated_at) VALUES (?, ?, ?)`
)

// SQLStore keeps the same JSON documents as FileStore in a single table keyed
// by slug. Statements use ? placeholders so sqlite and MySQL share them.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates the reviews table if needed. The caller owns db.
func NewSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, createReviewsTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create reviews table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// ListAll decodes every row, skipping rows whose body is not a valid review.
func (s *SQLStore) ListAll(ctx context.Context) ([]*models.Review, error) {
	log := logger.Get()

	rows, err := s.db.QueryContext(ctx, selectAllReviewsSQL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error().Err(err).Msg("Failed to query reviews")
		metrics.ObserveStore(sqlBackend, "list", "error")
		return []*models.Review{}, nil
	}
	defer rows.Close()

	reviews := []*models.Review{}
	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			log.Warn().Err(err).Msg("Skipping unreadable review row")
			metrics.ObserveSkipped(sqlBackend)
			continue
		}
		review, err := decodeRow(key, body)
		if err != nil {
			log.Warn().Err(err).Str("slug", key).Msg("Skipping unreadable review row")
			metrics.ObserveSkipped(sqlBackend)
			continue
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error().Err(err).Msg("Review listing interrupted")
	}

	metrics.ObserveStore(sqlBackend, "list", "ok")
	return reviews, nil
}

func decodeRow(key, body string) (*models.Review, error) {
	var review models.Review
	if err := json.Unmarshal([]byte(body), &review); err != nil {
		return nil, fmt.Errorf("failed to unmarshal review: %w", err)
	}
	review.Slug = key
	return &review, nil
}

// GetBySlug loads one review.
func (s *SQLStore) GetBySlug(ctx context.Context, key string) (*models.Review, error) {
	if !slug.Valid(key) {
		return nil, ErrNotFound
	}

	var body string
	err := s.db.QueryRowContext(ctx, selectReviewSQL, key).Scan(&body)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		metrics.ObserveStore(sqlBackend, "get", "not_found")
		return nil, ErrNotFound
	case err != nil:
		metrics.ObserveStore(sqlBackend, "get", "error")
		return nil, &IOError{Op: "read", Slug: key, Err: err}
	}

	review, err := decodeRow(key, body)
	if err != nil {
		metrics.ObserveStore(sqlBackend, "get", "error")
		return nil, &IOError{Op: "read", Slug: key, Err: err}
	}
	metrics.ObserveStore(sqlBackend, "get", "ok")
	return review, nil
}

// Save replaces the row for review.Slug inside one transaction.
func (s *SQLStore) Save(ctx context.Context, review *models.Review) error {
	if !slug.Valid(review.Slug) {
		return models.NewValidationError("slug", "must contain only lowercase letters, digits and single hyphens")
	}

	body, err := json.Marshal(review)
	if err != nil {
		return &IOError{Op: "write", Slug: review.Slug, Err: fmt.Errorf("failed to marshal review: %w", err)}
	}

	if err := s.replace(ctx, review.Slug, string(body), review.UpdatedAt); err != nil {
		metrics.ObserveStore(sqlBackend, "save", "error")
		return &IOError{Op: "write", Slug: review.Slug, Err: err}
	}
	metrics.ObserveStore(sqlBackend, "save", "ok")
	return nil
}

func (s *SQLStore) replace(ctx context.Context, key, body string, updatedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, deleteReviewSQL, key); err != nil {
		return fmt.Errorf("delete previous row: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertReviewSQL, key, body, updatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("insert row: %w", err)
	}
	return tx.Commit()
}

// Delete removes the row for slug.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if !slug.Valid(key) {
		return ErrNotFound
	}

	res, err := s.db.ExecContext(ctx, deleteReviewSQL, key)
	if err != nil {
		metrics.ObserveStore(sqlBackend, "delete", "error")
		return &IOError{Op: "delete", Slug: key, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		metrics.ObserveStore(sqlBackend, "delete", "error")
		return &IOError{Op: "delete", Slug: key, Err: err}
	}
	if n == 0 {
		metrics.ObserveStore(sqlBackend, "delete", "not_found")
		return ErrNotFound
	}
	metrics.ObserveStore(sqlBackend, "delete", "ok")
	return nil
}

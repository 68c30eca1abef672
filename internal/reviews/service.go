// Package reviews implements the review lifecycle on top of a storage.Repository.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bilgisen/fairprice/internal/cache"
	"github.com/bilgisen/fairprice/internal/images"
	"github.com/bilgisen/fairprice/internal/logger"
	"github.com/bilgisen/fairprice/internal/metrics"
	"github.com/bilgisen/fairprice/internal/models"
	"github.com/bilgisen/fairprice/internal/query"
	"github.com/bilgisen/fairprice/internal/slug"
	"github.com/bilgisen/fairprice/internal/storage"
)

var (
	// ErrConflict is returned when a derived slug belongs to another review.
	ErrConflict = errors.New("a review with this slug already exists")
	// ErrInvalidTransition is returned for a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)

const defaultViewTTL = 30 * time.Minute

// Input carries the editable fields of a review.
type Input struct {
	Title              string
	GameTitle          string
	FairPriceTier      models.Tier
	FairPriceAmount    *float64
	QuickVerdict       string
	Content            string
	FeaturedImage      string
	YouTubeVideoID     string
	Pros               []string
	Cons               []string
	Status             models.Status
	ScheduledPublishAt *time.Time
	ModifiedBy         string
}

type Service struct {
	store   storage.Repository
	images  images.Store
	views   cache.ViewGuard
	viewTTL time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithViewTTL sets how long a viewer fingerprint suppresses further counts.
func WithViewTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.viewTTL = ttl
		}
	}
}

// NewService wires the service. images and views may be nil.
func NewService(store storage.Repository, imgs images.Store, views cache.ViewGuard, opts ...Option) *Service {
	s := &Service{
		store:   store,
		images:  imgs,
		views:   views,
		viewTTL: defaultViewTTL,
		now:     time.Now,
		log:     logger.With("reviews"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// List runs q over every stored review.
func (s *Service) List(ctx context.Context, q query.Query) (query.Result, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return query.Result{}, err
	}
	return query.Apply(all, q), nil
}

// Published returns every published review in no particular order.
func (s *Service) Published(ctx context.Context) ([]*models.Review, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(r *models.Review) bool { return !r.IsPublished() }), nil
}

// Get returns a review in any status.
func (s *Service) Get(ctx context.Context, key string) (*models.Review, error) {
	return s.store.GetBySlug(ctx, key)
}

// GetPublished hides drafts and scheduled reviews behind storage.ErrNotFound.
func (s *Service) GetPublished(ctx context.Context, key string) (*models.Review, error) {
	r, err := s.store.GetBySlug(ctx, key)
	if err != nil {
		return nil, err
	}
	if !r.IsPublished() {
		return nil, storage.ErrNotFound
	}
	return r, nil
}

// Create stores a new review under the slug of its title.
func (s *Service) Create(ctx context.Context, in Input) (*models.Review, error) {
	key := slug.Generate(in.Title)
	if key == "" {
		return nil, models.NewValidationError("title", "must contain at least one letter or digit")
	}
	if err := s.ensureFree(ctx, key, ""); err != nil {
		return nil, err
	}

	now := s.clock()
	r := &models.Review{
		ID:        uuid.NewString(),
		Slug:      key,
		CreatedAt: now,
		Status:    models.StatusDraft,
	}
	applyInput(r, in)
	if r.Status == models.StatusPublished {
		r.PublishedAt = &now
	}
	r.UpdatedAt = now

	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, r); err != nil {
		return nil, err
	}

	s.log.Info().Str("slug", r.Slug).Str("status", string(r.Status)).Msg("Review created")
	return r, nil
}

// Update replaces the editable fields of the review stored under key. A new
// title moves the document to its new slug.
func (s *Service) Update(ctx context.Context, key string, in Input) (*models.Review, error) {
	current, err := s.store.GetBySlug(ctx, key)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	r := current.Clone()
	applyInput(r, in)

	if err := checkTransition(current, r.Status, now); err != nil {
		return nil, err
	}

	newKey := slug.Generate(r.Title)
	if newKey == "" {
		return nil, models.NewValidationError("title", "must contain at least one letter or digit")
	}
	if newKey != current.Slug {
		if err := s.ensureFree(ctx, newKey, current.ID); err != nil {
			return nil, err
		}
	}
	r.Slug = newKey

	if r.Status == models.StatusPublished && r.PublishedAt == nil {
		r.PublishedAt = &now
	}
	r.UpdatedAt = now

	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, r); err != nil {
		return nil, err
	}

	if newKey != current.Slug {
		if err := s.removeRenamed(ctx, current.Slug); err != nil {
			s.log.Error().Err(err).
				Str("id", r.ID).
				Str("from", current.Slug).
				Str("to", newKey).
				Msg("Review saved under new slug but old document remains")
			return nil, fmt.Errorf("failed to remove document %q after rename to %q: %w", current.Slug, newKey, err)
		}
		s.log.Info().Str("from", current.Slug).Str("to", newKey).Msg("Review renamed")
	}

	s.log.Info().Str("slug", r.Slug).Str("status", string(r.Status)).Msg("Review updated")
	return r, nil
}

// Delete removes the review, then its featured image on a best-effort basis.
func (s *Service) Delete(ctx context.Context, key string) error {
	r, err := s.store.GetBySlug(ctx, key)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}
	s.log.Info().Str("slug", key).Msg("Review deleted")
	s.deleteImage(ctx, r.FeaturedImage)
	return nil
}

func (s *Service) deleteImage(ctx context.Context, ref string) {
	if s.images == nil || ref == "" || !s.images.Owns(ref) {
		return
	}
	if err := s.images.Delete(ctx, ref); err != nil {
		s.log.Warn().Err(err).Str("image", ref).Msg("Failed to delete featured image")
	}
}

// RecordView counts one view of a published review and returns the new count.
// A fingerprint seen within the view TTL leaves the count unchanged. Guard
// failures are logged and the view is counted.
func (s *Service) RecordView(ctx context.Context, key, fingerprint string) (int, error) {
	r, err := s.GetPublished(ctx, key)
	if err != nil {
		return 0, err
	}

	if s.views != nil && fingerprint != "" {
		seen, err := s.views.Seen(ctx, fingerprint, s.viewTTL)
		if err != nil {
			s.log.Warn().Err(err).Str("slug", key).Msg("View guard unavailable")
		} else if seen {
			metrics.ObserveView("deduplicated")
			return r.ViewCount, nil
		}
	}

	r.ViewCount++
	if err := s.store.Save(ctx, r); err != nil {
		return 0, err
	}
	metrics.ObserveView("counted")
	return r.ViewCount, nil
}

// PublishReport lists the outcome of a scheduled publish run.
type PublishReport struct {
	Published []string `json:"publishedSlugs"`
	Failed    []string `json:"failedSlugs"`
}

// PublishDue publishes every scheduled review whose time has come. The
// publish time becomes the scheduled time.
func (s *Service) PublishDue(ctx context.Context) (PublishReport, error) {
	report := PublishReport{Published: []string{}, Failed: []string{}}

	all, err := s.store.ListAll(ctx)
	if err != nil {
		return report, err
	}

	now := s.clock()
	for _, r := range all {
		if !r.DueForPublish(now) {
			continue
		}
		publishedAt := *r.ScheduledPublishAt
		r.Status = models.StatusPublished
		r.PublishedAt = &publishedAt
		r.ScheduledPublishAt = nil
		r.UpdatedAt = now

		if err := s.store.Save(ctx, r); err != nil {
			s.log.Error().Err(err).Str("slug", r.Slug).Msg("Failed to publish scheduled review")
			report.Failed = append(report.Failed, r.Slug)
			continue
		}
		report.Published = append(report.Published, r.Slug)
	}

	slices.Sort(report.Published)
	slices.Sort(report.Failed)
	if len(report.Published)+len(report.Failed) > 0 {
		s.log.Info().
			Int("published", len(report.Published)).
			Int("failed", len(report.Failed)).
			Msg("Scheduled reviews processed")
	}
	return report, nil
}

// Duplicate copies a review into a new draft titled "<title> (Copy)".
func (s *Service) Duplicate(ctx context.Context, key, modifiedBy string) (*models.Review, error) {
	src, err := s.store.GetBySlug(ctx, key)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	dup := src.Clone()
	dup.ID = uuid.NewString()
	dup.Title = src.Title + " (Copy)"
	dup.Status = models.StatusDraft
	dup.PublishedAt = nil
	dup.ScheduledPublishAt = nil
	dup.ViewCount = 0
	dup.CreatedAt = now
	dup.UpdatedAt = now
	dup.LastModifiedBy = modifiedBy

	dup.Slug, err = s.freeSlug(ctx, slug.Generate(dup.Title))
	if err != nil {
		return nil, err
	}
	if err := dup.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, dup); err != nil {
		return nil, err
	}

	s.log.Info().Str("source", key).Str("slug", dup.Slug).Msg("Review duplicated")
	return dup, nil
}

// removeRenamed deletes the document left behind by a rename, retrying once.
func (s *Service) removeRenamed(ctx context.Context, key string) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = s.store.Delete(ctx, key)
		if err == nil || errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return err
}

// ensureFree reports ErrConflict when key is taken by a review other than selfID.
func (s *Service) ensureFree(ctx context.Context, key, selfID string) error {
	existing, err := s.store.GetBySlug(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		return err
	case selfID != "" && existing.ID == selfID:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrConflict, key)
	}
}

// freeSlug returns base, or base-2, base-3, ... whichever is unused first.
func (s *Service) freeSlug(ctx context.Context, base string) (string, error) {
	for n := 1; ; n++ {
		candidate := slug.WithSuffix(base, n)
		if !slug.Valid(candidate) {
			return "", models.NewValidationError("slug", fmt.Sprintf("cannot derive a valid slug from %q", base))
		}
		_, err := s.store.GetBySlug(ctx, candidate)
		if errors.Is(err, storage.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func applyInput(r *models.Review, in Input) {
	r.Title = strings.TrimSpace(in.Title)
	r.GameTitle = strings.TrimSpace(in.GameTitle)
	r.FairPriceTier = in.FairPriceTier
	r.FairPriceAmount = in.FairPriceAmount
	r.QuickVerdict = strings.TrimSpace(in.QuickVerdict)
	r.Content = in.Content
	r.FeaturedImage = strings.TrimSpace(in.FeaturedImage)
	r.YouTubeVideoID = strings.TrimSpace(in.YouTubeVideoID)
	r.Pros = cleanList(in.Pros)
	r.Cons = cleanList(in.Cons)
	if in.Status != "" {
		r.Status = in.Status
	}
	if r.Status == models.StatusScheduled {
		r.ScheduledPublishAt = in.ScheduledPublishAt
	} else {
		r.ScheduledPublishAt = nil
	}
	r.LastModifiedBy = in.ModifiedBy
}

// cleanList trims entries and drops blanks, keeping order.
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// checkTransition enforces draft <-> published with scheduled in between.
// A scheduled review may only be published once its time has come.
func checkTransition(current *models.Review, to models.Status, now time.Time) error {
	from := current.Status
	if from == to {
		return nil
	}
	switch {
	case to == models.StatusDraft:
		return nil
	case from == models.StatusDraft:
		return nil
	case from == models.StatusScheduled && to == models.StatusPublished && current.DueForPublish(now):
		return nil
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
}

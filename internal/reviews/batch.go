package reviews

import (
	"context"
	"fmt"

	"github.com/bilgisen/fairprice/internal/models"
)

// BatchAction names a bulk admin operation.
type BatchAction string

const (
	BatchPublish   BatchAction = "publish"
	BatchUnpublish BatchAction = "unpublish"
	BatchDelete    BatchAction = "delete"
)

func (a BatchAction) Valid() bool {
	switch a {
	case BatchPublish, BatchUnpublish, BatchDelete:
		return true
	}
	return false
}

// BatchOutcome is the result for one slug of a batch.
type BatchOutcome struct {
	Slug  string `json:"slug"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// BatchResult lists one outcome per requested slug, in request order.
type BatchResult struct {
	Action    BatchAction    `json:"action"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Results   []BatchOutcome `json:"results"`
}

// Batch applies action to each slug independently. A failure on one slug
// does not stop the others.
func (s *Service) Batch(ctx context.Context, action BatchAction, slugs []string, modifiedBy string) (BatchResult, error) {
	if !action.Valid() {
		return BatchResult{}, models.NewValidationError("action", "must be one of publish, unpublish, delete")
	}

	result := BatchResult{Action: action, Results: make([]BatchOutcome, 0, len(slugs))}
	for _, key := range slugs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var err error
		switch action {
		case BatchDelete:
			err = s.Delete(ctx, key)
		case BatchPublish:
			err = s.setStatus(ctx, key, models.StatusPublished, modifiedBy)
		case BatchUnpublish:
			err = s.setStatus(ctx, key, models.StatusDraft, modifiedBy)
		}

		outcome := BatchOutcome{Slug: key, OK: err == nil}
		if err != nil {
			outcome.Error = err.Error()
			result.Failed++
		} else {
			result.Succeeded++
		}
		result.Results = append(result.Results, outcome)
	}

	s.log.Info().
		Str("action", string(action)).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("Batch processed")
	return result, nil
}

func (s *Service) setStatus(ctx context.Context, key string, to models.Status, modifiedBy string) error {
	r, err := s.store.GetBySlug(ctx, key)
	if err != nil {
		return err
	}
	if r.Status == to {
		return nil
	}

	now := s.clock()
	if err := checkTransition(r, to, now); err != nil {
		return err
	}

	r.Status = to
	r.ScheduledPublishAt = nil
	if to == models.StatusPublished && r.PublishedAt == nil {
		r.PublishedAt = &now
	}
	r.UpdatedAt = now
	r.LastModifiedBy = modifiedBy

	if err := s.store.Save(ctx, r); err != nil {
		return fmt.Errorf("failed to save %q: %w", key, err)
	}
	return nil
}

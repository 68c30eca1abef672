package reviews

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/bilgisen/fairprice/internal/models"
	"github.com/bilgisen/fairprice/internal/query"
)

const (
	DefaultRelated     = 4
	DefaultSuggestions = 10
)

// Relatedness weights.
const (
	scoreSameTier     = 10
	scoreNearPrice    = 5
	scoreRecent       = 5
	scoreSameYear     = 2
	scorePerKeyword   = 3
	nearPriceDistance = 10.0
	recentWindow      = 90 * 24 * time.Hour
	yearWindow        = 365 * 24 * time.Hour
)

// Related returns up to n published reviews most similar to the published
// review stored under key. Reviews sharing nothing with it are left out.
func (s *Service) Related(ctx context.Context, key string, n int) ([]*models.Review, error) {
	if n <= 0 {
		n = DefaultRelated
	}

	current, err := s.GetPublished(ctx, key)
	if err != nil {
		return nil, err
	}
	published, err := s.Published(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		review *models.Review
		score  int
	}
	candidates := make([]scored, 0, len(published))
	for _, r := range published {
		if r.Slug == current.Slug {
			continue
		}
		if sc := relatedness(current, r); sc > 0 {
			candidates = append(candidates, scored{review: r, score: sc})
		}
	}

	slices.SortFunc(candidates, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return strings.Compare(a.review.Slug, b.review.Slug)
	})

	out := make([]*models.Review, 0, min(n, len(candidates)))
	for _, c := range candidates[:min(n, len(candidates))] {
		out = append(out, c.review)
	}
	return out, nil
}

func relatedness(a, b *models.Review) int {
	score := 0
	if a.FairPriceTier == b.FairPriceTier {
		score += scoreSameTier
	}
	if math.Abs(priceOrZero(a)-priceOrZero(b)) <= nearPriceDistance {
		score += scoreNearPrice
	}

	gap := a.PublishedTime().Sub(b.PublishedTime())
	if gap < 0 {
		gap = -gap
	}
	switch {
	case gap <= recentWindow:
		score += scoreRecent
	case gap <= yearWindow:
		score += scoreSameYear
	}

	score += keywordOverlap(a, b) * scorePerKeyword
	return score
}

func priceOrZero(r *models.Review) float64 {
	if r.FairPriceAmount == nil {
		return 0
	}
	return *r.FairPriceAmount
}

// keywordOverlap counts the lowercase title and game title values both reviews share.
func keywordOverlap(a, b *models.Review) int {
	ka, kb := keywords(a), keywords(b)
	count := 0
	for k := range ka {
		if _, ok := kb[k]; ok {
			count++
		}
	}
	return count
}

func keywords(r *models.Review) map[string]struct{} {
	set := make(map[string]struct{}, 2)
	for _, k := range []string{r.GameTitle, r.Title} {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

// Suggestion is the compact search result used for typeahead.
type Suggestion struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	GameTitle string `json:"gameTitle"`
}

// Suggest returns up to n published reviews matching text, newest first.
func (s *Service) Suggest(ctx context.Context, text string, n int) ([]Suggestion, error) {
	if n <= 0 {
		n = DefaultSuggestions
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return []Suggestion{}, nil
	}

	res, err := s.List(ctx, query.Query{Search: text, Limit: n})
	if err != nil {
		return nil, err
	}

	out := make([]Suggestion, 0, len(res.Items))
	for _, r := range res.Items {
		out = append(out, Suggestion{Slug: r.Slug, Title: r.Title, GameTitle: r.GameTitle})
	}
	return out, nil
}

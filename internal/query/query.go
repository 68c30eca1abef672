// Package query filters, sorts and paginates an in-memory list of reviews.
package query

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/bilgisen/fairprice/internal/models"
)

// Sort names a result ordering.
type Sort string

const (
	SortPublishedDesc Sort = "publishedAtDesc"
	SortPublishedAsc  Sort = "publishedAtAsc"
	SortPriceAsc      Sort = "priceAsc"
	SortPriceDesc     Sort = "priceDesc"
	SortTitleAsc      Sort = "alphabeticalAsc"
	SortTitleDesc     Sort = "alphabeticalDesc"
)

// Sorts lists every supported ordering.
var Sorts = []Sort{SortPublishedDesc, SortPublishedAsc, SortPriceAsc, SortPriceDesc, SortTitleAsc, SortTitleDesc}

// Valid reports whether s is a supported ordering.
func (s Sort) Valid() bool {
	return slices.Contains(Sorts, s)
}

// StatusAll disables the status filter.
const StatusAll = "all"

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

// Query describes one listing request. Zero values mean "no constraint",
// except Status, Sort, Page and Limit which fall back to the defaults.
type Query struct {
	Status   string // a models.Status, StatusAll, or "" for published
	Tiers    []models.Tier
	MinPrice *float64
	MaxPrice *float64
	From     *time.Time // inclusive bound on publishedAt
	To       *time.Time // inclusive bound on publishedAt
	Search   string
	Sort     Sort
	Page     int
	Limit    int
}

// Default returns the public listing query: published only, newest first.
func Default() Query {
	return Query{}.Normalize()
}

// Normalize fills defaults and clamps page and limit.
func (q Query) Normalize() Query {
	if q.Status == "" {
		q.Status = string(models.StatusPublished)
	}
	if !q.Sort.Valid() {
		q.Sort = SortPublishedDesc
	}
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Result is one page of a listing.
type Result struct {
	Items      []*models.Review `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}

// Apply filters, sorts and paginates reviews. The input slice is not modified.
func Apply(reviews []*models.Review, q Query) Result {
	q = q.Normalize()

	filtered := Filter(reviews, q)
	SortReviews(filtered, q.Sort)
	page := Paginate(filtered, q.Page, q.Limit)

	totalPages := 0
	if len(filtered) > 0 {
		totalPages = (len(filtered) + q.Limit - 1) / q.Limit
	}

	return Result{
		Items:      page,
		Total:      len(filtered),
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: totalPages,
	}
}

// Filter returns the reviews matching every constraint of q, in input order.
func Filter(reviews []*models.Review, q Query) []*models.Review {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]*models.Review, 0, len(reviews))
	for _, r := range reviews {
		if matches(r, q, needle) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r *models.Review, q Query, needle string) bool {
	if q.Status != "" && q.Status != StatusAll && string(r.Status) != q.Status {
		return false
	}
	if len(q.Tiers) > 0 && !slices.Contains(q.Tiers, r.FairPriceTier) {
		return false
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		if r.FairPriceAmount == nil {
			return false
		}
		price := *r.FairPriceAmount
		if q.MinPrice != nil && price < *q.MinPrice {
			return false
		}
		if q.MaxPrice != nil && price > *q.MaxPrice {
			return false
		}
	}
	if q.From != nil || q.To != nil {
		if r.PublishedAt == nil {
			return false
		}
		if q.From != nil && r.PublishedAt.Before(*q.From) {
			return false
		}
		if q.To != nil && r.PublishedAt.After(*q.To) {
			return false
		}
	}
	if needle != "" && !matchesText(r, needle) {
		return false
	}
	return true
}

func matchesText(r *models.Review, needle string) bool {
	return strings.Contains(strings.ToLower(r.Title), needle) ||
		strings.Contains(strings.ToLower(r.GameTitle), needle) ||
		strings.Contains(strings.ToLower(r.Content), needle)
}

// SortReviews orders reviews in place. Ties are broken by slug so every
// ordering is total and pages are stable between requests.
func SortReviews(reviews []*models.Review, s Sort) {
	slices.SortStableFunc(reviews, func(a, b *models.Review) int {
		if c := compare(a, b, s); c != 0 {
			return c
		}
		return strings.Compare(a.Slug, b.Slug)
	})
}

func compare(a, b *models.Review, s Sort) int {
	switch s {
	case SortPublishedAsc:
		return a.PublishedTime().Compare(b.PublishedTime())
	case SortPriceAsc:
		return comparePrice(a, b, false)
	case SortPriceDesc:
		return comparePrice(a, b, true)
	case SortTitleAsc:
		return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case SortTitleDesc:
		return cmp.Compare(strings.ToLower(b.Title), strings.ToLower(a.Title))
	default:
		return b.PublishedTime().Compare(a.PublishedTime())
	}
}

// comparePrice places unpriced reviews last in both directions.
func comparePrice(a, b *models.Review, desc bool) int {
	switch {
	case a.FairPriceAmount == nil && b.FairPriceAmount == nil:
		return 0
	case a.FairPriceAmount == nil:
		return 1
	case b.FairPriceAmount == nil:
		return -1
	}
	if desc {
		return cmp.Compare(*b.FairPriceAmount, *a.FairPriceAmount)
	}
	return cmp.Compare(*a.FairPriceAmount, *b.FairPriceAmount)
}

// Paginate returns the 1-based page of size limit. Pages past the end are empty.
func Paginate(reviews []*models.Review, page, limit int) []*models.Review {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		return []*models.Review{}
	}
	// Compare page counts before multiplying so huge pages cannot overflow.
	if page-1 >= (len(reviews)+limit-1)/limit {
		return []*models.Review{}
	}
	start := (page - 1) * limit
	end := min(start+limit, len(reviews))
	return reviews[start:end]
}

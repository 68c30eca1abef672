package api

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bilgisen/fairprice/internal/models"
	"github.com/bilgisen/fairprice/internal/query"
	"github.com/bilgisen/fairprice/internal/reviews"
)

// ReviewRequest is the body of POST /reviews and PUT /reviews/:slug.
type ReviewRequest struct {
	Title              string        `json:"title" validate:"required,max=200"`
	GameTitle          string        `json:"gameTitle" validate:"required,max=200"`
	FairPriceTier      models.Tier   `json:"fairPriceTier" validate:"required,tier"`
	FairPriceAmount    *float64      `json:"fairPriceAmount" validate:"omitempty,gte=0"`
	QuickVerdict       string        `json:"quickVerdict" validate:"required,max=300"`
	Content            string        `json:"content" validate:"required"`
	FeaturedImage      string        `json:"featuredImage" validate:"max=2048"`
	YouTubeVideoID     string        `json:"youtubeVideoId" validate:"max=64"`
	Pros               []string      `json:"pros" validate:"max=50,dive,max=500"`
	Cons               []string      `json:"cons" validate:"max=50,dive,max=500"`
	Status             models.Status `json:"status" validate:"omitempty,status"`
	ScheduledPublishAt *time.Time    `json:"scheduledPublishAt" validate:"required_if=Status scheduled"`
}

func (r *ReviewRequest) toInput(modifiedBy string) reviews.Input {
	return reviews.Input{
		Title:              r.Title,
		GameTitle:          r.GameTitle,
		FairPriceTier:      r.FairPriceTier,
		FairPriceAmount:    r.FairPriceAmount,
		QuickVerdict:       r.QuickVerdict,
		Content:            r.Content,
		FeaturedImage:      r.FeaturedImage,
		YouTubeVideoID:     r.YouTubeVideoID,
		Pros:               r.Pros,
		Cons:               r.Cons,
		Status:             r.Status,
		ScheduledPublishAt: r.ScheduledPublishAt,
		ModifiedBy:         modifiedBy,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

type DuplicateRequest struct {
	Slug string `json:"slug" validate:"required,slug"`
}

type BatchRequest struct {
	Action string   `json:"action" validate:"required,oneof=publish unpublish delete"`
	Slugs  []string `json:"slugs" validate:"required,min=1,max=100,dive,required"`
}

// ListQuery holds the query parameters of GET /reviews.
type ListQuery struct {
	Status   string `query:"status" json:"status" validate:"omitempty,oneof=all draft scheduled published"`
	Tiers    string `query:"tiers" json:"tiers"`
	MinPrice string `query:"minPrice" json:"minPrice"`
	MaxPrice string `query:"maxPrice" json:"maxPrice"`
	From     string `query:"from" json:"from"`
	To       string `query:"to" json:"to"`
	Search   string `query:"q" json:"q" validate:"max=200"`
	SortBy   string `query:"sortBy" json:"sortBy" validate:"omitempty,oneof=publishedAtDesc publishedAtAsc priceAsc priceDesc alphabeticalAsc alphabeticalDesc"`
	Page     int    `query:"page" json:"page" validate:"gte=0"`
	Limit    int    `query:"limit" json:"limit" validate:"gte=0"`
}

const dateOnly = "2006-01-02"

// toQuery converts the raw parameters. Errors are models.ValidationErrors.
func (l *ListQuery) toQuery() (query.Query, error) {
	q := query.Query{
		Status: l.Status,
		Search: l.Search,
		Sort:   query.Sort(l.SortBy),
		Page:   l.Page,
		Limit:  l.Limit,
	}

	var errs models.ValidationErrors

	for _, name := range strings.Split(l.Tiers, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tier := models.Tier(name)
		if !tier.Valid() {
			errs = append(errs, &models.ValidationError{Field: "tiers", Message: "unknown tier " + strconv.Quote(name)})
			continue
		}
		q.Tiers = append(q.Tiers, tier)
	}

	var err error
	if q.MinPrice, err = parsePrice(l.MinPrice); err != nil {
		errs = append(errs, &models.ValidationError{Field: "minPrice", Message: err.Error()})
	}
	if q.MaxPrice, err = parsePrice(l.MaxPrice); err != nil {
		errs = append(errs, &models.ValidationError{Field: "maxPrice", Message: err.Error()})
	}
	if q.From, err = parseDate(l.From, false); err != nil {
		errs = append(errs, &models.ValidationError{Field: "from", Message: err.Error()})
	}
	if q.To, err = parseDate(l.To, true); err != nil {
		errs = append(errs, &models.ValidationError{Field: "to", Message: err.Error()})
	}

	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		errs = append(errs, &models.ValidationError{Field: "minPrice", Message: "must not exceed maxPrice"})
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		errs = append(errs, &models.ValidationError{Field: "from", Message: "must not be after to"})
	}

	if len(errs) > 0 {
		return query.Query{}, errs
	}
	return q, nil
}

var (
	errPrice = errors.New("must be a non-negative number")
	errDate  = errors.New("must be an RFC 3339 timestamp or YYYY-MM-DD date")
)

func parsePrice(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, errPrice
	}
	return &v, nil
}

// parseDate accepts RFC 3339 or YYYY-MM-DD. A bare date used as an upper
// bound covers the whole day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return nil, errDate
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bilgisen/fairprice/internal/models"
	"github.com/bilgisen/fairprice/internal/slug"
)

// legacyReview accepts the shapes older exports used: "reviewContent"
// instead of "content", pros and cons as newline separated strings, prices
// as strings and missing bookkeeping fields.
type legacyReview struct {
	ID                 string          `json:"id"`
	Slug               string          `json:"slug"`
	Title              string          `json:"title"`
	GameTitle          string          `json:"gameTitle"`
	FairPriceTier      string          `json:"fairPriceTier"`
	FairPriceAmount    json.RawMessage `json:"fairPriceAmount"`
	QuickVerdict       string          `json:"quickVerdict"`
	Content            string          `json:"content"`
	ReviewContent      string          `json:"reviewContent"`
	FeaturedImage      string          `json:"featuredImage"`
	YouTubeVideoID     string          `json:"youtubeVideoId"`
	Pros               json.RawMessage `json:"pros"`
	Cons               json.RawMessage `json:"cons"`
	Status             string          `json:"status"`
	CreatedAt          string          `json:"createdAt"`
	UpdatedAt          string          `json:"updatedAt"`
	PublishedAt        string          `json:"publishedAt"`
	ScheduledPublishAt string          `json:"scheduledPublishAt"`
	ViewCount          int             `json:"viewCount"`
	LastModifiedBy     string          `json:"lastModifiedBy"`
}

// Normalize converts one exported document into a valid canonical review.
func Normalize(raw json.RawMessage, now time.Time) (*models.Review, error) {
	var doc legacyReview
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}

	r := &models.Review{
		ID:             strings.TrimSpace(doc.ID),
		Title:          strings.TrimSpace(doc.Title),
		GameTitle:      strings.TrimSpace(doc.GameTitle),
		FairPriceTier:  models.Tier(strings.TrimSpace(doc.FairPriceTier)),
		QuickVerdict:   strings.TrimSpace(doc.QuickVerdict),
		Content:        doc.Content,
		FeaturedImage:  strings.TrimSpace(doc.FeaturedImage),
		YouTubeVideoID: strings.TrimSpace(doc.YouTubeVideoID),
		Status:         models.Status(strings.ToLower(strings.TrimSpace(doc.Status))),
		ViewCount:      max(doc.ViewCount, 0),
		LastModifiedBy: doc.LastModifiedBy,
	}

	if r.Content == "" {
		r.Content = doc.ReviewContent
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = models.StatusPublished
	}

	r.Slug = strings.TrimSpace(doc.Slug)
	if !slug.Valid(r.Slug) {
		r.Slug = slug.Generate(r.Title)
	}

	var err error
	if r.FairPriceAmount, err = parseAmount(doc.FairPriceAmount); err != nil {
		return nil, models.NewValidationError("fairPriceAmount", err.Error())
	}
	if r.Pros, err = parseList(doc.Pros); err != nil {
		return nil, models.NewValidationError("pros", err.Error())
	}
	if r.Cons, err = parseList(doc.Cons); err != nil {
		return nil, models.NewValidationError("cons", err.Error())
	}

	r.CreatedAt = parseTime(doc.CreatedAt, now)
	r.UpdatedAt = parseTime(doc.UpdatedAt, r.CreatedAt)
	if doc.PublishedAt != "" {
		t := parseTime(doc.PublishedAt, r.UpdatedAt)
		r.PublishedAt = &t
	}
	if r.Status == models.StatusPublished && r.PublishedAt == nil {
		t := r.UpdatedAt
		r.PublishedAt = &t
	}
	if r.Status == models.StatusScheduled && doc.ScheduledPublishAt != "" {
		if t, ok := tryParseTime(doc.ScheduledPublishAt); ok {
			r.ScheduledPublishAt = &t
		}
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func parseAmount(raw json.RawMessage) (*float64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" || s == `""` {
		return nil, nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimPrefix(strings.TrimSpace(unquoted), "$")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New("must be a number")
	}
	return &v, nil
}

// parseList accepts a JSON array of strings or one newline separated string.
func parseList(raw json.RawMessage) ([]string, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return []string{}, nil
	}

	var items []string
	if s[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, errors.New("must be a list of strings")
		}
	} else {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, errors.New("must be a list of strings")
		}
		items = strings.Split(text, "\n")
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(item), "-*•"))
		if item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func tryParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseTime(s string, fallback time.Time) time.Time {
	if t, ok := tryParseTime(s); ok {
		return t
	}
	return fallback
}

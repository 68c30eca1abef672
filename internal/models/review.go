package models

import (
	"slices"
	"time"
)

// Tier is the fair price category a review assigns to a game.
type Tier string

const (
	TierPremium          Tier = "Premium"
	TierStandard         Tier = "Standard"
	TierBudget           Tier = "Budget"
	TierFreeToPlay       Tier = "Free-to-Play"
	TierWaitForSale      Tier = "Wait-for-Sale"
	TierNeverBuy         Tier = "Never-Buy"
	TierSubscriptionOnly Tier = "Subscription-Only"
)

// Tiers lists every tier in display order.
var Tiers = []Tier{
	TierPremium,
	TierStandard,
	TierBudget,
	TierFreeToPlay,
	TierWaitForSale,
	TierNeverBuy,
	TierSubscriptionOnly,
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return slices.Contains(Tiers, t)
}

// Status is the publication state of a review.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
)

// Statuses lists every status.
var Statuses = []Status{StatusDraft, StatusScheduled, StatusPublished}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// MaxQuickVerdictLength is the rune limit on Review.QuickVerdict.
const MaxQuickVerdictLength = 300

// Review is the canonical review document. It is stored as {slug}.json.
type Review struct {
	ID                 string     `json:"id" validate:"required"`
	Slug               string     `json:"slug" validate:"required,slug"`
	Title              string     `json:"title" validate:"required"`
	GameTitle          string     `json:"gameTitle" validate:"required"`
	FairPriceTier      Tier       `json:"fairPriceTier" validate:"required,tier"`
	FairPriceAmount    *float64   `json:"fairPriceAmount,omitempty" validate:"omitempty,gte=0"`
	QuickVerdict       string     `json:"quickVerdict" validate:"required,max=300"`
	Content            string     `json:"content" validate:"required"`
	FeaturedImage      string     `json:"featuredImage,omitempty"`
	YouTubeVideoID     string     `json:"youtubeVideoId,omitempty"`
	Pros               []string   `json:"pros"`
	Cons               []string   `json:"cons"`
	Status             Status     `json:"status" validate:"required,status"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	PublishedAt        *time.Time `json:"publishedAt,omitempty"`
	ScheduledPublishAt *time.Time `json:"scheduledPublishAt,omitempty" validate:"required_if=Status scheduled"`
	ViewCount          int        `json:"viewCount" validate:"gte=0"`
	LastModifiedBy     string     `json:"lastModifiedBy,omitempty"`
}

// IsPublished reports whether the review is publicly visible.
func (r *Review) IsPublished() bool {
	return r.Status == StatusPublished
}

// DueForPublish reports whether a scheduled review has reached its publish time.
func (r *Review) DueForPublish(now time.Time) bool {
	return r.Status == StatusScheduled &&
		r.ScheduledPublishAt != nil &&
		!r.ScheduledPublishAt.After(now)
}

// PublishedTime returns PublishedAt or the zero time.
func (r *Review) PublishedTime() time.Time {
	if r.PublishedAt == nil {
		return time.Time{}
	}
	return *r.PublishedAt
}

// Clone returns a deep copy of r.
func (r *Review) Clone() *Review {
	c := *r
	c.Pros = slices.Clone(r.Pros)
	c.Cons = slices.Clone(r.Cons)
	if r.FairPriceAmount != nil {
		v := *r.FairPriceAmount
		c.FairPriceAmount = &v
	}
	if r.PublishedAt != nil {
		v := *r.PublishedAt
		c.PublishedAt = &v
	}
	if r.ScheduledPublishAt != nil {
		v := *r.ScheduledPublishAt
		c.ScheduledPublishAt = &v
	}
	return &c
}

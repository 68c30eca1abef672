package reviews

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/bilgisen/fairprice/internal/models"
)

const recentActivityLimit = 5

// Price range bucket labels.
const (
	RangeUnder10 = "<$10"
	Range10To30  = "$10-$30"
	Range30To60  = "$30-$60"
	RangeOver60  = ">$60"
)

// Activity is one entry of the recently updated list.
type Activity struct {
	Slug      string        `json:"slug"`
	Title     string        `json:"title"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Status    models.Status `json:"status"`
}

// Analytics summarises the whole catalogue for the admin dashboard.
type Analytics struct {
	TotalReviews        int                      `json:"totalReviews"`
	TotalViews          int                      `json:"totalViews"`
	TotalByStatus       map[models.Status]int    `json:"totalByStatus"`
	TotalByTier         map[models.Tier]int      `json:"totalByTier"`
	AveragePriceByTier  map[models.Tier]*float64 `json:"averagePriceByTier"`
	RecentActivity      []Activity               `json:"recentActivity"`
	PriceRangeCounts    map[string]int           `json:"priceRangeCounts"`
	PublishingFrequency map[string]int           `json:"publishingFrequency"`
}

// Analytics computes catalogue statistics. Average prices only consider
// priced reviews and are nil for tiers without any.
func (s *Service) Analytics(ctx context.Context) (*Analytics, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	a := &Analytics{
		TotalReviews:        len(all),
		TotalByStatus:       make(map[models.Status]int),
		TotalByTier:         make(map[models.Tier]int),
		AveragePriceByTier:  make(map[models.Tier]*float64),
		RecentActivity:      []Activity{},
		PriceRangeCounts:    make(map[string]int),
		PublishingFrequency: make(map[string]int),
	}

	sums := make(map[models.Tier]float64)
	priced := make(map[models.Tier]int)

	for _, r := range all {
		a.TotalViews += r.ViewCount
		a.TotalByStatus[r.Status]++
		a.TotalByTier[r.FairPriceTier]++

		if r.FairPriceAmount != nil {
			sums[r.FairPriceTier] += *r.FairPriceAmount
			priced[r.FairPriceTier]++
			a.PriceRangeCounts[priceRange(*r.FairPriceAmount)]++
		}

		if r.IsPublished() && r.PublishedAt != nil {
			a.PublishingFrequency[r.PublishedAt.UTC().Format("2006-01")]++
		}
	}

	for tier := range a.TotalByTier {
		if priced[tier] == 0 {
			a.AveragePriceByTier[tier] = nil
			continue
		}
		avg := sums[tier] / float64(priced[tier])
		a.AveragePriceByTier[tier] = &avg
	}

	recent := slices.Clone(all)
	slices.SortFunc(recent, func(x, y *models.Review) int {
		if c := y.UpdatedAt.Compare(x.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(x.Slug, y.Slug)
	})
	for _, r := range recent[:min(recentActivityLimit, len(recent))] {
		a.RecentActivity = append(a.RecentActivity, Activity{
			Slug:      r.Slug,
			Title:     r.Title,
			UpdatedAt: r.UpdatedAt,
			Status:    r.Status,
		})
	}

	return a, nil
}

func priceRange(price float64) string {
	switch {
	case price < 10:
		return RangeUnder10
	case price < 30:
		return Range10To30
	case price < 60:
		return Range30To60
	default:
		return RangeOver60
	}
}

package api

import (
	"encoding/xml"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/fairprice/internal/models"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Sitemap handles GET /sitemap.xml: the home page, the review index and one
// entry per published review.
func (h *Handlers) Sitemap(c *fiber.Ctx) error {
	published, err := h.reviews.Published(c.UserContext())
	if err != nil {
		return err
	}
	slices.SortFunc(published, func(a, b *models.Review) int {
		return strings.Compare(a.Slug, b.Slug)
	})

	now := time.Now().UTC().Format(time.RFC3339)
	set := urlSet{
		XMLNS: sitemapNS,
		URLs: []sitemapURL{
			{Loc: h.baseURL, LastMod: now, ChangeFreq: "daily", Priority: "1.0"},
			{Loc: h.baseURL + "/reviews", LastMod: now, ChangeFreq: "weekly", Priority: "0.9"},
		},
	}
	for _, r := range published {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        h.baseURL + "/reviews/" + r.Slug,
			LastMod:    r.UpdatedAt.UTC().Format(time.RFC3339),
			ChangeFreq: "monthly",
			Priority:   "0.8",
		})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "application/xml; charset=utf-8")
	return c.Send(append([]byte(xml.Header), out...))
}

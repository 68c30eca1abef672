package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/fairprice/internal/auth"
	"github.com/bilgisen/fairprice/internal/images"
	"github.com/bilgisen/fairprice/internal/logger"
	"github.com/bilgisen/fairprice/internal/middleware"
	"github.com/bilgisen/fairprice/internal/models"
	"github.com/bilgisen/fairprice/internal/query"
	"github.com/bilgisen/fairprice/internal/reviews"
	"github.com/bilgisen/fairprice/internal/utils"
)

const version = "1.0.0"

type Handlers struct {
	reviews      *reviews.Service
	auth         *auth.Authenticator
	images       images.Store
	baseURL      string
	secureCookie bool
}

func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		reviews:      deps.Reviews,
		auth:         deps.Auth,
		images:       deps.Images,
		baseURL:      strings.TrimRight(deps.Config.BaseURL, "/"),
		secureCookie: !deps.Config.IsDevelopment(),
	}
}

// HealthCheck handles GET /api/v1/health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": version,
		"time":    time.Now().Format(time.RFC3339),
	})
}

// ListReviews handles GET /api/v1/reviews. Anonymous callers only see
// published reviews.
func (h *Handlers) ListReviews(c *fiber.Ctx) error {
	var params ListQuery
	if err := middleware.ParseQuery(c, &params); err != nil {
		return err
	}
	q, err := params.toQuery()
	if err != nil {
		return err
	}

	if q.Status != "" && q.Status != string(models.StatusPublished) && !middleware.IsAdmin(c) {
		return fiber.NewError(fiber.StatusForbidden, "Admin access required to list unpublished reviews")
	}

	res, err := h.reviews.List(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// AdminListReviews handles GET /api/v1/admin/reviews; status defaults to all.
func (h *Handlers) AdminListReviews(c *fiber.Ctx) error {
	var params ListQuery
	if err := middleware.ParseQuery(c, &params); err != nil {
		return err
	}
	if params.Status == "" {
		params.Status = query.StatusAll
	}
	q, err := params.toQuery()
	if err != nil {
		return err
	}

	res, err := h.reviews.List(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// GetReview handles GET /api/v1/reviews/:slug
func (h *Handlers) GetReview(c *fiber.Ctx) error {
	key := c.Params("slug")
	var (
		review *models.Review
		err    error
	)
	if middleware.IsAdmin(c) {
		review, err = h.reviews.Get(c.UserContext(), key)
	} else {
		review, err = h.reviews.GetPublished(c.UserContext(), key)
	}
	if err != nil {
		return err
	}
	return c.JSON(review)
}

// RelatedReviews handles GET /api/v1/reviews/:slug/related
func (h *Handlers) RelatedReviews(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", reviews.DefaultRelated)
	if limit > query.MaxLimit {
		limit = query.MaxLimit
	}

	related, err := h.reviews.Related(c.UserContext(), c.Params("slug"), limit)
	if err != nil {
		return err
	}
	return c.JSON(related)
}

// RecordView handles POST /api/v1/reviews/:slug/view
func (h *Handlers) RecordView(c *fiber.Ctx) error {
	key := c.Params("slug")
	count, err := h.reviews.RecordView(c.UserContext(), key, utils.Fingerprint(c.IP(), key))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":      "View count updated",
		"newViewCount": count,
	})
}

// Search handles GET /api/v1/search?q=
func (h *Handlers) Search(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", reviews.DefaultSuggestions)
	if limit > query.MaxLimit {
		limit = query.MaxLimit
	}

	results, err := h.reviews.Suggest(c.UserContext(), c.Query("q"), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"results": results})
}

// CreateReview handles POST /api/v1/reviews
func (h *Handlers) CreateReview(c *fiber.Ctx) error {
	var req ReviewRequest
	if err := middleware.ParseBody(c, &req); err != nil {
		return err
	}

	review, err := h.reviews.Create(c.UserContext(), req.toInput(modifiedBy(c)))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

// UpdateReview handles PUT /api/v1/reviews/:slug
func (h *Handlers) UpdateReview(c *fiber.Ctx) error {
	var req ReviewRequest
	if err := middleware.ParseBody(c, &req); err != nil {
		return err
	}

	review, err := h.reviews.Update(c.UserContext(), c.Params("slug"), req.toInput(modifiedBy(c)))
	if err != nil {
		return err
	}
	return c.JSON(review)
}

// DeleteReview handles DELETE /api/v1/reviews/:slug
func (h *Handlers) DeleteReview(c *fiber.Ctx) error {
	key := c.Params("slug")
	if err := h.reviews.Delete(c.UserContext(), key); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  "deleted",
		"message": "Review deleted successfully",
	})
}

// DuplicateReview handles POST /api/v1/admin/duplicate
func (h *Handlers) DuplicateReview(c *fiber.Ctx) error {
	var req DuplicateRequest
	if err := middleware.ParseBody(c, &req); err != nil {
		return err
	}

	review, err := h.reviews.Duplicate(c.UserContext(), req.Slug, modifiedBy(c)+" (Duplicate)")
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

// PublishScheduled handles POST /api/v1/admin/publish
func (h *Handlers) PublishScheduled(c *fiber.Ctx) error {
	report, err := h.reviews.PublishDue(c.UserContext())
	if err != nil {
		return err
	}

	message := "No scheduled reviews to publish."
	if len(report.Published)+len(report.Failed) > 0 {
		message = "Scheduled reviews processed. Published: " + strconv.Itoa(len(report.Published)) +
			", Failed: " + strconv.Itoa(len(report.Failed))
	}
	return c.JSON(fiber.Map{
		"message":        message,
		"publishedSlugs": report.Published,
		"failedSlugs":    report.Failed,
	})
}

// Batch handles POST /api/v1/admin/batch
func (h *Handlers) Batch(c *fiber.Ctx) error {
	var req BatchRequest
	if err := middleware.ParseBody(c, &req); err != nil {
		return err
	}

	res, err := h.reviews.Batch(c.UserContext(), reviews.BatchAction(req.Action), req.Slugs, modifiedBy(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// Analytics handles GET /api/v1/admin/analytics
func (h *Handlers) Analytics(c *fiber.Ctx) error {
	a, err := h.reviews.Analytics(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(a)
}

// UploadImage handles POST /api/v1/uploads (multipart field "file").
func (h *Handlers) UploadImage(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	upload, err := h.images.Put(c.UserContext(), fh.Filename, fh.Header.Get(fiber.HeaderContentType), f, fh.Size)
	if err != nil {
		return err
	}

	logger.Get().Info().
		Str("key", upload.Key).
		Int64("size", upload.Size).
		Msg("Image uploaded")
	return c.Status(fiber.StatusCreated).JSON(upload)
}

// DeleteImage handles DELETE /api/v1/uploads?ref= (url= and pathname= are accepted too).
func (h *Handlers) DeleteImage(c *fiber.Ctx) error {
	ref := firstNonEmpty(c.Query("ref"), c.Query("pathname"), c.Query("url"))
	if ref == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Either ref, url or pathname parameter is required")
	}
	if !h.images.Owns(ref) {
		return images.ErrNotOwned
	}
	if err := h.images.Delete(c.UserContext(), ref); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "File deleted successfully"})
}

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := middleware.ParseBody(c, &req); err != nil {
		return err
	}

	if err := h.auth.CheckCredentials(req.Email, req.Password); err != nil {
		logger.Get().Warn().Str("ip", c.IP()).Msg("Failed admin login")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	token, expires, err := h.auth.Issue()
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(h.auth.TTL().Seconds()),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
	})

	logger.Get().Info().Str("ip", c.IP()).Msg("Admin logged in")
	return c.JSON(fiber.Map{
		"message":   "Authentication successful",
		"token":     token,
		"expiresAt": expires,
	})
}

// Logout handles POST /api/v1/auth/logout
func (h *Handlers) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func modifiedBy(c *fiber.Ctx) string {
	if claims, ok := middleware.ClaimsFrom(c); ok && claims.Email != "" {
		return claims.Email
	}
	return "Admin"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

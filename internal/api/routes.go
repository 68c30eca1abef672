package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bilgisen/fairprice/internal/auth"
	"github.com/bilgisen/fairprice/internal/config"
	"github.com/bilgisen/fairprice/internal/images"
	"github.com/bilgisen/fairprice/internal/metrics"
	"github.com/bilgisen/fairprice/internal/middleware"
	"github.com/bilgisen/fairprice/internal/reviews"
)

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Config  *config.Config
	Reviews *reviews.Service
	Auth    *auth.Authenticator
	Images  images.Store

	// Registry enables GET /metrics when set.
	Registry *prometheus.Registry

	// UploadDir is served under /uploads when images are stored locally.
	UploadDir string
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, deps Deps) {
	h := NewHandlers(deps)

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	if deps.Registry != nil {
		app.Use(middleware.Metrics())
	}
	app.Use(middleware.RequestLogger())

	session := middleware.NewAuth(middleware.AuthConfig{Verifier: deps.Auth})
	optionalSession := middleware.NewAuth(middleware.AuthConfig{Verifier: deps.Auth, Optional: true})
	adminOnly := middleware.AdminOnly()

	// API group with versioning
	api := app.Group("/api/v1")

	// Health check endpoint
	api.Get("/health", h.HealthCheck)

	// Review endpoints
	reviewsGroup := api.Group("/reviews")
	{
		reviewsGroup.Get("", optionalSession, h.ListReviews)
		reviewsGroup.Post("", session, adminOnly, h.CreateReview)
		reviewsGroup.Get("/:slug", optionalSession, h.GetReview)
		reviewsGroup.Put("/:slug", session, adminOnly, h.UpdateReview)
		reviewsGroup.Delete("/:slug", session, adminOnly, h.DeleteReview)
		reviewsGroup.Get("/:slug/related", h.RelatedReviews)
		reviewsGroup.Post("/:slug/view", h.RecordView)
	}
	api.Get("/search", h.Search)

	// Session endpoints
	authGroup := api.Group("/auth")
	{
		authGroup.Post("/login", middleware.NewRateLimit(middleware.RateLimitConfig{
			Rate:  deps.Config.LoginRate,
			Burst: deps.Config.LoginBurst,
		}), h.Login)
		authGroup.Post("/logout", h.Logout)
	}

	// Admin endpoints
	admin := api.Group("/admin", session, adminOnly)
	{
		admin.Get("/reviews", h.AdminListReviews)
		admin.Post("/duplicate", h.DuplicateReview)
		admin.Post("/publish", h.PublishScheduled)
		admin.Post("/batch", h.Batch)
		admin.Get("/analytics", h.Analytics)
	}

	uploads := api.Group("/uploads", session, adminOnly)
	{
		uploads.Post("", h.UploadImage)
		uploads.Delete("", h.DeleteImage)
	}

	app.Get("/sitemap.xml", h.Sitemap)

	if deps.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(deps.Registry)))
	}
	if deps.UploadDir != "" {
		app.Static("/uploads", deps.UploadDir)
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}

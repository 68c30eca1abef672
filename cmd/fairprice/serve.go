package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/bilgisen/fairprice/internal/api"
	"github.com/bilgisen/fairprice/internal/auth"
	"github.com/bilgisen/fairprice/internal/config"
	"github.com/bilgisen/fairprice/internal/logger"
	"github.com/bilgisen/fairprice/internal/metrics"
	"github.com/bilgisen/fairprice/internal/middleware"
	"github.com/bilgisen/fairprice/internal/reviews"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the review API and, every PUBLISH_INTERVAL, publishes scheduled
reviews whose time has come.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Get()
	log.Info().Str("env", cfg.Env).Msg("Starting application...")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		log.Info().Msg("Closing stores...")
		if err := d.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing stores")
		}
	}()

	authenticator, err := auth.New(auth.Config{
		Email:        cfg.AdminEmail,
		Password:     cfg.AdminPassword,
		PasswordHash: cfg.AdminPasswordHash,
		Secret:       cfg.JWTSecret,
		TTL:          cfg.SessionTTL,
	})
	if err != nil {
		return err
	}

	// Create Fiber app with custom config
	app := fiber.New(fiber.Config{
		AppName:               "fairprice",
		ReadTimeout:           cfg.HTTPTimeout,
		WriteTimeout:          cfg.HTTPTimeout,
		IdleTimeout:           120 * time.Second,
		BodyLimit:             int(cfg.MaxUploadSize) + 1<<20,
		ErrorHandler:          middleware.ErrorHandler,
		DisableStartupMessage: !cfg.IsDevelopment(),
	})

	routeDeps := api.Deps{
		Config:  cfg,
		Reviews: d.reviews,
		Auth:    authenticator,
		Images:  d.images,
	}
	if cfg.MetricsEnabled {
		routeDeps.Registry = metrics.NewRegistry()
	}
	if cfg.ImageStore == config.ImageStoreLocal {
		routeDeps.UploadDir = cfg.UploadDir
	}
	api.SetupRoutes(app, routeDeps)

	go runPublisher(ctx, d.reviews, cfg.PublishInterval)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
	return nil
}

// runPublisher publishes due scheduled reviews until ctx is cancelled.
func runPublisher(ctx context.Context, svc *reviews.Service, interval time.Duration) {
	if interval <= 0 {
		return
	}
	log := logger.With("publisher")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.PublishDue(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("Scheduled publish failed")
			}
		}
	}
}

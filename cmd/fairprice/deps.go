package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/bilgisen/fairprice/internal/cache"
	"github.com/bilgisen/fairprice/internal/config"
	"github.com/bilgisen/fairprice/internal/images"
	"github.com/bilgisen/fairprice/internal/logger"
	"github.com/bilgisen/fairprice/internal/reviews"
	"github.com/bilgisen/fairprice/internal/storage"
)

// uploadURLPrefix is where locally stored images are served.
const uploadURLPrefix = "/uploads"

// deps holds the long-lived collaborators shared by every command.
type deps struct {
	store      storage.Repository
	closeStore func() error
	images     images.Store
	views      cache.ViewGuard
	reviews    *reviews.Service
}

func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	log := logger.Get()

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.StorageDriver).Msg("Review store ready")

	var imgs images.Store
	switch cfg.ImageStore {
	case config.ImageStoreR2:
		imgs, err = images.NewR2Store(ctx, images.R2Config{
			Endpoint:  cfg.R2Endpoint,
			AccessKey: cfg.R2AccessKey,
			SecretKey: cfg.R2SecretKey,
			Bucket:    cfg.R2Bucket,
			PublicURL: cfg.R2PublicURL,
			MaxSize:   cfg.MaxUploadSize,
		})
		if err != nil {
			_ = closeStore()
			return nil, fmt.Errorf("failed to initialize image store: %w", err)
		}
	default:
		imgs = images.NewLocalStore(cfg.UploadDir, uploadURLPrefix, cfg.MaxUploadSize)
	}

	var views cache.ViewGuard
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, de-duplicating views in memory")
			views = cache.NewMemoryGuard()
		} else {
			views = redisClient
		}
	} else {
		views = cache.NewMemoryGuard()
	}

	return &deps{
		store:      store,
		closeStore: closeStore,
		images:     imgs,
		views:      views,
		reviews:    reviews.NewService(store, imgs, views, reviews.WithViewTTL(cfg.ViewDedupeTTL)),
	}, nil
}

func (d *deps) Close() error {
	return errors.Join(d.views.Close(), d.closeStore())
}

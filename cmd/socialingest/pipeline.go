package main

import (
	"context"
	"fmt"

	"socialingest/pkg/auth"
	"socialingest/pkg/config"
	"socialingest/pkg/ingest"
	"socialingest/pkg/instagram"
	"socialingest/pkg/logger"
	"socialingest/pkg/models"
	"socialingest/pkg/ratelimit"
	"socialingest/pkg/storage"
	"socialingest/pkg/youtube"
)

// pipeline bundles the wired ingestion components for one process
type pipeline struct {
	store        storage.Store
	orchestrator *ingest.Orchestrator
	close        func()
}

// buildPipeline wires storage, per-platform limiters and fetchers from config
func buildPipeline(ctx context.Context, cfg *config.Config, log logger.Logger) (*pipeline, error) {
	store, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var yt ingest.YouTubeService
	if cfg.YouTube.APIKey != "" {
		limiter, err := buildLimiter(cfg, models.PlatformYouTube, "default", log)
		if err != nil {
			closeStore()
			return nil, err
		}
		client := youtube.NewClient(cfg.YouTube.APIKey, cfg.YouTube.Timeout, log)
		yt = youtube.NewFetcher(client, limiter, youtube.Options{
			MaxAttempts: cfg.RateLimit.MaxRetries,
		}, log)
	}

	var ig ingest.InstagramService
	{
		credential := cfg.Instagram.Username
		if credential == "" {
			credential = "default"
		}
		limiter, err := buildLimiter(cfg, models.PlatformInstagram, credential, log)
		if err != nil {
			closeStore()
			return nil, err
		}
		client := instagram.NewClient(cfg.Instagram.Timeout, cfg.Instagram.UserAgent, log)
		ig = instagram.NewFetcher(client, limiter, sessionStore(log), instagram.Options{
			Username:          cfg.Instagram.Username,
			Password:          cfg.Instagram.Password,
			SessionFile:       cfg.Instagram.SessionFile,
			PerPostCommentCap: cfg.Ingest.MaxCommentsPerPost,
			MaxAttempts:       cfg.RateLimit.MaxRetries,
		}, log)
	}

	orchestrator := ingest.NewOrchestrator(store, yt, ig, ingest.Options{
		MaxComments:    cfg.Ingest.MaxComments,
		ProfilePostCap: cfg.Ingest.ProfilePostCap,
	}, log)

	return &pipeline{
		store:        store,
		orchestrator: orchestrator,
		close:        closeStore,
	}, nil
}

// buildStore selects the configured storage backend
func buildStore(ctx context.Context, cfg *config.Config, log logger.Logger) (storage.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "postgres":
		pg, err := storage.NewPostgres(ctx, cfg.Storage.PostgresDSN, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return storage.NewMemory(), func() {}, nil
	}
}

// buildLimiter creates the per-platform-credential rate limiter over the
// configured state backend
func buildLimiter(cfg *config.Config, platform models.Platform, credential string, log logger.Logger) (*ratelimit.Limiter, error) {
	var store ratelimit.Store
	if cfg.RateLimit.RedisAddr != "" {
		store = ratelimit.NewRedisStore(cfg.RateLimit.RedisAddr, platform.String(), credential)
	} else {
		path := cfg.RateLimit.StatePath
		if path == "" {
			path = ratelimit.DefaultStatePath(platform.String())
		} else {
			path = path + "." + platform.String()
		}
		fileStore, err := ratelimit.NewFileStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open rate limit state: %w", err)
		}
		store = fileStore
	}

	return ratelimit.NewLimiter(store, ratelimit.Options{
		MinInterval:   cfg.RateLimit.MinInterval,
		HourlyCeiling: cfg.RateLimit.HourlyCeiling,
	}, log), nil
}

// sessionStore returns the credential manager, degrading to nil when no
// backend is usable so the fetcher just stays unauthenticated
func sessionStore(log logger.Logger) auth.SessionStore {
	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("no session store available")
		return nil
	}
	return manager
}

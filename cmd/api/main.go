package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/adplatform"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/analysis"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/api"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/cache"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/config"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/database"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/monitor"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/recommend"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/repository"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/runlock"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting AdPilot API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer pool.Close()

	accounts := repository.NewAccountRepository(pool)
	campaigns := repository.NewCampaignRepository(pool)
	alerts := repository.NewBudgetAlertRepository(pool)
	insights := repository.NewInsightRepository(pool)

	pauser := adplatform.NewGoogleAdsClient(adplatform.GoogleAdsConfig{
		DeveloperToken:  cfg.GoogleAds.DeveloperToken,
		ClientID:        cfg.GoogleAds.ClientID,
		ClientSecret:    cfg.GoogleAds.ClientSecret,
		LoginCustomerID: cfg.GoogleAds.LoginCustomerID,
		APIVersion:      cfg.GoogleAds.APIVersion,
		Timeout:         cfg.CallTimeout,
	}, logger)

	locker, closeLocker, err := newLocker(cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	var notifier monitor.Notifier
	if cfg.AlertWebhookURL != "" {
		notifier = webhook.NewSender(webhook.Config{
			URL:     cfg.AlertWebhookURL,
			Secret:  cfg.AlertWebhookSecret,
			Timeout: cfg.CallTimeout,
		}, logger)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	mon := monitor.New(monitor.Deps{
		Accounts:  accounts,
		Campaigns: campaigns,
		Alerts:    alerts,
		Insights:  insights,
		Pauser:    pauser,
		Locker:    locker,
		Notifier:  notifier,
		Logger:    logger,
	}, monitor.Config{
		NamePrefix:      cfg.DemoCampaignPrefix,
		FreshnessWindow: cfg.FreshnessWindow,
		CallTimeout:     cfg.CallTimeout,
		Location:        loc,
	})

	var recommender analysis.Recommender
	if cfg.RecommendationsEnabled() {
		gen, err := recommend.NewBedrockGenerator(ctx, cfg.AWSRegion, cfg.BedrockModelID)
		if err != nil {
			return err
		}
		var generator recommend.Generator = gen
		if cfg.RecommendationCacheTTL > 0 {
			store := cache.NewPGCache(pool)
			go store.RunJanitor(ctx, cfg.RecommendationCacheTTL, logger)
			generator = recommend.NewCached(gen, store, cfg.RecommendationCacheTTL, logger)
		}
		recommender = recommend.NewSafe(generator, logger)
		logger.Info("recommendations enabled", slog.String("model", cfg.BedrockModelID))
	}

	analyzer := analysis.NewService(accounts, campaigns, insights, recommender, logger, cfg.CallTimeout)

	router := api.NewRouter(logger, &api.Dependencies{
		Monitor:    mon,
		Analyzer:   analyzer,
		DB:         pool,
		CronSecret: cfg.CronSecret,
		APISecret:  cfg.APISecret,
	})
	router.Setup()

	if cfg.MonitorInterval > 0 {
		worker := monitor.NewWorker(mon, logger, cfg.MonitorInterval)
		go worker.Start(ctx)
		defer worker.Stop()
	}

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}

// newLocker returns the Redis run lock when REDIS_URL is set. Without it,
// overlapping runs rely on the per-day unique index.
func newLocker(cfg *config.Config) (monitor.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return runlock.Noop{}, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	return runlock.NewRedisLocker(client, runlock.DefaultKey, cfg.RunLockTTL), func() { _ = client.Close() }, nil
}

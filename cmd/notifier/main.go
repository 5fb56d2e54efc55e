package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"pricenotifier/internal/cache"
	"pricenotifier/internal/config"
	"pricenotifier/internal/handler"
	"pricenotifier/internal/metrics"
	"pricenotifier/internal/notify"
	"pricenotifier/internal/pricing"
	"pricenotifier/internal/region"
	"pricenotifier/internal/repository"
	"pricenotifier/internal/router"
	"pricenotifier/internal/service"
	"pricenotifier/internal/watchlist"
	"pricenotifier/pkg/logger"
)

func main() {
	cfg := config.MustLoad()

	log := logger.New(cfg.App.Name, cfg.App.LogLevel)
	slog.SetDefault(log)
	log.Info("starting", slog.String("version", cfg.App.Version), slog.String("env", cfg.App.Environment))

	if err := run(cfg, log); err != nil {
		log.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	// Redis is optional; components fall back to in-process equivalents.
	var redisClient *redis.Client
	if cfg.UsesRedis() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unavailable, using in-memory fallbacks", slog.String("error", err.Error()))
			redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info("redis client initialized", slog.String("addr", cfg.Cache.RedisAddress()))
		}
	}

	var regionCache cache.Cache
	if cfg.Cache.Type == "redis" && redisClient != nil {
		regionCache = cache.NewRedisCache(redisClient, "pricenotifier")
	} else {
		regionCache = cache.NewMemoryCache()
	}
	defer regionCache.Close()
	tracker := region.NewTracker(regionCache, cfg.Region.Default, cfg.Region.TTL, log)

	repo, err := openRepository(cfg.Storage, log)
	if err != nil {
		return err
	}
	defer repo.Close()

	store := watchlist.NewStore()
	settings := service.NewSettingsStore(cfg.Scheduler.Settings())
	persister := service.NewPersister(repo, store, settings, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	_, err = persister.Restore(ctx)
	cancel()
	if err != nil {
		return err
	}
	persister.StartAutosave(cfg.Storage.AutosaveInterval)
	metrics.RegisterWatchlistSize(prometheus.DefaultRegisterer, store.Len)

	client := pricing.NewClient(pricing.Config{
		Endpoint: cfg.PriceAPI.Endpoint,
		Timeout:  cfg.PriceAPI.Timeout,
		Breaker: pricing.BreakerConfig{
			Enabled:      cfg.PriceAPI.BreakerEnabled,
			MaxRequests:  1,
			Interval:     5 * time.Minute,
			Timeout:      cfg.PriceAPI.BreakerOpenTimeout,
			FailureRatio: cfg.PriceAPI.BreakerFailureRatio,
			MinRequests:  cfg.PriceAPI.BreakerMinRequests,
		},
	}, log)

	var (
		surfaces notify.MultiSurface
		webhook  *notify.WebhookSurface
		feed     handler.RecentFeed
	)
	if cfg.Notify.Log {
		surfaces = append(surfaces, notify.NewLogSurface(log))
	}
	if cfg.Notify.WebhookURL != "" {
		webhook = notify.NewWebhookSurface(cfg.Notify.WebhookURL, log)
		surfaces = append(surfaces, webhook)
	}
	if cfg.Notify.RedisChannel != "" && redisClient != nil {
		rs := notify.NewRedisSurface(redisClient, notify.RedisSurfaceConfig{
			Channel: cfg.Notify.RedisChannel,
			ListKey: cfg.Notify.RedisListKey,
			MaxLen:  cfg.Notify.RedisMaxLen,
		}, log)
		surfaces = append(surfaces, rs)
		feed = rs
	}
	sink := notify.NewSink(surfaces, log)

	scheduler := service.NewScheduler(store, client, tracker, sink, settings, service.SchedulerConfig{
		BatchSize: cfg.PriceAPI.BatchSize,
	}, log)
	scheduler.Start()

	var checks []handler.ReadinessCheck
	if redisClient != nil {
		checks = append(checks, handler.ReadinessCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	r := router.New(router.Config{
		Logger:           log,
		Handler:          handler.New(cfg.App.Name, cfg.App.Version, tracker, checks...),
		WatchlistHandler: handler.NewWatchlistHandler(store, scheduler),
		SettingsHandler:  handler.NewSettingsHandler(settings, scheduler),
		RegionHandler:    handler.NewRegionHandler(tracker),
		AdminHandler:     handler.NewAdminHandler(store, scheduler, persister, feed, cfg.Storage.Type),
		APIKeys:          cfg.Auth.Keys(),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", slog.String("addr", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var serveErr error
	select {
	case <-quit:
	case serveErr = <-errCh:
	}
	log.Info("shutting down")

	ctx, cancel = context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", slog.String("error", err.Error()))
	}

	// Let running cycles finish so their prices land in the final save.
	scheduler.Stop()
	scheduler.Wait()

	if err := persister.Stop(ctx); err != nil {
		log.Error("final save failed", slog.String("error", err.Error()))
	}
	if webhook != nil {
		webhook.Close()
	}

	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}
	return nil
}

func openRepository(cfg config.StorageConfig, log *slog.Logger) (repository.SnapshotRepository, error) {
	var (
		repo repository.SnapshotRepository
		err  error
	)
	switch cfg.Type {
	case "postgres":
		repo, err = repository.NewPostgresSnapshotRepository(cfg.PostgresDSN(), log)
	case "mysql":
		repo, err = repository.NewMySQLSnapshotRepository(repository.MySQLConfig{
			Host:     cfg.Host,
			Port:     strconv.Itoa(cfg.DBPort()),
			User:     cfg.User,
			Password: cfg.Password,
			Database: cfg.Name,
		}, log)
	case "file":
		repo, err = repository.NewFileSnapshotRepository(cfg.Path, log)
	default:
		repo, err = repository.NewSQLiteSnapshotRepository(cfg.Path, log)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Type, err)
	}
	return repo, nil
}

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/mediaforge/vod-service/internal/cache"
	"github.com/mediaforge/vod-service/internal/config"
	"github.com/mediaforge/vod-service/internal/storage"
	"github.com/mediaforge/vod-service/internal/storage/postgres"
)

// UploadReaper periodically fails media items that are still pending long
// after their upload credential expired. The encoder only calls back for
// uploads that actually completed, so abandoned sessions would otherwise
// sit in pending forever.
type UploadReaper struct {
	storage  storage.Storage
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger
}

func NewUploadReaper(storage storage.Storage, interval, maxAge time.Duration) *UploadReaper {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &UploadReaper{
		storage:  storage,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
	}
}

func (ur *UploadReaper) Start(ctx context.Context) {
	ticker := time.NewTicker(ur.interval)
	defer ticker.Stop()

	ur.logger.Info("Upload reaper started",
		"interval", ur.interval.String(),
		"max_age", ur.maxAge.String())

	// Run once immediately on startup
	ur.reapStaleUploads()

	for {
		select {
		case <-ctx.Done():
			ur.logger.Info("Upload reaper shutting down")
			return
		case <-ticker.C:
			ur.reapStaleUploads()
		}
	}
}

func (ur *UploadReaper) reapStaleUploads() {
	startTime := time.Now()

	cutoff := time.Now().Add(-ur.maxAge)
	ids, err := ur.storage.FailStalePending(cutoff)
	if err != nil {
		ur.logger.Error("Failed to reap stale uploads",
			"error", err.Error(),
			"duration_ms", time.Since(startTime).Milliseconds())
		return
	}

	if len(ids) > 0 {
		ur.logger.Info("Failed stale pending uploads",
			"items_failed", len(ids),
			"cutoff", cutoff.Format(time.RFC3339),
			"duration_ms", time.Since(startTime).Milliseconds())
	}
}

func main() {
	// Load config
	cfg := config.MustLoad()

	// Initialize database connection
	db, err := postgres.NewPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	slog.Info("Connected to Postgres database")

	// The reaper writes through the cache service so items it fails are
	// invalidated and never served as pending from cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	slog.Info("Connected to Redis")

	store := cache.NewCacheService(db, redisClient)

	// Pending items get a full upload window plus an hour of slack before
	// they are declared abandoned
	maxAge := cfg.Encoder.UploadExpiry + time.Hour
	reaper := NewUploadReaper(store, 5*time.Minute, maxAge)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		slog.Info("Received shutdown signal")
		cancel()
	}()

	// Start the worker
	reaper.Start(ctx)

	slog.Info("Upload reaper stopped")
}

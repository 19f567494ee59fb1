package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/mediaforge/vod-service/docs"
	"github.com/mediaforge/vod-service/internal/archive"
	"github.com/mediaforge/vod-service/internal/cache"
	"github.com/mediaforge/vod-service/internal/config"
	"github.com/mediaforge/vod-service/internal/encoder"
	"github.com/mediaforge/vod-service/internal/events"
	"github.com/mediaforge/vod-service/internal/http/handlers/media"
	"github.com/mediaforge/vod-service/internal/http/handlers/users"
	"github.com/mediaforge/vod-service/internal/http/handlers/webhooks"
	wsHandler "github.com/mediaforge/vod-service/internal/http/handlers/websocket"
	"github.com/mediaforge/vod-service/internal/http/middleware"
	"github.com/mediaforge/vod-service/internal/services/reconcile"
	"github.com/mediaforge/vod-service/internal/services/upload"
	"github.com/mediaforge/vod-service/internal/storage/postgres"
	ws "github.com/mediaforge/vod-service/internal/websocket"
)

// @title VOD Service API
// @version 1.0
// @description Video-on-demand upload and playback state service backed by an external encoding provider.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// load config
	cfg := config.MustLoad()

	// database setup
	db, err := postgres.NewPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	slog.Info("Connected to Postgres database")

	// redis backs the media cache and per-user rate limits
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

	// webhook payload archive is best-effort; the service runs without it
	var archiver webhooks.PayloadArchiver
	if archiveStore, err := archive.NewStore(cfg); err != nil {
		slog.Warn("Webhook payload archive unavailable", slog.String("error", err.Error()))
	} else {
		archiver = archiveStore
	}

	encoderClient := encoder.NewClient(cfg.Encoder)

	hub := ws.NewHub()
	go hub.Run()

	publisher := events.NewEventPublisher(hub)
	reconciler := reconcile.New(store, publisher)
	broker := upload.NewBroker(store, encoderClient)

	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	rateLimits := middleware.NewRateLimitConfig(redisClient)

	// setup server
	router := http.NewServeMux()

	router.HandleFunc("POST /signup", users.SignUp(store))
	router.HandleFunc("POST /login", users.Login(store, cfg.JWTSecret))

	router.Handle("POST /media", auth(rateLimits.RateLimitMiddleware("uploads")(media.Create(broker))))
	router.Handle("GET /media/{id}", auth(media.Get(store)))
	router.Handle("GET /media", auth(media.List(store)))

	router.HandleFunc("POST /webhooks/encoder",
		webhooks.Encoder(cfg.Encoder.WebhookSecret, cfg.Encoder.WebhookTolerance, reconciler, archiver))

	router.HandleFunc("GET /ws", wsHandler.Subscribe(hub, cfg.JWTSecret))

	router.Handle("GET /swagger/", httpSwagger.WrapHandler)

	server := http.Server{
		Addr:    cfg.HTTPServer.Address,
		Handler: router,
	}

	log.Println("server started on", cfg.HTTPServer.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-done

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
		return
	}

	slog.Info("Server stopped")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"stockboard/internal/config"
	"stockboard/internal/docstore"
	"stockboard/internal/docstore/drivers"
	"stockboard/internal/logger"
	"stockboard/internal/media"
	"stockboard/internal/server"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, log *zap.Logger, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	// Open event streams end when their request context is cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		log.Error("Error closing server resources", zap.Error(err))
	}

	log.Info("Server exiting")
	done <- true
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting stockboard API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	connect, err := drivers.Connector(cfg, logger.Named(log, "docstore"))
	if err != nil {
		log.Fatal("Invalid document store configuration", zap.Error(err))
	}
	store := docstore.New(connect, logger.Named(log, "docstore"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = store.Connect(ctx)
	cancel()
	if err != nil {
		log.Fatal("Failed to connect to document store", zap.Error(err))
	}
	log.Info("Document store health", zap.Any("health", store.Health(context.Background())))

	uploader := media.NewClient(cfg.Media, logger.Named(log, "media"))
	if cfg.Media.UploadURL == "" {
		log.Warn("MEDIA_UPLOAD_URL and MEDIA_CLOUD_NAME are unset; image file uploads are disabled")
	}

	var limiter *redis.Client
	if cfg.RateLimit.Enabled {
		limiter = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := limiter.Ping(context.Background()).Err(); err != nil {
			log.Warn("Rate limiter redis unreachable; requests will not be limited", zap.Error(err))
		}
	}

	srv := server.NewServer(cfg, log, store, uploader, limiter)

	done := make(chan bool, 1)
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"stockboard/internal/config"
	"stockboard/internal/docstore"
	"stockboard/internal/domain"
	"stockboard/internal/logger"
	"stockboard/internal/media"
	custommiddleware "stockboard/internal/middleware"
	"stockboard/internal/repository"
	"stockboard/internal/service"
	"stockboard/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	store  *docstore.Client
	redis  *redis.Client
}

// NewServer wires the handlers over store. limiter may be nil, in which case
// writes are not rate limited.
func NewServer(cfg *config.Config, log *zap.Logger, store *docstore.Client, uploader media.Uploader, limiter *redis.Client) *Server {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.Stack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.RequestLogger(logger.Named(log, "http")))
	router.Use(custommiddleware.Recover(log))
	router.Use(custommiddleware.CORS(cfg.Server))

	s := &Server{
		config: cfg,
		logger: log,
		store:  store,
		redis:  limiter,
	}

	router.Get("/health", s.health)

	products := repository.NewProductRepository(store, logger.Named(log, "products"))
	orders := repository.NewOrderRepository(store, logger.Named(log, "orders"))

	threshold := cfg.Alerts.LowStockThreshold
	if threshold < 0 {
		threshold = domain.DefaultLowStockThreshold
	}
	catalog := service.NewCatalogService(products, uploader, service.DefaultValidationOptions(), threshold, log)
	stock := service.NewStockService(products, log)
	orderService := service.NewOrderService(orders, log)

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimit.Enabled && limiter != nil {
		limit = custommiddleware.RateLimit(limiter,
			custommiddleware.RateLimitConfigFrom(cfg.RateLimit, cfg.Store.ProjectID+":ratelimit"), log)
	}

	transport.NewProductHandler(catalog, stock, log).RegisterRoutes(router, limit)
	transport.NewOrderHandler(orderService, log).RegisterRoutes(router, limit)
	transport.NewStreamHandler(store, logger.Named(log, "stream")).RegisterRoutes(router)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// health reports the store and, when rate limiting is on, Redis.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	storeHealth := s.store.Health(ctx)
	body := map[string]any{
		"status": "ok",
		"store":  storeHealth,
	}
	status := http.StatusOK
	if storeHealth["status"] != "up" {
		body["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}

	if s.redis != nil {
		redisHealth := map[string]string{"status": "up"}
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisHealth = map[string]string{"status": "down", "error": err.Error()}
		}
		body["redis"] = redisHealth
	}

	custommiddleware.RespondWithJSON(w, status, body)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close document store", zap.Error(err))
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}

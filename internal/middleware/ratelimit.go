package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"stockboard/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig is a fixed-window limit per client address.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	KeyPrefix         string
}

// RateLimitConfigFrom adapts the loaded settings.
func RateLimitConfigFrom(cfg config.RateLimitConfig, prefix string) RateLimitConfig {
	return RateLimitConfig{
		RequestsPerWindow: cfg.RequestsPerWindow,
		Window:            cfg.Window,
		KeyPrefix:         prefix,
	}
}

// RateLimit counts writes per client in Redis. Reads and streams pass
// through untouched, and so does every request while Redis is unreachable.
func RateLimit(client *redis.Client, cfg RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			clientID := clientAddr(r)
			key := fmt.Sprintf("%s:%s", cfg.KeyPrefix, clientID)
			ctx := r.Context()

			count, err := client.Incr(ctx, key).Result()
			if err != nil {
				logger.Error("Failed to increment rate limit counter",
					zap.Error(err),
					zap.String("key", key),
				)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := client.Expire(ctx, key, cfg.Window).Err(); err != nil {
					logger.Warn("Failed to set rate limit window", zap.Error(err), zap.String("key", key))
				}
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))

			if count > int64(cfg.RequestsPerWindow) {
				ttl, err := client.TTL(ctx, key).Result()
				if err != nil || ttl < 0 {
					ttl = cfg.Window
				}

				logger.Warn("Rate limit exceeded",
					zap.String("client_id", clientID),
					zap.Int64("count", count),
					zap.Int("limit", cfg.RequestsPerWindow),
				)

				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(cfg.RequestsPerWindow)-count, 10))
			next.ServeHTTP(w, r)
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// clientAddr drops the port so one host shares a single counter.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

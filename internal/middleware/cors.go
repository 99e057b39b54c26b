package middleware

import (
	"net/http"

	"stockboard/internal/config"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// CORS allows the dashboard origins. Development accepts any origin.
func CORS(cfg config.ServerConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if cfg.IsDevelopment() || len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	})
}

// Stack is the base chain applied to every route.
func Stack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Compress(5, "application/json"),
	}
}

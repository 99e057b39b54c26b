// Package drivers maps configuration onto a document store connector.
package drivers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"stockboard/internal/config"
	"stockboard/internal/docstore"
	"stockboard/internal/docstore/pgstore"
	"stockboard/internal/docstore/redisstore"
	"stockboard/internal/docstore/sqlitestore"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	Memory   = "memory"
	Postgres = "postgres"
	Redis    = "redis"
	SQLite   = "sqlite"
)

// Target is a resolved backend choice.
type Target struct {
	Driver string
	// DSN is the postgres connection string, redis URL or sqlite file path.
	DSN string
}

// Resolve picks the backend. A DATABASE_URL with a recognised scheme wins over
// STORE_DRIVER.
func Resolve(cfg *config.Config) (Target, error) {
	if raw := cfg.Store.DatabaseURL; raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return Target{}, fmt.Errorf("failed to parse database url: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "postgres", "postgresql":
			return Target{Driver: Postgres, DSN: raw}, nil
		case "redis", "rediss":
			return Target{Driver: Redis, DSN: raw}, nil
		case "sqlite", "file":
			path := u.Opaque
			if path == "" {
				path = u.Host + u.Path
			}
			if path == "" {
				path = cfg.Store.SQLitePath
			}
			return Target{Driver: SQLite, DSN: path}, nil
		case "memory":
			return Target{Driver: Memory}, nil
		default:
			return Target{}, fmt.Errorf("unsupported database url scheme %q", u.Scheme)
		}
	}

	switch cfg.Store.Driver {
	case Memory, "":
		return Target{Driver: Memory}, nil
	case Postgres:
		return Target{Driver: Postgres, DSN: cfg.Database.DSN()}, nil
	case Redis:
		return Target{Driver: Redis}, nil
	case SQLite:
		return Target{Driver: SQLite, DSN: cfg.Store.SQLitePath}, nil
	default:
		return Target{}, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// Connector resolves the backend now and returns a connector that opens it
// when the gateway first needs it.
func Connector(cfg *config.Config, logger *zap.Logger) (docstore.Connector, error) {
	target, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("driver", target.Driver))

	switch target.Driver {
	case Postgres:
		return func(ctx context.Context) (docstore.Backend, error) {
			return pgstore.Open(ctx, target.DSN, logger)
		}, nil
	case Redis:
		options, err := redisOptions(cfg, target.DSN)
		if err != nil {
			return nil, err
		}
		prefix := cfg.Store.ProjectID + ":"
		return func(ctx context.Context) (docstore.Backend, error) {
			client := redis.NewClient(options)
			store, err := redisstore.Open(ctx, client, prefix, logger)
			if err != nil {
				_ = client.Close()
				return nil, err
			}
			return store, nil
		}, nil
	case SQLite:
		return func(ctx context.Context) (docstore.Backend, error) {
			return sqlitestore.Open(ctx, target.DSN, logger)
		}, nil
	default:
		return func(ctx context.Context) (docstore.Backend, error) {
			logger.Info("Using in-memory document store; data is lost on exit")
			return docstore.NewMemoryBackend(), nil
		}, nil
	}
}

func redisOptions(cfg *config.Config, rawURL string) (*redis.Options, error) {
	if rawURL != "" {
		options, err := redis.ParseURL(rawURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		return options, nil
	}
	return &redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// ChangeChannel is the LISTEN/NOTIFY channel fed by the documents trigger.
const ChangeChannel = "document_changes"

// Service owns the PostgreSQL connection pool.
type Service struct {
	pool   *pgxpool.Pool
	db     *sql.DB
	logger *zap.Logger
}

// New opens a pool against dsn and verifies it with a ping.
func New(ctx context.Context, dsn string, logger *zap.Logger) (*Service, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.String("database", poolConfig.ConnConfig.Database),
	)

	return &Service{
		pool:   pool,
		db:     stdlib.OpenDBFromPool(pool),
		logger: logger,
	}, nil
}

// Pool returns the native pgx pool.
func (s *Service) Pool() *pgxpool.Pool {
	return s.pool
}

// DB returns a database/sql handle sharing the pool, for goose.
func (s *Service) DB() *sql.DB {
	return s.db
}

// Health returns a map of health status information.
func (s *Service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		s.logger.Warn("Database health check failed", zap.Error(err))
		return stats
	}

	stats["status"] = "up"
	stats["driver"] = "postgres"
	stats["message"] = "It's healthy"

	poolStats := s.pool.Stat()
	stats["open_connections"] = strconv.Itoa(int(poolStats.TotalConns()))
	stats["in_use"] = strconv.Itoa(int(poolStats.AcquiredConns()))
	stats["idle"] = strconv.Itoa(int(poolStats.IdleConns()))
	stats["max_connections"] = strconv.Itoa(int(poolStats.MaxConns()))
	stats["wait_count"] = strconv.FormatInt(poolStats.EmptyAcquireCount(), 10)
	stats["wait_duration"] = poolStats.AcquireDuration().String()

	if poolStats.AcquiredConns() > poolStats.MaxConns()*8/10 {
		stats["message"] = "The database is experiencing heavy load."
	}

	return stats
}

// Close releases the sql handle and the pool.
func (s *Service) Close() error {
	s.logger.Info("Disconnected from database")
	err := s.db.Close()
	s.pool.Close()
	return err
}

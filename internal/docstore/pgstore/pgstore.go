// Package pgstore keeps documents in a PostgreSQL JSONB table and turns the
// table's NOTIFY trigger into the gateway's change feed.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stockboard/internal/database"
	"stockboard/internal/docstore"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Store struct {
	db     *database.Service
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Open connects to dsn, applies pending migrations and returns the store.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	svc, err := database.New(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(svc.DB(), database.Postgres, logger); err != nil {
		_ = svc.Close()
		return nil, err
	}
	return New(svc, logger), nil
}

// New wraps an already migrated database.
func New(svc *database.Service, logger *zap.Logger) *Store {
	return &Store{
		db:     svc,
		pool:   svc.Pool(),
		logger: logger,
	}
}

func (s *Store) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM documents WHERE collection = $1 AND doc_key = $2`,
		collection, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return value, nil
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc_key, value FROM documents WHERE collection = $1 ORDER BY doc_key`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	entries := []docstore.Entry{}
	for rows.Next() {
		var entry docstore.Entry
		var value []byte
		if err := rows.Scan(&entry.Key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		entry.Value = value
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return entries, nil
}

const upsertQuery = `
	INSERT INTO documents (collection, doc_key, value)
	VALUES ($1, $2, $3::jsonb)
	ON CONFLICT (collection, doc_key) DO UPDATE SET value = EXCLUDED.value`

func (s *Store) Put(ctx context.Context, collection, key string, value json.RawMessage) error {
	if _, err := s.pool.Exec(ctx, upsertQuery, collection, key, string(value)); err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}
	return nil
}

func (s *Store) Merge(ctx context.Context, collection, key string, fields map[string]json.RawMessage) error {
	patch := make(map[string]json.RawMessage, len(fields))
	removed := []string{}
	for name, value := range fields {
		if docstore.IsNull(value) {
			removed = append(removed, name)
			continue
		}
		patch[name] = value
	}
	encoded, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (collection, doc_key, value)
		VALUES ($1, $2, $3::jsonb - $4::text[])
		ON CONFLICT (collection, doc_key) DO UPDATE
		SET value = (documents.value || $3::jsonb) - $4::text[]`,
		collection, key, string(encoded), removed,
	)
	if err != nil {
		return fmt.Errorf("failed to merge document: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND doc_key = $2`,
		collection, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Transact serializes on an advisory lock for the path, so transactions on a
// record that does not exist yet are ordered too.
func (s *Store) Transact(ctx context.Context, collection, key string, fn docstore.TxFunc) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, docstore.Join(collection, key)); err != nil {
		return fmt.Errorf("failed to lock document: %w", err)
	}

	var current []byte
	exists := true
	err = tx.QueryRow(ctx,
		`SELECT value FROM documents WHERE collection = $1 AND doc_key = $2 FOR UPDATE`,
		collection, key,
	).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		exists = false
	} else if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	next, err := fn(current, exists)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}

	if _, err := tx.Exec(ctx, upsertQuery, collection, key, string(next)); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Watch holds one pooled connection in LISTEN mode until ctx ends.
func (s *Store) Watch(ctx context.Context, notify docstore.NotifyFunc) (<-chan error, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{database.ChangeChannel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen for changes: %w", err)
	}

	failed := make(chan error, 1)
	go func() {
		defer close(failed)
		defer s.release(conn)

		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					failed <- fmt.Errorf("failed to wait for notification: %w", err)
				}
				return
			}
			notify(notification.Payload)
		}
	}()

	return failed, nil
}

func (s *Store) release(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := conn.Exec(ctx, "UNLISTEN *"); err != nil {
		s.logger.Warn("Failed to reset listener connection", zap.Error(err))
		_ = conn.Conn().Close(ctx)
	}
	conn.Release()
}

func (s *Store) Health(ctx context.Context) map[string]string {
	return s.db.Health(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

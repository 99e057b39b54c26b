// Package sqlitestore keeps documents in a local SQLite file. It has no native
// change feed, so writes are announced in process after they commit.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"stockboard/internal/database"
	"stockboard/internal/docstore"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type document struct {
	Key   string `db:"doc_key"`
	Value string `db:"value"`
}

type Store struct {
	db       *sqlx.DB
	path     string
	logger   *zap.Logger
	notifier docstore.Notifier
}

// Open creates the file if needed and applies pending migrations.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection keeps writers serialized.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := database.RunMigrations(db.DB, database.SQLite, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Opened sqlite document store", zap.String("path", path))
	return &Store{db: db, path: path, logger: logger}, nil
}

func (s *Store) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		`SELECT value FROM documents WHERE collection = ? AND doc_key = ?`,
		collection, key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return json.RawMessage(value), nil
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Entry, error) {
	var docs []document
	err := s.db.SelectContext(ctx, &docs,
		`SELECT doc_key, value FROM documents WHERE collection = ? ORDER BY doc_key`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	entries := make([]docstore.Entry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, docstore.Entry{Key: doc.Key, Value: json.RawMessage(doc.Value)})
	}
	return entries, nil
}

const upsertQuery = `
	INSERT INTO documents (collection, doc_key, value)
	VALUES (?, ?, ?)
	ON CONFLICT (collection, doc_key) DO UPDATE
	SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

func (s *Store) Put(ctx context.Context, collection, key string, value json.RawMessage) error {
	if _, err := s.db.ExecContext(ctx, upsertQuery, collection, key, string(value)); err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}
	s.notifier.Publish(collection)
	return nil
}

func (s *Store) Merge(ctx context.Context, collection, key string, fields map[string]json.RawMessage) error {
	return s.Transact(ctx, collection, key, func(current json.RawMessage, exists bool) (json.RawMessage, error) {
		return docstore.MergeFields(current, fields)
	})
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND doc_key = ?`,
		collection, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		s.notifier.Publish(collection)
	}
	return nil
}

func (s *Store) Transact(ctx context.Context, collection, key string, fn docstore.TxFunc) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var value string
	exists := true
	err = tx.GetContext(ctx, &value,
		`SELECT value FROM documents WHERE collection = ? AND doc_key = ?`,
		collection, key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	var current json.RawMessage
	if exists {
		current = json.RawMessage(value)
	}

	next, err := fn(current, exists)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}

	if _, err := tx.ExecContext(ctx, upsertQuery, collection, key, string(next)); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.notifier.Publish(collection)
	return nil
}

func (s *Store) Watch(ctx context.Context, notify docstore.NotifyFunc) (<-chan error, error) {
	return s.notifier.Watch(ctx, notify)
}

func (s *Store) Health(ctx context.Context) map[string]string {
	stats := map[string]string{"driver": "sqlite", "path": s.path}
	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("sqlite down: %v", err)
		return stats
	}
	stats["status"] = "up"
	return stats
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Package redisstore keeps each collection in a Redis hash and publishes the
// collection name on a pub/sub channel after every write.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"stockboard/internal/docstore"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// maxTxRetries bounds optimistic retries when a watched hash changes under a
// transaction.
const maxTxRetries = 16

type Store struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// Open pings the server before handing out the store.
func Open(ctx context.Context, client *redis.Client, prefix string, logger *zap.Logger) (*Store, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	logger.Info("Connected to redis", zap.String("addr", client.Options().Addr), zap.String("prefix", prefix))
	return New(client, prefix, logger), nil
}

func New(client *redis.Client, prefix string, logger *zap.Logger) *Store {
	return &Store{client: client, prefix: prefix, logger: logger}
}

func (s *Store) hashKey(collection string) string {
	return s.prefix + "docs:" + collection
}

func (s *Store) channel() string {
	return s.prefix + "changes"
}

func (s *Store) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	value, err := s.client.HGet(ctx, s.hashKey(collection), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return value, nil
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Entry, error) {
	records, err := s.client.HGetAll(ctx, s.hashKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	entries := make([]docstore.Entry, 0, len(records))
	for key, value := range records {
		entries = append(entries, docstore.Entry{Key: key, Value: json.RawMessage(value)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (s *Store) Put(ctx context.Context, collection, key string, value json.RawMessage) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.hashKey(collection), key, []byte(value))
		pipe.Publish(ctx, s.channel(), collection)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}
	return nil
}

func (s *Store) Merge(ctx context.Context, collection, key string, fields map[string]json.RawMessage) error {
	return s.Transact(ctx, collection, key, func(current json.RawMessage, exists bool) (json.RawMessage, error) {
		return docstore.MergeFields(current, fields)
	})
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.hashKey(collection), key)
		pipe.Publish(ctx, s.channel(), collection)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Transact watches the collection hash and retries when another client
// writes to it before EXEC.
func (s *Store) Transact(ctx context.Context, collection, key string, fn docstore.TxFunc) error {
	hash := s.hashKey(collection)

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		var fnErr error
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.HGet(ctx, hash, key).Bytes()
			exists := true
			if errors.Is(err, redis.Nil) {
				current, exists = nil, false
			} else if err != nil {
				return err
			}

			next, err := fn(current, exists)
			if err != nil {
				fnErr = err
				return err
			}
			if next == nil {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, hash, key, []byte(next))
				pipe.Publish(ctx, s.channel(), collection)
				return nil
			})
			return err
		}, hash)

		switch {
		case fnErr != nil:
			return fnErr
		case errors.Is(err, redis.TxFailedErr):
			s.logger.Debug("Transaction conflict, retrying",
				zap.String("collection", collection),
				zap.String("key", key),
				zap.Int("attempt", attempt+1),
			)
			continue
		case err != nil:
			return fmt.Errorf("failed to run transaction: %w", err)
		default:
			return nil
		}
	}

	return docstore.ErrConflict
}

// Watch subscribes to the change channel and returns once the subscription is
// confirmed by the server.
func (s *Store) Watch(ctx context.Context, notify docstore.NotifyFunc) (<-chan error, error) {
	pubsub := s.client.Subscribe(ctx, s.channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to changes: %w", err)
	}

	failed := make(chan error, 1)
	messages := pubsub.Channel()
	go func() {
		defer close(failed)
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					failed <- errors.New("change subscription closed")
					return
				}
				notify(msg.Payload)
			}
		}
	}()

	return failed, nil
}

func (s *Store) Health(ctx context.Context) map[string]string {
	stats := map[string]string{"driver": "redis"}
	if err := s.client.Ping(ctx).Err(); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("redis down: %v", err)
		return stats
	}

	pool := s.client.PoolStats()
	stats["status"] = "up"
	stats["total_connections"] = strconv.FormatUint(uint64(pool.TotalConns), 10)
	stats["idle_connections"] = strconv.FormatUint(uint64(pool.IdleConns), 10)
	stats["hits"] = strconv.FormatUint(uint64(pool.Hits), 10)
	stats["misses"] = strconv.FormatUint(uint64(pool.Misses), 10)
	return stats
}

func (s *Store) Close() error {
	return s.client.Close()
}

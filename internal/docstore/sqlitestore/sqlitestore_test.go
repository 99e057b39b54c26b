package sqlitestore

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"stockboard/internal/database"
	"stockboard/internal/docstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenAppliesMigrations(t *testing.T) {
	store := newTestStore(t)

	version, err := database.MigrationVersion(store.db.DB, database.SQLite)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestPutGetListDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "stock", "b", json.RawMessage(`{"stock":1}`)))
	require.NoError(t, store.Put(ctx, "stock", "a", json.RawMessage(`{"stock":2}`)))

	value, err := store.Get(ctx, "stock", "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"stock":2}`, string(value))

	entries, err := store.List(ctx, "stock")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Key)

	require.NoError(t, store.Delete(ctx, "stock", "a"))
	_, err = store.Get(ctx, "stock", "a")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestMergeCreatesMissingRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Merge(ctx, "orders", "o1", map[string]json.RawMessage{
		"deliveryStatus": json.RawMessage(`"delivered"`),
	}))

	value, err := store.Get(ctx, "orders", "o1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"deliveryStatus":"delivered"}`, string(value))
}

func TestTransactAbortRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	errStop := errors.New("stop")

	require.NoError(t, store.Put(ctx, "stock", "p1", json.RawMessage(`{"stock":2}`)))
	err := store.Transact(ctx, "stock", "p1", func(current json.RawMessage, exists bool) (json.RawMessage, error) {
		return nil, errStop
	})
	assert.ErrorIs(t, err, errStop)

	value, err := store.Get(ctx, "stock", "p1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"stock":2}`, string(value))
}

func TestConcurrentTransactionsSerialize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "stock", "counter", json.RawMessage(`{"n":0}`)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Transact(ctx, "stock", "counter", func(current json.RawMessage, exists bool) (json.RawMessage, error) {
				var doc struct{ N int }
				if err := json.Unmarshal(current, &doc); err != nil {
					return nil, err
				}
				return json.Marshal(map[string]int{"n": doc.N + 1})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	value, err := store.Get(ctx, "stock", "counter")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":8}`, string(value))
}

func TestWritesNotifyWatchers(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	_, err := store.Watch(ctx, func(collection string) { changed <- collection })
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "orders", "o1", json.RawMessage(`{}`)))

	select {
	case collection := <-changed:
		assert.Equal(t, "orders", collection)
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}
}

package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"stockboard/internal/docstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

var testStore *Store

func setupTestStore() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := dbContainer.ConnectionString(context.Background(), "sslmode=disable")
	if err != nil {
		return dbContainer.Terminate, err
	}

	testStore, err = Open(context.Background(), connStr, zap.NewNop())
	if err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestStore()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if testStore != nil {
		_ = testStore.Close()
	}
	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, testStore.Put(ctx, "stock", "p1", json.RawMessage(`{"name":"Frame","stock":5}`)))

	value, err := testStore.Get(ctx, "stock", "p1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Frame","stock":5}`, string(value))

	require.NoError(t, testStore.Delete(ctx, "stock", "p1"))
	_, err = testStore.Get(ctx, "stock", "p1")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestListOrdersByKey(t *testing.T) {
	ctx := context.Background()

	for _, key := range []string{"b", "c", "a"} {
		require.NoError(t, testStore.Put(ctx, "list-test", key, json.RawMessage(`{}`)))
	}

	entries, err := testStore.List(ctx, "list-test")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, "b", entries[1].Key)
	assert.Equal(t, "c", entries[2].Key)

	empty, err := testStore.List(ctx, "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMergeKeepsAndRemovesFields(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, testStore.Put(ctx, "merge-test", "p1", json.RawMessage(`{"name":"Frame","stock":5,"album":["x"]}`)))
	require.NoError(t, testStore.Merge(ctx, "merge-test", "p1", map[string]json.RawMessage{
		"stock": json.RawMessage(`3`),
		"album": json.RawMessage(`null`),
	}))

	value, err := testStore.Get(ctx, "merge-test", "p1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Frame","stock":3}`, string(value))

	require.NoError(t, testStore.Merge(ctx, "merge-test", "fresh", map[string]json.RawMessage{
		"stock": json.RawMessage(`1`),
	}))
	value, err = testStore.Get(ctx, "merge-test", "fresh")
	require.NoError(t, err)
	assert.JSONEq(t, `{"stock":1}`, string(value))
}

func TestTransactAbortWritesNothing(t *testing.T) {
	ctx := context.Background()
	errStop := errors.New("stop")

	require.NoError(t, testStore.Put(ctx, "tx-test", "p1", json.RawMessage(`{"stock":2}`)))

	err := testStore.Transact(ctx, "tx-test", "p1", func(current json.RawMessage, exists bool) (json.RawMessage, error) {
		return json.RawMessage(`{"stock":-1}`), errStop
	})
	assert.ErrorIs(t, err, errStop)

	value, err := testStore.Get(ctx, "tx-test", "p1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"stock":2}`, string(value))
}

func TestConcurrentTransactionsSerialize(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testStore.Put(ctx, "tx-test", "counter", json.RawMessage(`{"n":0}`)))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := testStore.Transact(ctx, "tx-test", "counter", func(current json.RawMessage, exists bool) (json.RawMessage, error) {
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

	value, err := testStore.Get(ctx, "tx-test", "counter")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":10}`, string(value))
}

func TestWatchReceivesCollectionName(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	changed := make(chan string, 8)
	failed, err := testStore.Watch(ctx, func(collection string) { changed <- collection })
	require.NoError(t, err)

	require.NoError(t, testStore.Put(context.Background(), "watch-test", "k", json.RawMessage(`{}`)))

	select {
	case collection := <-changed:
		assert.Equal(t, "watch-test", collection)
	case <-time.After(5 * time.Second):
		t.Fatal("no notification received")
	}

	cancel()
	select {
	case _, ok := <-failed:
		assert.False(t, ok, "feed should close without error on cancel")
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestHealthReportsPool(t *testing.T) {
	health := testStore.Health(context.Background())
	assert.Equal(t, "up", health["status"])
	assert.Equal(t, "postgres", health["driver"])
}

package drivers

import (
	"context"
	"path/filepath"
	"testing"

	"stockboard/internal/config"
	"stockboard/internal/docstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		store   config.StoreConfig
		want    Target
		wantErr bool
	}{
		{name: "default memory", store: config.StoreConfig{}, want: Target{Driver: Memory}},
		{name: "sqlite driver", store: config.StoreConfig{Driver: "sqlite", SQLitePath: "data/x.db"}, want: Target{Driver: SQLite, DSN: "data/x.db"}},
		{name: "postgres url wins", store: config.StoreConfig{Driver: "sqlite", DatabaseURL: "postgres://u:p@db:5432/app"}, want: Target{Driver: Postgres, DSN: "postgres://u:p@db:5432/app"}},
		{name: "redis url", store: config.StoreConfig{DatabaseURL: "redis://localhost:6379/2"}, want: Target{Driver: Redis, DSN: "redis://localhost:6379/2"}},
		{name: "sqlite url", store: config.StoreConfig{DatabaseURL: "sqlite:///var/lib/stock.db"}, want: Target{Driver: SQLite, DSN: "/var/lib/stock.db"}},
		{name: "unknown scheme", store: config.StoreConfig{DatabaseURL: "https://example.firebaseio.com"}, wantErr: true},
		{name: "unknown driver", store: config.StoreConfig{Driver: "mongo"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(&config.Config{Store: tt.store})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConnectorOpensSQLite(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: SQLite, SQLitePath: filepath.Join(t.TempDir(), "store.db")}}

	connect, err := Connector(cfg, zap.NewNop())
	require.NoError(t, err)

	client := docstore.New(connect, zap.NewNop())
	defer client.Close()

	key, err := client.Push(context.Background(), "stock", map[string]any{"name": "Keychain"})
	require.NoError(t, err)

	raw, err := client.Get(context.Background(), docstore.Join("stock", key))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Keychain"}`, string(raw))
}

func TestConnectorOpensRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{Store: config.StoreConfig{DatabaseURL: "redis://" + mr.Addr(), ProjectID: "shop"}}

	connect, err := Connector(cfg, zap.NewNop())
	require.NoError(t, err)

	client := docstore.New(connect, zap.NewNop())
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "orders/o1", map[string]any{"email": "a@b.c"}))
	assert.True(t, mr.Exists("shop:docs:orders"))
}

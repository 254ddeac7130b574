package deps

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"shortlink/internal/config"
	"shortlink/internal/domain/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLink(code string) models.ShortLink {
	return models.ShortLink{
		OriginalURL:  "https://example.com/" + code,
		ShortCode:    code,
		CreatedAt:    time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		IsActive:     true,
		ClicksByDate: map[string]int64{},
	}
}

func TestOpenStore_MemorySnapshotSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()
	cfg := config.Config{
		Storage:         config.StorageMemory,
		FileStoragePath: filepath.Join(t.TempDir(), "links.jsonl"),
	}

	store, err := OpenStore(ctx, &log, cfg)
	require.NoError(t, err)
	_, err = store.Insert(ctx, testLink("abc123"))
	require.NoError(t, err)
	require.NoError(t, store.RecordAccess(ctx, "abc123", time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)))
	require.NoError(t, store.Close())

	reopened, err := OpenStore(ctx, &log, cfg)
	require.NoError(t, err)
	defer reopened.Close()

	stats, err := reopened.GetStats(ctx, "abc123")
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.AccessCount)
	assert.Equal(t, map[string]int64{"2024-03-11": 1}, stats.ClicksByDate)
}

func TestOpenStore_SQLite(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()

	store, err := OpenStore(ctx, &log, config.Config{
		Storage:      config.StorageSQLite,
		DatabasePath: filepath.Join(t.TempDir(), "urls.db"),
	})
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Ping(ctx))
}

func TestOpenStore_Unknown(t *testing.T) {
	log := zerolog.Nop()
	_, err := OpenStore(context.Background(), &log, config.Config{Storage: "etcd"})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLinks(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()

	store, err := OpenStore(ctx, &log, config.Config{Storage: config.StorageMemory})
	require.NoError(t, err)
	defer store.Close()

	t.Run("без redis возвращается само хранилище", func(t *testing.T) {
		links, closeFn, err := Links(ctx, &log, config.Config{}, store)
		require.NoError(t, err)
		assert.Same(t, store, links)
		assert.NoError(t, closeFn())
	})

	t.Run("с redis ссылки кешируются", func(t *testing.T) {
		mr := miniredis.RunT(t)

		links, closeFn, err := Links(ctx, &log, config.Config{RedisURL: "redis://" + mr.Addr(), CacheTTL: time.Minute}, store)
		require.NoError(t, err)
		defer closeFn()

		_, err = links.Insert(ctx, testLink("cached"))
		require.NoError(t, err)
		_, err = links.FindByCode(ctx, "cached")
		require.NoError(t, err)
		assert.True(t, mr.Exists("shortlink:cached"))
	})

	t.Run("недоступный redis", func(t *testing.T) {
		_, _, err := Links(ctx, &log, config.Config{RedisURL: "redis://127.0.0.1:1"}, store)
		assert.Error(t, err)
	})
}

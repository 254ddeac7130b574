// Package deps собирает внешние зависимости приложения: хранилище ссылок
// и кеш перед ним. Используется и сервером, и linkctl.
package deps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shortlink/internal/config"
	"shortlink/internal/domain/models"
	"shortlink/internal/repository/cache"
	"shortlink/internal/repository/filestore"
	"shortlink/internal/repository/inmemory"
	"shortlink/internal/repository/postgres"
	"shortlink/internal/repository/sqlite"

	"github.com/rs/zerolog"
)

const snapshotSaveTimeout = 30 * time.Second

// Store - полный набор операций хранилища, который нужен приложению
type Store interface {
	Insert(ctx context.Context, link models.ShortLink) (models.ShortLink, error)
	FindByCode(ctx context.Context, code string) (models.ShortLink, error)
	RecordAccess(ctx context.Context, code string, when time.Time) error
	GetStats(ctx context.Context, code string) (models.LinkStats, error)
	List(ctx context.Context, limit, offset int) ([]models.ShortLink, error)
	Ping(ctx context.Context) error
	Close() error
}

// OpenStore открывает хранилище, выбранное в cfg.Storage
func OpenStore(ctx context.Context, log *zerolog.Logger, cfg config.Config) (Store, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		log.Info().Msg("Using PostgreSQL storage")
		pg, err := postgres.NewStorage(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return pg, nil

	case config.StorageSQLite:
		log.Info().Str("path", cfg.DatabasePath).Msg("Using SQLite storage")
		lite, err := sqlite.NewStorage(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return lite, nil

	case config.StorageMemory:
		log.Info().Msg("Using in-memory storage")
		mem := inmemory.NewStorage()
		if cfg.FileStoragePath == "" {
			return mem, nil
		}
		if _, err := filestore.Load(ctx, *log, cfg.FileStoragePath, mem); err != nil {
			return nil, err
		}
		return &snapshotStore{InmemoryStorage: mem, path: cfg.FileStoragePath, log: log}, nil

	default:
		return nil, fmt.Errorf("%w: unknown storage %q", config.ErrInvalidConfig, cfg.Storage)
	}
}

// Links оборачивает store кешем Redis, если он настроен. Возвращаемая
// функция закрывает соединение с Redis, само хранилище не трогает.
func Links(ctx context.Context, log *zerolog.Logger, cfg config.Config, store Store) (cache.Store, func() error, error) {
	if cfg.RedisURL == "" {
		return store, func() error { return nil }, nil
	}

	rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Dur("ttl", cfg.CacheTTL).Msg("Redis cache enabled")

	c := cache.NewRedisCache(store, rdb, cfg.CacheTTL, log)
	return c, c.Close, nil
}

// snapshotStore сохраняет память в файл при закрытии
type snapshotStore struct {
	*inmemory.InmemoryStorage
	path string
	log  *zerolog.Logger
}

func (s *snapshotStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotSaveTimeout)
	defer cancel()

	saveErr := filestore.Save(ctx, *s.log, s.path, s.InmemoryStorage)
	return errors.Join(saveErr, s.InmemoryStorage.Close())
}

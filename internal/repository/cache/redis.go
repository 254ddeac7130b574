// Package cache - read-through кэш Redis перед хранилищем ссылок.
// Кэшируется только неизменяемая часть ссылки, счетчики всегда берутся
// из хранилища.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shortlink/internal/domain/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keyPrefix        = "shortlink:"
	redisPingTimeout = 2 * time.Second
)

type Store interface {
	Insert(ctx context.Context, link models.ShortLink) (models.ShortLink, error)
	FindByCode(ctx context.Context, code string) (models.ShortLink, error)
	RecordAccess(ctx context.Context, code string, when time.Time) error
	GetStats(ctx context.Context, code string) (models.LinkStats, error)
	Ping(ctx context.Context) error
}

type cachedLink struct {
	ID          int64      `json:"id"`
	OriginalURL string     `json:"original_url"`
	ShortCode   string     `json:"short_code"`
	CreatedAt   time.Time  `json:"created_at"`
	IsActive    bool       `json:"is_active"`
	CustomAlias *string    `json:"custom_alias,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type RedisCache struct {
	next Store
	rdb  *redis.Client
	ttl  time.Duration
	log  *zerolog.Logger
	now  func() time.Time
}

// NewRedisClient разбирает redis:// URL и проверяет соединение
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)

	ctxPing, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := rdb.Ping(ctxPing).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cannot connect to redis: %w", err)
	}
	return rdb, nil
}

func NewRedisCache(next Store, rdb *redis.Client, ttl time.Duration, log *zerolog.Logger) *RedisCache {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &RedisCache{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  log,
		now:  time.Now,
	}
}

func (c *RedisCache) Insert(ctx context.Context, link models.ShortLink) (models.ShortLink, error) {
	inserted, err := c.next.Insert(ctx, link)
	if err != nil {
		return models.ShortLink{}, err
	}
	c.put(ctx, inserted)
	return inserted, nil
}

// FindByCode отдает ссылку из кэша с нулевыми счетчиками. Промахи не кэшируются.
func (c *RedisCache) FindByCode(ctx context.Context, code string) (models.ShortLink, error) {
	data, err := c.rdb.Get(ctx, key(code)).Bytes()
	if err == nil {
		var cached cachedLink
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached.toLink(), nil
		}
		c.log.Warn().Str("short_code", code).Msg("dropping malformed cache entry")
		c.drop(ctx, code)
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Str("short_code", code).Msg("redis get failed")
	}

	link, err := c.next.FindByCode(ctx, code)
	if err != nil {
		return models.ShortLink{}, err
	}
	c.put(ctx, link)
	return link, nil
}

func (c *RedisCache) RecordAccess(ctx context.Context, code string, when time.Time) error {
	err := c.next.RecordAccess(ctx, code, when)
	if errors.Is(err, models.ErrNotFound) {
		// ссылка исчезла или выключена, кэш устарел
		c.drop(ctx, code)
	}
	return err
}

func (c *RedisCache) GetStats(ctx context.Context, code string) (models.LinkStats, error) {
	return c.next.GetStats(ctx, code)
}

func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.next.Ping(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping failed: %w", models.ErrStoreUnavailable, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

func (c *RedisCache) put(ctx context.Context, link models.ShortLink) {
	ttl := c.ttl
	if link.ExpiresAt != nil {
		left := link.ExpiresAt.Sub(c.now())
		if left <= 0 {
			return
		}
		if ttl <= 0 || left < ttl {
			ttl = left
		}
	}

	data, err := json.Marshal(fromLink(link))
	if err != nil {
		c.log.Warn().Err(err).Str("short_code", link.ShortCode).Msg("failed to encode cache entry")
		return
	}
	if err := c.rdb.Set(ctx, key(link.ShortCode), data, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("short_code", link.ShortCode).Msg("redis set failed")
	}
}

func (c *RedisCache) drop(ctx context.Context, code string) {
	if err := c.rdb.Del(ctx, key(code)).Err(); err != nil {
		c.log.Warn().Err(err).Str("short_code", code).Msg("redis del failed")
	}
}

func key(code string) string {
	return keyPrefix + code
}

func fromLink(link models.ShortLink) cachedLink {
	return cachedLink{
		ID:          link.ID,
		OriginalURL: link.OriginalURL,
		ShortCode:   link.ShortCode,
		CreatedAt:   link.CreatedAt,
		IsActive:    link.IsActive,
		CustomAlias: link.CustomAlias,
		ExpiresAt:   link.ExpiresAt,
	}
}

func (c cachedLink) toLink() models.ShortLink {
	return models.ShortLink{
		ID:           c.ID,
		OriginalURL:  c.OriginalURL,
		ShortCode:    c.ShortCode,
		CreatedAt:    c.CreatedAt,
		IsActive:     c.IsActive,
		CustomAlias:  c.CustomAlias,
		ExpiresAt:    c.ExpiresAt,
		ClicksByDate: map[string]int64{},
	}
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jaume768/splashmy/internal/domain"
	"github.com/jaume768/splashmy/internal/infra"
)

const defaultTTL = 5 * time.Minute

// CachedStyleRepository decorates a StyleRepository with a Redis read-through
// cache. The catalog is read-mostly, so a short TTL is enough; any cache
// failure falls through to the database.
type CachedStyleRepository struct {
	inner  domain.StyleRepository
	rdb    *redis.Client
	ttl    time.Duration
	logger infra.Logger
}

// NewCachedStyleRepository wraps inner with a Redis cache. redisURL follows
// the redis:// URL scheme; an empty URL returns inner unchanged.
func NewCachedStyleRepository(inner domain.StyleRepository, redisURL string, logger infra.Logger) (domain.StyleRepository, error) {
	if redisURL == "" {
		return inner, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &CachedStyleRepository{
		inner:  inner,
		rdb:    redis.NewClient(opts),
		ttl:    defaultTTL,
		logger: logger,
	}, nil
}

func (c *CachedStyleRepository) ListCategories(ctx context.Context) ([]domain.StyleCategory, error) {
	var cached []domain.StyleCategory
	if c.lookup(ctx, "styles:categories", &cached) {
		return cached, nil
	}
	categories, err := c.inner.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, "styles:categories", categories)
	return categories, nil
}

func (c *CachedStyleRepository) ListActive(ctx context.Context, categorySlug string) ([]domain.Style, error) {
	key := "styles:active:" + categorySlug
	var cached []domain.Style
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}
	styles, err := c.inner.ListActive(ctx, categorySlug)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, styles)
	return styles, nil
}

func (c *CachedStyleRepository) ListPopular(ctx context.Context, limit int) ([]domain.Style, error) {
	key := fmt.Sprintf("styles:popular:%d", limit)
	var cached []domain.Style
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}
	styles, err := c.inner.ListPopular(ctx, limit)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, styles)
	return styles, nil
}

func (c *CachedStyleRepository) GetByID(ctx context.Context, id string) (*domain.Style, error) {
	key := "styles:id:" + id
	var cached domain.Style
	if c.lookup(ctx, key, &cached) {
		return &cached, nil
	}
	style, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, style)
	return style, nil
}

func (c *CachedStyleRepository) lookup(ctx context.Context, key string, out any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("style cache: lookup failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("style cache: corrupt entry")
		return false
	}
	return true
}

func (c *CachedStyleRepository) store(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("style cache: store failed")
	}
}

var _ domain.StyleRepository = (*CachedStyleRepository)(nil)

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"MiCiudadSV/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	DirectoryKeyPrefix = "community:list"
	DefaultCacheTTL    = 30 * time.Second
)

// DirectoryCache holds the public community list, one key per sort order.
type DirectoryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDirectoryCache(rdb *redis.Client, ttl time.Duration) *DirectoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &DirectoryCache{rdb: rdb, ttl: ttl}
}

func directoryKey(ascending bool) string {
	if ascending {
		return DirectoryKeyPrefix + ":asc"
	}
	return DirectoryKeyPrefix + ":desc"
}

// Get reports false on a miss.
func (c *DirectoryCache) Get(ctx context.Context, ascending bool) ([]model.CommunitySummary, bool, error) {
	val, err := c.rdb.Get(ctx, directoryKey(ascending)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var list []model.CommunitySummary
	if err := json.Unmarshal(val, &list); err != nil {
		return nil, false, err
	}
	return list, true, nil
}

func (c *DirectoryCache) Set(ctx context.Context, ascending bool, list []model.CommunitySummary) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, directoryKey(ascending), b, c.ttl).Err()
}

// Invalidate drops both orderings.
func (c *DirectoryCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, directoryKey(false), directoryKey(true)).Err()
}

package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"CoinSentinel/internal/model"
)

// CachingFetcher decorates a Fetcher with a Redis cache of whole histories.
type CachingFetcher struct {
	inner     Fetcher
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCachingFetcher wraps inner. A nil rdb disables caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "history".
func NewCachingFetcher(rdb *redis.Client, ttl time.Duration, inner Fetcher, namespace string) *CachingFetcher {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "history"
	}
	return &CachingFetcher{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

func (c *CachingFetcher) Name() string { return c.inner.Name() }

// FetchHistory serves from Redis when possible and stores misses.
// Cache failures never fail the call.
func (c *CachingFetcher) FetchHistory(ctx context.Context, asset string, days int) (*model.PriceHistory, error) {
	if c.rdb == nil {
		return c.inner.FetchHistory(ctx, asset, days)
	}

	key := c.cacheKey(asset, days)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var h model.PriceHistory
		if err := json.Unmarshal(b, &h); err == nil {
			return &h, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	h, err := c.inner.FetchHistory(ctx, asset, days)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(h); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	return h, nil
}

// Invalidate drops the cached histories of one asset for every window size.
func (c *CachingFetcher) Invalidate(ctx context.Context, asset string) error {
	if c.rdb == nil {
		return nil
	}
	pattern := fmt.Sprintf("%s:%s:%s:*", c.namespace, safe(c.inner.Name()), safe(asset))
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (c *CachingFetcher) cacheKey(asset string, days int) string {
	return fmt.Sprintf("%s:%s:%s:%d", c.namespace, safe(c.inner.Name()), safe(asset), days)
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}

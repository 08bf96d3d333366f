package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const listingPrefix = "property:"

// ListingCache stores serialized listing pages keyed by their normalized query.
type ListingCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewListingCache(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *ListingCache {
	return &ListingCache{rdb: rdb, ttl: ttl, log: log}
}

// Key is independent of parameter and value order.
func (c *ListingCache) Key(scope string, queryParams url.Values) string {
	keys := make([]string, 0, len(queryParams))
	for k := range queryParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(scope)
	sb.WriteString(":")

	for _, key := range keys {
		values := append([]string(nil), queryParams[key]...)
		sort.Strings(values)
		for _, val := range values {
			sb.WriteString(key)
			sb.WriteString("=")
			sb.WriteString(val)
			sb.WriteString("&")
		}
	}
	rawKey := strings.TrimSuffix(sb.String(), "&")

	sum := sha256.Sum256([]byte(rawKey))
	return listingPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached payload and whether it was a hit. Redis failures count as misses.
func (c *ListingCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		c.log.Debug("listing cache hit", zap.String("key", key))
		return data, true
	}
	if !errors.Is(err, redis.Nil) {
		c.log.Warn("listing cache get failed", zap.String("key", key), zap.Error(err))
	}
	return nil, false
}

func (c *ListingCache) Set(ctx context.Context, key string, payload []byte) {
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Warn("failed to cache listing page", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every cached listing page.
func (c *ListingCache) Invalidate(ctx context.Context) (int, error) {
	const scanPattern = listingPrefix + "*"
	const scanCount = 100

	var keysToDelete []string
	var cursor uint64
	for {
		currentKeys, next, err := c.rdb.Scan(ctx, cursor, scanPattern, scanCount).Result()
		if err != nil {
			return 0, err
		}
		keysToDelete = append(keysToDelete, currentKeys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if len(keysToDelete) == 0 {
		return 0, nil
	}

	pipe := c.rdb.Pipeline()
	for _, key := range keysToDelete {
		pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(keysToDelete), nil
}

// InvalidateAsync runs Invalidate in the background so listing writes do not wait on Redis.
func (c *ListingCache) InvalidateAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n, err := c.Invalidate(ctx)
		if err != nil {
			c.log.Error("listing cache invalidation failed", zap.Error(err))
			return
		}
		c.log.Debug("listing cache invalidated", zap.Int("keys", n))
	}()
}

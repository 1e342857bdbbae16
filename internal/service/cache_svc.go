package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Blocked-account sets change rarely relative to listing traffic, and listing
// reads already tolerate skew against concurrent writes, so a short TTL is
// enough.
const BlocklistCacheTTL = time.Minute

// CacheService provides a Redis cache-aside layer for blocked-account-id sets.
type CacheService struct {
	rdb    *redis.Client
	hits   prometheus.Counter
	misses prometheus.Counter
}

// NewCacheService creates a new CacheService. If redisURL is empty or the
// connection fails, it returns a CacheService with a nil client (cache
// operations become no-ops).
func NewCacheService(redisURL string) *CacheService {
	if redisURL == "" {
		log.Println("redis: no URL configured, caching disabled")
		return &CacheService{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("redis: invalid URL %q, caching disabled: %v", redisURL, err)
		return &CacheService{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis: connection failed, caching disabled: %v", err)
		return &CacheService{}
	}

	log.Println("redis: connected, caching enabled")
	return &CacheService{rdb: rdb}
}

// SetCounters wires the hit/miss collectors registered by the metrics layer.
func (c *CacheService) SetCounters(hits, misses prometheus.Counter) {
	c.hits = hits
	c.misses = misses
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// GetBlocklist retrieves a cached blocked-account-id set. The second return is
// false on a miss or when caching is disabled; an empty cached set is a hit.
func (c *CacheService) GetBlocklist(ctx context.Context, operatorAccountID int64, userAccountID *int64) ([]int64, bool, error) {
	if c.rdb == nil {
		return nil, false, nil
	}
	data, err := c.rdb.Get(ctx, blocklistKey(operatorAccountID, userAccountID)).Bytes()
	if err == redis.Nil {
		if c.misses != nil {
			c.misses.Inc()
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false, err
	}
	if c.hits != nil {
		c.hits.Inc()
	}
	return ids, true, nil
}

// SetBlocklist stores a blocked-account-id set.
func (c *CacheService) SetBlocklist(ctx context.Context, operatorAccountID int64, userAccountID *int64, ids []int64) error {
	if c.rdb == nil {
		return nil
	}
	if ids == nil {
		ids = []int64{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, blocklistKey(operatorAccountID, userAccountID), data, BlocklistCacheTTL).Err()
}

// InvalidateBlocklist removes a cached set (called after block/unblock writes).
func (c *CacheService) InvalidateBlocklist(ctx context.Context, operatorAccountID int64, userAccountID *int64) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, blocklistKey(operatorAccountID, userAccountID)).Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func blocklistKey(operatorAccountID int64, userAccountID *int64) string {
	user := int64(0)
	if userAccountID != nil {
		user = *userAccountID
	}
	return fmt.Sprintf("blocklist:%d:%d", operatorAccountID, user)
}

package storage

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"shareboard/core"
)

// ViewCache keeps users' merged board views in Redis between mutations. A nil
// client or zero TTL disables writes, so callers can wire it unconditionally.
type ViewCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewViewCache creates a ViewCache over the given Redis client and TTL.
func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	if ttl < 0 {
		ttl = 0
	}
	return &ViewCache{redis: client, ttl: ttl}
}

func (c *ViewCache) Get(ctx context.Context, userID int64) ([]core.BoardView, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, viewsCacheKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall through to the database without failing.
			_ = c.redis.Del(ctx, viewsCacheKey(userID)).Err()
		}
		return nil, false
	}
	var views []core.BoardView
	if err := json.Unmarshal(data, &views); err != nil {
		_ = c.redis.Del(ctx, viewsCacheKey(userID)).Err()
		return nil, false
	}
	return views, true
}

func (c *ViewCache) Set(ctx context.Context, userID int64, views []core.BoardView) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(views)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, viewsCacheKey(userID), data, c.ttl).Err()
}

func (c *ViewCache) Invalidate(ctx context.Context, userIDs ...int64) {
	if c.redis == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = viewsCacheKey(id)
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func viewsCacheKey(userID int64) string {
	return "views:" + strconv.FormatInt(userID, 10)
}

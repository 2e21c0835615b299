package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"eventsphere/internal/logger"
	"eventsphere/internal/models"
)

// BoothCache keeps the public per-expo booth list. Every error degrades to a
// cache miss.
type BoothCache struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewBoothCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *BoothCache {
	return &BoothCache{Client: client, TTL: ttl, Logger: log}
}

func (c *BoothCache) enabled() bool {
	return c != nil && c.Client != nil && c.TTL > 0
}

func cacheKey(expoID string) string {
	return "booths:expo:" + expoID
}

func (c *BoothCache) Get(ctx context.Context, expoID string) ([]models.Booth, bool) {
	if !c.enabled() {
		return nil, false
	}
	raw, err := c.Client.Get(ctx, cacheKey(expoID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.Logger.Warn("CACHE", fmt.Sprintf("Get booths for expo %s: %v", expoID, err))
		}
		return nil, false
	}
	var booths []models.Booth
	if err := json.Unmarshal(raw, &booths); err != nil {
		c.Logger.Warn("CACHE", fmt.Sprintf("Corrupt booth list for expo %s: %v", expoID, err))
		return nil, false
	}
	return booths, true
}

func (c *BoothCache) Set(ctx context.Context, expoID string, booths []models.Booth) {
	if !c.enabled() {
		return
	}
	raw, err := json.Marshal(booths)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, cacheKey(expoID), raw, c.TTL).Err(); err != nil {
		c.Logger.Warn("CACHE", fmt.Sprintf("Set booths for expo %s: %v", expoID, err))
	}
}

func (c *BoothCache) Invalidate(ctx context.Context, expoID string) {
	if !c.enabled() {
		return
	}
	if err := c.Client.Del(ctx, cacheKey(expoID)).Err(); err != nil {
		c.Logger.Warn("CACHE", fmt.Sprintf("Invalidate booths for expo %s: %v", expoID, err))
	}
}

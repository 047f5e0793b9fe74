package cache

import (
	"clipshelf/internal/config"
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect opens the shared redis client. Redis being down is not fatal:
// callers get a nil client and every cache operation becomes a no-op.
func Connect() *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: config.AppConfig.RedisAddress,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		log.Println("Redis not available. Running without Redis.")
		return nil
	}

	log.Println("Redis connected successfully.")
	return client
}

// Cache is a thin versioned-key JSON cache. Listing endpoints cache under a
// key that embeds a per-user version counter; mutations bump the counter so
// stale entries simply stop being referenced and age out via TTL.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}

	raw, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("[CACHE] failed to marshal %s: %v", key, err)
		return
	}

	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Printf("[CACHE] failed to set %s: %v", key, err)
	}
}

func (c *Cache) GetVersion(ctx context.Context, key string) int64 {
	if c == nil || c.client == nil {
		return 0
	}

	v, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return v
}

func (c *Cache) IncrementVersion(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}

	if err := c.client.Incr(ctx, key).Err(); err != nil {
		log.Printf("[CACHE] failed to bump version %s: %v", key, err)
	}
}

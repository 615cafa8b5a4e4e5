package pageaccess

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const cacheKeyPrefix = "pageaccess:"

type redisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (r *redisCache) key(pageID int) string {
	return cacheKeyPrefix + strconv.Itoa(pageID)
}

// Get treats any Redis failure as a miss.
func (r *redisCache) Get(ctx context.Context, pageID int) (bool, bool) {
	val, err := r.client.Get(ctx, r.key(pageID)).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

func (r *redisCache) Set(ctx context.Context, pageID int, ttl time.Duration) {
	r.client.Set(ctx, r.key(pageID), "1", ttl)
}

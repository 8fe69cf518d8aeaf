package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
)

// DefaultUserCacheTTL is how long a resolved caller stays in the cache.
const DefaultUserCacheTTL = 5 * time.Minute

const userKeyPrefix = "address-book:user:"

// UserCache keeps resolved callers in Redis so that authenticated requests do not need a
// database round trip. The password hash is never part of a cached user.
type UserCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUserCache connects to the Redis server at the given URL, e.g. redis://localhost:6379/0.
func NewUserCache(redisURL string, ttl time.Duration) (*UserCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("auth: parsing redis url: %w", err)
	}
	return NewUserCacheWithClient(redis.NewClient(opts), ttl), nil
}

func NewUserCacheWithClient(client *redis.Client, ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = DefaultUserCacheTTL
	}
	return &UserCache{client: client, ttl: ttl}
}

// Get returns the cached user. The boolean is false on a cache miss.
func (c *UserCache) Get(ctx context.Context, id int64) (model.User, bool, error) {
	data, err := c.client.Get(ctx, userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, fmt.Errorf("auth: reading cached user %d: %w", id, err)
	}
	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return model.User{}, false, fmt.Errorf("auth: decoding cached user %d: %w", id, err)
	}
	return user, true, nil
}

// Set stores the user until the cache TTL expires.
func (c *UserCache) Set(ctx context.Context, user model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("auth: encoding user %d: %w", user.ID, err)
	}
	if err := c.client.Set(ctx, userKey(user.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("auth: caching user %d: %w", user.ID, err)
	}
	return nil
}

// Delete drops the cached user. A user that is not cached is no error.
func (c *UserCache) Delete(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, userKey(id)).Err(); err != nil {
		return fmt.Errorf("auth: dropping cached user %d: %w", id, err)
	}
	return nil
}

// Ping checks the connection to Redis.
func (c *UserCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *UserCache) Close() error {
	return c.client.Close()
}

func userKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}

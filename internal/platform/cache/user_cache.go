package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fintrack/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const keyUserByUsername = "user:username:"

// UserCache keeps resolved accounts in Redis so authenticated requests skip
// the credential lookup. Accounts are immutable, so entries only expire.
type UserCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewUserCache returns a new UserCache. A zero ttl disables caching.
func NewUserCache(rdb *redis.Client, ttl time.Duration) *UserCache {
	return &UserCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached user or nil on a miss.
func (c *UserCache) Get(ctx context.Context, username string) (*model.User, error) {
	if c.ttl <= 0 {
		return nil, nil
	}
	b, err := c.rdb.Get(ctx, keyUserByUsername+username).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user := &model.User{}
	if err := json.Unmarshal(b, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Set stores user under its username. model.User never serialises its
// password digest, so only the identity is cached.
func (c *UserCache) Set(ctx context.Context, user *model.User) error {
	if c.ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyUserByUsername+user.Username, b, c.ttl).Err()
}

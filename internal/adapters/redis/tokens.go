package redisad

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"swipestay/internal/adapters/observability"
)

// DefaultTokenKey is shared by every replica so one authentication serves them all.
const DefaultTokenKey = "easygds_jwt"

// TokenStore keeps the upstream bearer token under a single key with a TTL,
// so at most one token is cached at a time and redis expires it for us.
type TokenStore struct {
	c   *redis.Client
	key string
}

func New(addr, pass string, db int) *TokenStore {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), DefaultTokenKey)
}

func NewWithClient(c *redis.Client, key string) *TokenStore {
	if key == "" {
		key = DefaultTokenKey
	}
	return &TokenStore{c: c, key: key}
}

func (r *TokenStore) Get(ctx context.Context) (string, bool, error) {
	v, err := r.c.Get(ctx, r.key).Result()
	if err == redis.Nil {
		observability.ObserveCache("redis", "miss")
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if v == "" {
		observability.ObserveCache("redis", "miss")
		return "", false, nil
	}
	observability.ObserveCache("redis", "hit")
	return v, true, nil
}

func (r *TokenStore) Set(ctx context.Context, token string, ttl time.Duration) error {
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, r.key, token, ttl).Err()
}

func (r *TokenStore) Del(ctx context.Context) error {
	observability.ObserveCache("redis", "del")
	return r.c.Del(ctx, r.key).Err()
}

func (r *TokenStore) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *TokenStore) Close() error { return r.c.Close() }

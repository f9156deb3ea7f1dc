package tokenstore

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key used when none is configured.
const DefaultRedisKey = "authclient:session:token"

// RedisOption customizes a Redis store.
type RedisOption func(*Redis)

// WithRedisKey overrides the key holding the token.
func WithRedisKey(key string) RedisOption {
	return func(r *Redis) {
		if key != "" {
			r.key = key
		}
	}
}

// WithRedisTTL expires the key after ttl. Zero keeps it until removed.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl >= 0 {
			r.ttl = ttl
		}
	}
}

// Redis stores the token under a single key.
type Redis struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewRedis returns a store using client.
func NewRedis(client redis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{client: client, key: DefaultRedisKey}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Key returns the redis key holding the token.
func (r *Redis) Key() string {
	return r.key
}

// Get implements authclient.TokenStore.
func (r *Redis) Get(ctx context.Context) (string, bool, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, goerrors.Wrap(err, goerrors.CategoryInternal, "redis token get failed").
			WithMetadata(map[string]any{"key": r.key})
	}
	return token, token != "", nil
}

// Set implements authclient.TokenStore.
func (r *Redis) Set(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key, token, r.ttl).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "redis token set failed").
			WithMetadata(map[string]any{"key": r.key})
	}
	return nil
}

// Remove implements authclient.TokenStore.
func (r *Redis) Remove(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "redis token delete failed").
			WithMetadata(map[string]any{"key": r.key})
	}
	return nil
}

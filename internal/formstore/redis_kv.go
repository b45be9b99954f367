package formstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisKV keeps the collection in a single redis string.
type RedisKV struct {
	client redis.Cmdable
	prefix string
}

func NewRedisKV(client redis.Cmdable, prefix string) *RedisKV {
	return &RedisKV{client: client, prefix: prefix}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set writes without expiration; submissions live until deleted.
func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *RedisKV) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

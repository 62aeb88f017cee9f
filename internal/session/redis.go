package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores session keys in Redis under a namespace.
type RedisBackend struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisBackend constructs a backend. A zero ttl keeps keys without expiry.
func NewRedisBackend(client *redis.Client, namespace string, ttl time.Duration) *RedisBackend {
	if namespace == "" {
		namespace = "default"
	}
	return &RedisBackend{client: client, namespace: namespace, ttl: ttl}
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.redisKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrKeyNotFound
		}
		return "", err
	}
	return v, nil
}

func (r *RedisBackend) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.redisKey(key), value, r.ttl).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, r.redisKey(k))
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (r *RedisBackend) redisKey(key string) string {
	return "propdesk:session:" + r.namespace + ":" + key
}

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores keys under a namespace so several clients can share one server.
type Redis struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedis returns a redis-backed store. ttl of zero keeps keys forever.
func NewRedis(client *redis.Client, namespace string, ttl time.Duration) *Redis {
	return &Redis{client: client, namespace: namespace, ttl: ttl}
}

func (r *Redis) key(key string) string {
	if r.namespace == "" {
		return fmt.Sprintf("kv:%s", key)
	}
	return fmt.Sprintf("kv:%s:%s", r.namespace, key)
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.key(key), value, r.ttl).Err()
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

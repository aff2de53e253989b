package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/coachwizard/internal/session"
	"github.com/redis/go-redis/v9"
)

// Redis keeps each namespace in one hash at <prefix>:session:<namespace>.
// Keys never expire; start-over deletes the hash.
type Redis struct {
	client *redis.Client
	prefix string
}

// Compile-time check: *Redis satisfies session.Factory.
var _ session.Factory = (*Redis)(nil)

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts *redis.Options, prefix string) (*Redis, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	if prefix == "" {
		prefix = "coachwizard"
	}
	return &Redis{client: client, prefix: prefix}, nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Scope returns the session store for one namespace.
func (r *Redis) Scope(namespace string) session.Store {
	return &redisStore{client: r.client, key: r.prefix + ":session:" + namespace}
}

type redisStore struct {
	client *redis.Client
	key    string
}

func (s *redisStore) Get(ctx context.Context, field string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", field, err)
	}
	return v, true, nil
}

func (s *redisStore) Set(ctx context.Context, field, value string) error {
	if err := s.client.HSet(ctx, s.key, field, value).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", field, err)
	}
	return nil
}

func (s *redisStore) Replace(ctx context.Context, kv map[string]string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(kv) > 0 {
			args := make([]any, 0, 2*len(kv))
			for field, value := range kv {
				args = append(args, field, value)
			}
			pipe.HSet(ctx, s.key, args...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis replace: %w", err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "leadflow"

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects lazily; the first command surfaces connection errors.
func NewRedisStore(dsn string) (*RedisStore, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse redis dsn: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func redisKey(tenant, key string) string {
	return fmt.Sprintf("%s:{%s}:%s", redisKeyPrefix, tenant, key)
}

func (s *RedisStore) Read(ctx context.Context, tenant, key string) ([]byte, bool, error) {
	if err := checkKey(tenant, key); err != nil {
		return nil, false, err
	}
	data, err := s.client.Get(ctx, redisKey(tenant, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *RedisStore) Write(ctx context.Context, tenant, key string, data []byte) error {
	if err := checkKey(tenant, key); err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(tenant, key), data, 0).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

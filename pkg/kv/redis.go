package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store in one redis hash. Each device names its own hash so the
// checkpoint stays per installation when several devices share a server.
type Redis struct {
	rdb *redis.Client
	key string
}

var _ Store = (*Redis)(nil)

// NewRedis returns a Store in the hash prefix+"kv:"+device.
func NewRedis(client *redis.Client, prefix, device string) *Redis {
	if device == "" {
		device = "default"
	}
	return &Redis{rdb: client, key: prefix + "kv:" + device}
}

func (s *Redis) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	v, err := s.rdb.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv: hget %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Redis) SetItem(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, s.key, key, value).Err(); err != nil {
		return fmt.Errorf("kv: hset %s: %w", key, err)
	}
	return nil
}

func (s *Redis) RemoveItem(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.rdb.HDel(ctx, s.key, key).Err(); err != nil {
		return fmt.Errorf("kv: hdel %s: %w", key, err)
	}
	return nil
}

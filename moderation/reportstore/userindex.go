package reportstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisUserIndex maintains the secondary index user → report paths,
// appended on every Put. It replaces the legacy scan-and-filter behavior of
// ListByUser; the scan remains only as a fallback when Redis is not
// configured.
type RedisUserIndex struct {
	rdb *redis.Client
}

func NewRedisUserIndex(redisURL string) (*RedisUserIndex, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisUserIndex{rdb: rdb}, nil
}

func userReportsKey(uid int64) string {
	return fmt.Sprintf("safespace/user-reports/%d", uid)
}

func (i *RedisUserIndex) Add(ctx context.Context, uid int64, path string) error {
	return i.rdb.RPush(ctx, userReportsKey(uid), path).Err()
}

func (i *RedisUserIndex) List(ctx context.Context, uid int64, limit int) ([]string, error) {
	end := int64(-1)
	if limit > 0 {
		end = int64(limit) - 1
	}
	paths, err := i.rdb.LRange(ctx, userReportsKey(uid), 0, end).Result()
	if err != nil {
		return nil, fmt.Errorf("reading user report index: %w", err)
	}
	return paths, nil
}

func (i *RedisUserIndex) Close() error {
	return i.rdb.Close()
}

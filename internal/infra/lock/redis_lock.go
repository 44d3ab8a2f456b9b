package lock

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "medreminder:tick:"

// setNXer is the part of redis.Cmdable the lock uses.
type setNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisTickLock claims a tick minute with SET NX so only one replica runs it.
type RedisTickLock struct {
	client setNXer
	owner  string
}

func NewRedisTickLock(client setNXer) *RedisTickLock {
	owner, _ := os.Hostname()
	return &RedisTickLock{client: client, owner: fmt.Sprintf("%s:%d", owner, os.Getpid())}
}

// Acquire returns true when this process now holds key for ttl.
func (l *RedisTickLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, keyPrefix+key, l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire tick lock %s: %w", key, err)
	}
	return ok, nil
}

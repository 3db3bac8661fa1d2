package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Locker hands out a lease on a named job so one replica runs it per interval.
type Locker interface {
	// TryLock returns ok=false without error when another holder owns the lease.
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// NoopLocker always grants the lease. Used for single-replica deployments.
type NoopLocker struct{}

func (NoopLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

// releaseScript deletes the key only while it still holds our token, so a
// lease that expired and was taken over is not released by the old holder.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a SET NX PX lease.
type RedisLocker struct {
	rdb    goredis.UniversalClient
	prefix string
}

func NewRedisLocker(rdb goredis.UniversalClient, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "programmes:lock:"
	}
	return &RedisLocker{rdb: rdb, prefix: prefix}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if l == nil || l.rdb == nil {
		return nil, false, errors.New("redis locker not initialized")
	}
	fullKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.rdb, []string{fullKey}, token).Err()
	}
	return release, true, nil
}

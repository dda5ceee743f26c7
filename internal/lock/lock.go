// Package lock provides a best-effort distributed mutex on top of Redis.
// Correctness never depends on it: every guarded operation is also protected
// by a conditional update in PostgreSQL. The lock only keeps concurrent
// callers from racing into a guaranteed conflict.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/tavola-pos/backoffice/internal/logging"
)

const defaultTTL = 30 * time.Second

// Locker obtains named locks. The returned release func is never nil.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func())
}

// Redis is a Locker backed by bsm/redislock.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
}

// Connect dials Redis and fails fast when it cannot be reached.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func NewRedis(rdb redislock.RedisClient) *Redis {
	return &Redis{client: redislock.New(rdb), ttl: defaultTTL}
}

// Acquire tries once. When the lock is held elsewhere or Redis errors, the
// caller proceeds unlocked and the database guards decide.
func (r *Redis) Acquire(ctx context.Context, key string) func() {
	l, err := r.client.Obtain(ctx, "lock:"+key, r.ttl, nil)
	if err != nil {
		entry := logging.FromContext(ctx).WithField("lock_key", key)
		if errors.Is(err, redislock.ErrNotObtained) {
			entry.Warn("could not obtain redis lock; proceeding without redis lock")
		} else {
			entry.Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
		}
		return func() {}
	}
	return func() {
		// Release with a fresh context so a cancelled request still frees the key.
		if err := l.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logging.FromContext(ctx).WithField("lock_key", key).Warn("release redis lock: " + err.Error())
		}
	}
}

// Noop is used when REDIS_ADDRESS is empty.
type Noop struct{}

func (Noop) Acquire(context.Context, string) func() { return func() {} }

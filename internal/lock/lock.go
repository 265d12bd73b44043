// Package lock provides short-lived advisory locks that keep concurrent
// edits of the same sale from racing each other across server instances.
// The store transaction remains the source of truth; a lock only reduces
// serialization failures.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrBusy = errors.New("resource is locked by another request")

type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type Noop struct{}

func (Noop) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
	log    *zap.Logger
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 10),
		log:    log,
	}
}

// Acquire returns ErrBusy when another holder keeps the key past the retry
// budget. Any other Redis failure degrades to running unlocked.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := fmt.Sprintf("upendo:lock:%s", key)
	held, err := l.client.Obtain(ctx, lockKey, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrBusy, key)
	}
	if err != nil {
		l.log.Warn("redis lock unavailable; proceeding without advisory lock", zap.String("key", key), zap.Error(err))
		return func() {}, nil
	}
	return func() {
		// The request context may already be cancelled when releasing.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := held.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn("failed to release redis lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// Package runlock keeps two monitor runs from overlapping across instances.
package runlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultKey = "lock:budget-monitor"

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Lease is a held lock. Release is safe to call more than once.
type Lease interface {
	Release(ctx context.Context) error
}

// RedisLocker hands out SET NX PX leases on a single key. Each lease carries
// its own random token so a run never deletes a lock taken over by another
// run after its TTL expired.
type RedisLocker struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

func NewRedisLocker(client redis.Cmdable, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = DefaultKey
	}
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

// TryAcquire returns (nil, nil) when the lock is held elsewhere.
func (l *RedisLocker) TryAcquire(ctx context.Context) (Lease, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, nil
	}

	return &redisLease{client: l.client, key: l.key, token: token}, nil
}

type redisLease struct {
	client redis.Cmdable
	key    string
	token  string
}

func (r *redisLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, r.client, []string{r.key}, r.token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", r.key, err)
	}
	return nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Noop always grants the lock. Used when no Redis is configured.
type Noop struct{}

func (Noop) TryAcquire(context.Context) (Lease, error) { return noopLease{}, nil }

type noopLease struct{}

func (noopLease) Release(context.Context) error { return nil }

// Package redisx wires the optional Redis client used for the sweeper lock
// and reservation event fan-out.
package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// NewClient parses a redis:// URL, connects and pings.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// Locker is a single-key lease. Only the holder's token can release it and
// the lease lapses on its own after ttl.
type Locker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewLocker(client *redis.Client, key string, ttl time.Duration) *Locker {
	return &Locker{client: client, key: key, ttl: ttl}
}

// TryLock attempts to take the lease without waiting. When acquired, the
// returned release func gives it back.
func (l *Locker) TryLock(ctx context.Context) (release func(context.Context) error, acquired bool, err error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return func(ctx context.Context) error {
		return l.release(ctx, token)
	}, true, nil
}

// release deletes the key only while it still carries token, so a lease that
// lapsed and was taken by another holder is left alone.
func (l *Locker) release(ctx context.Context, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
)

// RedisPropertyLocker holds a redis lock per property while its floors
// document is rewritten.
type RedisPropertyLocker struct {
	Client *redislock.Client
	TTL    time.Duration
}

func NewRedisPropertyLocker(client *redislock.Client) *RedisPropertyLocker {
	return &RedisPropertyLocker{Client: client, TTL: 10 * time.Second}
}

func (l *RedisPropertyLocker) Lock(ctx context.Context, propertyID uint) (func(), error) {
	if l == nil || l.Client == nil {
		return func() {}, errors.New("redis lock not initialized")
	}
	key := fmt.Sprintf("lock:property:%d", propertyID)
	lock, err := l.Client.Obtain(ctx, key, l.TTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 40),
	})
	if err != nil {
		return func() {}, err
	}
	return func() {
		_ = lock.Release(context.Background())
	}, nil
}

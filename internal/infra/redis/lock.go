// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pizza-order-bot/internal/domain"
)

// RedisLocker serializes work on a key across processes with SET NX and a
// token-checked delete.
type RedisLocker struct {
	client RedisClient
	ttl    time.Duration
	retry  time.Duration
	logger *zerolog.Logger
}

func NewLocker(client RedisClient, ttl time.Duration, logger *zerolog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	l := logger.With().Str("component", "RedisLocker").Logger()
	return &RedisLocker{client: client, ttl: ttl, retry: 50 * time.Millisecond, logger: &l}
}

// Lock blocks until the key is acquired or ctx is done. The returned
// function releases the lock and is safe to call more than once.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("lock attempt failed")
		}
		if ok {
			var once sync.Once
			return func() { once.Do(func() { l.unlock(key, token) }) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrLockTimeout, key, ctx.Err())
		case <-time.After(l.retry):
		}
	}
}

func (l *RedisLocker) unlock(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	released, err := l.client.DelIfEqual(ctx, key, token)
	if err != nil {
		l.logger.Error().Err(err).Str("key", key).Msg("unlock failed")
		return
	}
	if !released {
		l.logger.Warn().Str("key", key).Msg("lock expired before unlock")
	}
}

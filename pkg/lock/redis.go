// pkg/lock/redis.go
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-redis/redis/v8"
)

// releaseScript deletes the key only when it still holds our token, so a
// lock that expired and was re-acquired by another holder is never
// released by us.
const releaseScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`

// RedisLocker implements Locker with the SET NX EX pattern. The
// expiration bounds how long a crashed holder can block others.
type RedisLocker struct {
	client        *redis.Client
	expiration    time.Duration
	retryInterval time.Duration
	maxRetries    int
}

// NewRedisLocker creates a RedisLocker with sane trade-serialization
// defaults.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client:        client,
		expiration:    10 * time.Second,
		retryInterval: 50 * time.Millisecond,
		maxRetries:    40,
	}
}

// Lock acquires the key, retrying until the budget is exhausted.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}

	for i := 0; i < l.maxRetries; i++ {
		ok, err := l.client.SetNX(ctx, key, token, l.expiration).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			release := func(ctx context.Context) error {
				return l.client.Eval(ctx, releaseScript, []string{key}, token).Err()
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}
	return nil, ErrLockFailed
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

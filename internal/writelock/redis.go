package writelock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPollInterval is how often a blocked Redis or File lock retries.
const DefaultPollInterval = 50 * time.Millisecond

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by another owner is left alone.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Redis is a Backend shared by every process connected to the same server.
// The lock expires after ttl if the holder dies without releasing it.
type Redis struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	poll   time.Duration
	tokens OwnerGenerator
}

// NewRedis creates a Redis backend locking key.
func NewRedis(client redis.UniversalClient, key string, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		key:    key,
		ttl:    ttl,
		poll:   DefaultPollInterval,
		tokens: UUIDv7Generator{},
	}
}

// Key returns the Redis key used for the lock.
func (r *Redis) Key() string {
	return r.key
}

// Lock implements Backend using SET NX PX, polling until it succeeds.
func (r *Redis) Lock(ctx context.Context) (UnlockFunc, error) {
	token := r.tokens.Generate()

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis error acquiring lock %s: %w", r.key, err)
		}
		if ok {
			return onceUnlock(func(ctx context.Context) error {
				return r.client.Eval(ctx, releaseScript, []string{r.key}, token).Err()
			}), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

/**
 * @description
 * Redis-backed run lock for the direct debit tick. When the service runs as
 * more than one replica, only the instance holding the lock executes a tick;
 * the others skip it. The lock is a SET NX key with a TTL so a crashed
 * holder cannot wedge the schedule forever.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: Redis client.
 */

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const runLockKey = "directdebit:run_lock"

// RedisRunLock implements RunLock on top of a shared Redis instance.
type RedisRunLock struct {
	client *redis.Client
	ttl    time.Duration
	holder string
}

// NewRedisRunLock creates a run lock with the given TTL. The TTL must exceed
// the longest expected tick duration, otherwise a second instance could
// start mid-batch.
func NewRedisRunLock(client *redis.Client, ttl time.Duration) *RedisRunLock {
	return &RedisRunLock{
		client: client,
		ttl:    ttl,
		holder: uuid.NewString(),
	}
}

// Acquire attempts to take the lock. It returns false without error when
// another instance holds it.
func (l *RedisRunLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, runLockKey, l.holder, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring run lock: %w", err)
	}
	return ok, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Release deletes the lock, but only if this instance still holds it. A
// lock that expired and was re-acquired elsewhere is left alone.
func (l *RedisRunLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{runLockKey}, l.holder).Err(); err != nil {
		return fmt.Errorf("releasing run lock: %w", err)
	}
	return nil
}

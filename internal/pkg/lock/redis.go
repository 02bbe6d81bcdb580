package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "batch-lock:"

var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// RedisLocker keeps leases as keys with a TTL. Ownership checks run in Lua so
// a holder never extends or deletes a lease taken over by someone else.
type RedisLocker struct {
	client redis.Cmdable
}

func NewRedisLocker(client redis.Cmdable) *RedisLocker {
	return &RedisLocker{client: client}
}

func redisKey(name string) string {
	return redisKeyPrefix + name
}

// Acquire implements Locker.
func (r *RedisLocker) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, redisKey(name), owner, ttl).Result()
}

// Renew implements Locker.
func (r *RedisLocker) Renew(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	n, err := renewScript.Run(ctx, r.client, []string{redisKey(name)}, owner, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release implements Locker. A positive keepFor shortens the lease instead
// of deleting it.
func (r *RedisLocker) Release(ctx context.Context, name, owner string, keepFor time.Duration) error {
	if keepFor > 0 {
		_, err := r.Renew(ctx, name, owner, keepFor)
		return err
	}
	return releaseScript.Run(ctx, r.client, []string{redisKey(name)}, owner).Err()
}

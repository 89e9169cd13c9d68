package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLeaseKey is the redis key guarding the sweep.
const DefaultLeaseKey = "frontdesk:reminders:sweep"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLease is a SET NX PX lease keyed per process. A nil lease always acquires.
type RedisLease struct {
	client *redis.Client
	key    string
	owner  string
}

func NewRedisLease(client *redis.Client, key string) *RedisLease {
	if key == "" {
		key = DefaultLeaseKey
	}
	return &RedisLease{client: client, key: key, owner: uuid.NewString()}
}

func (l *RedisLease) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}
	ok, err := l.client.SetNX(ctx, l.key, l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reminders: acquire lease: %w", err)
	}
	return ok, nil
}

// Release drops the lease only if this process still holds it.
func (l *RedisLease) Release(ctx context.Context) error {
	if l == nil || l.client == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("reminders: release lease: %w", err)
	}
	return nil
}

var _ Lease = (*RedisLease)(nil)

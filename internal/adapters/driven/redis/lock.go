// Package redis holds the Redis-backed coordination primitives shared by
// API and worker processes
package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = "sercha-scan:lock:"

// Lock implements DistributedLock with SET NX PX. The value is an owner ID
// so only the holder can release or extend.
type Lock struct {
	client  *redis.Client
	ownerID string
}

// NewLock creates a lock with a generated owner ID (hostname:pid:random)
func NewLock(client *redis.Client) *Lock {
	hostname, _ := os.Hostname()
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return &Lock{
		client:  client,
		ownerID: fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), hex.EncodeToString(b)),
	}
}

// OwnerID identifies this holder in lock values
func (l *Lock) OwnerID() string {
	return l.ownerID
}

// Acquire takes name for ttl if nobody holds it
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockPrefix+name, l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: acquire lock %s: %w", domain.ErrServiceUnavailable, name, err)
	}
	return ok, nil
}

// compare-and-delete, compare-and-pexpire
var (
	releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)
)

// Release deletes name only if this instance holds it
func (l *Lock) Release(ctx context.Context, name string) error {
	err := releaseScript.Run(ctx, l.client, []string{lockPrefix + name}, l.ownerID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: release lock %s: %w", domain.ErrServiceUnavailable, name, err)
	}
	return nil
}

// Extend renews name for ttl. Returns domain.ErrNotFound if this instance
// does not hold it.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{lockPrefix + name}, l.ownerID, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("%w: extend lock %s: %w", domain.ErrServiceUnavailable, name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: lock %s not held by %s", domain.ErrNotFound, name, l.ownerID)
	}
	return nil
}

// Ping checks if Redis is reachable
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

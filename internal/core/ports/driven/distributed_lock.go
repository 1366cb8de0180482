package driven

import (
	"context"
	"time"
)

// DistributedLock provides named locks shared by every process working on
// one workspace. Workers use it so a document is exported by one process at
// a time.
type DistributedLock interface {
	// Acquire tries to take name for ttl. Returns false without error if
	// another holder has it. Locks are not reentrant.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives up name if this instance holds it. Safe to call when the
	// lock is not held or has expired.
	Release(ctx context.Context, name string) error

	// Extend renews the TTL of a lock held by this instance
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy
	Ping(ctx context.Context) error
}

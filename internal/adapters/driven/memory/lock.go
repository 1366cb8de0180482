package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// Lock is a process-local DistributedLock. Each Lock value is one holder;
// holders sharing a LockTable contend for the same names.
type Lock struct {
	table *LockTable
	owner string
}

// LockTable stores lock expiry per name
type LockTable struct {
	mu    sync.Mutex
	locks map[string]lease
	now   func() time.Time
}

type lease struct {
	owner   string
	expires time.Time
}

// NewLockTable creates an empty table
func NewLockTable() *LockTable {
	return &LockTable{locks: make(map[string]lease), now: time.Now}
}

// Holder returns a lock that acquires names in t on behalf of owner
func (t *LockTable) Holder(owner string) *Lock {
	return &Lock{table: t, owner: owner}
}

// NewLock creates a single-holder lock over a private table
func NewLock() *Lock {
	return NewLockTable().Holder(domain.GenerateID())
}

// Acquire takes name for ttl if it is free or expired
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	t := l.table
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if cur, ok := t.locks[name]; ok && now.Before(cur.expires) {
		return false, nil
	}
	t.locks[name] = lease{owner: l.owner, expires: now.Add(ttl)}
	return true, nil
}

// Release frees name if l holds it
func (l *Lock) Release(ctx context.Context, name string) error {
	t := l.table
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.locks[name]; ok && cur.owner == l.owner {
		delete(t.locks, name)
	}
	return nil
}

// Extend renews a lease held by l
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	t := l.table
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	cur, ok := t.locks[name]
	if !ok || cur.owner != l.owner || !now.Before(cur.expires) {
		return fmt.Errorf("%w: lock %s not held by %s", domain.ErrNotFound, name, l.owner)
	}
	t.locks[name] = lease{owner: l.owner, expires: now.Add(ttl)}
	return nil
}

// Ping always succeeds
func (l *Lock) Ping(ctx context.Context) error {
	return nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/loqui-app/news-harvester/app/store"
)

// ErrLockLost means the lock lease expired or another owner took over while
// a cycle was running. The cycle must stop launching new work.
var ErrLockLost = errors.New("cycle lock lost")

const lockKey = "cycle:lock"

// CycleLock is the cluster-wide mutual exclusion guard around acquisition
// cycles. The lock is a single store key holding the owner token with the
// lease as TTL, so a crashed holder frees the lock by expiry instead of
// blocking cycles forever.
type CycleLock struct {
	store store.Store
	lease time.Duration
}

func NewCycleLock(s store.Store, lease time.Duration) *CycleLock {
	return &CycleLock{store: s, lease: lease}
}

// Acquire attempts to take the lock. ok is false when another holder has it;
// that is a normal skip condition, not an error.
func (l *CycleLock) Acquire(ctx context.Context) (string, bool, error) {
	token := uuid.NewString()

	ok, err := l.store.SetNX(ctx, lockKey, token, l.lease)
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire cycle lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

// Renew extends the lease while the caller still owns the lock. Returns
// ErrLockLost when the lease already expired or the lock changed hands.
func (l *CycleLock) Renew(ctx context.Context, token string) error {
	ok, err := l.store.SetIfEquals(ctx, lockKey, token, l.lease)
	if err != nil {
		return fmt.Errorf("failed to renew cycle lock: %w", err)
	}
	if !ok {
		return ErrLockLost
	}
	return nil
}

// Release drops the lock if the caller still owns it. Releasing an already
// expired lock returns ErrLockLost; another owner's lock is never deleted.
func (l *CycleLock) Release(ctx context.Context, token string) error {
	ok, err := l.store.DelIfEquals(ctx, lockKey, token)
	if err != nil {
		return fmt.Errorf("failed to release cycle lock: %w", err)
	}
	if !ok {
		return ErrLockLost
	}
	return nil
}

func (l *CycleLock) Lease() time.Duration {
	return l.lease
}

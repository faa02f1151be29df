package lock

import (
	"context"
)

// Handle represents an acquired lock. Release must be called exactly once.
type Handle interface {
	Release(ctx context.Context) error
}

// Provider is a named mutual exclusion primitive usable across processes.
// Acquisition is fair: callers are granted the lock in request order.
type Provider interface {
	// TryAcquireFair blocks until the named lock is granted or ctx is done.
	TryAcquireFair(ctx context.Context, key string) (Handle, error)
}

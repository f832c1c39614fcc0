package store

import (
	"context"
	"time"

	"github.com/gofrs/flock"
)

// FileLock guards a database file against other processes. Readers take a
// shared lock, writers an exclusive one.
type FileLock interface {
	// TryLockContext retries acquiring the exclusive lock every retryInterval
	// until it succeeds or ctx ends.
	TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error)

	// TryRLockContext is TryLockContext for the shared lock.
	TryRLockContext(ctx context.Context, retryInterval time.Duration) (bool, error)

	// Unlock releases whichever lock is held.
	Unlock() error
}

// FileLockFactory creates the FileLock for a lock file path.
type FileLockFactory interface {
	New(path string) FileLock
}

// FlockFactory creates locks backed by github.com/gofrs/flock.
type FlockFactory struct{}

// New implements FileLockFactory.New
func (FlockFactory) New(path string) FileLock {
	return flock.New(path)
}

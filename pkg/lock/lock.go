// pkg/lock/lock.go
package lock

import (
	"context"
	"errors"
)

// ErrLockFailed is returned when a lock could not be acquired within the
// retry budget.
var ErrLockFailed = errors.New("failed to acquire lock")

// Locker serializes access to a shared resource across processes.
// Lock blocks until the key is held or the budget is exhausted and
// returns a release function.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(context.Context) error, err error)
}

// NopLocker is a Locker that never blocks. It is used when no Redis
// backend is configured; trades then rely solely on the versioned
// conditional write for consistency.
type NopLocker struct{}

func (NopLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

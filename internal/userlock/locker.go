// Package userlock serializes operations that must not interleave for the
// same key, such as index-addressed deletes for one user.
package userlock

import (
	"context"
	"errors"
)

// ErrLockTimeout is returned when a lock could not be acquired before the
// context was done.
var ErrLockTimeout = errors.New("userlock: timed out waiting for lock")

// Locker acquires an exclusive lock for a key.
type Locker interface {
	// Lock blocks until the key is held or ctx is done.
	// The returned unlock function must be called exactly once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

package writelock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotHeld is returned when releasing a lock that is not held.
var ErrNotHeld = errors.New("write lock not held")

// UnlockFunc releases a lock obtained from a Backend.
type UnlockFunc func(ctx context.Context) error

// Backend acquires an exclusive lock. Lock blocks until the lock is
// acquired or ctx is done.
type Backend interface {
	Lock(ctx context.Context) (UnlockFunc, error)
}

// Local is an in-process Backend.
type Local struct {
	sem chan struct{}
}

// NewLocal creates an unlocked in-process backend.
func NewLocal() *Local {
	return &Local{sem: make(chan struct{}, 1)}
}

// Lock implements Backend.
func (l *Local) Lock(ctx context.Context) (UnlockFunc, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return onceUnlock(func(context.Context) error {
		<-l.sem
		return nil
	}), nil
}

// onceUnlock makes a second call of fn report ErrNotHeld instead of
// releasing someone else's lock.
func onceUnlock(fn UnlockFunc) UnlockFunc {
	var once sync.Once
	return func(ctx context.Context) error {
		err := ErrNotHeld
		once.Do(func() { err = fn(ctx) })
		return err
	}
}

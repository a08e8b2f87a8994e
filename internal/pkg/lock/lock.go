// Package lock provides in-process per-user locks that serialize balance
// mutations before they reach the database.
package lock

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a lock cannot be acquired in time.
var ErrLockTimeout = errors.New("lock acquisition timeout")

type entry struct {
	// sem is a one-slot semaphore; a channel lets waiters give up on a context.
	sem  chan struct{}
	refs int
}

// UserLock hands out one lock per user id. Entries are dropped once no
// goroutine holds or waits on them, so the map stays bounded by the number
// of users with in-flight operations.
type UserLock struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{entries: make(map[int64]*entry)}
}

func (ul *UserLock) acquire(userID int64) *entry {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	e, ok := ul.entries[userID]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		ul.entries[userID] = e
	}
	e.refs++
	return e
}

func (ul *UserLock) release(userID int64, e *entry) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(ul.entries, userID)
	}
}

// Lock blocks until the user's lock is held or ctx is done.
func (ul *UserLock) Lock(ctx context.Context, userID int64) error {
	e := ul.acquire(userID)
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.release(userID, e)
		return ctx.Err()
	}
}

// TryLock acquires the user's lock only if it is free.
func (ul *UserLock) TryLock(userID int64) bool {
	e := ul.acquire(userID)
	select {
	case e.sem <- struct{}{}:
		return true
	default:
		ul.release(userID, e)
		return false
	}
}

// Unlock releases a lock taken with Lock or TryLock.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	e, ok := ul.entries[userID]
	ul.mu.Unlock()
	if !ok {
		return
	}
	<-e.sem
	ul.release(userID, e)
}

// IsLocked reports whether someone currently holds the user's lock.
// The answer may be stale by the time the caller reads it.
func (ul *UserLock) IsLocked(userID int64) bool {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	e, ok := ul.entries[userID]
	return ok && len(e.sem) == 1
}

// WithLock runs fn while holding the locks of every given user. Locks are
// taken in ascending id order so two callers locking the same pair can never
// deadlock, and duplicates are locked once. A timeout of zero waits for ctx only.
func (ul *UserLock) WithLock(ctx context.Context, timeout time.Duration, fn func() error, userIDs ...int64) error {
	ids := ordered(userIDs)

	lockCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	held := make([]int64, 0, len(ids))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			ul.Unlock(held[i])
		}
	}()

	for _, id := range ids {
		if err := ul.Lock(lockCtx, id); err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return ErrLockTimeout
			}
			return err
		}
		held = append(held, id)
	}

	return fn()
}

// ordered returns ids sorted ascending without duplicates, leaving ids untouched.
func ordered(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"consultancy_backend/platform/metrics"
	"consultancy_backend/platform/redislock"
)

const runLockKey = "automation:run-lock"

// ErrAlreadyRunning is returned when another run holds the run-lock.
var ErrAlreadyRunning = errors.New("an automation run is already in progress")

// ErrLeaseLost is the cancellation cause of a run whose Redis lease expired
// or was taken while it was running.
var ErrLeaseLost = errors.New("automation run-lock lease lost")

// RunLock is shared by manual and scheduled triggers. The local flag stops
// overlap inside one process; the Redis lease, when configured, stops the
// API and scheduler processes from overlapping each other.
type RunLock struct {
	running atomic.Bool
	locker  *redislock.Locker

	mu    sync.Mutex
	lease *redislock.Lease
}

// NewRunLock creates a run-lock. locker may be nil.
func NewRunLock(locker *redislock.Locker) *RunLock {
	return &RunLock{locker: locker}
}

// Acquire takes the lock or returns ErrAlreadyRunning. The returned release
// func must be called exactly once.
func (l *RunLock) Acquire(ctx context.Context) (release func(context.Context), err error) {
	if !l.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}

	var lease *redislock.Lease
	if l.locker != nil {
		held, ok, err := l.locker.TryAcquire(ctx, runLockKey)
		if err != nil {
			l.running.Store(false)
			return nil, err
		}
		if !ok {
			l.running.Store(false)
			return nil, ErrAlreadyRunning
		}
		lease = held
	}
	l.mu.Lock()
	l.lease = lease
	l.mu.Unlock()

	metrics.AutomationRunning.Set(1)
	return func(ctx context.Context) {
		l.mu.Lock()
		l.lease = nil
		l.mu.Unlock()
		if lease != nil {
			_ = lease.Release(ctx)
		}
		metrics.AutomationRunning.Set(0)
		l.running.Store(false)
	}, nil
}

// Lost is closed when the Redis lease held by the current run is lost. It is
// nil when no lease is held, and a nil channel never fires.
func (l *RunLock) Lost() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lease == nil {
		return nil
	}
	return l.lease.Lost()
}

// Running reports whether this process holds the lock.
func (l *RunLock) Running() bool {
	return l.running.Load()
}

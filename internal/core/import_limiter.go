package core

// import_limiter.go bounds how many workbooks are parsed at once.
//
// Opening an .xlsx unpacks the whole container in memory, so the server admits at
// most maxConcurrent imports or sheet discoveries. Requests that cannot get
// a slot within maxWait fail with ErrTooManyImports. Imports are otherwise
// independent: the limiter does not serialize users or lock entries.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/JonMunkholm/dailyfinance/internal/logging"
)

// ErrTooManyImports is returned when no import slot frees up in time.
// Clients should retry after a short delay.
var ErrTooManyImports = errors.New("too many imports in progress, please try again later")

// DefaultMaxConcurrentImports is used when the configured limit is not positive.
const DefaultMaxConcurrentImports = 5

// DefaultMaxWaitTime is used when the configured wait is not positive.
const DefaultMaxWaitTime = 30 * time.Second

// ImportLimiter is a weighted semaphore with an admission timeout.
type ImportLimiter struct {
	sem     *semaphore.Weighted
	size    int64
	maxWait time.Duration
	active  atomic.Int64
}

// NewImportLimiter allows at most maxConcurrent simultaneous imports.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &ImportLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		size:    int64(maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits up to maxWait for a slot.
// The caller must call Release once the import finishes.
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	if l.TryAcquire() {
		return nil
	}
	logging.FromContext(ctx).Info("waiting for import slot",
		"active", l.ActiveCount(), "max_wait", l.maxWait)

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyImports
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot only if one is free right now.
func (l *ImportLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *ImportLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// ActiveCount returns the number of imports holding a slot.
func (l *ImportLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// WaitForDrain blocks until every slot is free or ctx is done.
// New imports are held off while it waits.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, l.size); err != nil {
		return err
	}
	l.sem.Release(l.size)
	return nil
}

// ImportLimiterStatus is a snapshot for monitoring.
type ImportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *ImportLimiter) Status() ImportLimiterStatus {
	active := l.ActiveCount()
	return ImportLimiterStatus{
		Active:        active,
		Available:     int(l.size) - active,
		MaxConcurrent: int(l.size),
	}
}

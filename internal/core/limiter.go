package core

// limiter.go bounds the number of comparisons running at once.
//
// Each comparison holds one slot of a buffered-channel semaphore for the
// length of the run. A caller that finds every slot taken waits up to
// maxWait and then fails with ErrTooManyComparisons, which the HTTP layer
// reports as 503 so clients back off and retry.

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrTooManyComparisons is returned when no comparison slot frees up in time.
var ErrTooManyComparisons = errors.New("too many concurrent comparisons, please try again later")

const (
	DefaultMaxConcurrentComparisons = 4
	DefaultComparisonWait           = 10 * time.Second
)

// ComparisonLimiter is a counting semaphore with a bounded wait.
type ComparisonLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewComparisonLimiter allows at most maxConcurrent comparisons at once.
// Non-positive arguments fall back to the defaults.
func NewComparisonLimiter(maxConcurrent int, maxWait time.Duration) *ComparisonLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentComparisons
	}
	if maxWait <= 0 {
		maxWait = DefaultComparisonWait
	}
	return &ComparisonLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait. The caller must Release
// after a nil return.
func (l *ComparisonLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.WithHintf(ErrTooManyComparisons,
			"The server is busy with %d comparisons. Try again shortly", cap(l.slots))
	}
}

// Release returns a slot taken by Acquire.
func (l *ComparisonLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

func (l *ComparisonLimiter) ActiveCount() int {
	return int(l.active.Load())
}

func (l *ComparisonLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

func (l *ComparisonLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no comparison holds a slot or ctx ends.
func (l *ComparisonLimiter) WaitForDrain(ctx context.Context) error {
	if l.ActiveCount() == 0 {
		return nil
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// LimiterStatus is a point-in-time view of the limiter, served by /api/status.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

func (l *ComparisonLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.slots),
	}
}

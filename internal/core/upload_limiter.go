package core

// upload_limiter.go caps the number of sessions submitting to the
// marketplace at once.
//
// Each submission takes a slot from a buffered channel. When all slots are
// held, new submissions wait up to maxWait before failing with
// ErrTooManyUploads. WaitForDrain lets shutdown block until in-flight
// submissions have finished.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyUploads is returned when all upload slots are occupied and the
// wait timeout expires.
var ErrTooManyUploads = errors.New("too many concurrent uploads, please try again later")

const (
	defaultMaxConcurrentUploads = 5
	defaultMaxWaitTime          = 30 * time.Second
)

// UploadLimiter is a semaphore keyed by session ID.
type UploadLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.Mutex
	active map[string]time.Time
}

// NewUploadLimiter creates a limiter allowing at most maxConcurrent
// submissions. Non-positive arguments fall back to 5 slots and a 30s wait.
func NewUploadLimiter(maxConcurrent int, maxWait time.Duration) *UploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentUploads
	}
	if maxWait <= 0 {
		maxWait = defaultMaxWaitTime
	}
	return &UploadLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		active:  make(map[string]time.Time),
	}
}

// Acquire takes a slot for sessionID. The returned release func must be
// called exactly once when the submission ends; calling it again is a no-op.
func (l *UploadLimiter) Acquire(ctx context.Context, sessionID string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.slots <- struct{}{}:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrTooManyUploads
	}

	l.mu.Lock()
	l.active[sessionID] = time.Now()
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.active, sessionID)
			l.mu.Unlock()
			<-l.slots
		})
	}, nil
}

// ActiveCount returns the number of submissions holding a slot.
func (l *UploadLimiter) ActiveCount() int {
	return len(l.slots)
}

// Holding reports whether sessionID currently holds a slot.
func (l *UploadLimiter) Holding(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.active[sessionID]
	return ok
}

// WaitForDrain blocks until no submission holds a slot or ctx is done.
func (l *UploadLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// UploadLimiterStatus is a snapshot of the limiter for health output.
type UploadLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state.
func (l *UploadLimiter) Status() UploadLimiterStatus {
	active := len(l.slots)
	return UploadLimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - active,
		MaxConcurrent: cap(l.slots),
	}
}

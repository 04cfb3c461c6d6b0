// Package ratelimit bounds the request rate shared across all scan workers.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
}

// SlidingWindow permits at most limit requests within any trailing window.
// When the window is full, Wait blocks the caller until the oldest request
// ages out (cooperative backpressure rather than rejection). The lock is
// held only for bookkeeping, never while sleeping.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	starts []time.Time

	// now is replaceable in tests.
	now func() time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &SlidingWindow{
		limit:  limit,
		window: window,
		starts: make([]time.Time, 0, limit),
		now:    time.Now,
	}
}

// Wait blocks until a request slot is available or ctx is cancelled. On
// success the request is recorded as started.
func (s *SlidingWindow) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		now := s.now()
		s.prune(now)

		if len(s.starts) < s.limit {
			s.starts = append(s.starts, now)
			s.mu.Unlock()
			return nil
		}

		// Sleep until the oldest recorded request leaves the window.
		wakeIn := s.starts[0].Add(s.window).Sub(now)
		s.mu.Unlock()

		if wakeIn <= 0 {
			continue
		}

		timer := time.NewTimer(wakeIn)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// InFlight reports how many requests are currently counted in the window.
func (s *SlidingWindow) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(s.now())
	return len(s.starts)
}

// prune drops entries older than the window. Caller must hold s.mu.
func (s *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.starts) && !s.starts[i].After(cutoff) {
		i++
	}
	if i > 0 {
		s.starts = append(s.starts[:0], s.starts[i:]...)
	}
}

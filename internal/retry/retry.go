// Package retry wraps downstream calls with bounded retries and
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hnolivos/arbitrage-scanner/internal/breaker"
)

type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// Op is one downstream attempt. attempt starts at 0 and increments per
// retry, letting callers escalate timeouts on later attempts.
type Op func(ctx context.Context, attempt int) error

// Do runs op up to MaxRetries+1 times with exponential backoff between
// attempts. It returns the number of retries performed and the last error.
// It stops early, without further attempts, when the error reports the
// circuit breaker open, when the error is marked permanent, or when ctx is
// cancelled.
func (p Policy) Do(ctx context.Context, op Op) (int, error) {
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return attempt - 1, lastErr
			}
			return 0, err
		}

		err := op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if errors.Is(err, breaker.ErrOpen) || IsPermanent(err) {
			return attempt, err
		}

		if attempt < p.MaxRetries {
			if err := sleep(ctx, p.backoff(attempt)); err != nil {
				return attempt, lastErr
			}
		}
	}

	return p.MaxRetries, lastErr
}

// backoff returns BaseDelay * 2^attempt capped at MaxDelay.
func (p Policy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err (or anything it wraps) was marked with
// Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// ExhaustedError carries the final error after all attempts ran out,
// tagged with the attempt count.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Exhausted wraps the final error with the attempt count after retries ran
// out.
func Exhausted(err error, attempts int) error {
	return &ExhaustedError{Attempts: attempts, Err: err}
}

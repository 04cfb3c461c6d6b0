package fetch

import (
	"errors"
	"fmt"
	"time"
)

// TransientError covers network failures, 5xx responses and anti-bot
// interstitials. Transient failures are retryable.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient fetch error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RenderTimeoutError means the render backend did not produce a page in
// time. Retryable; each retry is given a longer timeout.
type RenderTimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *RenderTimeoutError) Error() string {
	return fmt.Sprintf("render backend timed out after %s: %v", e.Timeout, e.Err)
}

func (e *RenderTimeoutError) Unwrap() error { return e.Err }

func IsRenderTimeout(err error) bool {
	var rte *RenderTimeoutError
	return errors.As(err, &rte)
}

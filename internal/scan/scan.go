// Package scan fans work items out across a bounded pool of workers,
// invoking the fetcher and the caller-supplied transform per item, and
// aggregates the outcomes into a report.
package scan

import (
	"errors"
	"fmt"
	"time"

	"github.com/hnolivos/arbitrage-scanner/internal/fetch"
)

// Transform turns raw page content into a domain value. The orchestrator
// does not interpret the value, only whether the transform failed.
type Transform func(page *fetch.Page) (any, error)

// WorkItem is one unit of fetch-and-transform work. Immutable once
// submitted; owned by the orchestrator until its result is produced.
type WorkItem struct {
	ID         string
	URL        string
	SessionKey string
	Transform  Transform
}

// sessionKey defaults to the URL so every distinct page gets its own
// consistent fingerprint unless the caller groups items explicitly.
func (w WorkItem) sessionKey() string {
	if w.SessionKey != "" {
		return w.SessionKey
	}
	return w.URL
}

// Result is the outcome of exactly one WorkItem.
type Result struct {
	ItemID      string        `json:"item_id"`
	URL         string        `json:"url"`
	Success     bool          `json:"success"`
	Value       any           `json:"value,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	Retries     int           `json:"retries"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Report aggregates a finished batch.
type Report struct {
	Total      int           `json:"total"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Elapsed    time.Duration `json:"elapsed"`
	Throughput float64       `json:"throughput"` // items per second
	Results    []Result      `json:"results"`
}

// TransformError means the fetch succeeded but the caller's transform
// failed. Recorded as an item failure; never retried by the engine.
type TransformError struct {
	Err error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform failed: %v", e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

func IsTransformError(err error) bool {
	var te *TransformError
	return errors.As(err, &te)
}

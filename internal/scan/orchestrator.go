package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hnolivos/arbitrage-scanner/internal/fetch"
	"github.com/hnolivos/arbitrage-scanner/internal/progress"
	"github.com/hnolivos/arbitrage-scanner/internal/retry"
)

// Orchestrator runs batches of work items against a shared fetcher with
// bounded parallelism. Item failures are contained: a failed item becomes a
// failed Result and never aborts the batch.
type Orchestrator struct {
	fetcher    fetch.Fetcher
	tracker    *progress.Tracker
	maxWorkers int
	logger     *slog.Logger
}

func NewOrchestrator(fetcher fetch.Fetcher, tracker *progress.Tracker, maxWorkers int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		fetcher:    fetcher,
		tracker:    tracker,
		maxWorkers: maxWorkers,
		logger:     logger.With("component", "orchestrator"),
	}
}

// Tracker exposes the progress tracker for pollers.
func (o *Orchestrator) Tracker() *progress.Tracker {
	return o.tracker
}

// Run executes every item and returns once each has produced exactly one
// Result. Results are appended in completion order. The only fatal error is
// a non-positive worker count; everything else lands in the report.
func (o *Orchestrator) Run(ctx context.Context, items []WorkItem) (*Report, error) {
	if o.maxWorkers <= 0 {
		return nil, fmt.Errorf("max workers must be positive, got %d", o.maxWorkers)
	}

	o.tracker.Start(len(items))
	defer o.tracker.Finish()

	o.logger.Info("scan started", "items", len(items), "workers", o.maxWorkers)
	o.tracker.Logf("info", "scan started: %d items, %d workers", len(items), o.maxWorkers)

	start := time.Now()

	var mu sync.Mutex
	results := make([]Result, 0, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxWorkers)

	for _, item := range items {
		item := item
		g.Go(func() error {
			result := o.runItem(gctx, item)

			mu.Lock()
			results = append(results, result)
			mu.Unlock()

			o.tracker.Record(result.Success)
			if result.Success {
				o.tracker.Logf("success", "done: %s (%.1fs, %d retries)",
					item.URL, result.Duration.Seconds(), result.Retries)
			} else {
				o.tracker.Logf("error", "failed: %s - %s", item.URL, result.Error)
			}
			return nil
		})
	}

	// Workers never return errors; Wait is just the completion barrier.
	g.Wait()

	report := &Report{
		Total:   len(items),
		Elapsed: time.Since(start),
		Results: results,
	}
	for _, r := range results {
		if r.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	if secs := report.Elapsed.Seconds(); secs > 0 {
		report.Throughput = float64(report.Total) / secs
	}

	o.logger.Info("scan finished",
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"elapsed", report.Elapsed.Round(time.Millisecond),
		"throughput", fmt.Sprintf("%.2f/s", report.Throughput))
	o.tracker.Logf("info", "scan finished: %d ok, %d failed in %.1fs",
		report.Succeeded, report.Failed, report.Elapsed.Seconds())

	return report, nil
}

// runItem produces exactly one Result for one item.
func (o *Orchestrator) runItem(ctx context.Context, item WorkItem) Result {
	start := time.Now()
	result := Result{
		ItemID: item.ID,
		URL:    item.URL,
	}

	page, err := o.fetcher.Fetch(ctx, item.URL, item.sessionKey())
	if err != nil {
		result.Error = err.Error()
		result.Retries = attemptsFrom(err)
		result.Duration = time.Since(start)
		result.CompletedAt = time.Now()
		return result
	}
	result.Retries = page.Retries

	value := any(page)
	if item.Transform != nil {
		v, terr := item.Transform(page)
		if terr != nil {
			terr = &TransformError{Err: terr}
			result.Error = terr.Error()
			result.Duration = time.Since(start)
			result.CompletedAt = time.Now()
			return result
		}
		value = v
	}

	result.Success = true
	result.Value = value
	result.Duration = time.Since(start)
	result.CompletedAt = time.Now()
	return result
}

// attemptsFrom recovers the retry count from an exhausted-retries error.
func attemptsFrom(err error) int {
	var ex *retry.ExhaustedError
	if errors.As(err, &ex) {
		return ex.Attempts - 1
	}
	return 0
}

// Package jobs manages scan jobs: creation, lookup, and the background
// worker that executes them one at a time through the orchestrator.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hnolivos/arbitrage-scanner/internal/events"
	"github.com/hnolivos/arbitrage-scanner/internal/queue"
	"github.com/hnolivos/arbitrage-scanner/internal/scan"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one requested scan over a list of URLs.
type Job struct {
	ID          string       `json:"id"`
	URLs        []string     `json:"urls"`
	Status      Status       `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Error       string       `json:"error,omitempty"`
	Report      *scan.Report `json:"report,omitempty"`
}

// Manager keeps jobs in memory and feeds them to the worker via the queue.
// One scan runs at a time so progress reads always describe a single batch.
type Manager struct {
	mu    sync.Mutex
	jobs  map[string]*Job
	order []string

	queue     *queue.Queue
	orch      *scan.Orchestrator
	publisher *events.Publisher
	transform scan.Transform
	logger    *slog.Logger
}

func NewManager(orch *scan.Orchestrator, publisher *events.Publisher, transform scan.Transform, logger *slog.Logger) *Manager {
	return &Manager{
		jobs:      make(map[string]*Job),
		queue:     queue.New(),
		orch:      orch,
		publisher: publisher,
		transform: transform,
		logger:    logger.With("component", "job_manager"),
	}
}

// Create registers a new pending job and enqueues it for the worker.
func (m *Manager) Create(urls []string) (*Job, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one url is required")
	}

	job := &Job{
		ID:        uuid.New().String(),
		URLs:      urls,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)
	m.mu.Unlock()

	if err := m.queue.Push(&queue.Task{JobID: job.ID}); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	m.logger.Info("job created", "id", job.ID, "urls", len(urls))
	return job, nil
}

// Get returns a copy of the job with the given ID.
func (m *Manager) Get(jobID string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found")
	}
	copy := *job
	return &copy, nil
}

// List returns up to limit jobs, newest first.
func (m *Manager) List(limit int) []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.order) {
		limit = len(m.order)
	}

	out := make([]*Job, 0, limit)
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		copy := *m.jobs[m.order[i]]
		out = append(out, &copy)
	}
	return out
}

// StartWorker pops jobs off the queue and runs them until ctx is cancelled.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("job worker started")

	for {
		task, err := m.queue.Pop(ctx)
		if err != nil {
			m.logger.Info("job worker stopping", "reason", err)
			return
		}
		m.processJob(ctx, task.JobID)
	}
}

func (m *Manager) processJob(ctx context.Context, jobID string) {
	m.mu.Lock()
	job, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return
	}
	now := time.Now()
	job.Status = StatusRunning
	job.StartedAt = &now
	urls := job.URLs
	m.mu.Unlock()

	m.logger.Info("processing job", "id", jobID, "urls", len(urls))

	if m.publisher != nil {
		if err := m.publisher.PublishScanStarted(ctx, jobID, len(urls)); err != nil {
			m.logger.Error("failed to publish event", "error", err)
		}
	}

	items := make([]scan.WorkItem, len(urls))
	for i, url := range urls {
		items[i] = scan.WorkItem{
			ID:        fmt.Sprintf("%s:%d", jobID, i),
			URL:       url,
			Transform: m.transform,
		}
	}

	report, err := m.orch.Run(ctx, items)

	m.mu.Lock()
	done := time.Now()
	job.CompletedAt = &done
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
	} else {
		job.Status = StatusCompleted
		job.Report = report
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("job failed", "id", jobID, "error", err)
		return
	}

	if m.publisher != nil {
		if err := m.publisher.PublishScanCompleted(ctx, jobID, report); err != nil {
			m.logger.Error("failed to publish event", "error", err)
		}
	}

	m.logger.Info("job completed", "id", jobID,
		"succeeded", report.Succeeded, "failed", report.Failed)
}

// Close stops accepting new jobs.
func (m *Manager) Close() error {
	return m.queue.Close()
}

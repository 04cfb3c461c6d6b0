// Package events publishes scan lifecycle events to a Redis stream for
// downstream consumers (pricing, alerting). Publishing is best-effort: a
// broken stream never fails a scan.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hnolivos/arbitrage-scanner/internal/scan"
)

type EventType string

const (
	EventTypeScanStarted   EventType = "SCAN_STARTED"
	EventTypeScanCompleted EventType = "SCAN_COMPLETED"
)

// RedisClient is the subset of the redis client the publisher needs.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// ScanEventPayload is the stream payload for scan lifecycle events.
type ScanEventPayload struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	Timestamp      time.Time `json:"timestamp"`
	JobID          string    `json:"job_id"`
	Total          int       `json:"total"`
	Succeeded      int       `json:"succeeded,omitempty"`
	Failed         int       `json:"failed,omitempty"`
	ElapsedSeconds float64   `json:"elapsed_seconds,omitempty"`
	Throughput     float64   `json:"throughput,omitempty"`
}

type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishScanStarted emits a SCAN_STARTED event for jobID.
func (p *Publisher) PublishScanStarted(ctx context.Context, jobID string, total int) error {
	return p.publish(ctx, &ScanEventPayload{
		EventType: string(EventTypeScanStarted),
		JobID:     jobID,
		Total:     total,
	})
}

// PublishScanCompleted emits a SCAN_COMPLETED event with the report summary.
func (p *Publisher) PublishScanCompleted(ctx context.Context, jobID string, report *scan.Report) error {
	return p.publish(ctx, &ScanEventPayload{
		EventType:      string(EventTypeScanCompleted),
		JobID:          jobID,
		Total:          report.Total,
		Succeeded:      report.Succeeded,
		Failed:         report.Failed,
		ElapsedSeconds: report.Elapsed.Seconds(),
		Throughput:     report.Throughput,
	})
}

func (p *Publisher) publish(ctx context.Context, payload *ScanEventPayload) error {
	if payload.EventID == "" {
		payload.EventID = uuid.New().String()
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":       string(data),
			"event_type": payload.EventType,
			"job_id":     payload.JobID,
			"timestamp":  fmt.Sprintf("%d", payload.Timestamp.UnixNano()),
		},
	}

	if _, err := p.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Debug("event published", "type", payload.EventType, "job", payload.JobID)
	return nil
}

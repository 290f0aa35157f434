// Package jobs holds the asynq task definitions and worker plumbing. Jobs are
// maintenance only; accounting writes always happen synchronously in request
// handlers.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
	// TaskSummaryWarmup precomputes the current month's profit summary.
	TaskSummaryWarmup = "report:summary_warmup"
)

// IdempotencyCleanupPayload configures the cleanup task.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retentionHours"`
}

// NewIdempotencyCleanupTask constructs an Asynq task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// SummaryWarmupPayload configures the warmup task. A zero month/year means the
// current month at execution time.
type SummaryWarmupPayload struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// NewSummaryWarmupTask constructs an Asynq task.
func NewSummaryWarmupTask(payload SummaryWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSummaryWarmup, data), nil
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/tokoledger/tokoledger/internal/jobs"
	"github.com/tokoledger/tokoledger/internal/report"
)

// SummaryWarmupJob precomputes the monthly profit summary so the first
// dashboard hit after midnight is served from cache.
type SummaryWarmupJob struct {
	Reports *report.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSummaryWarmupJob wires dependencies for the warmup handler.
func NewSummaryWarmupJob(reports *report.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *SummaryWarmupJob {
	return &SummaryWarmupJob{
		Reports: reports,
		Logger:  logger,
		Metrics: metrics,
		clock:   time.Now,
	}
}

// Handle processes summary warmup tasks.
func (j *SummaryWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("summary warmup: handler not configured")
	}
	var payload SummaryWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	month, year := payload.Month, payload.Year
	if month == 0 || year == 0 {
		now := j.now()
		month, year = int(now.Month()), now.Year()
	}

	tracker := j.metrics().Track(TaskSummaryWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("month", month), slog.Int("year", year))

	warmCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	summary, err := j.Reports.MonthlySummary(warmCtx, month, year)
	if err != nil {
		resultErr = err
		logger.Error("summary warmup", slog.Any("error", err))
		return resultErr
	}
	logger.Info("completed summary warmup", slog.Int("orders", summary.NumberOfOrders))
	return resultErr
}

func (j *SummaryWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSummaryWarmup))
	}
	return slog.Default().With(slog.String("job", TaskSummaryWarmup))
}

func (j *SummaryWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SummaryWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}

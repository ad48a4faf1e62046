package jobs

import (
	"context"
	"time"

	"github.com/hmoon/edgeforge/internal/worker"
	"github.com/hmoon/edgeforge/pkg/logger"
)

// Test-window length for scheduled sweeps. Two years keeps the regime
// gate's calendar-year split meaningful.
const sweepLookbackDays = 730

// ValidationSweepJob drains the GENERATED backlog through the gate
// pipeline every night, after the day's bars and features have landed.
type ValidationSweepJob struct {
	pool      *worker.Pool
	batchSize int
	logger    *logger.Logger
}

// NewValidationSweepJob creates a new validation sweep job
func NewValidationSweepJob(pool *worker.Pool, batchSize int, log *logger.Logger) *ValidationSweepJob {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &ValidationSweepJob{
		pool:      pool,
		batchSize: batchSize,
		logger:    log,
	}
}

// Name returns the job name
func (j *ValidationSweepJob) Name() string {
	return "validation_sweep"
}

// Schedule returns the cron schedule (02:30 UTC daily, after ingestion)
func (j *ValidationSweepJob) Schedule() string {
	return "0 30 2 * * *"
}

// Run executes one sweep over the pending backlog
func (j *ValidationSweepJob) Run(ctx context.Context) error {
	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -sweepLookbackDays)

	stats, err := j.pool.Sweep(ctx, from, to, j.batchSize)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"processed": stats.Processed,
		"survived":  stats.Survived,
		"failed":    stats.Failed,
		"errors":    stats.Errors,
	}).Info("Scheduled validation sweep finished")
	return nil
}

package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hmoon/edgeforge/internal/contracts"
	"github.com/hmoon/edgeforge/pkg/config"
	"github.com/hmoon/edgeforge/pkg/logger"
)

// Runner is what the pool needs from the lifecycle manager
type Runner interface {
	RunValidation(ctx context.Context, candidateID int64, from, to time.Time) (*contracts.ValidationResult, error)
}

// Pool drains the validation backlog with bounded concurrency. The rate
// limiter caps backtest launches per second so a big sweep cannot
// monopolize the connection pool.
type Pool struct {
	candidates  contracts.CandidateRepository
	runner      Runner
	concurrency int
	limiter     *rate.Limiter
	log         *logger.Logger
}

// NewPool creates a validation worker pool
func NewPool(candidates contracts.CandidateRepository, runner Runner, cfg config.PipelineConfig, log *logger.Logger) *Pool {
	concurrency := cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	limit := rate.Inf
	if cfg.WorkerRatePerSec > 0 {
		limit = rate.Limit(cfg.WorkerRatePerSec)
	}

	return &Pool{
		candidates:  candidates,
		runner:      runner,
		concurrency: concurrency,
		limiter:     rate.NewLimiter(limit, concurrency),
		log:         log,
	}
}

// SweepStats summarizes one sweep
type SweepStats struct {
	Processed int
	Survived  int
	Failed    int
	Errors    int
}

// Sweep validates pending candidates: the GENERATED backlog plus any
// TESTING leftovers from an interrupted run. One candidate erroring is
// counted and logged, not fatal; the sweep continues. Context
// cancellation stops the whole sweep.
func (p *Pool) Sweep(ctx context.Context, from, to time.Time, batch int) (SweepStats, error) {
	var stats SweepStats

	pending, err := p.candidates.ListByStatus(ctx, contracts.StatusGenerated, batch)
	if err != nil {
		return stats, err
	}
	interrupted, err := p.candidates.ListByStatus(ctx, contracts.StatusTesting, batch)
	if err != nil {
		return stats, err
	}
	pending = append(pending, interrupted...)

	if len(pending) == 0 {
		return stats, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	var mu sync.Mutex
	for _, cand := range pending {
		cand := cand
		g.Go(func() error {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}

			res, err := p.runner.RunValidation(ctx, cand.ID, from, to)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Errors++
				p.log.WithError(err).WithField("candidate_id", cand.ID).Warn("Validation run failed")
				return nil
			}

			stats.Processed++
			if res.Passed {
				stats.Survived++
			} else {
				stats.Failed++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	p.log.WithFields(map[string]interface{}{
		"processed": stats.Processed,
		"survived":  stats.Survived,
		"failed":    stats.Failed,
		"errors":    stats.Errors,
	}).Info("Validation sweep completed")
	return stats, nil
}

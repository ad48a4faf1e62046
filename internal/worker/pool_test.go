package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmoon/edgeforge/internal/contracts"
	"github.com/hmoon/edgeforge/internal/lifecycle"
	"github.com/hmoon/edgeforge/pkg/config"
	"github.com/hmoon/edgeforge/pkg/logger"
)

type countingRunner struct {
	mu       sync.Mutex
	seen     []int64
	inFlight int32
	maxSeen  int32
	failIDs  map[int64]bool // candidates whose validation fails a gate
	errIDs   map[int64]bool // candidates whose run errors out
}

func (r *countingRunner) RunValidation(_ context.Context, id int64, _, _ time.Time) (*contracts.ValidationResult, error) {
	n := atomic.AddInt32(&r.inFlight, 1)
	defer atomic.AddInt32(&r.inFlight, -1)
	for {
		max := atomic.LoadInt32(&r.maxSeen)
		if n <= max || atomic.CompareAndSwapInt32(&r.maxSeen, max, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	r.mu.Lock()
	r.seen = append(r.seen, id)
	r.mu.Unlock()

	if r.errIDs[id] {
		return nil, errors.New("store unavailable")
	}
	return &contracts.ValidationResult{CandidateID: id, Passed: !r.failIDs[id]}, nil
}

func poolConfig(concurrency int) config.PipelineConfig {
	return config.PipelineConfig{
		WorkerConcurrency: concurrency,
		WorkerRatePerSec:  10000, // effectively unthrottled in tests
	}
}

func seedCandidates(t *testing.T, repo *lifecycle.MemCandidateRepository, n int) []int64 {
	t.Helper()
	ctx := context.Background()

	var ids []int64
	for i := 0; i < n; i++ {
		cand := &contracts.EdgeCandidate{
			Hash: string(rune('a'+i)) + "-hash",
			Params: contracts.CandidateParams{
				Symbol: "ES",
				Window: contracts.TimeWindow{Kind: contracts.WindowOpeningRange, StartMinute: 810, EndMinute: 825 + i},
			},
			Status: contracts.StatusGenerated,
		}
		require.NoError(t, repo.Insert(ctx, cand))
		ids = append(ids, cand.ID)
	}
	return ids
}

func sweepWindow() (time.Time, time.Time) {
	return time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
}

func TestPool_SweepDrainsBacklog(t *testing.T) {
	repo := lifecycle.NewMemCandidateRepository()
	ids := seedCandidates(t, repo, 8)

	runner := &countingRunner{failIDs: map[int64]bool{ids[0]: true, ids[3]: true}}
	pool := NewPool(repo, runner, poolConfig(4), logger.NewNop())

	from, to := sweepWindow()
	stats, err := pool.Sweep(context.Background(), from, to, 100)
	require.NoError(t, err)

	assert.Equal(t, 8, stats.Processed)
	assert.Equal(t, 6, stats.Survived)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 0, stats.Errors)
	assert.Len(t, runner.seen, 8)
}

func TestPool_ConcurrencyIsBounded(t *testing.T) {
	repo := lifecycle.NewMemCandidateRepository()
	seedCandidates(t, repo, 20)

	runner := &countingRunner{}
	pool := NewPool(repo, runner, poolConfig(3), logger.NewNop())

	from, to := sweepWindow()
	_, err := pool.Sweep(context.Background(), from, to, 100)
	require.NoError(t, err)

	assert.LessOrEqual(t, runner.maxSeen, int32(3))
}

func TestPool_IndividualErrorsDoNotStopSweep(t *testing.T) {
	repo := lifecycle.NewMemCandidateRepository()
	ids := seedCandidates(t, repo, 5)

	runner := &countingRunner{errIDs: map[int64]bool{ids[2]: true}}
	pool := NewPool(repo, runner, poolConfig(2), logger.NewNop())

	from, to := sweepWindow()
	stats, err := pool.Sweep(context.Background(), from, to, 100)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Processed)
	assert.Equal(t, 1, stats.Errors)
	assert.Len(t, runner.seen, 5)
}

func TestPool_EmptyBacklogIsQuiet(t *testing.T) {
	repo := lifecycle.NewMemCandidateRepository()
	runner := &countingRunner{}
	pool := NewPool(repo, runner, poolConfig(2), logger.NewNop())

	from, to := sweepWindow()
	stats, err := pool.Sweep(context.Background(), from, to, 100)
	require.NoError(t, err)

	assert.Zero(t, stats.Processed)
	assert.Empty(t, runner.seen)
}

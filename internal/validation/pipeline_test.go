package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmoon/edgeforge/internal/backtest"
	"github.com/hmoon/edgeforge/internal/contracts"
	"github.com/hmoon/edgeforge/pkg/config"
	"github.com/hmoon/edgeforge/pkg/logger"
)

type fakeRunner struct {
	fn  func(opts backtest.RunOptions) *contracts.BacktestResult
	err error
}

func (f *fakeRunner) Run(_ context.Context, _ *contracts.EdgeCandidate, _, _ time.Time, opts backtest.RunOptions) (*contracts.BacktestResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.fn(opts), nil
}

func testCfg() config.PipelineConfig {
	return config.PipelineConfig{
		TickSize:                0.25,
		CostSlippageTicks:       []int{1, 2, 3},
		CostMinPositive:         2,
		AttackSeed:              1337,
		AttackNoiseTicks:        1.0,
		RegimeMinProfitableFrac: 0.5,
		RegimeMaxProfitShare:    0.7,
		RegimeMinTrades:         5,
	}
}

func testCandidate() *contracts.EdgeCandidate {
	return &contracts.EdgeCandidate{ID: 7, Hash: "abc123"}
}

// healthyLedger builds 60 closed trades (40 wins at +2R, 20 losses at
// -1R) spread evenly across two years and two entry hours.
func healthyLedger() []contracts.Trade {
	var trades []contracts.Trade
	for i := 0; i < 60; i++ {
		year := 2023 + i%2
		hour := 14 + (i/2)%2
		day := time.Date(year, time.March, 1+i%20, 0, 0, 0, 0, time.UTC)

		tr := contracts.Trade{
			Symbol:    "ES",
			Day:       day,
			EntryTime: time.Date(year, time.March, 1+i%20, hour, 45, 0, 0, time.UTC),
		}
		if i%3 == 0 {
			tr.Outcome = contracts.OutcomeLoss
			tr.RMultiple = -1.0
		} else {
			tr.Outcome = contracts.OutcomeWin
			tr.RMultiple = 2.0
		}
		trades = append(trades, tr)
	}
	return trades
}

func resultFor(trades []contracts.Trade) *contracts.BacktestResult {
	res := &contracts.BacktestResult{Symbol: "ES", Trades: trades}
	for _, tr := range trades {
		switch tr.Outcome {
		case contracts.OutcomeWin:
			res.Wins++
		case contracts.OutcomeLoss:
			res.Losses++
		}
		res.TotalR += tr.RMultiple
	}
	res.TradeCount = res.Wins + res.Losses
	if res.TradeCount > 0 {
		res.AvgR = res.TotalR / float64(res.TradeCount)
		res.WinRate = float64(res.Wins) / float64(res.TradeCount)
	}
	return res
}

func healthyResult() *contracts.BacktestResult {
	return resultFor(healthyLedger())
}

func negativeResult() *contracts.BacktestResult {
	var trades []contracts.Trade
	for i := 0; i < 30; i++ {
		trades = append(trades, contracts.Trade{
			Day:       time.Date(2023, time.March, 1+i%20, 0, 0, 0, 0, time.UTC),
			EntryTime: time.Date(2023, time.March, 1+i%20, 14, 45, 0, 0, time.UTC),
			Outcome:   contracts.OutcomeLoss,
			RMultiple: -1.0,
		})
	}
	return resultFor(trades)
}

func isAttack(opts backtest.RunOptions) bool {
	return opts.StopFirstBias || opts.EntryDelayBars > 0 || opts.ExitDelayBars > 0 ||
		opts.NoiseAmp > 0 || opts.ShuffleDays
}

func from() time.Time { return time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC) }
func to() time.Time   { return time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC) }

func TestPipeline_SurvivorGetsScoreAndTier(t *testing.T) {
	runner := &fakeRunner{fn: func(backtest.RunOptions) *contracts.BacktestResult {
		return healthyResult()
	}}
	p := NewPipeline(runner, testCfg(), logger.NewNop())

	res, err := p.Validate(context.Background(), testCandidate(), from(), to())
	require.NoError(t, err)

	assert.True(t, res.Passed)
	assert.Empty(t, res.FailedGate)
	require.Len(t, res.Gates, 4)
	for _, g := range res.Gates {
		assert.True(t, g.Passed, "gate %s should pass", g.Gate)
		assert.GreaterOrEqual(t, g.Score, 0.0)
		assert.LessOrEqual(t, g.Score, 25.0)
	}
	assert.InDelta(t, 100.0, res.SurvivalScore, 1e-9)
	assert.Equal(t, contracts.ConfidenceHigh, res.Confidence) // 60 trades caps the tier
	assert.Equal(t, int64(1337), res.AttackSeed)
	assert.Equal(t, 60, res.TradeCount)
}

func TestPipeline_BaselineFailureStopsEarly(t *testing.T) {
	runner := &fakeRunner{fn: func(backtest.RunOptions) *contracts.BacktestResult {
		return negativeResult()
	}}
	p := NewPipeline(runner, testCfg(), logger.NewNop())

	res, err := p.Validate(context.Background(), testCandidate(), from(), to())
	require.NoError(t, err)

	assert.False(t, res.Passed)
	assert.Equal(t, contracts.GateBaseline, res.FailedGate)
	assert.NotEmpty(t, res.FailureReason)
	assert.Len(t, res.Gates, 1)
	assert.Zero(t, res.SurvivalScore)
	assert.Empty(t, res.Confidence)
}

func TestPipeline_CostGateFailsWhenSlippageKillsEdge(t *testing.T) {
	runner := &fakeRunner{fn: func(opts backtest.RunOptions) *contracts.BacktestResult {
		if opts.Slippage > 0 {
			return negativeResult()
		}
		return healthyResult()
	}}
	p := NewPipeline(runner, testCfg(), logger.NewNop())

	res, err := p.Validate(context.Background(), testCandidate(), from(), to())
	require.NoError(t, err)

	assert.False(t, res.Passed)
	assert.Equal(t, contracts.GateCost, res.FailedGate)
	assert.Len(t, res.Gates, 2)

	gr, ok := res.GateScore(contracts.GateCost)
	require.True(t, ok)
	assert.Equal(t, 0.0, gr.Metric) // zero scenarios stayed positive
}

func TestPipeline_AttackGateFailsOnFragility(t *testing.T) {
	runner := &fakeRunner{fn: func(opts backtest.RunOptions) *contracts.BacktestResult {
		if isAttack(opts) {
			return negativeResult()
		}
		return healthyResult()
	}}
	p := NewPipeline(runner, testCfg(), logger.NewNop())

	res, err := p.Validate(context.Background(), testCandidate(), from(), to())
	require.NoError(t, err)

	assert.False(t, res.Passed)
	assert.Equal(t, contracts.GateAttack, res.FailedGate)
	assert.Len(t, res.Gates, 3)
}

func TestPipeline_ShuffleFragilityFailsAttackGate(t *testing.T) {
	// Expectancy survives every perturbation, but reordering the ledger
	// blows the drawdown out: the equity curve depended on order luck.
	runner := &fakeRunner{fn: func(opts backtest.RunOptions) *contracts.BacktestResult {
		res := healthyResult()
		res.MaxDrawdownR = 4.0
		if opts.ShuffleDays {
			res.MaxDrawdownR = 9.0
		}
		return res
	}}
	p := NewPipeline(runner, testCfg(), logger.NewNop())

	res, err := p.Validate(context.Background(), testCandidate(), from(), to())
	require.NoError(t, err)

	assert.False(t, res.Passed)
	assert.Equal(t, contracts.GateAttack, res.FailedGate)
	assert.Len(t, res.Gates, 3)
	assert.Contains(t, res.FailureReason, "shuffled")

	gr, ok := res.GateScore(contracts.GateAttack)
	require.True(t, ok)
	assert.Equal(t, 9.0, gr.Metric)
	assert.InDelta(t, 6.0, gr.Threshold, 1e-9)
}

func TestPipeline_RegimeConcentrationFails(t *testing.T) {
	// All the profit sits in 2023; 2024 only bleeds. The profitable
	// fraction still scrapes past 0.5, so the share cap is what trips.
	var trades []contracts.Trade
	for i := 0; i < 30; i++ {
		trades = append(trades, contracts.Trade{
			Day:       time.Date(2023, time.March, 1+i%20, 0, 0, 0, 0, time.UTC),
			EntryTime: time.Date(2023, time.March, 1+i%20, 14, 45, 0, 0, time.UTC),
			Outcome:   contracts.OutcomeWin,
			RMultiple: 2.0,
		})
	}
	for i := 0; i < 10; i++ {
		trades = append(trades, contracts.Trade{
			Day:       time.Date(2024, time.March, 1+i%20, 0, 0, 0, 0, time.UTC),
			EntryTime: time.Date(2024, time.March, 1+i%20, 14, 45, 0, 0, time.UTC),
			Outcome:   contracts.OutcomeLoss,
			RMultiple: -1.0,
		})
	}
	concentrated := resultFor(trades)

	runner := &fakeRunner{fn: func(backtest.RunOptions) *contracts.BacktestResult {
		return concentrated
	}}
	p := NewPipeline(runner, testCfg(), logger.NewNop())

	res, err := p.Validate(context.Background(), testCandidate(), from(), to())
	require.NoError(t, err)

	assert.False(t, res.Passed)
	assert.Equal(t, contracts.GateRegime, res.FailedGate)
	assert.Len(t, res.Gates, 4)
	assert.Contains(t, res.FailureReason, "carries")
}

func TestPipeline_RunErrorAbortsWithoutVerdict(t *testing.T) {
	runner := &fakeRunner{err: errors.New("store unavailable")}
	p := NewPipeline(runner, testCfg(), logger.NewNop())

	res, err := p.Validate(context.Background(), testCandidate(), from(), to())
	require.Error(t, err)
	assert.Nil(t, res)
}

package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/hmoon/edgeforge/internal/backtest"
	"github.com/hmoon/edgeforge/internal/contracts"
)

// Each gate contributes up to 25 points of survival score; the score is
// the surplus above the pass threshold, so a strategy that barely
// scrapes past every gate ends up near zero even though it "passed".

// baselineGate requires positive expectancy on the clean, frictionless
// replay. A rule that cannot make money under ideal fills has nothing
// worth stress-testing.
func (p *Pipeline) baselineGate(_ context.Context, _ *contracts.EdgeCandidate, _, _ time.Time, baseline *contracts.BacktestResult) (contracts.GateResult, error) {
	gr := contracts.GateResult{
		Gate:      contracts.GateBaseline,
		Metric:    baseline.AvgR,
		Threshold: 0,
	}

	if baseline.TradeCount == 0 {
		gr.Detail = "no closed trades in the test window"
		return gr, nil
	}
	if baseline.AvgR <= 0 {
		gr.Detail = fmt.Sprintf("non-positive expectancy: avg %.3fR over %d trades", baseline.AvgR, baseline.TradeCount)
		return gr, nil
	}

	gr.Passed = true
	gr.Score = scaled25(baseline.AvgR, 0.5)
	gr.Detail = fmt.Sprintf("avg %.3fR over %d trades", baseline.AvgR, baseline.TradeCount)
	return gr, nil
}

// costGate replays under increasing slippage and requires expectancy to
// survive at least CostMinPositive of the scenarios.
func (p *Pipeline) costGate(ctx context.Context, cand *contracts.EdgeCandidate, from, to time.Time, _ *contracts.BacktestResult) (contracts.GateResult, error) {
	var (
		positives int
		worst     float64
		worstSet  bool
	)

	for _, ticks := range p.cfg.CostSlippageTicks {
		r, err := p.runner.Run(ctx, cand, from, to, backtest.RunOptions{
			Slippage: float64(ticks) * p.cfg.TickSize,
		})
		if err != nil {
			return contracts.GateResult{}, fmt.Errorf("cost run at %d ticks: %w", ticks, err)
		}
		if r.TradeCount > 0 && r.AvgR > 0 {
			positives++
		}
		if !worstSet || r.AvgR < worst {
			worst = r.AvgR
			worstSet = true
		}
	}

	gr := contracts.GateResult{
		Gate:      contracts.GateCost,
		Metric:    float64(positives),
		Threshold: float64(p.cfg.CostMinPositive),
		Detail: fmt.Sprintf("%d/%d slippage scenarios positive, worst avg %.3fR",
			positives, len(p.cfg.CostSlippageTicks), worst),
	}

	if positives < p.cfg.CostMinPositive {
		return gr, nil
	}

	gr.Passed = true
	gr.Score = scaled25(worst, 0.25)
	return gr, nil
}

// A reshuffled ledger keeps per-trade outcomes, so its expectancy is the
// baseline's by construction; what shuffling can change is the drawdown.
// An edge whose equity curve only survives one lucky ordering fails when
// the order luck is removed.
const shuffleDrawdownFactor = 1.5

// attackGate perturbs execution — hostile tie-breaks, delayed fills,
// price noise — and requires the mean expectancy across the attacks to
// stay positive. A separate shuffle run probes path dependence: the
// reordered ledger's drawdown must stay within a factor of the
// baseline's. The seed is fixed in config and recorded on the result so
// the exact attack sequence can be replayed.
func (p *Pipeline) attackGate(ctx context.Context, cand *contracts.EdgeCandidate, from, to time.Time, baseline *contracts.BacktestResult) (contracts.GateResult, error) {
	tick := p.cfg.TickSize
	seed := p.cfg.AttackSeed

	scenarios := []struct {
		name string
		opts backtest.RunOptions
	}{
		{"stop_first_bias", backtest.RunOptions{StopFirstBias: true, BiasTolerance: tick}},
		{"entry_delay", backtest.RunOptions{EntryDelayBars: 1}},
		{"exit_delay", backtest.RunOptions{ExitDelayBars: 1}},
		{"noise", backtest.RunOptions{NoiseAmp: p.cfg.AttackNoiseTicks * tick, Seed: seed}},
	}

	var (
		sum       float64
		worstName string
		worst     float64
	)
	for i, sc := range scenarios {
		r, err := p.runner.Run(ctx, cand, from, to, sc.opts)
		if err != nil {
			return contracts.GateResult{}, fmt.Errorf("attack run %s: %w", sc.name, err)
		}
		sum += r.AvgR
		if i == 0 || r.AvgR < worst {
			worst = r.AvgR
			worstName = sc.name
		}
	}
	mean := sum / float64(len(scenarios))

	gr := contracts.GateResult{
		Gate:      contracts.GateAttack,
		Metric:    mean,
		Threshold: 0,
		Detail: fmt.Sprintf("mean attacked avg %.3fR across %d scenarios, worst %s %.3fR",
			mean, len(scenarios), worstName, worst),
	}

	if mean <= 0 {
		return gr, nil
	}

	shuffled, err := p.runner.Run(ctx, cand, from, to, backtest.RunOptions{ShuffleDays: true, Seed: seed})
	if err != nil {
		return contracts.GateResult{}, fmt.Errorf("attack run shuffle: %w", err)
	}
	if ceiling := shuffleDrawdownFactor * baseline.MaxDrawdownR; shuffled.MaxDrawdownR > ceiling {
		gr.Metric = shuffled.MaxDrawdownR
		gr.Threshold = ceiling
		gr.Detail = fmt.Sprintf("shuffled ledger drawdown %.2fR exceeds %.1fx baseline %.2fR",
			shuffled.MaxDrawdownR, shuffleDrawdownFactor, baseline.MaxDrawdownR)
		return gr, nil
	}

	gr.Passed = true
	gr.Score = scaled25(mean, 0.25)
	return gr, nil
}

// regimeGate splits the baseline ledger along independent dimensions
// (calendar year, entry hour) and requires the edge to hold up broadly:
// enough regimes individually profitable, and no single regime carrying
// more than a capped share of the total profit.
func (p *Pipeline) regimeGate(_ context.Context, _ *contracts.EdgeCandidate, _, _ time.Time, baseline *contracts.BacktestResult) (contracts.GateResult, error) {
	dims := []struct {
		name string
		key  func(contracts.Trade) string
	}{
		{"year", func(t contracts.Trade) string { return t.Day.Format("2006") }},
		{"hour", func(t contracts.Trade) string { return fmt.Sprintf("%02dh", t.EntryTime.UTC().Hour()) }},
	}

	gr := contracts.GateResult{
		Gate:      contracts.GateRegime,
		Threshold: p.cfg.RegimeMinProfitableFrac,
	}

	var (
		considered int
		profitable int
	)

	for _, dim := range dims {
		groups := make(map[string][]float64)
		var total float64
		for _, tr := range baseline.Trades {
			if !tr.Outcome.Closed() {
				continue
			}
			k := dim.key(tr)
			groups[k] = append(groups[k], tr.RMultiple)
			total += tr.RMultiple
		}

		sized := 0
		for _, rs := range groups {
			if len(rs) >= p.cfg.RegimeMinTrades {
				sized++
			}
		}

		for key, rs := range groups {
			if len(rs) < p.cfg.RegimeMinTrades {
				continue
			}
			considered++

			var sum float64
			for _, r := range rs {
				sum += r
			}
			if sum > 0 {
				profitable++
			}

			// Concentration only means anything when the dimension
			// actually splits the ledger.
			if sized >= 2 && total > 0 && sum > 0 {
				if share := sum / total; share > p.cfg.RegimeMaxProfitShare {
					gr.Metric = share
					gr.Threshold = p.cfg.RegimeMaxProfitShare
					gr.Detail = fmt.Sprintf("regime %s=%s carries %.0f%% of profit (cap %.0f%%)",
						dim.name, key, share*100, p.cfg.RegimeMaxProfitShare*100)
					return gr, nil
				}
			}
		}
	}

	if considered == 0 {
		gr.Detail = fmt.Sprintf("no regime reached %d trades", p.cfg.RegimeMinTrades)
		return gr, nil
	}

	frac := float64(profitable) / float64(considered)
	gr.Metric = frac
	gr.Detail = fmt.Sprintf("%d/%d regimes profitable", profitable, considered)

	if frac < p.cfg.RegimeMinProfitableFrac {
		return gr, nil
	}

	gr.Passed = true
	gr.Score = surplus25(frac, p.cfg.RegimeMinProfitableFrac)
	return gr, nil
}

// scaled25 maps a positive metric onto [0, 25], saturating at full
func scaled25(metric, full float64) float64 {
	if metric <= 0 {
		return 0
	}
	if metric >= full {
		return 25
	}
	return 25 * metric / full
}

// surplus25 maps the surplus of metric above threshold onto [0, 25]
func surplus25(metric, threshold float64) float64 {
	if threshold >= 1 {
		return 25
	}
	s := 25 * (metric - threshold) / (1 - threshold)
	if s < 0 {
		return 0
	}
	if s > 25 {
		return 25
	}
	return s
}

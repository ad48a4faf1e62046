package backtest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/hmoon/edgeforge/internal/contracts"
	"github.com/hmoon/edgeforge/internal/simulator"
	"github.com/hmoon/edgeforge/pkg/logger"
)

// Engine replays one candidate across a historical date range. A single
// run is single-threaded and fully deterministic: the only randomness is
// the seeded noise the adversarial gate may inject via RunOptions.
type Engine struct {
	bars     contracts.BarRepository
	features contracts.FeatureRepository
	log      *logger.Logger
}

// NewEngine creates a backtest engine over the given read-only stores
func NewEngine(bars contracts.BarRepository, features contracts.FeatureRepository, log *logger.Logger) *Engine {
	return &Engine{
		bars:     bars,
		features: features,
		log:      log,
	}
}

// RunOptions are the execution-cost and perturbation knobs for one run.
// Slippage is the only parameter the cost gate varies; the rest belong
// to the adversarial gate. The zero value is the clean baseline.
type RunOptions struct {
	Slippage float64

	EntryDelayBars int
	ExitDelayBars  int
	NoiseAmp       float64
	Seed           int64
	StopFirstBias  bool
	BiasTolerance  float64

	// ShuffleDays reorders the trade ledger (seeded) before the
	// path-dependent metrics are computed. Per-trade outcomes and
	// expectancy are unaffected; drawdown stability is what it probes.
	ShuffleDays bool
}

// Run replays the candidate over [from, to]. Trading days are processed
// in strictly increasing date order; per-day data absence is absorbed as
// a skip, while store errors abort the whole run.
func (e *Engine) Run(ctx context.Context, cand *contracts.EdgeCandidate, from, to time.Time, opts RunOptions) (*contracts.BacktestResult, error) {
	days, err := e.bars.GetTradingDays(ctx, cand.Params.Symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("load trading days: %w", err)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var rng *rand.Rand
	if opts.NoiseAmp > 0 || opts.ShuffleDays {
		rng = rand.New(rand.NewSource(opts.Seed))
	}

	result := &contracts.BacktestResult{
		Symbol: cand.Params.Symbol,
		From:   from,
		To:     to,
	}

	var prevFeatures *contracts.DayFeatures

	for _, day := range days {
		trade, feats, err := e.runDay(ctx, cand, day, prevFeatures, rng, opts)
		if err != nil {
			return nil, err
		}
		if feats != nil {
			prevFeatures = feats
		}

		if trade.Outcome.Entered() {
			result.Trades = append(result.Trades, trade)
		} else {
			result.SkippedDays++
		}
	}

	ledger := result.Trades
	if opts.ShuffleDays && rng != nil {
		ledger = make([]contracts.Trade, len(result.Trades))
		copy(ledger, result.Trades)
		rng.Shuffle(len(ledger), func(i, j int) {
			ledger[i], ledger[j] = ledger[j], ledger[i]
		})
	}
	aggregate(result, ledger)

	return result, nil
}

// runDay simulates one trading day. It returns the day's features so the
// caller can carry them into the next day as "prior day" filter inputs.
func (e *Engine) runDay(
	ctx context.Context,
	cand *contracts.EdgeCandidate,
	day time.Time,
	prevFeatures *contracts.DayFeatures,
	rng *rand.Rand,
	opts RunOptions,
) (contracts.Trade, *contracts.DayFeatures, error) {
	symbol := cand.Params.Symbol
	skip := func(outcome contracts.Outcome) contracts.Trade {
		return contracts.Trade{Symbol: symbol, Day: day, Outcome: outcome}
	}

	feats, err := e.features.GetBySymbolAndDate(ctx, symbol, day)
	if err != nil {
		if !errors.Is(err, contracts.ErrNotFound) {
			return contracts.Trade{}, nil, fmt.Errorf("load features for %s: %w", day.Format("2006-01-02"), err)
		}
		feats = nil
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	bars, err := e.bars.GetBySymbolAndTimeRange(ctx, symbol, dayStart, dayEnd)
	if err != nil {
		return contracts.Trade{}, feats, fmt.Errorf("load bars for %s: %w", day.Format("2006-01-02"), err)
	}
	if len(bars) == 0 {
		return skip(contracts.OutcomeSkippedNoBars), feats, nil
	}

	windowStart, windowEnd := simulator.WindowBounds(day, cand.Params.Window)
	openingRange, ok := simulator.ComputeOpeningRange(bars, windowStart, windowEnd)
	if !ok {
		return skip(contracts.OutcomeSkippedNoORB), feats, nil
	}

	// Filters see only the range (known at window close) and the prior
	// day's features — nothing after the entry window.
	if !passesFilters(cand.Params.Filters, openingRange, prevFeatures) {
		return skip(contracts.OutcomeSkippedFiltered), feats, nil
	}

	var atr float64
	if prevFeatures != nil {
		atr = prevFeatures.ATR14
	}

	in := simulator.Input{
		Symbol: symbol,
		Day:    day,
		Range:  openingRange,
		Bars:   simulator.BarsAfter(bars, windowEnd),
		Entry:  cand.Params.Entry,
		Exit:   cand.Params.Exit,
		ATR:    atr,
	}

	simOpts := simulator.Options{
		Slippage:       opts.Slippage,
		EntryDelayBars: opts.EntryDelayBars,
		ExitDelayBars:  opts.ExitDelayBars,
		NoiseAmp:       opts.NoiseAmp,
		Rand:           rng,
		StopFirstBias:  opts.StopFirstBias,
		BiasTolerance:  opts.BiasTolerance,
	}

	return simulator.Simulate(in, simOpts), feats, nil
}

// passesFilters evaluates the candidate's pre-trade filters. A filter
// whose required feature data is missing rejects the day: the engine
// never substitutes estimated data for missing data.
func passesFilters(filters []contracts.FilterSpec, r contracts.OpeningRange, prev *contracts.DayFeatures) bool {
	for _, f := range filters {
		switch f.Kind {
		case contracts.FilterMinORBSize:
			if r.Size < f.Min {
				return false
			}
		case contracts.FilterATRRange:
			if prev == nil {
				return false
			}
			if prev.ATR14 < f.Min {
				return false
			}
			if f.Max > 0 && prev.ATR14 > f.Max {
				return false
			}
		case contracts.FilterPriorRange:
			if prev == nil {
				return false
			}
			if prev.DayRange < f.Min {
				return false
			}
			if f.Max > 0 && prev.DayRange > f.Max {
				return false
			}
		}
	}
	return true
}

package simulator

import (
	"math/rand"
	"time"

	"github.com/hmoon/edgeforge/internal/contracts"
)

// Input is everything one simulation run may look at: the opening range
// and the bars strictly after its close. Nothing earlier ever reaches
// this package, so a lookahead bug cannot be written here by accident.
type Input struct {
	Symbol string
	Day    time.Time

	Range contracts.OpeningRange

	// Bars strictly after the window close, ascending by timestamp.
	// The last bar is the scan horizon; an open position there is NO_TRADE.
	Bars []contracts.Bar

	Entry contracts.EntrySpec
	Exit  contracts.ExitSpec

	// ATR is the prior day's ATR, used only by ATR_SCALED exits
	ATR float64
}

// Options are execution-cost and adversarial knobs. The zero value is
// the clean baseline; the cost gate sets Slippage only, the attack gate
// sets the rest. Keeping one code path for all of them is what makes a
// perturbed run comparable to the baseline.
type Options struct {
	// Slippage is a fixed price offset applied against the trade at
	// entry and at the stop fill.
	Slippage float64

	// EntryDelayBars shifts the fill that many bars after the trigger
	EntryDelayBars int

	// ExitDelayBars fills the exit at the close that many bars after the
	// touch. The outcome classification keeps the touched level; only the
	// realized R moves.
	ExitDelayBars int

	// NoiseAmp jitters the entry fill by a uniform amount in [-amp, +amp].
	// Requires Rand.
	NoiseAmp float64
	Rand     *rand.Rand

	// StopFirstBias widens the ambiguous-bar test: a target touch on a
	// bar whose low also comes within BiasTolerance of the stop counts as
	// a loss. The baseline tie-break (both levels inside one bar = LOSS)
	// applies regardless.
	StopFirstBias bool
	BiasTolerance float64
}

// Simulate turns one opening range and the bars after it into exactly
// one trade outcome. Pure: no state, no I/O, deterministic for a fixed
// Input/Options (including Rand seed).
func Simulate(in Input, opts Options) contracts.Trade {
	trade := contracts.Trade{
		Symbol: in.Symbol,
		Day:    in.Day,
	}

	if in.Range.BarCount == 0 {
		trade.Outcome = contracts.OutcomeSkippedNoORB
		return trade
	}
	if len(in.Bars) == 0 {
		trade.Outcome = contracts.OutcomeSkippedNoBars
		return trade
	}

	entryIdx, direction, ok := findEntry(in)
	if !ok {
		trade.Outcome = contracts.OutcomeSkippedNoEntry
		return trade
	}

	// Adversarial entry delay
	entryIdx += opts.EntryDelayBars
	if entryIdx >= len(in.Bars) {
		trade.Outcome = contracts.OutcomeSkippedNoEntry
		return trade
	}

	entryBar := in.Bars[entryIdx]
	entry := entryBar.Close

	if opts.NoiseAmp > 0 && opts.Rand != nil {
		entry += (opts.Rand.Float64()*2 - 1) * opts.NoiseAmp
	}
	// Slippage always worsens the fill
	if direction == contracts.DirectionLong {
		entry += opts.Slippage
	} else {
		entry -= opts.Slippage
	}

	stop := stopPrice(in.Range, direction, in.Exit.StopMode)
	// Stop fill also slips against the trade
	if direction == contracts.DirectionLong {
		stop -= opts.Slippage
	} else {
		stop += opts.Slippage
	}

	var risk float64
	if direction == contracts.DirectionLong {
		risk = entry - stop
	} else {
		risk = stop - entry
	}
	if risk <= 0 {
		trade.Outcome = contracts.OutcomeSkippedBigStop
		return trade
	}

	rewardDist, rewardR := rewardDistance(in, risk)
	var target float64
	if direction == contracts.DirectionLong {
		target = entry + rewardDist
	} else {
		target = entry - rewardDist
	}

	trade.Direction = direction
	trade.EntryTime = entryBar.Timestamp
	trade.EntryPrice = entry
	trade.StopPrice = stop
	trade.TargetPrice = target
	trade.BarsToEntry = entryIdx + 1

	scanExit(&trade, in, opts, entryIdx, risk, rewardR)
	return trade
}

// findEntry scans for the entry trigger and returns the index of the
// triggering bar plus the trade direction. The entry fill is always the
// triggering close, never the range edge itself.
func findEntry(in Input) (int, contracts.Direction, bool) {
	confirm := in.Entry.ConfirmBars
	if confirm < 1 {
		confirm = 1
	}

	switch in.Entry.Style {
	case contracts.EntryBreakoutClose, contracts.EntryFade:
		idx, breakDir, ok := findConsecutive(in.Bars, confirm, func(b contracts.Bar) (contracts.Direction, bool) {
			if b.Close > in.Range.High {
				return contracts.DirectionLong, true
			}
			if b.Close < in.Range.Low {
				return contracts.DirectionShort, true
			}
			return "", false
		})
		if !ok {
			return 0, "", false
		}
		if in.Entry.Style == contracts.EntryFade {
			breakDir = opposite(breakDir)
		}
		return idx, breakDir, true

	case contracts.EntryStopOrder:
		// Trigger on the wick piercing the edge, fill at that close. A
		// close sitting exactly on an edge cannot satisfy the entry-price
		// invariant, so it does not trigger.
		return findConsecutive(in.Bars, confirm, func(b contracts.Bar) (contracts.Direction, bool) {
			if b.High > in.Range.High && b.Close != in.Range.High && b.Close != in.Range.Low {
				return contracts.DirectionLong, true
			}
			if b.Low < in.Range.Low && b.Close != in.Range.High && b.Close != in.Range.Low {
				return contracts.DirectionShort, true
			}
			return "", false
		})

	case contracts.EntryLimitOrder:
		// First a closing break, then a pullback that trades back to the
		// broken edge; fill at the pullback close, in the break direction.
		breakIdx, breakDir, ok := findConsecutive(in.Bars, confirm, func(b contracts.Bar) (contracts.Direction, bool) {
			if b.Close > in.Range.High {
				return contracts.DirectionLong, true
			}
			if b.Close < in.Range.Low {
				return contracts.DirectionShort, true
			}
			return "", false
		})
		if !ok {
			return 0, "", false
		}
		for i := breakIdx + 1; i < len(in.Bars); i++ {
			b := in.Bars[i]
			if b.Close == in.Range.High || b.Close == in.Range.Low {
				continue
			}
			if breakDir == contracts.DirectionLong && b.Low <= in.Range.High {
				return i, contracts.DirectionLong, true
			}
			if breakDir == contracts.DirectionShort && b.High >= in.Range.Low {
				return i, contracts.DirectionShort, true
			}
		}
		return 0, "", false
	}

	return 0, "", false
}

// findConsecutive returns the index of the bar completing n consecutive
// matches in the same direction. A non-match or direction flip resets.
func findConsecutive(bars []contracts.Bar, n int, match func(contracts.Bar) (contracts.Direction, bool)) (int, contracts.Direction, bool) {
	var (
		run    int
		runDir contracts.Direction
	)
	for i, b := range bars {
		dir, ok := match(b)
		if !ok {
			run = 0
			continue
		}
		if run == 0 || dir != runDir {
			run = 1
			runDir = dir
		} else {
			run++
		}
		if run >= n {
			return i, runDir, true
		}
	}
	return 0, "", false
}

func opposite(d contracts.Direction) contracts.Direction {
	if d == contracts.DirectionLong {
		return contracts.DirectionShort
	}
	return contracts.DirectionLong
}

// stopPrice places the protective stop from the configured mode. The
// fractional modes measure back from the broken edge; the result is
// clamped inside the range so the stop can never sit on the entry side.
func stopPrice(r contracts.OpeningRange, dir contracts.Direction, mode contracts.StopMode) float64 {
	if dir == contracts.DirectionLong {
		var stop float64
		switch mode {
		case contracts.StopFull:
			stop = r.Low
		case contracts.StopHalf:
			stop = r.Midpoint()
		case contracts.StopQuarter:
			stop = r.High - 0.25*r.Size
		case contracts.StopThreeQuarter:
			stop = r.High - 0.75*r.Size
		default:
			stop = r.Low
		}
		if stop > r.High {
			stop = r.High
		}
		return stop
	}

	var stop float64
	switch mode {
	case contracts.StopFull:
		stop = r.High
	case contracts.StopHalf:
		stop = r.Midpoint()
	case contracts.StopQuarter:
		stop = r.Low + 0.25*r.Size
	case contracts.StopThreeQuarter:
		stop = r.Low + 0.75*r.Size
	default:
		stop = r.High
	}
	if stop < r.Low {
		stop = r.Low
	}
	return stop
}

// rewardDistance derives the target distance and the R multiple a win
// pays. For FIXED_R the two are tied by configuration; for the scaled
// styles the multiple is whatever the scaled distance works out to.
func rewardDistance(in Input, risk float64) (float64, float64) {
	switch in.Exit.Style {
	case contracts.ExitATRScaled:
		if in.ATR > 0 && in.Exit.ATRMult > 0 {
			dist := in.Exit.ATRMult * in.ATR
			return dist, dist / risk
		}
	case contracts.ExitHalfRange:
		if in.Range.Size > 0 {
			dist := in.Range.Size / 2
			return dist, dist / risk
		}
	}
	dist := in.Exit.RewardR * risk
	return dist, in.Exit.RewardR
}

// scanExit walks bars after entry looking for stop/target touches using
// high/low, tracking MAE/MFE in R on every bar until exit.
//
// Tie-break rule: a bar whose range touches both stop and target is
// always a LOSS. The favorable price is never assumed to print first.
func scanExit(trade *contracts.Trade, in Input, opts Options, entryIdx int, risk, rewardR float64) {
	var (
		entry     = trade.EntryPrice
		stop      = trade.StopPrice
		target    = trade.TargetPrice
		long      = trade.Direction == contracts.DirectionLong
		trailed   bool
		heldBars  int
	)

	for i := entryIdx + 1; i < len(in.Bars); i++ {
		b := in.Bars[i]
		heldBars++

		// Excursions first: they are observable whatever happens inside the bar
		if long {
			if fav := (b.High - entry) / risk; fav > trade.MFE {
				trade.MFE = fav
			}
			if adv := (entry - b.Low) / risk; adv > trade.MAE {
				trade.MAE = adv
			}
		} else {
			if fav := (entry - b.Low) / risk; fav > trade.MFE {
				trade.MFE = fav
			}
			if adv := (b.High - entry) / risk; adv > trade.MAE {
				trade.MAE = adv
			}
		}

		stopTouched := touched(b, stop, long, false)
		targetTouched := touched(b, target, long, true)

		if stopTouched && targetTouched {
			// Ambiguous bar: conservative, always the loss
			closeLoss(trade, in, opts, i, entry, stop, risk, trailed)
			return
		}
		if stopTouched {
			closeLoss(trade, in, opts, i, entry, stop, risk, trailed)
			return
		}
		if targetTouched {
			if opts.StopFirstBias && nearStop(b, stop, long, opts.BiasTolerance) {
				closeLoss(trade, in, opts, i, entry, stop, risk, trailed)
				return
			}
			trade.Outcome = contracts.OutcomeWin
			trade.RMultiple = rewardR
			if opts.ExitDelayBars > 0 {
				trade.RMultiple = delayedR(in.Bars, i, opts.ExitDelayBars, entry, risk, long)
			}
			return
		}

		// Trailing: after a close one full risk unit in favor, the stop
		// moves to breakeven. A later touch there is a scratch, not a loss.
		if in.Exit.Style == contracts.ExitTrailing && !trailed {
			if long && b.Close >= entry+risk {
				stop = entry
				trailed = true
			} else if !long && b.Close <= entry-risk {
				stop = entry
				trailed = true
			}
		}

		if in.Exit.Style == contracts.ExitTimeBoxed && in.Exit.MaxHoldBars > 0 && heldBars >= in.Exit.MaxHoldBars {
			trade.Outcome = contracts.OutcomeNoTrade
			trade.RMultiple = 0
			return
		}
	}

	// Horizon reached with the position still open
	trade.Outcome = contracts.OutcomeNoTrade
	trade.RMultiple = 0
}

// closeLoss records a stop exit. A trailed (breakeven) stop is a scratch
// with zero R; an original stop is exactly -1.0, never a partial value.
func closeLoss(trade *contracts.Trade, in Input, opts Options, i int, entry, stop, risk float64, trailed bool) {
	if trailed && stop == entry {
		trade.Outcome = contracts.OutcomeNoTrade
		trade.RMultiple = 0
		return
	}
	trade.Outcome = contracts.OutcomeLoss
	trade.RMultiple = -1.0
	if opts.ExitDelayBars > 0 {
		long := trade.Direction == contracts.DirectionLong
		trade.RMultiple = delayedR(in.Bars, i, opts.ExitDelayBars, entry, risk, long)
	}
}

// touched checks a level against the bar's high/low (not close)
func touched(b contracts.Bar, level float64, long, favorable bool) bool {
	if long == favorable {
		// Long target or short stop: upper side
		return b.High >= level
	}
	return b.Low <= level
}

// nearStop reports whether the bar traded within tol of the stop
func nearStop(b contracts.Bar, stop float64, long bool, tol float64) bool {
	if long {
		return b.Low <= stop+tol
	}
	return b.High >= stop-tol
}

// delayedR realizes the exit at the close several bars after the touch,
// clamped at the horizon. Only adversarial runs take this path.
func delayedR(bars []contracts.Bar, touchIdx, delay int, entry, risk float64, long bool) float64 {
	fillIdx := touchIdx + delay
	if fillIdx >= len(bars) {
		fillIdx = len(bars) - 1
	}
	fill := bars[fillIdx].Close
	if long {
		return (fill - entry) / risk
	}
	return (entry - fill) / risk
}

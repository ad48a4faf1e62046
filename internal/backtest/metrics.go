package backtest

import (
	"math"

	"github.com/hmoon/edgeforge/internal/contracts"
)

// aggregate fills the result's performance metrics from the ledger.
// Only closed trades (WIN/LOSS) enter the statistics; entered-but-flat
// days are counted and otherwise ignored.
func aggregate(result *contracts.BacktestResult, ledger []contracts.Trade) {
	var (
		rs    []float64
		winR  float64
		lossR float64
	)

	for _, tr := range ledger {
		switch tr.Outcome {
		case contracts.OutcomeWin:
			result.Wins++
			winR += tr.RMultiple
			rs = append(rs, tr.RMultiple)
		case contracts.OutcomeLoss:
			result.Losses++
			lossR += -tr.RMultiple
			rs = append(rs, tr.RMultiple)
		case contracts.OutcomeNoTrade:
			result.NoTrades++
		}
	}

	result.TradeCount = result.Wins + result.Losses
	if result.TradeCount == 0 {
		return
	}

	for _, r := range rs {
		result.TotalR += r
	}
	result.WinRate = float64(result.Wins) / float64(result.TradeCount)
	result.AvgR = result.TotalR / float64(result.TradeCount)
	result.MaxDrawdownR = maxDrawdown(rs)

	if lossR > 0 {
		result.ProfitFactor = winR / lossR
	} else if winR > 0 {
		result.ProfitFactor = math.Inf(1)
	}

	if sd := stddev(rs, result.AvgR); sd > 0 {
		result.ExpectancyRatio = result.AvgR / sd
	}
}

// maxDrawdown is the largest peak-to-trough fall of the cumulative R
// equity curve, returned as a positive number of R.
func maxDrawdown(rs []float64) float64 {
	var (
		equity float64
		peak   float64
		worst  float64
	)
	for _, r := range rs {
		equity += r
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > worst {
			worst = dd
		}
	}
	return worst
}

func stddev(rs []float64, mean float64) float64 {
	if len(rs) < 2 {
		return 0
	}
	var sum float64
	for _, r := range rs {
		d := r - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(rs)-1))
}

package contracts

import "time"

// BacktestResult aggregates one candidate's performance over one date
// range. Computed per validation run; never persisted beyond the run.
type BacktestResult struct {
	Symbol string    `json:"symbol"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`

	Trades []Trade `json:"trades"`

	// Counts. TradeCount covers closed trades only (WIN/LOSS); skips and
	// open-at-horizon days are tracked separately and excluded from the
	// performance metrics.
	TradeCount  int `json:"trade_count"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	NoTrades    int `json:"no_trades"`
	SkippedDays int `json:"skipped_days"`

	WinRate      float64 `json:"win_rate"`
	AvgR         float64 `json:"avg_r"`
	TotalR       float64 `json:"total_r"`
	MaxDrawdownR float64 `json:"max_drawdown_r"` // peak-to-trough on the cumulative R curve, >= 0
	ProfitFactor float64 `json:"profit_factor"`  // sum of winning R / sum of |losing R|

	// ExpectancyRatio is AvgR divided by the standard deviation of the
	// per-trade R series (Sharpe-like, variance-normalized expectancy).
	ExpectancyRatio float64 `json:"expectancy_ratio"`
}

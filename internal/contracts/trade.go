package contracts

import "time"

// Outcome is the result of simulating a single trade. Data-absence
// conditions are first-class outcomes, not errors: a day without bars
// or without an entry trigger is a normal, frequent result.
type Outcome string

const (
	OutcomeWin     Outcome = "WIN"
	OutcomeLoss    Outcome = "LOSS"
	OutcomeNoTrade Outcome = "NO_TRADE" // entered, neither stop nor target touched before the horizon

	OutcomeSkippedNoORB    Outcome = "SKIPPED_NO_ORB"    // no bars inside the opening-range window
	OutcomeSkippedNoBars   Outcome = "SKIPPED_NO_BARS"   // no bars for the day at all
	OutcomeSkippedNoEntry  Outcome = "SKIPPED_NO_ENTRY"  // no close outside the range before the horizon
	OutcomeSkippedBigStop  Outcome = "SKIPPED_BIG_STOP"  // non-positive risk after stop placement
	OutcomeSkippedFiltered Outcome = "SKIPPED_FILTERED"  // pre-trade filter rejected the day
)

// Closed reports whether the outcome is a closed position (WIN or LOSS).
// Only closed trades enter aggregate statistics.
func (o Outcome) Closed() bool {
	return o == OutcomeWin || o == OutcomeLoss
}

// Entered reports whether a position was opened at all.
func (o Outcome) Entered() bool {
	return o == OutcomeWin || o == OutcomeLoss || o == OutcomeNoTrade
}

// Direction of a simulated position
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Trade is one simulated position. Immutable once created by the
// simulator; owned by the backtest result set that collects it.
type Trade struct {
	Symbol      string    `json:"symbol"`
	Day         time.Time `json:"day"`
	Direction   Direction `json:"direction"`
	EntryTime   time.Time `json:"entry_time"`
	EntryPrice  float64   `json:"entry_price"`
	StopPrice   float64   `json:"stop_price"`
	TargetPrice float64   `json:"target_price"`
	Outcome     Outcome   `json:"outcome"`

	// RMultiple is +rewardR on WIN, exactly -1.0 on LOSS, 0.0 otherwise.
	// Never a partial value.
	RMultiple float64 `json:"r_multiple"`

	BarsToEntry int     `json:"bars_to_entry"`
	MAE         float64 `json:"mae"` // max adverse excursion, in R
	MFE         float64 `json:"mfe"` // max favorable excursion, in R
}

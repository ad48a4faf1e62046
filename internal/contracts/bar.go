package contracts

import "time"

// Bar represents one OHLCV sample. Bars are immutable once stored;
// the bar store is consumed read-only by every component here.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"` // UTC
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// DayFeatures holds pre-computed per-day aggregates used for filter
// evaluation. Filters may only reference features of a day strictly
// before the entry window, which keeps filter checks lookahead-free.
type DayFeatures struct {
	Symbol        string    `json:"symbol"`
	Date          time.Time `json:"date"`
	ATR14         float64   `json:"atr_14"`
	DayRange      float64   `json:"day_range"`       // high - low of the day
	DayVolume     int64     `json:"day_volume"`
	GapOpen       float64   `json:"gap_open"`        // open minus prior close
	ORBSize5      float64   `json:"orb_size_5"`
	ORBSize15     float64   `json:"orb_size_15"`
	ORBSize30     float64   `json:"orb_size_30"`
}

// OpeningRange is the high/low formed inside a fixed window after the
// session opens. Derived on demand from bars, never persisted.
type OpeningRange struct {
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Size      float64   `json:"size"`
	WindowEnd time.Time `json:"window_end"`
	BarCount  int       `json:"bar_count"`
}

// Midpoint returns the middle of the range
func (r OpeningRange) Midpoint() float64 {
	return (r.High + r.Low) / 2
}

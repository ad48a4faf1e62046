package simulator

import (
	"time"

	"github.com/hmoon/edgeforge/internal/contracts"
)

// ComputeOpeningRange derives the high/low from bars strictly inside
// [windowStart, windowEnd). Bars at or after windowEnd never contribute,
// which is what keeps the range itself lookahead-free.
func ComputeOpeningRange(bars []contracts.Bar, windowStart, windowEnd time.Time) (contracts.OpeningRange, bool) {
	var (
		high  float64
		low   float64
		count int
	)

	for _, b := range bars {
		if b.Timestamp.Before(windowStart) || !b.Timestamp.Before(windowEnd) {
			continue
		}
		if count == 0 {
			high = b.High
			low = b.Low
		} else {
			if b.High > high {
				high = b.High
			}
			if b.Low < low {
				low = b.Low
			}
		}
		count++
	}

	if count == 0 {
		return contracts.OpeningRange{}, false
	}

	return contracts.OpeningRange{
		High:      high,
		Low:       low,
		Size:      high - low,
		WindowEnd: windowEnd,
		BarCount:  count,
	}, true
}

// BarsAfter returns the bars with timestamps at or after t, preserving order
func BarsAfter(bars []contracts.Bar, t time.Time) []contracts.Bar {
	for i, b := range bars {
		if !b.Timestamp.Before(t) {
			return bars[i:]
		}
	}
	return nil
}

// WindowBounds resolves a candidate's time window to concrete UTC
// timestamps on the given day.
func WindowBounds(day time.Time, w contracts.TimeWindow) (time.Time, time.Time) {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	start := midnight.Add(time.Duration(w.StartMinute) * time.Minute)
	end := midnight.Add(time.Duration(w.EndMinute) * time.Minute)
	return start, end
}

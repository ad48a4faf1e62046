package lifecycle

import (
	"fmt"

	"github.com/hmoon/edgeforge/internal/contracts"
)

const minutesPerDay = 24 * 60

// validateParams checks a candidate's parameters against the closed
// schema. Unknown enum values are rejected, not ignored: a typo in a
// generator must fail here, before anything is persisted.
func validateParams(p contracts.CandidateParams) error {
	if p.Symbol == "" {
		return &SchemaError{Field: "symbol", Reason: "required"}
	}

	switch p.Window.Kind {
	case contracts.WindowOpeningRange, contracts.WindowHourRange:
	default:
		return &SchemaError{Field: "window.kind", Reason: fmt.Sprintf("unknown kind %q", p.Window.Kind)}
	}
	if p.Window.StartMinute < 0 || p.Window.EndMinute > minutesPerDay {
		return &SchemaError{Field: "window", Reason: "window outside the day"}
	}
	if p.Window.Duration() <= 0 {
		return &SchemaError{Field: "window", Reason: "end must be after start"}
	}

	switch p.Entry.Style {
	case contracts.EntryBreakoutClose, contracts.EntryFade, contracts.EntryStopOrder, contracts.EntryLimitOrder:
	default:
		return &SchemaError{Field: "entry.style", Reason: fmt.Sprintf("unknown style %q", p.Entry.Style)}
	}
	if p.Entry.ConfirmBars < 1 {
		return &SchemaError{Field: "entry.confirm_bars", Reason: "must be >= 1"}
	}

	switch p.Exit.Style {
	case contracts.ExitFixedR, contracts.ExitATRScaled, contracts.ExitHalfRange, contracts.ExitTrailing, contracts.ExitTimeBoxed:
	default:
		return &SchemaError{Field: "exit.style", Reason: fmt.Sprintf("unknown style %q", p.Exit.Style)}
	}
	switch p.Exit.StopMode {
	case contracts.StopFull, contracts.StopHalf, contracts.StopQuarter, contracts.StopThreeQuarter:
	default:
		return &SchemaError{Field: "exit.stop_mode", Reason: fmt.Sprintf("unknown mode %q", p.Exit.StopMode)}
	}
	if p.Exit.RewardR <= 0 {
		return &SchemaError{Field: "exit.reward_r", Reason: "must be > 0"}
	}
	if p.Exit.Style == contracts.ExitATRScaled && p.Exit.ATRMult <= 0 {
		return &SchemaError{Field: "exit.atr_mult", Reason: "required for ATR_SCALED"}
	}
	if p.Exit.Style == contracts.ExitTimeBoxed && p.Exit.MaxHoldBars <= 0 {
		return &SchemaError{Field: "exit.max_hold_bars", Reason: "required for TIME_BOXED"}
	}

	switch p.Risk.Model {
	case contracts.RiskFixedPct, contracts.RiskVolScaled:
	default:
		return &SchemaError{Field: "risk.model", Reason: fmt.Sprintf("unknown model %q", p.Risk.Model)}
	}
	if p.Risk.RiskPct <= 0 || p.Risk.RiskPct > 5 {
		return &SchemaError{Field: "risk.risk_pct", Reason: "must be in (0, 5]"}
	}

	for i, f := range p.Filters {
		field := fmt.Sprintf("filters[%d]", i)
		switch f.Kind {
		case contracts.FilterMinORBSize:
			if f.Min <= 0 {
				return &SchemaError{Field: field, Reason: "MIN_ORB_SIZE requires min > 0"}
			}
		case contracts.FilterATRRange, contracts.FilterPriorRange:
			if f.Min < 0 {
				return &SchemaError{Field: field, Reason: "min must be >= 0"}
			}
			if f.Max != 0 && f.Max <= f.Min {
				return &SchemaError{Field: field, Reason: "max must exceed min"}
			}
		default:
			return &SchemaError{Field: field, Reason: fmt.Sprintf("unknown kind %q", f.Kind)}
		}
	}

	return nil
}

package contracts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// WindowKind selects how a candidate's time window is interpreted
type WindowKind string

const (
	// WindowOpeningRange is a fixed-duration window starting at the session open
	WindowOpeningRange WindowKind = "OPENING_RANGE"
	// WindowHourRange is an arbitrary intraday window
	WindowHourRange WindowKind = "HOUR_RANGE"
)

// TimeWindow is the range-formation window, in minutes after 00:00 UTC.
// Both kinds share the same computation; the kind only documents intent
// and constrains validation.
type TimeWindow struct {
	Kind        WindowKind `json:"kind"`
	StartMinute int        `json:"start_minute"`
	EndMinute   int        `json:"end_minute"`
}

// Duration returns the window length in minutes
func (w TimeWindow) Duration() int {
	return w.EndMinute - w.StartMinute
}

// EntryStyle enumerates how the entry trigger is evaluated
type EntryStyle string

const (
	EntryBreakoutClose EntryStyle = "BREAKOUT_CLOSE" // first close outside the range
	EntryFade          EntryStyle = "FADE"           // same trigger, opposite direction
	EntryStopOrder     EntryStyle = "STOP_ORDER"     // high/low pierces the edge, filled at close
	EntryLimitOrder    EntryStyle = "LIMIT_ORDER"    // pullback to the broken edge, filled at close
)

// EntrySpec is a candidate's entry rule
type EntrySpec struct {
	Style EntryStyle `json:"style"`
	// ConfirmBars requires N consecutive closes outside the range before
	// entering. 1 means the first qualifying close triggers.
	ConfirmBars int `json:"confirm_bars"`
}

// StopMode places the protective stop relative to the opening range
type StopMode string

const (
	StopFull         StopMode = "FULL"          // opposite edge
	StopHalf         StopMode = "HALF"          // range midpoint
	StopQuarter      StopMode = "QUARTER"       // 25% beyond the broken edge
	StopThreeQuarter StopMode = "THREE_QUARTER" // 75% beyond the broken edge
)

// ExitStyle enumerates how the target/exit is derived
type ExitStyle string

const (
	ExitFixedR    ExitStyle = "FIXED_R"    // target = entry ± rewardR × risk
	ExitATRScaled ExitStyle = "ATR_SCALED" // reward distance scaled by prior-day ATR
	ExitHalfRange ExitStyle = "HALF_RANGE" // reward distance = half the range size
	ExitTrailing  ExitStyle = "TRAILING"   // stop trails to breakeven after a +1R close
	ExitTimeBoxed ExitStyle = "TIME_BOXED" // flat after MaxHoldBars, treated as NO_TRADE
)

// ExitSpec is a candidate's exit/stop rule
type ExitSpec struct {
	Style       ExitStyle `json:"style"`
	StopMode    StopMode  `json:"stop_mode"`
	RewardR     float64   `json:"reward_r"`
	ATRMult     float64   `json:"atr_mult,omitempty"`
	MaxHoldBars int       `json:"max_hold_bars,omitempty"`
}

// RiskModel sizes the position
type RiskModel string

const (
	RiskFixedPct  RiskModel = "FIXED_PCT"
	RiskVolScaled RiskModel = "VOL_SCALED"
)

// RiskSpec is a candidate's risk model
type RiskSpec struct {
	Model   RiskModel `json:"model"`
	RiskPct float64   `json:"risk_pct"`
}

// FilterKind enumerates the closed set of pre-trade filters. Filters are
// tagged variants with typed fields, never free-form config blobs, so
// validation and hashing stay exhaustive.
type FilterKind string

const (
	FilterMinORBSize FilterKind = "MIN_ORB_SIZE" // opening-range size lower bound
	FilterATRRange   FilterKind = "ATR_RANGE"    // prior-day ATR bounds
	FilterPriorRange FilterKind = "PRIOR_RANGE"  // prior-day range bounds
)

// FilterSpec is one pre-trade filter. Min/Max semantics depend on Kind:
// MIN_ORB_SIZE uses Min only; the range kinds use both (Max 0 = unbounded).
type FilterSpec struct {
	Kind FilterKind `json:"kind"`
	Min  float64    `json:"min"`
	Max  float64    `json:"max,omitempty"`
}

// CandidateParams is the hashable identity of a candidate: every field
// that changes the strategy's behavior, and nothing else. Human names,
// timestamps and generator bookkeeping never enter the hash.
type CandidateParams struct {
	Symbol  string       `json:"symbol"`
	Window  TimeWindow   `json:"window"`
	Entry   EntrySpec    `json:"entry"`
	Exit    ExitSpec     `json:"exit"`
	Risk    RiskSpec     `json:"risk"`
	Filters []FilterSpec `json:"filters"`
}

// Hash returns the SHA-256 content hash of the parameters as canonical
// JSON. Filters are sorted by kind first so ordering cannot split
// structurally identical candidates, and fields the chosen styles ignore
// are zeroed so behavioral twins cannot hash apart on stray values.
func (p CandidateParams) Hash() (string, error) {
	canon := p
	if canon.Exit.Style != ExitATRScaled {
		canon.Exit.ATRMult = 0
	}
	if canon.Exit.Style != ExitTimeBoxed {
		canon.Exit.MaxHoldBars = 0
	}

	canon.Filters = append([]FilterSpec(nil), p.Filters...)
	for i := range canon.Filters {
		if canon.Filters[i].Kind == FilterMinORBSize {
			canon.Filters[i].Max = 0
		}
	}
	sort.Slice(canon.Filters, func(i, j int) bool {
		if canon.Filters[i].Kind != canon.Filters[j].Kind {
			return canon.Filters[i].Kind < canon.Filters[j].Kind
		}
		if canon.Filters[i].Min != canon.Filters[j].Min {
			return canon.Filters[i].Min < canon.Filters[j].Min
		}
		return canon.Filters[i].Max < canon.Filters[j].Max
	})
	if len(canon.Filters) == 0 {
		canon.Filters = []FilterSpec{}
	}

	jsonBytes, err := json.Marshal(canon)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// EdgeCandidate is a formal, parameterized strategy hypothesis. The
// content hash is its identity for the candidate's whole lifetime;
// parameters are never mutated after submission.
type EdgeCandidate struct {
	ID            int64           `json:"id"`
	Hash          string          `json:"hash"`
	HumanName     string          `json:"human_name"`
	Params        CandidateParams `json:"params"`
	GeneratorMode string          `json:"generator_mode"`
	Status        CandidateStatus `json:"status"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ComputeHash computes and stores the candidate's content hash
func (c *EdgeCandidate) ComputeHash() (string, error) {
	hash, err := c.Params.Hash()
	if err != nil {
		return "", err
	}
	c.Hash = hash
	return hash, nil
}

package contracts

import "time"

// GateName identifies one of the four validation gate categories.
// Gates run in declaration order; a failure is terminal.
type GateName string

const (
	GateBaseline GateName = "BASELINE"
	GateCost     GateName = "COST_REALISM"
	GateAttack   GateName = "ADVERSARIAL"
	GateRegime   GateName = "REGIME_SPLIT"
)

// GateResult is one gate's verdict plus the raw metric behind it
type GateResult struct {
	Gate      GateName `json:"gate"`
	Passed    bool     `json:"passed"`
	Score     float64  `json:"score"`     // 0-25, surplus above the pass threshold
	Metric    float64  `json:"metric"`    // the measured quantity the gate judged
	Threshold float64  `json:"threshold"` // the pass threshold it was judged against
	Detail    string   `json:"detail"`
}

// ConfidenceTier grades a survivor by score and sample size jointly
type ConfidenceTier string

const (
	ConfidenceVeryHigh ConfidenceTier = "VERY_HIGH"
	ConfidenceHigh     ConfidenceTier = "HIGH"
	ConfidenceMedium   ConfidenceTier = "MEDIUM"
	ConfidenceLow      ConfidenceTier = "LOW"
)

// ConfidenceFor maps a survival score and closed-trade count to a tier
func ConfidenceFor(score float64, trades int) ConfidenceTier {
	switch {
	case score >= 80 && trades >= 100:
		return ConfidenceVeryHigh
	case score >= 60 && trades >= 50:
		return ConfidenceHigh
	case score >= 40 && trades >= 30:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ValidationResult is the outcome of the full gate sequence for one
// candidate. A candidate receives at most one of these: survivors get a
// score and tier, failures get a failed gate and a structured reason
// but never a survival score.
type ValidationResult struct {
	ID          int64  `json:"id"`
	CandidateID int64  `json:"candidate_id"`
	Hash        string `json:"hash"`

	Passed        bool     `json:"passed"`
	FailedGate    GateName `json:"failed_gate,omitempty"`
	FailureReason string   `json:"failure_reason,omitempty"`

	Gates []GateResult `json:"gates"`

	SurvivalScore float64        `json:"survival_score"` // 0-100, only meaningful when Passed
	Confidence    ConfidenceTier `json:"confidence,omitempty"`
	TradeCount    int            `json:"trade_count"`
	WinRate       float64        `json:"win_rate"`
	AvgR          float64        `json:"avg_r"`
	MaxDrawdownR  float64        `json:"max_drawdown_r"`

	// AttackSeed is the RNG seed the adversarial gate ran with, recorded
	// so the run is reproducible.
	AttackSeed int64 `json:"attack_seed"`

	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	CreatedAt time.Time `json:"created_at"`
}

// GateScore returns the recorded result for a gate, if it ran
func (v *ValidationResult) GateScore(gate GateName) (GateResult, bool) {
	for _, g := range v.Gates {
		if g.Gate == gate {
			return g, true
		}
	}
	return GateResult{}, false
}

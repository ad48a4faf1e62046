package contracts

import "time"

// EdgeStatus is the operational state of an approved edge. Status may
// change over the edge's life; its parameters never do.
type EdgeStatus string

const (
	EdgeActive    EdgeStatus = "ACTIVE"
	EdgeSuspended EdgeStatus = "SUSPENDED"
	EdgeRetired   EdgeStatus = "RETIRED"
)

// Valid reports whether s is a known edge status
func (s EdgeStatus) Valid() bool {
	return s == EdgeActive || s == EdgeSuspended || s == EdgeRetired
}

// ApprovedEdge is a frozen, production-ready strategy: the candidate's
// full parameter set plus approval metadata and a metrics snapshot taken
// at approval time. Parameter fields are never updated in place;
// re-parameterization means a new candidate, a new hash, a new version.
type ApprovedEdge struct {
	ID          int64  `json:"id"`
	CandidateID int64  `json:"candidate_id"`
	Hash        string `json:"hash"`
	Version     int    `json:"version"`

	HumanName string          `json:"human_name"`
	Params    CandidateParams `json:"params"`

	ApprovedBy string    `json:"approved_by"`
	ApprovedAt time.Time `json:"approved_at"`

	Status EdgeStatus `json:"status"`

	// Metrics snapshot at approval time
	SurvivalScore float64        `json:"survival_score"`
	Confidence    ConfidenceTier `json:"confidence"`
	TradeCount    int            `json:"trade_count"`
	AvgR          float64        `json:"avg_r"`
	MaxDrawdownR  float64        `json:"max_drawdown_r"`

	// Drift thresholds for live monitoring collaborators: if realized
	// performance breaches these, the edge should be reviewed.
	DriftMinWinRate   float64 `json:"drift_min_win_rate"`
	DriftMaxDrawdownR float64 `json:"drift_max_drawdown_r"`
}

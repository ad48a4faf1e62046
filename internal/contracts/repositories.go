package contracts

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a row does not exist
var ErrNotFound = errors.New("not found")

// BarRepository reads OHLCV bars from the bar store (read-only)
type BarRepository interface {
	// GetBySymbolAndTimeRange returns bars ordered by timestamp ascending
	GetBySymbolAndTimeRange(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error)
	// GetTradingDays returns the distinct UTC dates with bars, ascending
	GetTradingDays(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error)
}

// FeatureRepository reads pre-computed per-day features (read-only)
type FeatureRepository interface {
	GetBySymbolAndDate(ctx context.Context, symbol string, date time.Time) (*DayFeatures, error)
}

// CandidateRepository persists the candidate registry
type CandidateRepository interface {
	Insert(ctx context.Context, c *EdgeCandidate) error
	GetByID(ctx context.Context, id int64) (*EdgeCandidate, error)
	GetByHash(ctx context.Context, hash string) (*EdgeCandidate, error)
	ListByStatus(ctx context.Context, status CandidateStatus, limit int) ([]*EdgeCandidate, error)
	// UpdateStatus transitions id from one status to another. The guard on
	// the current status makes concurrent transitions lose cleanly.
	UpdateStatus(ctx context.Context, id int64, from, to CandidateStatus, reason string) error
	CountByStatus(ctx context.Context) (map[CandidateStatus]int, error)
}

// SurvivorRepository persists validation results for survivors
type SurvivorRepository interface {
	Insert(ctx context.Context, v *ValidationResult) error
	GetByCandidateID(ctx context.Context, candidateID int64) (*ValidationResult, error)
	List(ctx context.Context, limit int) ([]*ValidationResult, error)
}

// EdgeRepository persists the approved-edge manifest, the sole
// authoritative source of "what strategies are live"
type EdgeRepository interface {
	Insert(ctx context.Context, e *ApprovedEdge) error
	GetByID(ctx context.Context, id int64) (*ApprovedEdge, error)
	GetByHash(ctx context.Context, hash string) (*ApprovedEdge, error)
	List(ctx context.Context) ([]*ApprovedEdge, error)
	// UpdateStatus changes the operational status only; parameter columns
	// are never written after insert.
	UpdateStatus(ctx context.Context, id int64, status EdgeStatus) error
	// NextVersion returns 1 + the highest version approved for humanName
	NextVersion(ctx context.Context, humanName string) (int, error)
}

// GenerationRecord is one generator invocation, kept for audit trail
// reconstruction independent of individual candidate status
type GenerationRecord struct {
	ID         int64     `json:"id"`
	Mode       string    `json:"mode"`
	Symbol     string    `json:"symbol"`
	Seed       int64     `json:"seed"`
	Generated  int       `json:"generated"`
	Duplicates int       `json:"duplicates"`
	Invalid    int       `json:"invalid"`
	Accepted   int       `json:"accepted"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditLogRepository persists the generation audit log
type AuditLogRepository interface {
	Insert(ctx context.Context, rec *GenerationRecord) error
	List(ctx context.Context, limit int) ([]*GenerationRecord, error)
}

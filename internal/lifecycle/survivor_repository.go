package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hmoon/edgeforge/internal/contracts"
)

// SurvivorRepository implements contracts.SurvivorRepository over
// edge.survivors. One row per surviving candidate; failures never land
// here, their reason lives on the candidate row.
type SurvivorRepository struct {
	pool *pgxpool.Pool
}

// NewSurvivorRepository creates a new survivor repository
func NewSurvivorRepository(pool *pgxpool.Pool) *SurvivorRepository {
	return &SurvivorRepository{pool: pool}
}

// Insert stores a validation result and fills its ID
func (r *SurvivorRepository) Insert(ctx context.Context, v *contracts.ValidationResult) error {
	gatesJSON, err := json.Marshal(v.Gates)
	if err != nil {
		return fmt.Errorf("marshal gates: %w", err)
	}

	query := `
		INSERT INTO edge.survivors (
			candidate_id, hash, passed, gates, survival_score, confidence,
			trade_count, win_rate, avg_r, max_drawdown_r, attack_seed, from_date, to_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`

	return r.pool.QueryRow(ctx, query,
		v.CandidateID, v.Hash, v.Passed, gatesJSON, v.SurvivalScore, v.Confidence,
		v.TradeCount, v.WinRate, v.AvgR, v.MaxDrawdownR, v.AttackSeed, v.From, v.To,
	).Scan(&v.ID, &v.CreatedAt)
}

// GetByCandidateID retrieves the validation result for one candidate
func (r *SurvivorRepository) GetByCandidateID(ctx context.Context, candidateID int64) (*contracts.ValidationResult, error) {
	row := r.pool.QueryRow(ctx, survivorSelect+` WHERE candidate_id = $1`, candidateID)
	v, err := scanSurvivor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contracts.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// List retrieves survivors ordered by survival score, best first
func (r *SurvivorRepository) List(ctx context.Context, limit int) ([]*contracts.ValidationResult, error) {
	if limit <= 0 {
		limit = 50
	}

	query := survivorSelect + `
		ORDER BY survival_score DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*contracts.ValidationResult
	for rows.Next() {
		v, err := scanSurvivor(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, rows.Err()
}

const survivorSelect = `
	SELECT id, candidate_id, hash, passed, gates, survival_score, confidence,
	       trade_count, win_rate, avg_r, max_drawdown_r, attack_seed,
	       from_date, to_date, created_at
	FROM edge.survivors
`

func scanSurvivor(row pgx.Row) (*contracts.ValidationResult, error) {
	var (
		v         contracts.ValidationResult
		gatesJSON []byte
	)
	err := row.Scan(
		&v.ID, &v.CandidateID, &v.Hash, &v.Passed, &gatesJSON, &v.SurvivalScore, &v.Confidence,
		&v.TradeCount, &v.WinRate, &v.AvgR, &v.MaxDrawdownR, &v.AttackSeed,
		&v.From, &v.To, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(gatesJSON, &v.Gates); err != nil {
		return nil, fmt.Errorf("unmarshal gates: %w", err)
	}
	return &v, nil
}

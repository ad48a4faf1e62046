package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hmoon/edgeforge/internal/contracts"
)

// EdgeRepository implements contracts.EdgeRepository over
// edge.approved_edges — the manifest. Inserts write the full frozen
// record; the only UPDATE that exists touches the status column.
type EdgeRepository struct {
	pool *pgxpool.Pool
}

// NewEdgeRepository creates a new edge repository
func NewEdgeRepository(pool *pgxpool.Pool) *EdgeRepository {
	return &EdgeRepository{pool: pool}
}

// Insert stores a new approved edge and fills its ID
func (r *EdgeRepository) Insert(ctx context.Context, e *contracts.ApprovedEdge) error {
	paramsJSON, err := json.Marshal(e.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	query := `
		INSERT INTO edge.approved_edges (
			candidate_id, hash, version, human_name, params,
			approved_by, approved_at, status,
			survival_score, confidence, trade_count, avg_r, max_drawdown_r,
			drift_min_win_rate, drift_max_drawdown_r
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`

	err = r.pool.QueryRow(ctx, query,
		e.CandidateID, e.Hash, e.Version, e.HumanName, paramsJSON,
		e.ApprovedBy, e.ApprovedAt, e.Status,
		e.SurvivalScore, e.Confidence, e.TradeCount, e.AvgR, e.MaxDrawdownR,
		e.DriftMinWinRate, e.DriftMaxDrawdownR,
	).Scan(&e.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return &DuplicateError{Hash: e.Hash}
		}
		return err
	}
	return nil
}

// GetByID retrieves an edge by primary key
func (r *EdgeRepository) GetByID(ctx context.Context, id int64) (*contracts.ApprovedEdge, error) {
	return r.getOne(ctx, edgeSelect+` WHERE id = $1`, id)
}

// GetByHash retrieves an edge by content hash
func (r *EdgeRepository) GetByHash(ctx context.Context, hash string) (*contracts.ApprovedEdge, error) {
	return r.getOne(ctx, edgeSelect+` WHERE hash = $1`, hash)
}

// List retrieves the full manifest, most recently approved first
func (r *EdgeRepository) List(ctx context.Context) ([]*contracts.ApprovedEdge, error) {
	query := edgeSelect + ` ORDER BY approved_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []*contracts.ApprovedEdge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// UpdateStatus changes the operational status column and nothing else
func (r *EdgeRepository) UpdateStatus(ctx context.Context, id int64, status contracts.EdgeStatus) error {
	query := `UPDATE edge.approved_edges SET status = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return contracts.ErrNotFound
	}
	return nil
}

// NextVersion returns 1 + the highest version approved under humanName
func (r *EdgeRepository) NextVersion(ctx context.Context, humanName string) (int, error) {
	query := `
		SELECT COALESCE(MAX(version), 0) + 1
		FROM edge.approved_edges
		WHERE human_name = $1
	`

	var version int
	if err := r.pool.QueryRow(ctx, query, humanName).Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

const edgeSelect = `
	SELECT id, candidate_id, hash, version, human_name, params,
	       approved_by, approved_at, status,
	       survival_score, confidence, trade_count, avg_r, max_drawdown_r,
	       drift_min_win_rate, drift_max_drawdown_r
	FROM edge.approved_edges
`

func (r *EdgeRepository) getOne(ctx context.Context, query string, arg interface{}) (*contracts.ApprovedEdge, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	e, err := scanEdge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contracts.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func scanEdge(row pgx.Row) (*contracts.ApprovedEdge, error) {
	var (
		e          contracts.ApprovedEdge
		paramsJSON []byte
	)
	err := row.Scan(
		&e.ID, &e.CandidateID, &e.Hash, &e.Version, &e.HumanName, &paramsJSON,
		&e.ApprovedBy, &e.ApprovedAt, &e.Status,
		&e.SurvivalScore, &e.Confidence, &e.TradeCount, &e.AvgR, &e.MaxDrawdownR,
		&e.DriftMinWinRate, &e.DriftMaxDrawdownR,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(paramsJSON, &e.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	return &e, nil
}

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

const uniqueViolation = "23505"

// CandidateRepository implements contracts.CandidateRepository over
// edge.candidates. The hash column carries a unique constraint, so the
// registry's no-duplicates rule holds even across concurrent writers.
type CandidateRepository struct {
	pool *pgxpool.Pool
}

// NewCandidateRepository creates a new candidate repository
func NewCandidateRepository(pool *pgxpool.Pool) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

// Insert stores a new candidate and fills its ID and timestamps
func (r *CandidateRepository) Insert(ctx context.Context, c *contracts.EdgeCandidate) error {
	paramsJSON, err := json.Marshal(c.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	query := `
		INSERT INTO edge.candidates (hash, human_name, params, generator_mode, status, failure_reason)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING id, created_at, updated_at
	`

	err = r.pool.QueryRow(ctx, query,
		c.Hash, c.HumanName, paramsJSON, c.GeneratorMode, c.Status, c.FailureReason,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// Concurrent submitter won the insert; report who holds the
			// hash now, not just that someone does.
			dup := &DuplicateError{Hash: c.Hash}
			if existing, lookupErr := r.GetByHash(ctx, c.Hash); lookupErr == nil {
				dup.ExistingID = existing.ID
				dup.Status = existing.Status
			}
			return dup
		}
		return err
	}
	return nil
}

// GetByID retrieves a candidate by primary key
func (r *CandidateRepository) GetByID(ctx context.Context, id int64) (*contracts.EdgeCandidate, error) {
	return r.getOne(ctx, candidateSelect+` WHERE id = $1`, id)
}

// GetByHash retrieves a candidate by content hash
func (r *CandidateRepository) GetByHash(ctx context.Context, hash string) (*contracts.EdgeCandidate, error) {
	return r.getOne(ctx, candidateSelect+` WHERE hash = $1`, hash)
}

// ListByStatus retrieves up to limit candidates in the given status,
// oldest first so sweeps drain the backlog in submission order
func (r *CandidateRepository) ListByStatus(ctx context.Context, status contracts.CandidateStatus, limit int) ([]*contracts.EdgeCandidate, error) {
	if limit <= 0 {
		limit = 100
	}

	query := candidateSelect + `
		WHERE status = $1
		ORDER BY id ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []*contracts.EdgeCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// UpdateStatus transitions a candidate from one status to another. The
// guard on the current status makes a lost race an explicit error
// instead of a silent overwrite.
func (r *CandidateRepository) UpdateStatus(ctx context.Context, id int64, from, to contracts.CandidateStatus, reason string) error {
	query := `
		UPDATE edge.candidates
		SET status = $3, failure_reason = NULLIF($4, ''), updated_at = now()
		WHERE id = $1 AND status = $2
	`

	tag, err := r.pool.Exec(ctx, query, id, from, to, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("candidate %d is no longer %s", id, from)
	}
	return nil
}

// CountByStatus returns candidate counts grouped by status
func (r *CandidateRepository) CountByStatus(ctx context.Context) (map[contracts.CandidateStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM edge.candidates GROUP BY status`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[contracts.CandidateStatus]int)
	for rows.Next() {
		var (
			status contracts.CandidateStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

const candidateSelect = `
	SELECT id, hash, human_name, params, generator_mode, status,
	       COALESCE(failure_reason, ''), created_at, updated_at
	FROM edge.candidates
`

func (r *CandidateRepository) getOne(ctx context.Context, query string, arg interface{}) (*contracts.EdgeCandidate, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	c, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contracts.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func scanCandidate(row pgx.Row) (*contracts.EdgeCandidate, error) {
	var (
		c          contracts.EdgeCandidate
		paramsJSON []byte
	)
	err := row.Scan(
		&c.ID, &c.Hash, &c.HumanName, &paramsJSON, &c.GeneratorMode,
		&c.Status, &c.FailureReason, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(paramsJSON, &c.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	return &c, nil
}

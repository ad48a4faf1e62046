package lifecycle

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hmoon/edgeforge/internal/contracts"
)

// AuditLogRepository implements contracts.AuditLogRepository over
// edge.generation_log. The log survives independently of candidate
// rows so a generation run can be audited even after pruning.
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(pool *pgxpool.Pool) *AuditLogRepository {
	return &AuditLogRepository{pool: pool}
}

// Insert stores one generation record and fills its ID
func (r *AuditLogRepository) Insert(ctx context.Context, rec *contracts.GenerationRecord) error {
	query := `
		INSERT INTO edge.generation_log (mode, symbol, seed, generated, duplicates, invalid, accepted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	return r.pool.QueryRow(ctx, query,
		rec.Mode, rec.Symbol, rec.Seed, rec.Generated, rec.Duplicates, rec.Invalid, rec.Accepted,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// List retrieves recent generation records, newest first
func (r *AuditLogRepository) List(ctx context.Context, limit int) ([]*contracts.GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, mode, symbol, seed, generated, duplicates, invalid, accepted, created_at
		FROM edge.generation_log
		ORDER BY id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*contracts.GenerationRecord
	for rows.Next() {
		var rec contracts.GenerationRecord
		if err := rows.Scan(
			&rec.ID, &rec.Mode, &rec.Symbol, &rec.Seed,
			&rec.Generated, &rec.Duplicates, &rec.Invalid, &rec.Accepted, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

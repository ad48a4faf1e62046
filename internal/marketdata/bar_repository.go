package marketdata

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hmoon/edgeforge/internal/contracts"
)

// BarRepository implements contracts.BarRepository over data.bars.
// The bar store is written by the ingestion jobs only; everything in
// this module reads it as immutable history.
type BarRepository struct {
	pool *pgxpool.Pool
}

// NewBarRepository creates a new bar repository
func NewBarRepository(pool *pgxpool.Pool) *BarRepository {
	return &BarRepository{pool: pool}
}

// GetBySymbolAndTimeRange retrieves bars in [from, to) ordered ascending
func (r *BarRepository) GetBySymbolAndTimeRange(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	query := `
		SELECT symbol, bar_time, open_price, high_price, low_price, close_price, volume
		FROM data.bars
		WHERE symbol = $1 AND bar_time >= $2 AND bar_time < $3
		ORDER BY bar_time ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Symbol, &b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// GetTradingDays retrieves the distinct UTC dates with bars, ascending.
// Both bounds are inclusive dates.
func (r *BarRepository) GetTradingDays(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT DISTINCT (bar_time AT TIME ZONE 'UTC')::date AS trade_date
		FROM data.bars
		WHERE symbol = $1 AND bar_time >= $2 AND bar_time < $3::date + INTERVAL '1 day'
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, d.UTC())
	}
	return days, rows.Err()
}

package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hmoon/edgeforge/internal/contracts"
)

// FeatureRepository implements contracts.FeatureRepository over
// data.daily_features
type FeatureRepository struct {
	pool *pgxpool.Pool
}

// NewFeatureRepository creates a new feature repository
func NewFeatureRepository(pool *pgxpool.Pool) *FeatureRepository {
	return &FeatureRepository{pool: pool}
}

// GetBySymbolAndDate retrieves the pre-computed features for one day
func (r *FeatureRepository) GetBySymbolAndDate(ctx context.Context, symbol string, date time.Time) (*contracts.DayFeatures, error) {
	query := `
		SELECT symbol, trade_date, atr_14, day_range, day_volume, gap_open,
		       orb_size_5, orb_size_15, orb_size_30
		FROM data.daily_features
		WHERE symbol = $1 AND trade_date = $2
	`

	var f contracts.DayFeatures
	err := r.pool.QueryRow(ctx, query, symbol, date).Scan(
		&f.Symbol, &f.Date, &f.ATR14, &f.DayRange, &f.DayVolume, &f.GapOpen,
		&f.ORBSize5, &f.ORBSize15, &f.ORBSize30,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contracts.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

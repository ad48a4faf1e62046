package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/hmoon/edgeforge/internal/contracts"
	"github.com/hmoon/edgeforge/pkg/redis"
)

const barCacheTTL = 6 * time.Hour

// CachedBarRepository is a read-through cache in front of a bar store.
// Bars are immutable once stored, so staleness only exists at the live
// edge of the data; a short TTL covers late ingestion.
type CachedBarRepository struct {
	inner contracts.BarRepository
	cache *redis.Cache
}

// NewCachedBarRepository wraps a bar repository with a Redis cache.
// With Redis disabled every call falls through to the store.
func NewCachedBarRepository(inner contracts.BarRepository, cache *redis.Cache) *CachedBarRepository {
	return &CachedBarRepository{inner: inner, cache: cache}
}

// GetBySymbolAndTimeRange retrieves bars, consulting the cache first
func (r *CachedBarRepository) GetBySymbolAndTimeRange(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	key := fmt.Sprintf("bars:%s:%d:%d", symbol, from.Unix(), to.Unix())

	var bars []contracts.Bar
	hit, err := r.cache.Get(ctx, key, &bars)
	if err == nil && hit {
		return bars, nil
	}

	bars, err = r.inner.GetBySymbolAndTimeRange(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	// Cache write failure never fails the read
	_ = r.cache.Set(ctx, key, bars, barCacheTTL)
	return bars, nil
}

// GetTradingDays retrieves trading days, consulting the cache first
func (r *CachedBarRepository) GetTradingDays(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error) {
	key := fmt.Sprintf("days:%s:%d:%d", symbol, from.Unix(), to.Unix())

	var days []time.Time
	hit, err := r.cache.Get(ctx, key, &days)
	if err == nil && hit {
		return days, nil
	}

	days, err = r.inner.GetTradingDays(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	_ = r.cache.Set(ctx, key, days, barCacheTTL)
	return days, nil
}

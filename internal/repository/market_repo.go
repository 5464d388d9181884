// internal/repository/market_repo.go
package repository

import (
	"context"

	"zpexk-rewards/internal/domain"
)

// MarketRepository defines access to the single shared market record.
type MarketRepository interface {
	// GetMarketState loads the market record, util.ErrNotFound when absent.
	GetMarketState(ctx context.Context, q DBExecutor) (*domain.MarketState, error)
	// CreateMarketState seeds the initial market record.
	CreateMarketState(ctx context.Context, q DBExecutor, state *domain.MarketState) error
	// UpdateMarketState writes the record conditionally on the version the
	// caller read; util.ErrVersionConflict when another trade won the race.
	UpdateMarketState(ctx context.Context, q DBExecutor, state *domain.MarketState, expectedVersion int64) error
}

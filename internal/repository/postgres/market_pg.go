// internal/repository/postgres/market_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"zpexk-rewards/internal/domain"
	"zpexk-rewards/internal/repository"
	"zpexk-rewards/internal/util"

	"github.com/jmoiron/sqlx"
)

// MarketRepository implements repository.MarketRepository for PostgreSQL.
// The market is a single row; concurrent trades are detected through the
// version column rather than row locks, so a lost race surfaces as
// util.ErrVersionConflict and the caller retries.
type MarketRepository struct{}

// NewMarketRepository creates a new MarketRepository.
func NewMarketRepository(db *sqlx.DB) repository.MarketRepository {
	return &MarketRepository{}
}

// GetMarketState loads the market record.
func (r *MarketRepository) GetMarketState(ctx context.Context, q repository.DBExecutor) (*domain.MarketState, error) {
	var state domain.MarketState
	query := `SELECT id, current_price, price_history, total_bought, version, updated_at
	          FROM market_state WHERE id = 1`
	err := q.GetContext(ctx, &state, query)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get market state: %w", err)
	}
	return &state, nil
}

// CreateMarketState seeds the initial market record.
func (r *MarketRepository) CreateMarketState(ctx context.Context, q repository.DBExecutor, state *domain.MarketState) error {
	query := `INSERT INTO market_state (id, current_price, price_history, total_bought, version, updated_at)
	          VALUES (1, $1, $2, $3, $4, $5)`
	_, err := q.ExecContext(ctx, query,
		state.CurrentPrice, state.PriceHistory, state.TotalBought, state.Version, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create market state: %w", err)
	}
	return nil
}

// UpdateMarketState writes the record conditionally on the version the
// caller read, bumping the version on success.
func (r *MarketRepository) UpdateMarketState(ctx context.Context, q repository.DBExecutor, state *domain.MarketState, expectedVersion int64) error {
	query := `UPDATE market_state
	          SET current_price = $1,
	              price_history = $2,
	              total_bought = $3,
	              version = version + 1,
	              updated_at = $4
	          WHERE id = 1 AND version = $5`
	result, err := q.ExecContext(ctx, query,
		state.CurrentPrice, state.PriceHistory, state.TotalBought, time.Now().UTC(), expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update market state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating market state: %w", err)
	}
	if rowsAffected == 0 {
		return util.ErrVersionConflict
	}
	state.Version = expectedVersion + 1
	return nil
}

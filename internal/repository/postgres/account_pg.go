// internal/repository/postgres/account_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"zpexk-rewards/internal/domain"
	"zpexk-rewards/internal/repository"
	"zpexk-rewards/internal/util"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

const accountColumns = `id, username, public_id, referral_code, referred_by,
	coin_balance, lifetime_coins, asset_balance, pin, last_pin_update,
	high_score, completed_task_ids, used_promo_codes, created_at, updated_at`

// AccountRepository implements repository.AccountRepository for PostgreSQL.
type AccountRepository struct{}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *sqlx.DB) repository.AccountRepository {
	return &AccountRepository{}
}

// CreateAccount inserts a new account using the provided DBExecutor.
func (r *AccountRepository) CreateAccount(ctx context.Context, q repository.DBExecutor, account *domain.Account) error {
	query := `INSERT INTO accounts (username, public_id, referral_code, referred_by,
	            coin_balance, lifetime_coins, asset_balance, high_score,
	            completed_task_ids, used_promo_codes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		account.Username,
		account.PublicID,
		account.ReferralCode,
		account.ReferredBy,
		account.CoinBalance,
		account.LifetimeCoins,
		account.AssetBalance,
		account.HighScore,
		account.CompletedTaskIDs,
		account.UsedPromoCodes,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return util.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccountByID retrieves an account by its internal id.
func (r *AccountRepository) GetAccountByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	err := q.GetContext(ctx, &account, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by ID %d: %w", id, err)
	}
	return &account, nil
}

// GetAccountByPublicID resolves an account by its 10-digit ZPEXK number.
func (r *AccountRepository) GetAccountByPublicID(ctx context.Context, q repository.DBExecutor, publicID string) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE public_id = $1`
	err := q.GetContext(ctx, &account, query, publicID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by public ID %s: %w", publicID, err)
	}
	return &account, nil
}

// AdjustBalances applies signed deltas to one account's balances.
func (r *AccountRepository) AdjustBalances(ctx context.Context, q repository.DBExecutor, accountID int64, coinDelta, lifetimeDelta int64, assetDelta decimal.Decimal) error {
	query := `UPDATE accounts
	          SET coin_balance = coin_balance + $1,
	              lifetime_coins = lifetime_coins + $2,
	              asset_balance = asset_balance + $3,
	              updated_at = $4
	          WHERE id = $5`
	result, err := q.ExecContext(ctx, query, coinDelta, lifetimeDelta, assetDelta, time.Now().UTC(), accountID)
	if err != nil {
		return fmt.Errorf("failed to adjust balances for account %d: %w", accountID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after adjusting balances for account %d: %w", accountID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no rows affected when adjusting balances for account %d: %w", accountID, util.ErrAccountNotFound)
	}
	return nil
}

// UpdatePIN stores a new security PIN and its change timestamp.
func (r *AccountRepository) UpdatePIN(ctx context.Context, q repository.DBExecutor, accountID int64, pin string, changedAt time.Time) error {
	query := `UPDATE accounts SET pin = $1, last_pin_update = $2, updated_at = $2 WHERE id = $3`
	result, err := q.ExecContext(ctx, query, pin, changedAt, accountID)
	if err != nil {
		return fmt.Errorf("failed to update PIN for account %d: %w", accountID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating PIN for account %d: %w", accountID, err)
	}
	if rowsAffected == 0 {
		return util.ErrAccountNotFound
	}
	return nil
}

// UpdateHighScore stores a new minigame high score.
func (r *AccountRepository) UpdateHighScore(ctx context.Context, q repository.DBExecutor, accountID int64, score int64) error {
	query := `UPDATE accounts SET high_score = $1, updated_at = $2 WHERE id = $3`
	if _, err := q.ExecContext(ctx, query, score, time.Now().UTC(), accountID); err != nil {
		return fmt.Errorf("failed to update high score for account %d: %w", accountID, err)
	}
	return nil
}

// MarkPromoCodeUsed records a redeemed promo code on the account.
func (r *AccountRepository) MarkPromoCodeUsed(ctx context.Context, q repository.DBExecutor, accountID int64, code string) error {
	query := `UPDATE accounts
	          SET used_promo_codes = array_append(used_promo_codes, $1),
	              updated_at = $2
	          WHERE id = $3`
	if _, err := q.ExecContext(ctx, query, code, time.Now().UTC(), accountID); err != nil {
		return fmt.Errorf("failed to mark promo code used for account %d: %w", accountID, err)
	}
	return nil
}

// ListTopByHighScore returns the minigame leaderboard, best first.
// Accounts that never played are excluded.
func (r *AccountRepository) ListTopByHighScore(ctx context.Context, q repository.DBExecutor, limit int) ([]domain.LeaderboardEntry, error) {
	entries := []domain.LeaderboardEntry{}
	query := `SELECT username, high_score FROM accounts
	          WHERE high_score > 0
	          ORDER BY high_score DESC
	          LIMIT $1`
	if err := q.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	return entries, nil
}

// AddCompletedTask marks a task-wall task as already rewarded.
func (r *AccountRepository) AddCompletedTask(ctx context.Context, q repository.DBExecutor, accountID int64, taskID string) error {
	query := `UPDATE accounts
	          SET completed_task_ids = array_append(completed_task_ids, $1),
	              updated_at = $2
	          WHERE id = $3`
	if _, err := q.ExecContext(ctx, query, taskID, time.Now().UTC(), accountID); err != nil {
		return fmt.Errorf("failed to mark task %s completed for account %d: %w", taskID, accountID, err)
	}
	return nil
}

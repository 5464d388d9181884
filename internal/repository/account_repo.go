// internal/repository/account_repo.go
package repository

import (
	"context"
	"time"

	"zpexk-rewards/internal/domain"

	"github.com/shopspring/decimal"
)

// AccountRepository defines the interface for account data operations.
// Every write paired with a balance change is expected to run inside the
// same transaction as its ledger append.
type AccountRepository interface {
	// CreateAccount adds a new account using the provided DBExecutor.
	CreateAccount(ctx context.Context, q DBExecutor, account *domain.Account) error
	// GetAccountByID retrieves an account by its internal id.
	GetAccountByID(ctx context.Context, q DBExecutor, id int64) (*domain.Account, error)
	// GetAccountByPublicID resolves an account by its 10-digit ZPEXK number.
	GetAccountByPublicID(ctx context.Context, q DBExecutor, publicID string) (*domain.Account, error)
	// AdjustBalances applies signed deltas to the Coin, lifetime-Coin and
	// asset balances of one account.
	AdjustBalances(ctx context.Context, q DBExecutor, accountID int64, coinDelta, lifetimeDelta int64, assetDelta decimal.Decimal) error
	// UpdatePIN stores a new security PIN and its change timestamp.
	UpdatePIN(ctx context.Context, q DBExecutor, accountID int64, pin string, changedAt time.Time) error
	// UpdateHighScore stores a new minigame high score.
	UpdateHighScore(ctx context.Context, q DBExecutor, accountID int64, score int64) error
	// AddCompletedTask marks a task-wall task as already rewarded.
	AddCompletedTask(ctx context.Context, q DBExecutor, accountID int64, taskID string) error
	// MarkPromoCodeUsed records a redeemed promo code on the account.
	MarkPromoCodeUsed(ctx context.Context, q DBExecutor, accountID int64, code string) error
	// ListTopByHighScore returns the minigame leaderboard, best first.
	ListTopByHighScore(ctx context.Context, q DBExecutor, limit int) ([]domain.LeaderboardEntry, error)
}

// internal/repository/postgres/ledger_pg.go
package postgres

import (
	"context"
	"fmt"

	"zpexk-rewards/internal/domain"
	"zpexk-rewards/internal/repository"

	"github.com/jmoiron/sqlx"
)

// LedgerRepository implements repository.LedgerRepository for PostgreSQL.
type LedgerRepository struct{}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db *sqlx.DB) repository.LedgerRepository {
	return &LedgerRepository{}
}

// AppendTransaction inserts one immutable ledger entry using the provided DBExecutor.
func (r *LedgerRepository) AppendTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	query := `INSERT INTO transactions (account_id, amount, coin_amount, label, unit,
	            status, destination_id, kind, redeem_code, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`

	err := q.QueryRowContext(ctx, query,
		transaction.AccountID,
		transaction.Amount,
		transaction.CoinAmount,
		transaction.Label,
		transaction.Unit,
		transaction.Status,
		transaction.DestinationID,
		transaction.Kind,
		transaction.RedeemCode,
		transaction.CreatedAt,
	).Scan(&transaction.ID)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// ListTransactionsByAccountID retrieves a paginated slice of ledger history
// for one account. It performs two queries: one for the data and one for
// the total count.
func (r *LedgerRepository) ListTransactionsByAccountID(ctx context.Context, q repository.DBExecutor, accountID int64, limit, offset int) ([]domain.Transaction, int64, error) {
	transactions := []domain.Transaction{}

	query := `
		SELECT id, account_id, amount, coin_amount, label, unit, status,
		       destination_id, kind, redeem_code, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`
	err := q.SelectContext(ctx, &transactions, query, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions for account %d: %w", accountID, err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM transactions WHERE account_id = $1`
	err = q.GetContext(ctx, &totalCount, countQuery, accountID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get total transaction count for account %d: %w", accountID, err)
	}

	return transactions, totalCount, nil
}

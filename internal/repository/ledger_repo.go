// internal/repository/ledger_repo.go
package repository

import (
	"context"

	"zpexk-rewards/internal/domain"
)

// LedgerRepository defines the append/read contract of the transaction
// log. The interface deliberately has no update or delete: entries are
// immutable once written.
type LedgerRepository interface {
	// AppendTransaction adds one ledger entry using the provided DBExecutor.
	AppendTransaction(ctx context.Context, q DBExecutor, transaction *domain.Transaction) error
	// ListTransactionsByAccountID retrieves a page of ledger history for
	// one account, newest first, plus the total entry count.
	ListTransactionsByAccountID(ctx context.Context, q DBExecutor, accountID int64, limit, offset int) ([]domain.Transaction, int64, error)
}

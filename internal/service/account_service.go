// internal/service/account_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	"zpexk-rewards/internal/domain"
	"zpexk-rewards/internal/repository"
	"zpexk-rewards/internal/util"
	"zpexk-rewards/pkg/db"
)

// publicIDAttempts bounds retries when a freshly generated 10-digit
// ZPEXK number collides with an existing account.
const publicIDAttempts = 3

// DefaultLeaderboardSize is how many rows the minigame leaderboard
// shows by default.
const DefaultLeaderboardSize = 5

// AccountService covers account lifecycle, ledger reads and the
// minigame leaderboard.
type AccountService interface {
	CreateAccount(ctx context.Context, username string, referredBy *string) (*domain.Account, error)
	GetAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	GetTransactionHistory(ctx context.Context, accountID int64, limit, offset int) ([]domain.Transaction, int64, error)
	GetLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

type accountService struct {
	dbBeginner  db.DBTxBeginner
	dbExecutor  repository.DBExecutor
	accountRepo repository.AccountRepository
	ledgerRepo  repository.LedgerRepository
	beginTx     db.BeginTxFunc
	commitTx    db.CommitTxFunc
	rollbackTx  db.RollbackTxFunc
}

// NewAccountService creates a new AccountService.
func NewAccountService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	accountRepo repository.AccountRepository,
	ledgerRepo repository.LedgerRepository,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
) AccountService {
	return &accountService{
		dbBeginner:  dbBeginner,
		dbExecutor:  dbExecutor,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		beginTx:     beginTx,
		commitTx:    commitTx,
		rollbackTx:  rollbackTx,
	}
}

func (s *accountService) CreateAccount(ctx context.Context, username string, referredBy *string) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required: %w", util.ErrInvalidInput)
	}

	var lastErr error
	for attempt := 0; attempt < publicIDAttempts; attempt++ {
		account := domain.NewAccount(username, referredBy)
		if err := s.createOnce(ctx, account); err != nil {
			if util.IsError(err, util.ErrDuplicateEntry) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return account, nil
	}
	return nil, fmt.Errorf("create account: could not allocate unique identifiers: %w", lastErr)
}

func (s *accountService) createOnce(ctx context.Context, account *domain.Account) error {
	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return fmt.Errorf("create account: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return fmt.Errorf("create account: transaction controller does not implement DBExecutor")
	}

	if err := s.accountRepo.CreateAccount(ctx, txExecutor, account); err != nil {
		return err
	}

	if err := s.commitTx(txController); err != nil {
		return fmt.Errorf("create account: failed to commit transaction: %w", err)
	}
	return nil
}

func (s *accountService) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	account, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: failed to get account %d: %w", accountID, err)
	}
	return account, nil
}

// GetTransactionHistory retrieves a paginated slice of one account's
// ledger, newest first.
func (s *accountService) GetTransactionHistory(ctx context.Context, accountID int64, limit, offset int) ([]domain.Transaction, int64, error) {
	if _, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID); err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, 0, util.ErrAccountNotFound
		}
		return nil, 0, fmt.Errorf("failed to check account existence: %w", err)
	}

	transactions, totalCount, err := s.ledgerRepo.ListTransactionsByAccountID(ctx, s.dbExecutor, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}
	return transactions, totalCount, nil
}

// GetLeaderboard returns the best minigame scores, highest first.
func (s *accountService) GetLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	entries, err := s.accountRepo.ListTopByHighScore(ctx, s.dbExecutor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve leaderboard: %w", err)
	}
	return entries, nil
}

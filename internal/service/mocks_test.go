// internal/service/mocks_test.go
package service

import (
	"context"
	"database/sql"
	"time"

	"zpexk-rewards/internal/domain"
	"zpexk-rewards/internal/repository"
	"zpexk-rewards/pkg/db"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockDBExecutor is a mock implementation of repository.DBExecutor.
type MockDBExecutor struct {
	mock.Mock
}

func (m *MockDBExecutor) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	argsCalled := m.Called(ctx, query, args)
	return argsCalled.Get(0).(sql.Result), argsCalled.Error(1)
}

func (m *MockDBExecutor) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	m.Called(ctx, query, args)
	return &sql.Row{}
}

// MockAccountRepository is a mock implementation of repository.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) CreateAccount(ctx context.Context, q repository.DBExecutor, account *domain.Account) error {
	args := m.Called(ctx, q, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetAccountByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Account, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) GetAccountByPublicID(ctx context.Context, q repository.DBExecutor, publicID string) (*domain.Account, error) {
	args := m.Called(ctx, q, publicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) AdjustBalances(ctx context.Context, q repository.DBExecutor, accountID int64, coinDelta, lifetimeDelta int64, assetDelta decimal.Decimal) error {
	args := m.Called(ctx, q, accountID, coinDelta, lifetimeDelta, assetDelta)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdatePIN(ctx context.Context, q repository.DBExecutor, accountID int64, pin string, changedAt time.Time) error {
	args := m.Called(ctx, q, accountID, pin, changedAt)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateHighScore(ctx context.Context, q repository.DBExecutor, accountID int64, score int64) error {
	args := m.Called(ctx, q, accountID, score)
	return args.Error(0)
}

func (m *MockAccountRepository) AddCompletedTask(ctx context.Context, q repository.DBExecutor, accountID int64, taskID string) error {
	args := m.Called(ctx, q, accountID, taskID)
	return args.Error(0)
}

func (m *MockAccountRepository) MarkPromoCodeUsed(ctx context.Context, q repository.DBExecutor, accountID int64, code string) error {
	args := m.Called(ctx, q, accountID, code)
	return args.Error(0)
}

func (m *MockAccountRepository) ListTopByHighScore(ctx context.Context, q repository.DBExecutor, limit int) ([]domain.LeaderboardEntry, error) {
	args := m.Called(ctx, q, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LeaderboardEntry), args.Error(1)
}

// MockLedgerRepository is a mock implementation of repository.LedgerRepository.
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) AppendTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	args := m.Called(ctx, q, transaction)
	return args.Error(0)
}

func (m *MockLedgerRepository) ListTransactionsByAccountID(ctx context.Context, q repository.DBExecutor, accountID int64, limit, offset int) ([]domain.Transaction, int64, error) {
	args := m.Called(ctx, q, accountID, limit, offset)
	return args.Get(0).([]domain.Transaction), args.Get(1).(int64), args.Error(2)
}

// MockMarketRepository is a mock implementation of repository.MarketRepository.
type MockMarketRepository struct {
	mock.Mock
}

func (m *MockMarketRepository) GetMarketState(ctx context.Context, q repository.DBExecutor) (*domain.MarketState, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MarketState), args.Error(1)
}

func (m *MockMarketRepository) CreateMarketState(ctx context.Context, q repository.DBExecutor, state *domain.MarketState) error {
	args := m.Called(ctx, q, state)
	return args.Error(0)
}

func (m *MockMarketRepository) UpdateMarketState(ctx context.Context, q repository.DBExecutor, state *domain.MarketState, expectedVersion int64) error {
	args := m.Called(ctx, q, state, expectedVersion)
	return args.Error(0)
}

// MockDBBeginner is a mock implementation of db.DBTxBeginner.
type MockDBBeginner struct {
	mock.Mock
}

func (m *MockDBBeginner) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	args := m.Called(ctx, opts)
	return &sqlx.Tx{}, args.Error(1)
}

// MockTxController is a mock implementation of db.TxController.
// It embeds MockDBExecutor so the same object satisfies
// repository.DBExecutor inside a transaction.
type MockTxController struct {
	mock.Mock
	MockDBExecutor
}

func (m *MockTxController) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTxController) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// txFuncs wires a MockTxController into the injected transaction-control
// functions every service constructor takes.
func txFuncs(controller *MockTxController) (db.BeginTxFunc, db.CommitTxFunc, db.RollbackTxFunc) {
	begin := func(ctx context.Context, dbConn db.DBTxBeginner) (db.TxController, error) {
		return controller, nil
	}
	commit := func(tx db.TxController) error {
		return controller.Commit()
	}
	rollback := func(tx db.TxController) {
		_ = controller.Rollback()
	}
	return begin, commit, rollback
}

// fixedClock returns a deterministic now() func.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

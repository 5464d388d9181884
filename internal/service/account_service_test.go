// internal/service/account_service_test.go
package service

import (
	"context"
	"testing"
	"time"

	"zpexk-rewards/internal/domain"
	"zpexk-rewards/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type accountFixture struct {
	accountRepo  *MockAccountRepository
	ledgerRepo   *MockLedgerRepository
	dbExecutor   *MockDBExecutor
	txController *MockTxController
	svc          AccountService
}

func newAccountFixture() *accountFixture {
	f := &accountFixture{
		accountRepo:  new(MockAccountRepository),
		ledgerRepo:   new(MockLedgerRepository),
		dbExecutor:   new(MockDBExecutor),
		txController: new(MockTxController),
	}
	begin, commit, rollback := txFuncs(f.txController)
	f.svc = NewAccountService(
		new(MockDBBeginner),
		f.dbExecutor,
		f.accountRepo,
		f.ledgerRepo,
		begin, commit, rollback,
	)
	return f
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("RejectsBlankUsername", func(t *testing.T) {
		f := newAccountFixture()

		_, err := f.svc.CreateAccount(ctx, "   ", nil)

		assert.ErrorIs(t, err, util.ErrInvalidInput)
		f.accountRepo.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("GeneratesIdentifiers", func(t *testing.T) {
		f := newAccountFixture()

		f.accountRepo.On("CreateAccount", ctx, mock.Anything, mock.AnythingOfType("*domain.Account")).
			Return(nil).Once()
		f.txController.On("Commit").Return(nil).Once()
		f.txController.On("Rollback").Return(nil).Maybe()

		account, err := f.svc.CreateAccount(ctx, " alice ", nil)

		assert.NoError(t, err)
		assert.Equal(t, "alice", account.Username)
		assert.Regexp(t, `^\d{10}$`, account.PublicID)
		assert.Regexp(t, `^MC[0-9A-Z]{6}$`, account.ReferralCode)
		assert.Equal(t, int64(0), account.CoinBalance)
		assert.Nil(t, account.PIN)
	})

	t.Run("RetriesOnIdentifierCollision", func(t *testing.T) {
		f := newAccountFixture()

		f.accountRepo.On("CreateAccount", ctx, mock.Anything, mock.Anything).
			Return(util.ErrDuplicateEntry).Once()
		f.accountRepo.On("CreateAccount", ctx, mock.Anything, mock.Anything).
			Return(nil).Once()
		f.txController.On("Commit").Return(nil).Once()
		f.txController.On("Rollback").Return(nil)

		_, err := f.svc.CreateAccount(ctx, "bob", nil)

		assert.NoError(t, err)
		f.accountRepo.AssertNumberOfCalls(t, "CreateAccount", 2)
	})

	t.Run("GivesUpAfterRepeatedCollisions", func(t *testing.T) {
		f := newAccountFixture()

		f.accountRepo.On("CreateAccount", ctx, mock.Anything, mock.Anything).
			Return(util.ErrDuplicateEntry)
		f.txController.On("Rollback").Return(nil)

		_, err := f.svc.CreateAccount(ctx, "carol", nil)

		assert.ErrorIs(t, err, util.ErrDuplicateEntry)
		f.accountRepo.AssertNumberOfCalls(t, "CreateAccount", publicIDAttempts)
		f.txController.AssertNotCalled(t, "Commit")
	})
}

func TestGetTransactionHistory(t *testing.T) {
	ctx := context.Background()
	accountID := int64(1)

	t.Run("UnknownAccount", func(t *testing.T) {
		f := newAccountFixture()

		f.accountRepo.On("GetAccountByID", ctx, f.dbExecutor, accountID).
			Return(nil, util.ErrNotFound).Once()

		_, _, err := f.svc.GetTransactionHistory(ctx, accountID, 20, 0)

		assert.ErrorIs(t, err, util.ErrAccountNotFound)
		f.ledgerRepo.AssertNotCalled(t, "ListTransactionsByAccountID", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ReturnsPage", func(t *testing.T) {
		f := newAccountFixture()
		entries := []domain.Transaction{
			{ID: 2, AccountID: accountID, Label: "Play MD Reward", CreatedAt: time.Now()},
			{ID: 1, AccountID: accountID, Label: "Daily Poll", CreatedAt: time.Now()},
		}

		f.accountRepo.On("GetAccountByID", ctx, f.dbExecutor, accountID).
			Return(&domain.Account{ID: accountID}, nil).Once()
		f.ledgerRepo.On("ListTransactionsByAccountID", ctx, f.dbExecutor, accountID, 20, 0).
			Return(entries, int64(7), nil).Once()

		page, total, err := f.svc.GetTransactionHistory(ctx, accountID, 20, 0)

		assert.NoError(t, err)
		assert.Equal(t, int64(7), total)
		assert.Len(t, page, 2)
	})
}

func TestGetLeaderboard(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultsLimit", func(t *testing.T) {
		f := newAccountFixture()
		entries := []domain.LeaderboardEntry{
			{Username: "alice", HighScore: 120},
			{Username: "bob", HighScore: 90},
		}

		f.accountRepo.On("ListTopByHighScore", ctx, f.dbExecutor, DefaultLeaderboardSize).
			Return(entries, nil).Once()

		board, err := f.svc.GetLeaderboard(ctx, 0)

		assert.NoError(t, err)
		if assert.Len(t, board, 2) {
			assert.Equal(t, "alice", board[0].Username)
			assert.Equal(t, int64(120), board[0].HighScore)
		}
	})

	t.Run("HonorsExplicitLimit", func(t *testing.T) {
		f := newAccountFixture()

		f.accountRepo.On("ListTopByHighScore", ctx, f.dbExecutor, 3).
			Return([]domain.LeaderboardEntry{}, nil).Once()

		board, err := f.svc.GetLeaderboard(ctx, 3)

		assert.NoError(t, err)
		assert.Empty(t, board)
		f.accountRepo.AssertExpectations(t)
	})
}

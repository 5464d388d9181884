// internal/service/market_service_test.go
package service

import (
	"context"
	"testing"
	"time"

	"zpexk-rewards/internal/domain"
	"zpexk-rewards/internal/util"
	"zpexk-rewards/pkg/lock"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type marketFixture struct {
	accountRepo  *MockAccountRepository
	ledgerRepo   *MockLedgerRepository
	marketRepo   *MockMarketRepository
	txController *MockTxController
	svc          MarketService
}

func newMarketFixture(now time.Time) *marketFixture {
	f := &marketFixture{
		accountRepo:  new(MockAccountRepository),
		ledgerRepo:   new(MockLedgerRepository),
		marketRepo:   new(MockMarketRepository),
		txController: new(MockTxController),
	}
	begin, commit, rollback := txFuncs(f.txController)
	security := NewSecurityService(new(MockDBBeginner), f.accountRepo, begin, commit, rollback, fixedClock(now))
	f.svc = NewMarketService(
		new(MockDBBeginner),
		new(MockDBExecutor),
		f.accountRepo,
		f.ledgerRepo,
		f.marketRepo,
		security,
		lock.NopLocker{},
		begin, commit, rollback,
		fixedClock(now),
	)
	return f
}

func TestBuy(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	accountID := int64(1)
	ctx := context.Background()

	t.Run("RejectsNonPositiveUnits", func(t *testing.T) {
		f := newMarketFixture(now)

		_, _, _, err := f.svc.Buy(ctx, accountID, decimal.Zero)

		assert.ErrorIs(t, err, util.ErrInvalidInput)
		f.marketRepo.AssertNotCalled(t, "GetMarketState", mock.Anything, mock.Anything)
	})

	t.Run("InsufficientCoins", func(t *testing.T) {
		f := newMarketFixture(now)

		f.accountRepo.On("GetAccountByID", ctx, mock.Anything, accountID).
			Return(&domain.Account{ID: accountID, CoinBalance: 100}, nil).Once()
		f.marketRepo.On("GetMarketState", ctx, mock.Anything).
			Return(domain.NewMarketState(), nil).Once()
		f.txController.On("Rollback").Return(nil).Once()

		_, _, _, err := f.svc.Buy(ctx, accountID, decimal.NewFromInt(2))

		assert.ErrorIs(t, err, util.ErrInsufficientCoins)
		f.txController.AssertNotCalled(t, "Commit")
		f.marketRepo.AssertNotCalled(t, "UpdateMarketState", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("SuccessfulBuy", func(t *testing.T) {
		f := newMarketFixture(now)
		units := decimal.NewFromInt(2)

		initial := &domain.Account{ID: accountID, CoinBalance: 5000}
		updated := &domain.Account{ID: accountID, CoinBalance: 3000, AssetBalance: units}

		f.accountRepo.On("GetAccountByID", ctx, mock.Anything, accountID).
			Return(initial, nil).Once()
		f.marketRepo.On("GetMarketState", ctx, mock.Anything).
			Return(domain.NewMarketState(), nil).Once()
		f.marketRepo.On("UpdateMarketState", ctx, mock.Anything, mock.AnythingOfType("*domain.MarketState"), int64(1)).
			Return(nil).Once()
		f.accountRepo.On("AdjustBalances", ctx, mock.Anything, accountID, int64(-2000), int64(0), units).
			Return(nil).Once()
		f.ledgerRepo.On("AppendTransaction", ctx, mock.Anything, mock.AnythingOfType("*domain.Transaction")).
			Return(nil).Once()
		f.accountRepo.On("GetAccountByID", ctx, mock.Anything, accountID).
			Return(updated, nil).Once()
		f.txController.On("Commit").Return(nil).Once()
		f.txController.On("Rollback").Return(nil).Maybe()

		account, entry, market, err := f.svc.Buy(ctx, accountID, units)

		assert.NoError(t, err)
		assert.Equal(t, int64(3000), account.CoinBalance)
		assert.Equal(t, domain.TransactionKindShop, entry.Kind)
		assert.Equal(t, int64(-2000), entry.CoinAmount)
		assert.Equal(t, MarketDestination, entry.DestinationID)
		assert.Equal(t, domain.TransactionStatusSuccess, entry.Status)
		// 1000 + 1000 * 2 * 0.01 = 1020
		assert.Equal(t, "1020", market.CurrentPrice.String())
		mock.AssertExpectationsForObjects(t, f.accountRepo, f.ledgerRepo, f.marketRepo, f.txController)
	})

	t.Run("RetriesAfterVersionConflict", func(t *testing.T) {
		f := newMarketFixture(now)
		units := decimal.NewFromInt(1)

		account := &domain.Account{ID: accountID, CoinBalance: 10_000}
		f.accountRepo.On("GetAccountByID", ctx, mock.Anything, accountID).
			Return(account, nil)

		// First attempt loses the version race, second one wins.
		f.marketRepo.On("GetMarketState", ctx, mock.Anything).
			Return(domain.NewMarketState(), nil).Once()
		f.marketRepo.On("UpdateMarketState", ctx, mock.Anything, mock.Anything, int64(1)).
			Return(util.ErrVersionConflict).Once()

		second := domain.NewMarketState()
		second.Version = 2
		f.marketRepo.On("GetMarketState", ctx, mock.Anything).
			Return(second, nil).Once()
		f.marketRepo.On("UpdateMarketState", ctx, mock.Anything, mock.Anything, int64(2)).
			Return(nil).Once()

		f.accountRepo.On("AdjustBalances", ctx, mock.Anything, accountID, int64(-1000), int64(0), units).
			Return(nil).Once()
		f.ledgerRepo.On("AppendTransaction", ctx, mock.Anything, mock.Anything).Return(nil).Once()
		f.txController.On("Commit").Return(nil).Once()
		f.txController.On("Rollback").Return(nil)

		_, _, _, err := f.svc.Buy(ctx, accountID, units)

		assert.NoError(t, err)
		mock.AssertExpectationsForObjects(t, f.marketRepo, f.ledgerRepo, f.txController)
	})
}

func TestSell(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	accountID := int64(1)
	ctx := context.Background()
	pin := "12"

	t.Run("FailsClosedWithoutPIN", func(t *testing.T) {
		f := newMarketFixture(now)

		f.accountRepo.On("GetAccountByID", ctx, mock.Anything, accountID).
			Return(&domain.Account{ID: accountID, AssetBalance: decimal.NewFromInt(5)}, nil).Once()
		f.txController.On("Rollback").Return(nil).Once()

		_, _, _, err := f.svc.Sell(ctx, accountID, decimal.NewFromInt(1), "12")

		assert.ErrorIs(t, err, util.ErrPINNotSet)
		f.accountRepo.AssertNotCalled(t, "AdjustBalances", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("WrongPIN", func(t *testing.T) {
		f := newMarketFixture(now)

		f.accountRepo.On("GetAccountByID", ctx, mock.Anything, accountID).
			Return(&domain.Account{ID: accountID, PIN: &pin, AssetBalance: decimal.NewFromInt(5)}, nil).Once()
		f.txController.On("Rollback").Return(nil).Once()

		_, _, _, err := f.svc.Sell(ctx, accountID, decimal.NewFromInt(1), "21")

		assert.ErrorIs(t, err, util.ErrPINMismatch)
		f.txController.AssertNotCalled(t, "Commit")
	})

	t.Run("InsufficientAsset", func(t *testing.T) {
		f := newMarketFixture(now)

		f.accountRepo.On("GetAccountByID", ctx, mock.Anything, accountID).
			Return(&domain.Account{ID: accountID, PIN: &pin, AssetBalance: decimal.NewFromInt(1)}, nil).Once()
		f.txController.On("Rollback").Return(nil).Once()

		_, _, _, err := f.svc.Sell(ctx, accountID, decimal.NewFromInt(2), pin)

		assert.ErrorIs(t, err, util.ErrInsufficientAsset)
	})

	t.Run("SuccessfulSellAppliesTax", func(t *testing.T) {
		f := newMarketFixture(now)
		units := decimal.RequireFromString("2.00")

		initial := &domain.Account{ID: accountID, PIN: &pin, CoinBalance: 0, AssetBalance: decimal.NewFromInt(5)}
		updated := &domain.Account{ID: accountID, PIN: &pin, CoinBalance: 1780, AssetBalance: decimal.NewFromInt(3)}

		f.accountRepo.On("GetAccountByID", ctx, mock.Anything, accountID).
			Return(initial, nil).Once()
		f.marketRepo.On("GetMarketState", ctx, mock.Anything).
			Return(domain.NewMarketState(), nil).Once()
		f.marketRepo.On("UpdateMarketState", ctx, mock.Anything, mock.Anything, int64(1)).
			Return(nil).Once()
		// gross 2000, tax 220, net 1780; lifetime Coins untouched.
		f.accountRepo.On("AdjustBalances", ctx, mock.Anything, accountID, int64(1780), int64(0), units.Neg()).
			Return(nil).Once()
		f.ledgerRepo.On("AppendTransaction", ctx, mock.Anything, mock.AnythingOfType("*domain.Transaction")).
			Return(nil).Once()
		f.accountRepo.On("GetAccountByID", ctx, mock.Anything, accountID).
			Return(updated, nil).Once()
		f.txController.On("Commit").Return(nil).Once()
		f.txController.On("Rollback").Return(nil).Maybe()

		account, entry, market, err := f.svc.Sell(ctx, accountID, units, pin)

		assert.NoError(t, err)
		assert.Equal(t, int64(1780), account.CoinBalance)
		assert.Equal(t, domain.TransactionKindEarn, entry.Kind)
		assert.Equal(t, int64(1780), entry.CoinAmount)
		assert.Contains(t, entry.Label, "220")
		// 1000 - 1000 * 2 * 0.01 = 980
		assert.Equal(t, "980", market.CurrentPrice.String())
		mock.AssertExpectationsForObjects(t, f.accountRepo, f.ledgerRepo, f.marketRepo, f.txController)
	})

	t.Run("CommitFailureSurfacesError", func(t *testing.T) {
		f := newMarketFixture(now)
		units := decimal.NewFromInt(1)

		f.accountRepo.On("GetAccountByID", ctx, mock.Anything, accountID).
			Return(&domain.Account{ID: accountID, PIN: &pin, AssetBalance: decimal.NewFromInt(5)}, nil)
		f.marketRepo.On("GetMarketState", ctx, mock.Anything).
			Return(domain.NewMarketState(), nil).Once()
		f.marketRepo.On("UpdateMarketState", ctx, mock.Anything, mock.Anything, int64(1)).
			Return(nil).Once()
		f.accountRepo.On("AdjustBalances", ctx, mock.Anything, accountID, mock.Anything, int64(0), units.Neg()).
			Return(nil).Once()
		f.ledgerRepo.On("AppendTransaction", ctx, mock.Anything, mock.Anything).Return(nil).Once()
		f.txController.On("Commit").Return(assert.AnError).Once()
		f.txController.On("Rollback").Return(nil)

		_, _, _, err := f.svc.Sell(ctx, accountID, units, pin)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to commit")
	})
}

func TestGetMarketSeedsInitialState(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newMarketFixture(now)
	ctx := context.Background()

	f.marketRepo.On("GetMarketState", ctx, mock.Anything).
		Return(nil, util.ErrNotFound).Once()
	f.marketRepo.On("CreateMarketState", ctx, mock.Anything, mock.AnythingOfType("*domain.MarketState")).
		Return(nil).Once()

	state, err := f.svc.GetMarket(ctx)

	assert.NoError(t, err)
	assert.True(t, state.CurrentPrice.Equal(domain.InitialPrice))
	assert.Len(t, state.PriceHistory, 1)
	mock.AssertExpectationsForObjects(t, f.marketRepo)
}

// internal/service/market_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zpexk-rewards/internal/domain"
	"zpexk-rewards/internal/repository"
	"zpexk-rewards/internal/util"
	"zpexk-rewards/pkg/db"
	"zpexk-rewards/pkg/lock"

	"github.com/shopspring/decimal"
)

// marketLockKey serializes trades across processes when a Redis locker
// is configured. The versioned conditional write remains the
// correctness backstop either way.
const marketLockKey = "zpexk:market:trade"

// tradeRetries bounds how often a trade is replayed after losing the
// version race to a concurrent trade.
const tradeRetries = 3

// MarketDestination is the counterparty identifier recorded on ledger
// entries produced by market trades.
const MarketDestination = "ZPEXK_MARKET"

// MarketService simulates the single-asset $ZPEXK market: quoting,
// price-impact trades and the candlestick series derived from the
// price history.
type MarketService interface {
	// GetMarket returns the current market state, seeding it on first use.
	GetMarket(ctx context.Context) (*domain.MarketState, error)
	// GetCandles derives the display candlestick series from the history.
	GetCandles(ctx context.Context) ([]domain.Candle, error)
	// Buy exchanges Coins for units of $ZPEXK at the current price.
	Buy(ctx context.Context, accountID int64, units decimal.Decimal) (*domain.Account, *domain.Transaction, *domain.MarketState, error)
	// Sell exchanges $ZPEXK units back into Coins, deducting the flat
	// sell tax. The account's security PIN must verify.
	Sell(ctx context.Context, accountID int64, units decimal.Decimal, pin string) (*domain.Account, *domain.Transaction, *domain.MarketState, error)
}

type marketService struct {
	dbBeginner  db.DBTxBeginner
	dbExecutor  repository.DBExecutor
	accountRepo repository.AccountRepository
	ledgerRepo  repository.LedgerRepository
	marketRepo  repository.MarketRepository
	security    SecurityService
	locker      lock.Locker
	beginTx     db.BeginTxFunc
	commitTx    db.CommitTxFunc
	rollbackTx  db.RollbackTxFunc
	now         func() time.Time
}

// NewMarketService creates a new MarketService.
func NewMarketService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	accountRepo repository.AccountRepository,
	ledgerRepo repository.LedgerRepository,
	marketRepo repository.MarketRepository,
	security SecurityService,
	locker lock.Locker,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	now func() time.Time,
) MarketService {
	return &marketService{
		dbBeginner:  dbBeginner,
		dbExecutor:  dbExecutor,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		marketRepo:  marketRepo,
		security:    security,
		locker:      locker,
		beginTx:     beginTx,
		commitTx:    commitTx,
		rollbackTx:  rollbackTx,
		now:         now,
	}
}

func (s *marketService) GetMarket(ctx context.Context) (*domain.MarketState, error) {
	state, err := s.marketRepo.GetMarketState(ctx, s.dbExecutor)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return nil, fmt.Errorf("get market: %w", err)
	}

	state = domain.NewMarketState()
	if err := s.marketRepo.CreateMarketState(ctx, s.dbExecutor, state); err != nil {
		// Another client may have seeded it in between.
		if seeded, getErr := s.marketRepo.GetMarketState(ctx, s.dbExecutor); getErr == nil {
			return seeded, nil
		}
		return nil, fmt.Errorf("get market: failed to seed market state: %w", err)
	}
	return state, nil
}

func (s *marketService) GetCandles(ctx context.Context) ([]domain.Candle, error) {
	state, err := s.GetMarket(ctx)
	if err != nil {
		return nil, err
	}
	return domain.CandlesFromHistory(state.PriceHistory), nil
}

func (s *marketService) Buy(ctx context.Context, accountID int64, units decimal.Decimal) (*domain.Account, *domain.Transaction, *domain.MarketState, error) {
	if units.LessThanOrEqual(decimal.Zero) {
		return nil, nil, nil, util.ErrInvalidInput
	}

	release, err := s.locker.Lock(ctx, marketLockKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("buy: failed to acquire market lock: %w", err)
	}
	defer func() { _ = release(ctx) }()

	var lastErr error
	for attempt := 0; attempt < tradeRetries; attempt++ {
		account, entry, market, err := s.buyOnce(ctx, accountID, units)
		if err == nil {
			return account, entry, market, nil
		}
		if !errors.Is(err, util.ErrVersionConflict) {
			return nil, nil, nil, err
		}
		lastErr = err
	}
	return nil, nil, nil, fmt.Errorf("buy: trade kept losing the market version race: %w", lastErr)
}

func (s *marketService) buyOnce(ctx context.Context, accountID int64, units decimal.Decimal) (*domain.Account, *domain.Transaction, *domain.MarketState, error) {
	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("buy: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, nil, nil, fmt.Errorf("buy: transaction controller does not implement DBExecutor")
	}

	account, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("buy: failed to get account %d: %w", accountID, err)
	}

	market, err := s.loadMarket(ctx, txExecutor)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("buy: %w", err)
	}

	cost := market.Quote(units)
	if account.CoinBalance < cost {
		return nil, nil, nil, util.ErrInsufficientCoins
	}

	version := market.Version
	market.ApplyBuy(units)
	if err := s.marketRepo.UpdateMarketState(ctx, txExecutor, market, version); err != nil {
		return nil, nil, nil, err
	}

	if err := s.accountRepo.AdjustBalances(ctx, txExecutor, accountID, -cost, 0, units); err != nil {
		return nil, nil, nil, fmt.Errorf("buy: failed to adjust balances: %w", err)
	}

	entry := domain.NewTransaction(
		accountID,
		units,
		-cost,
		fmt.Sprintf("Bought %s $ZPEXK", units.StringFixed(2)),
		domain.UnitZPEXK,
		domain.TransactionStatusSuccess,
		MarketDestination,
		domain.TransactionKindShop,
		s.now().UTC(),
	)
	if err := s.ledgerRepo.AppendTransaction(ctx, txExecutor, entry); err != nil {
		return nil, nil, nil, fmt.Errorf("buy: failed to append ledger entry: %w", err)
	}

	updated, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("buy: failed to re-fetch account %d: %w", accountID, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, nil, fmt.Errorf("buy: failed to commit transaction: %w", err)
	}

	return updated, entry, market, nil
}

func (s *marketService) Sell(ctx context.Context, accountID int64, units decimal.Decimal, pin string) (*domain.Account, *domain.Transaction, *domain.MarketState, error) {
	if units.LessThanOrEqual(decimal.Zero) {
		return nil, nil, nil, util.ErrInvalidInput
	}

	release, err := s.locker.Lock(ctx, marketLockKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sell: failed to acquire market lock: %w", err)
	}
	defer func() { _ = release(ctx) }()

	var lastErr error
	for attempt := 0; attempt < tradeRetries; attempt++ {
		account, entry, market, err := s.sellOnce(ctx, accountID, units, pin)
		if err == nil {
			return account, entry, market, nil
		}
		if !errors.Is(err, util.ErrVersionConflict) {
			return nil, nil, nil, err
		}
		lastErr = err
	}
	return nil, nil, nil, fmt.Errorf("sell: trade kept losing the market version race: %w", lastErr)
}

func (s *marketService) sellOnce(ctx context.Context, accountID int64, units decimal.Decimal, pin string) (*domain.Account, *domain.Transaction, *domain.MarketState, error) {
	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sell: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, nil, nil, fmt.Errorf("sell: transaction controller does not implement DBExecutor")
	}

	account, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sell: failed to get account %d: %w", accountID, err)
	}

	// The security gate runs before any state is touched.
	if err := s.security.Verify(account, pin); err != nil {
		return nil, nil, nil, err
	}

	if account.AssetBalance.LessThan(units) {
		return nil, nil, nil, util.ErrInsufficientAsset
	}

	market, err := s.loadMarket(ctx, txExecutor)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sell: %w", err)
	}

	gross := market.Quote(units)
	tax, net := domain.SellProceeds(gross)

	version := market.Version
	market.ApplySell(units)
	if err := s.marketRepo.UpdateMarketState(ctx, txExecutor, market, version); err != nil {
		return nil, nil, nil, err
	}

	// Sell proceeds do not count toward lifetime Coins; only reward
	// earnings do.
	if err := s.accountRepo.AdjustBalances(ctx, txExecutor, accountID, net, 0, units.Neg()); err != nil {
		return nil, nil, nil, fmt.Errorf("sell: failed to adjust balances: %w", err)
	}

	entry := domain.NewTransaction(
		accountID,
		units,
		net,
		fmt.Sprintf("Sold %s $ZPEXK (11%% tax: %d Coins)", units.StringFixed(2), tax),
		domain.UnitZPEXK,
		domain.TransactionStatusSuccess,
		MarketDestination,
		domain.TransactionKindEarn,
		s.now().UTC(),
	)
	if err := s.ledgerRepo.AppendTransaction(ctx, txExecutor, entry); err != nil {
		return nil, nil, nil, fmt.Errorf("sell: failed to append ledger entry: %w", err)
	}

	updated, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sell: failed to re-fetch account %d: %w", accountID, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, nil, fmt.Errorf("sell: failed to commit transaction: %w", err)
	}

	return updated, entry, market, nil
}

// loadMarket reads the market inside a trade transaction, seeding the
// initial state on first use.
func (s *marketService) loadMarket(ctx context.Context, q repository.DBExecutor) (*domain.MarketState, error) {
	market, err := s.marketRepo.GetMarketState(ctx, q)
	if err == nil {
		return market, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}
	market = domain.NewMarketState()
	if err := s.marketRepo.CreateMarketState(ctx, q, market); err != nil {
		return nil, fmt.Errorf("failed to seed market state: %w", err)
	}
	return market, nil
}

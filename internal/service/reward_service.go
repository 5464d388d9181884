// internal/service/reward_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zpexk-rewards/internal/domain"
	"zpexk-rewards/internal/repository"
	"zpexk-rewards/internal/util"
	"zpexk-rewards/pkg/db"

	"github.com/shopspring/decimal"
)

// RewardService credits Coins for completed tasks and minigame results
// and debits them for reward redemptions. These are the only operations
// that grow lifetime Coins.
type RewardService interface {
	// Tasks returns the injected task catalog minus the entries the
	// account already completed.
	Tasks(ctx context.Context, accountID int64) ([]domain.Task, error)
	// CompleteTask credits the task reward once per task per account.
	CompleteTask(ctx context.Context, accountID int64, taskID string) (*domain.Account, *domain.Transaction, error)
	// RecordPlayResult stores a new high score and credits one Coin per
	// ten points scored.
	RecordPlayResult(ctx context.Context, accountID int64, score int64) (*domain.Account, *domain.Transaction, error)
	// RedeemGiftCode exchanges Coins for a generated gift code.
	RedeemGiftCode(ctx context.Context, accountID int64, tierID string) (*domain.Account, *domain.Transaction, error)
	// RedeemGameCredit exchanges Coins for an externally fulfilled
	// game-credit transfer; the ledger entry stays PENDING.
	RedeemGameCredit(ctx context.Context, accountID int64, tokens int64, nametag string) (*domain.Account, *domain.Transaction, error)
	// RedeemPromoCode credits a promotional bonus once per code per
	// account.
	RedeemPromoCode(ctx context.Context, accountID int64, code string) (*domain.Account, *domain.Transaction, error)
}

type rewardService struct {
	dbBeginner  db.DBTxBeginner
	dbExecutor  repository.DBExecutor
	accountRepo repository.AccountRepository
	ledgerRepo  repository.LedgerRepository
	catalog     []domain.Task
	promos      []domain.PromoCode
	beginTx     db.BeginTxFunc
	commitTx    db.CommitTxFunc
	rollbackTx  db.RollbackTxFunc
	now         func() time.Time
}

// NewRewardService creates a new RewardService. The task catalog and
// promo table are injected collaborators; the observed deployment runs
// with an empty catalog.
func NewRewardService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	accountRepo repository.AccountRepository,
	ledgerRepo repository.LedgerRepository,
	catalog []domain.Task,
	promos []domain.PromoCode,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	now func() time.Time,
) RewardService {
	return &rewardService{
		dbBeginner:  dbBeginner,
		dbExecutor:  dbExecutor,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		catalog:     catalog,
		promos:      promos,
		beginTx:     beginTx,
		commitTx:    commitTx,
		rollbackTx:  rollbackTx,
		now:         now,
	}
}

func (s *rewardService) Tasks(ctx context.Context, accountID int64) ([]domain.Task, error) {
	account, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID)
	if err != nil {
		return nil, fmt.Errorf("tasks: failed to get account %d: %w", accountID, err)
	}

	available := make([]domain.Task, 0, len(s.catalog))
	for _, task := range s.catalog {
		if !account.HasCompletedTask(task.ID) {
			available = append(available, task)
		}
	}
	return available, nil
}

func (s *rewardService) CompleteTask(ctx context.Context, accountID int64, taskID string) (*domain.Account, *domain.Transaction, error) {
	var task *domain.Task
	for i := range s.catalog {
		if s.catalog[i].ID == taskID {
			task = &s.catalog[i]
			break
		}
	}
	if task == nil {
		return nil, nil, util.ErrUnknownTask
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("complete task: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, nil, fmt.Errorf("complete task: transaction controller does not implement DBExecutor")
	}

	account, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("complete task: failed to get account %d: %w", accountID, err)
	}
	if account.HasCompletedTask(taskID) {
		return nil, nil, util.ErrTaskCompleted
	}

	if err := s.accountRepo.AdjustBalances(ctx, txExecutor, accountID, task.Reward, task.Reward, decimal.Zero); err != nil {
		return nil, nil, fmt.Errorf("complete task: failed to credit reward: %w", err)
	}
	if err := s.accountRepo.AddCompletedTask(ctx, txExecutor, accountID, taskID); err != nil {
		return nil, nil, fmt.Errorf("complete task: %w", err)
	}

	entry := domain.NewTransaction(
		accountID,
		decimal.NewFromInt(task.Reward),
		task.Reward,
		task.Title,
		domain.UnitCoins,
		domain.TransactionStatusSuccess,
		task.Provider,
		domain.TransactionKindEarn,
		s.now().UTC(),
	)
	if err := s.ledgerRepo.AppendTransaction(ctx, txExecutor, entry); err != nil {
		return nil, nil, fmt.Errorf("complete task: failed to append ledger entry: %w", err)
	}

	updated, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("complete task: failed to re-fetch account %d: %w", accountID, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, fmt.Errorf("complete task: failed to commit transaction: %w", err)
	}

	return updated, entry, nil
}

func (s *rewardService) RecordPlayResult(ctx context.Context, accountID int64, score int64) (*domain.Account, *domain.Transaction, error) {
	if score < 0 {
		return nil, nil, util.ErrInvalidInput
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("play result: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, nil, fmt.Errorf("play result: transaction controller does not implement DBExecutor")
	}

	account, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("play result: failed to get account %d: %w", accountID, err)
	}

	if score > account.HighScore {
		if err := s.accountRepo.UpdateHighScore(ctx, txExecutor, accountID, score); err != nil {
			return nil, nil, fmt.Errorf("play result: %w", err)
		}
	}

	// One Coin per ten points.
	reward := score / 10
	var entry *domain.Transaction
	if reward > 0 {
		if err := s.accountRepo.AdjustBalances(ctx, txExecutor, accountID, reward, reward, decimal.Zero); err != nil {
			return nil, nil, fmt.Errorf("play result: failed to credit reward: %w", err)
		}
		entry = domain.NewTransaction(
			accountID,
			decimal.NewFromInt(reward),
			reward,
			"Play MD Reward",
			domain.UnitCoins,
			domain.TransactionStatusSuccess,
			"Play MD",
			domain.TransactionKindEarn,
			s.now().UTC(),
		)
		if err := s.ledgerRepo.AppendTransaction(ctx, txExecutor, entry); err != nil {
			return nil, nil, fmt.Errorf("play result: failed to append ledger entry: %w", err)
		}
	}

	updated, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("play result: failed to re-fetch account %d: %w", accountID, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, fmt.Errorf("play result: failed to commit transaction: %w", err)
	}

	return updated, entry, nil
}

func (s *rewardService) RedeemGiftCode(ctx context.Context, accountID int64, tierID string) (*domain.Account, *domain.Transaction, error) {
	tier, ok := domain.FindGiftCodeTier(tierID)
	if !ok {
		return nil, nil, util.ErrInvalidInput
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("redeem gift code: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, txOK := txController.(repository.DBExecutor)
	if !txOK {
		return nil, nil, fmt.Errorf("redeem gift code: transaction controller does not implement DBExecutor")
	}

	account, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("redeem gift code: failed to get account %d: %w", accountID, err)
	}
	if account.CoinBalance < tier.Cost {
		return nil, nil, util.ErrInsufficientCoins
	}

	if err := s.accountRepo.AdjustBalances(ctx, txExecutor, accountID, -tier.Cost, 0, decimal.Zero); err != nil {
		return nil, nil, fmt.Errorf("redeem gift code: failed to debit Coins: %w", err)
	}

	code := domain.GenerateRedeemCode()
	entry := domain.NewTransaction(
		accountID,
		decimal.NewFromInt(tier.Cost),
		-tier.Cost,
		tier.Label,
		domain.UnitCoins,
		domain.TransactionStatusSuccess,
		"Shop",
		domain.TransactionKindShop,
		s.now().UTC(),
	)
	entry.RedeemCode = &code
	if err := s.ledgerRepo.AppendTransaction(ctx, txExecutor, entry); err != nil {
		return nil, nil, fmt.Errorf("redeem gift code: failed to append ledger entry: %w", err)
	}

	updated, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("redeem gift code: failed to re-fetch account %d: %w", accountID, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, fmt.Errorf("redeem gift code: failed to commit transaction: %w", err)
	}

	return updated, entry, nil
}

func (s *rewardService) RedeemGameCredit(ctx context.Context, accountID int64, tokens int64, nametag string) (*domain.Account, *domain.Transaction, error) {
	if tokens <= 0 || strings.TrimSpace(nametag) == "" {
		return nil, nil, util.ErrInvalidInput
	}
	cost := tokens * domain.GameCreditRate

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("redeem game credit: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, txOK := txController.(repository.DBExecutor)
	if !txOK {
		return nil, nil, fmt.Errorf("redeem game credit: transaction controller does not implement DBExecutor")
	}

	account, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("redeem game credit: failed to get account %d: %w", accountID, err)
	}
	if account.CoinBalance < cost {
		return nil, nil, util.ErrInsufficientCoins
	}

	if err := s.accountRepo.AdjustBalances(ctx, txExecutor, accountID, -cost, 0, decimal.Zero); err != nil {
		return nil, nil, fmt.Errorf("redeem game credit: failed to debit Coins: %w", err)
	}

	// Fulfillment happens outside this system; the entry settles later.
	entry := domain.NewTransaction(
		accountID,
		decimal.NewFromInt(tokens),
		-cost,
		fmt.Sprintf("Game Credit Transfer: %d Tokens", tokens),
		domain.UnitTokens,
		domain.TransactionStatusPending,
		strings.TrimSpace(nametag),
		domain.TransactionKindShop,
		s.now().UTC(),
	)
	if err := s.ledgerRepo.AppendTransaction(ctx, txExecutor, entry); err != nil {
		return nil, nil, fmt.Errorf("redeem game credit: failed to append ledger entry: %w", err)
	}

	updated, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("redeem game credit: failed to re-fetch account %d: %w", accountID, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, fmt.Errorf("redeem game credit: failed to commit transaction: %w", err)
	}

	return updated, entry, nil
}

// PromoDestination is the counterparty recorded on promo bonus entries.
const PromoDestination = "WALLET"

func (s *rewardService) RedeemPromoCode(ctx context.Context, accountID int64, code string) (*domain.Account, *domain.Transaction, error) {
	code = strings.TrimSpace(code)

	var promo *domain.PromoCode
	for i := range s.promos {
		if s.promos[i].Code == code {
			promo = &s.promos[i]
			break
		}
	}
	if promo == nil {
		return nil, nil, util.ErrInvalidPromoCode
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("redeem promo code: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, nil, fmt.Errorf("redeem promo code: transaction controller does not implement DBExecutor")
	}

	account, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("redeem promo code: failed to get account %d: %w", accountID, err)
	}
	if account.HasUsedPromoCode(promo.Code) {
		return nil, nil, util.ErrPromoCodeUsed
	}

	// Promo bonuses are earnings, so they grow lifetime Coins.
	if err := s.accountRepo.AdjustBalances(ctx, txExecutor, accountID, promo.Bonus, promo.Bonus, decimal.Zero); err != nil {
		return nil, nil, fmt.Errorf("redeem promo code: failed to credit bonus: %w", err)
	}
	if err := s.accountRepo.MarkPromoCodeUsed(ctx, txExecutor, accountID, promo.Code); err != nil {
		return nil, nil, fmt.Errorf("redeem promo code: %w", err)
	}

	entry := domain.NewTransaction(
		accountID,
		decimal.NewFromInt(promo.Bonus),
		promo.Bonus,
		promo.Label,
		domain.UnitCoins,
		domain.TransactionStatusSuccess,
		PromoDestination,
		domain.TransactionKindEarn,
		s.now().UTC(),
	)
	if err := s.ledgerRepo.AppendTransaction(ctx, txExecutor, entry); err != nil {
		return nil, nil, fmt.Errorf("redeem promo code: failed to append ledger entry: %w", err)
	}

	updated, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("redeem promo code: failed to re-fetch account %d: %w", accountID, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, fmt.Errorf("redeem promo code: failed to commit transaction: %w", err)
	}

	return updated, entry, nil
}

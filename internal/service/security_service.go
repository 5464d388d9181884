// internal/service/security_service.go
package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"zpexk-rewards/internal/domain"
	"zpexk-rewards/internal/repository"
	"zpexk-rewards/internal/util"
	"zpexk-rewards/pkg/db"
)

// PINCooldown is the minimum interval between PIN changes.
const PINCooldown = 8 * time.Hour

var pinPattern = regexp.MustCompile(`^\d{2}$`)

// SecurityService gates Sell and Transfer behind the 2-digit security
// PIN and governs the PIN lifecycle.
type SecurityService interface {
	// SetPIN stores a new PIN, enforcing format and the change cooldown.
	SetPIN(ctx context.Context, accountID int64, newPIN string) (*domain.Account, error)
	// Verify checks a candidate PIN against the account's stored PIN.
	// It fails closed when no PIN is set.
	Verify(account *domain.Account, candidate string) error
}

type securityService struct {
	dbBeginner  db.DBTxBeginner
	accountRepo repository.AccountRepository
	beginTx     db.BeginTxFunc
	commitTx    db.CommitTxFunc
	rollbackTx  db.RollbackTxFunc
	now         func() time.Time
}

// NewSecurityService creates a new SecurityService. The clock is
// injected so cooldown arithmetic is testable.
func NewSecurityService(
	dbBeginner db.DBTxBeginner,
	accountRepo repository.AccountRepository,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	now func() time.Time,
) SecurityService {
	return &securityService{
		dbBeginner:  dbBeginner,
		accountRepo: accountRepo,
		beginTx:     beginTx,
		commitTx:    commitTx,
		rollbackTx:  rollbackTx,
		now:         now,
	}
}

func (s *securityService) SetPIN(ctx context.Context, accountID int64, newPIN string) (*domain.Account, error) {
	if !pinPattern.MatchString(newPIN) {
		return nil, util.ErrInvalidPIN
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, fmt.Errorf("set pin: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("set pin: transaction controller does not implement DBExecutor")
	}

	account, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		return nil, fmt.Errorf("set pin: failed to get account %d: %w", accountID, err)
	}

	now := s.now().UTC()
	if account.PIN != nil && account.LastPINUpdate != nil {
		elapsed := now.Sub(*account.LastPINUpdate)
		if elapsed < PINCooldown {
			return nil, &util.PINCooldownError{Remaining: PINCooldown - elapsed}
		}
	}

	if err := s.accountRepo.UpdatePIN(ctx, txExecutor, accountID, newPIN, now); err != nil {
		return nil, fmt.Errorf("set pin: failed to store PIN: %w", err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, fmt.Errorf("set pin: failed to commit transaction: %w", err)
	}

	account.PIN = &newPIN
	account.LastPINUpdate = &now
	return account, nil
}

func (s *securityService) Verify(account *domain.Account, candidate string) error {
	if account.PIN == nil || *account.PIN == "" {
		return util.ErrPINNotSet
	}
	if *account.PIN != candidate {
		return util.ErrPINMismatch
	}
	return nil
}

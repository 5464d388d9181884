// internal/service/transfer_service.go
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

	"github.com/shopspring/decimal"
)

// TransferState is the lifecycle state of one transfer attempt.
type TransferState string

const (
	TransferStateCompose    TransferState = "COMPOSE"
	TransferStateReview     TransferState = "REVIEW"
	TransferStateAuthorized TransferState = "AUTHORIZED"
	TransferStateCommitted  TransferState = "COMMITTED"
	TransferStateCancelled  TransferState = "CANCELLED"
)

// TransferSource names how the destination ZPEXK number was supplied.
// A scanned code arrives as an already-decoded 10-digit string and is
// validated identically to manual entry; it only flavors the ledger
// labels.
type TransferSource string

const (
	TransferSourceManual TransferSource = "MANUAL"
	TransferSourceScan   TransferSource = "SCAN"
)

// SystemSender is recorded as the counterparty on a received transfer
// when the sender has no public identifier.
const SystemSender = "SYSTEM"

var publicIDPattern = regexp.MustCompile(`^\d{10}$`)

// TransferIntent is one in-flight transfer attempt moving through
// COMPOSE -> REVIEW -> AUTHORIZED -> COMMITTED. It carries no committed
// state until Commit succeeds, so cancelling never has side effects.
type TransferIntent struct {
	state          TransferState
	SenderID       int64
	SenderPublicID string
	Destination    string
	Amount         decimal.Decimal
	Source         TransferSource
}

// State returns the current lifecycle state.
func (i *TransferIntent) State() TransferState {
	return i.state
}

// TransferService moves $ZPEXK between two accounts identified by their
// public ZPEXK numbers, atomically and with paired ledger entries.
type TransferService interface {
	// Compose validates destination, amount and sender balance and opens
	// a new transfer attempt.
	Compose(ctx context.Context, senderID int64, destination string, amount decimal.Decimal, source TransferSource) (*TransferIntent, error)
	// Review advances the attempt to the confirmation step.
	Review(intent *TransferIntent) error
	// Authorize verifies the sender's security PIN. A wrong PIN keeps the
	// attempt in REVIEW so the caller can retry with cleared input.
	Authorize(ctx context.Context, intent *TransferIntent, pin string) error
	// Commit resolves the recipient and applies the dual-account update
	// plus both ledger entries in one atomic transaction.
	Commit(ctx context.Context, intent *TransferIntent) (*domain.Account, error)
	// Cancel abandons an attempt that has not committed yet.
	Cancel(intent *TransferIntent) error
}

type transferService struct {
	dbBeginner  db.DBTxBeginner
	dbExecutor  repository.DBExecutor
	accountRepo repository.AccountRepository
	ledgerRepo  repository.LedgerRepository
	security    SecurityService
	beginTx     db.BeginTxFunc
	commitTx    db.CommitTxFunc
	rollbackTx  db.RollbackTxFunc
	now         func() time.Time
}

// NewTransferService creates a new TransferService.
func NewTransferService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	accountRepo repository.AccountRepository,
	ledgerRepo repository.LedgerRepository,
	security SecurityService,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	now func() time.Time,
) TransferService {
	return &transferService{
		dbBeginner:  dbBeginner,
		dbExecutor:  dbExecutor,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		security:    security,
		beginTx:     beginTx,
		commitTx:    commitTx,
		rollbackTx:  rollbackTx,
		now:         now,
	}
}

func (s *transferService) Compose(ctx context.Context, senderID int64, destination string, amount decimal.Decimal, source TransferSource) (*TransferIntent, error) {
	if !publicIDPattern.MatchString(destination) {
		return nil, fmt.Errorf("destination must be a 10-digit ZPEXK number: %w", util.ErrInvalidInput)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("transfer amount must be positive: %w", util.ErrInvalidInput)
	}

	sender, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, senderID)
	if err != nil {
		return nil, fmt.Errorf("compose transfer: failed to get sender %d: %w", senderID, err)
	}
	if destination == sender.PublicID {
		return nil, util.ErrSelfTransfer
	}
	if sender.AssetBalance.LessThan(amount) {
		return nil, util.ErrInsufficientAsset
	}

	return &TransferIntent{
		state:          TransferStateCompose,
		SenderID:       senderID,
		SenderPublicID: sender.PublicID,
		Destination:    destination,
		Amount:         amount,
		Source:         source,
	}, nil
}

func (s *transferService) Review(intent *TransferIntent) error {
	if intent.state != TransferStateCompose {
		return util.ErrInvalidState
	}
	intent.state = TransferStateReview
	return nil
}

func (s *transferService) Authorize(ctx context.Context, intent *TransferIntent, pin string) error {
	if intent.state != TransferStateReview {
		return util.ErrInvalidState
	}

	sender, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, intent.SenderID)
	if err != nil {
		return fmt.Errorf("authorize transfer: failed to get sender %d: %w", intent.SenderID, err)
	}
	if err := s.security.Verify(sender, pin); err != nil {
		return err
	}

	intent.state = TransferStateAuthorized
	return nil
}

func (s *transferService) Commit(ctx context.Context, intent *TransferIntent) (*domain.Account, error) {
	if intent.state != TransferStateAuthorized {
		return nil, util.ErrInvalidState
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, fmt.Errorf("transfer: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("transfer: transaction controller does not implement DBExecutor")
	}

	sender, err := s.accountRepo.GetAccountByID(ctx, txExecutor, intent.SenderID)
	if err != nil {
		return nil, fmt.Errorf("transfer: failed to get sender %d: %w", intent.SenderID, err)
	}
	// The balance may have moved since Compose.
	if sender.AssetBalance.LessThan(intent.Amount) {
		return nil, util.ErrInsufficientAsset
	}

	recipient, err := s.accountRepo.GetAccountByPublicID(ctx, txExecutor, intent.Destination)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrRecipientNotFound
		}
		return nil, fmt.Errorf("transfer: failed to resolve recipient %s: %w", intent.Destination, err)
	}

	if err := s.accountRepo.AdjustBalances(ctx, txExecutor, sender.ID, 0, 0, intent.Amount.Neg()); err != nil {
		return nil, fmt.Errorf("transfer: failed to debit sender: %w", err)
	}
	if err := s.accountRepo.AdjustBalances(ctx, txExecutor, recipient.ID, 0, 0, intent.Amount); err != nil {
		return nil, fmt.Errorf("transfer: failed to credit recipient: %w", err)
	}

	senderFrom := sender.PublicID
	if senderFrom == "" {
		senderFrom = SystemSender
	}

	now := s.now().UTC()
	senderEntry := domain.NewTransaction(
		sender.ID,
		intent.Amount,
		0,
		sentLabel(intent.Source, intent.Destination),
		domain.UnitZPEXK,
		domain.TransactionStatusSuccess,
		intent.Destination,
		domain.TransactionKindTransfer,
		now,
	)
	if err := s.ledgerRepo.AppendTransaction(ctx, txExecutor, senderEntry); err != nil {
		return nil, fmt.Errorf("transfer: failed to append sender ledger entry: %w", err)
	}

	recipientEntry := domain.NewTransaction(
		recipient.ID,
		intent.Amount,
		0,
		receivedLabel(intent.Source, senderFrom),
		domain.UnitZPEXK,
		domain.TransactionStatusSuccess,
		senderFrom,
		domain.TransactionKindEarn,
		now,
	)
	if err := s.ledgerRepo.AppendTransaction(ctx, txExecutor, recipientEntry); err != nil {
		return nil, fmt.Errorf("transfer: failed to append recipient ledger entry: %w", err)
	}

	updated, err := s.accountRepo.GetAccountByID(ctx, txExecutor, sender.ID)
	if err != nil {
		return nil, fmt.Errorf("transfer: failed to re-fetch sender %d: %w", sender.ID, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, fmt.Errorf("transfer: failed to commit transaction: %w", err)
	}

	intent.state = TransferStateCommitted
	return updated, nil
}

func (s *transferService) Cancel(intent *TransferIntent) error {
	switch intent.state {
	case TransferStateCompose, TransferStateReview, TransferStateAuthorized:
		intent.state = TransferStateCancelled
		return nil
	default:
		return util.ErrInvalidState
	}
}

func sentLabel(source TransferSource, destination string) string {
	if source == TransferSourceScan {
		return fmt.Sprintf("Sent ZPEXK via Scan to %s", destination)
	}
	return fmt.Sprintf("Sent ZPEXK to %s", destination)
}

func receivedLabel(source TransferSource, sender string) string {
	if source == TransferSourceScan {
		return fmt.Sprintf("Received ZPEXK via Scan from %s", sender)
	}
	return fmt.Sprintf("Received ZPEXK from %s", sender)
}

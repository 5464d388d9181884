// internal/domain/transaction.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	TransactionKindEarn     TransactionKind = "EARN"
	TransactionKindTransfer TransactionKind = "TRANSFER"
	TransactionKindShop     TransactionKind = "SHOP"
)

// TransactionStatus is the fulfillment state of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
)

// TransactionUnit names the display unit of an entry's Amount field.
// It replaces inferring the unit from the free-text label.
type TransactionUnit string

const (
	UnitCoins  TransactionUnit = "COINS"
	UnitTokens TransactionUnit = "TOKENS"
	UnitZPEXK  TransactionUnit = "ZPEXK"
)

// Transaction is an immutable record of one balance-affecting event.
// Entries are append-only: corrections are made with offsetting entries,
// never edits.
type Transaction struct {
	ID            int64             `db:"id" json:"id"`
	AccountID     int64             `db:"account_id" json:"account_id"`
	Amount        decimal.Decimal   `db:"amount" json:"amount"`           // quantity in the event's native unit
	CoinAmount    int64             `db:"coin_amount" json:"coin_amount"` // signed Coin-equivalent delta
	Label         string            `db:"label" json:"label"`
	Unit          TransactionUnit   `db:"unit" json:"unit"`
	Status        TransactionStatus `db:"status" json:"status"`
	DestinationID string            `db:"destination_id" json:"destination_id"`
	Kind          TransactionKind   `db:"kind" json:"kind"`
	RedeemCode    *string           `db:"redeem_code" json:"redeem_code,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
}

// NewTransaction creates a new ledger entry stamped with the given time.
func NewTransaction(
	accountID int64,
	amount decimal.Decimal,
	coinAmount int64,
	label string,
	unit TransactionUnit,
	status TransactionStatus,
	destinationID string,
	kind TransactionKind,
	createdAt time.Time,
) *Transaction {
	return &Transaction{
		AccountID:     accountID,
		Amount:        amount,
		CoinAmount:    coinAmount,
		Label:         label,
		Unit:          unit,
		Status:        status,
		DestinationID: destinationID,
		Kind:          kind,
		CreatedAt:     createdAt,
	}
}

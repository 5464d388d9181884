// internal/util/errors.go
package util

import (
	"errors"
	"fmt"
	"time"
)

// Common application-specific errors.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input provided")
	ErrInsufficientCoins = errors.New("insufficient Coin balance")
	ErrInsufficientAsset = errors.New("insufficient $ZPEXK balance")
	ErrSelfTransfer      = errors.New("cannot transfer to your own ZPEXK number")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrPINNotSet         = errors.New("security PIN is not set")
	ErrPINMismatch       = errors.New("incorrect security PIN")
	ErrInvalidPIN        = errors.New("PIN must be exactly 2 digits")
	ErrVersionConflict   = errors.New("market state was modified concurrently")
	ErrInvalidState      = errors.New("operation not allowed in current state")
	ErrTaskCompleted     = errors.New("task already completed")
	ErrUnknownTask       = errors.New("unknown task")
	ErrInvalidPromoCode  = errors.New("invalid promo code")
	ErrPromoCodeUsed     = errors.New("promo code already used")
)

// PINCooldownError reports how long the caller must wait before the
// security PIN can be changed again.
type PINCooldownError struct {
	Remaining time.Duration
}

func (e *PINCooldownError) Error() string {
	h := int(e.Remaining.Hours())
	m := int(e.Remaining.Minutes()) % 60
	return fmt.Sprintf("PIN can only be updated once every 8 hours, wait %dh %dm", h, m)
}

// IsError checks whether err wraps the given sentinel error.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}

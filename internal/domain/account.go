// internal/domain/account.go
package domain

import (
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Account represents one participant of the rewards program.
//
// CoinBalance is the primary in-app currency (integer Coins).
// AssetBalance holds the tradeable secondary asset ($ZPEXK) with
// decimal precision. LifetimeCoins only ever grows, via earn events.
type Account struct {
	ID               int64           `db:"id" json:"id"`
	Username         string          `db:"username" json:"username"`
	PublicID         string          `db:"public_id" json:"public_id"` // 10-digit ZPEXK number used for transfers
	ReferralCode     string          `db:"referral_code" json:"referral_code"`
	ReferredBy       *string         `db:"referred_by" json:"referred_by,omitempty"`
	CoinBalance      int64           `db:"coin_balance" json:"coin_balance"`
	LifetimeCoins    int64           `db:"lifetime_coins" json:"lifetime_coins"`
	AssetBalance     decimal.Decimal `db:"asset_balance" json:"asset_balance"`
	PIN              *string         `db:"pin" json:"-"` // 2-digit security PIN, never serialized
	LastPINUpdate    *time.Time      `db:"last_pin_update" json:"-"`
	HighScore        int64           `db:"high_score" json:"high_score"`
	CompletedTaskIDs pq.StringArray  `db:"completed_task_ids" json:"completed_task_ids"`
	UsedPromoCodes   pq.StringArray  `db:"used_promo_codes" json:"-"` // codes stay secret once redeemed
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// NewAccount creates a new Account with freshly generated public
// identifiers and zeroed balances.
func NewAccount(username string, referredBy *string) *Account {
	now := time.Now().UTC()
	return &Account{
		Username:         username,
		PublicID:         GeneratePublicID(),
		ReferralCode:     GenerateReferralCode(),
		ReferredBy:       referredBy,
		CoinBalance:      0,
		LifetimeCoins:    0,
		AssetBalance:     decimal.Zero,
		CompletedTaskIDs: pq.StringArray{},
		UsedPromoCodes:   pq.StringArray{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// HasCompletedTask reports whether the given task was already rewarded.
func (a *Account) HasCompletedTask(taskID string) bool {
	for _, id := range a.CompletedTaskIDs {
		if id == taskID {
			return true
		}
	}
	return false
}

// HasUsedPromoCode reports whether the given promo code was already
// redeemed by this account.
func (a *Account) HasUsedPromoCode(code string) bool {
	for _, c := range a.UsedPromoCodes {
		if c == code {
			return true
		}
	}
	return false
}

// LeaderboardEntry is one row of the minigame leaderboard.
type LeaderboardEntry struct {
	Username  string `db:"username" json:"username"`
	HighScore int64  `db:"high_score" json:"high_score"`
}

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GeneratePublicID returns a random 10-digit ZPEXK number. The leading
// digit is never zero so the identifier keeps a fixed width.
func GeneratePublicID() string {
	return strconv.FormatInt(1_000_000_000+rand.Int64N(9_000_000_000), 10)
}

// GenerateReferralCode returns a referral code of the form "MC" followed
// by six alphanumeric characters.
func GenerateReferralCode() string {
	return "MC" + randomCode(6)
}

// GenerateRedeemCode returns a gift-code string, two uppercase
// alphanumeric groups separated by a dash.
func GenerateRedeemCode() string {
	return randomCode(8) + "-" + randomCode(4)
}

func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(b)
}

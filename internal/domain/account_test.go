// internal/domain/account_test.go
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneratePublicID(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := GeneratePublicID()
		assert.Regexp(t, `^[1-9]\d{9}$`, id)
	}
}

func TestGenerateReferralCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Regexp(t, `^MC[0-9A-Z]{6}$`, GenerateReferralCode())
	}
}

func TestGenerateRedeemCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Regexp(t, `^[0-9A-Z]{8}-[0-9A-Z]{4}$`, GenerateRedeemCode())
	}
}

func TestNewAccount(t *testing.T) {
	referrer := "MCABC123"
	account := NewAccount("alice", &referrer)

	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, &referrer, account.ReferredBy)
	assert.Equal(t, int64(0), account.CoinBalance)
	assert.Equal(t, int64(0), account.LifetimeCoins)
	assert.True(t, account.AssetBalance.IsZero())
	assert.Nil(t, account.PIN)
	assert.Nil(t, account.LastPINUpdate)
	assert.NotNil(t, account.CompletedTaskIDs)
}

func TestHasCompletedTask(t *testing.T) {
	account := NewAccount("bob", nil)
	assert.False(t, account.HasCompletedTask("offer-1"))

	account.CompletedTaskIDs = append(account.CompletedTaskIDs, "offer-1")
	assert.True(t, account.HasCompletedTask("offer-1"))
	assert.False(t, account.HasCompletedTask("offer-2"))
}

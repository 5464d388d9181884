// internal/service/security_service_test.go
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

func newSecurityFixture(now time.Time) (*MockAccountRepository, *MockTxController, SecurityService) {
	accountRepo := new(MockAccountRepository)
	txController := new(MockTxController)
	begin, commit, rollback := txFuncs(txController)
	svc := NewSecurityService(new(MockDBBeginner), accountRepo, begin, commit, rollback, fixedClock(now))
	return accountRepo, txController, svc
}

func TestSetPIN(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	accountID := int64(7)

	t.Run("RejectsMalformedPIN", func(t *testing.T) {
		accountRepo, txController, svc := newSecurityFixture(now)

		for _, bad := range []string{"", "1", "123", "ab", "1a"} {
			_, err := svc.SetPIN(context.Background(), accountID, bad)
			assert.ErrorIs(t, err, util.ErrInvalidPIN, "pin %q", bad)
		}

		accountRepo.AssertNotCalled(t, "UpdatePIN", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		txController.AssertNotCalled(t, "Commit")
	})

	t.Run("FirstPINAlwaysAllowed", func(t *testing.T) {
		accountRepo, txController, svc := newSecurityFixture(now)

		accountRepo.On("GetAccountByID", mock.Anything, mock.Anything, accountID).
			Return(&domain.Account{ID: accountID}, nil).Once()
		accountRepo.On("UpdatePIN", mock.Anything, mock.Anything, accountID, "42", now).
			Return(nil).Once()
		txController.On("Commit").Return(nil).Once()
		txController.On("Rollback").Return(nil).Maybe()

		account, err := svc.SetPIN(context.Background(), accountID, "42")

		assert.NoError(t, err)
		assert.Equal(t, "42", *account.PIN)
		assert.Equal(t, now, *account.LastPINUpdate)
		mock.AssertExpectationsForObjects(t, accountRepo, txController)
	})

	t.Run("CooldownActive", func(t *testing.T) {
		accountRepo, txController, svc := newSecurityFixture(now)

		pin := "11"
		lastUpdate := now.Add(-7 * time.Hour)
		accountRepo.On("GetAccountByID", mock.Anything, mock.Anything, accountID).
			Return(&domain.Account{ID: accountID, PIN: &pin, LastPINUpdate: &lastUpdate}, nil).Once()
		txController.On("Rollback").Return(nil).Once()

		_, err := svc.SetPIN(context.Background(), accountID, "99")

		var cooldown *util.PINCooldownError
		assert.ErrorAs(t, err, &cooldown)
		assert.Equal(t, time.Hour, cooldown.Remaining)
		txController.AssertNotCalled(t, "Commit")
		accountRepo.AssertNotCalled(t, "UpdatePIN", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CooldownElapsedExactly", func(t *testing.T) {
		accountRepo, txController, svc := newSecurityFixture(now)

		pin := "11"
		lastUpdate := now.Add(-8 * time.Hour)
		accountRepo.On("GetAccountByID", mock.Anything, mock.Anything, accountID).
			Return(&domain.Account{ID: accountID, PIN: &pin, LastPINUpdate: &lastUpdate}, nil).Once()
		accountRepo.On("UpdatePIN", mock.Anything, mock.Anything, accountID, "99", now).
			Return(nil).Once()
		txController.On("Commit").Return(nil).Once()
		txController.On("Rollback").Return(nil).Maybe()

		account, err := svc.SetPIN(context.Background(), accountID, "99")

		assert.NoError(t, err)
		assert.Equal(t, "99", *account.PIN)
		mock.AssertExpectationsForObjects(t, accountRepo, txController)
	})
}

func TestVerify(t *testing.T) {
	_, _, svc := newSecurityFixture(time.Now().UTC())

	t.Run("NoPINSet", func(t *testing.T) {
		err := svc.Verify(&domain.Account{}, "12")
		assert.ErrorIs(t, err, util.ErrPINNotSet)
	})

	t.Run("WrongPIN", func(t *testing.T) {
		pin := "12"
		err := svc.Verify(&domain.Account{PIN: &pin}, "21")
		assert.ErrorIs(t, err, util.ErrPINMismatch)
	})

	t.Run("CorrectPIN", func(t *testing.T) {
		pin := "12"
		assert.NoError(t, svc.Verify(&domain.Account{PIN: &pin}, "12"))
	})
}

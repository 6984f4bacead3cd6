package errors

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsufficientFundsError_CarriesShortage(t *testing.T) {
	err := InsufficientFundsError(decimal.NewFromInt(50), decimal.NewFromInt(80))

	assert.True(t, IsInsufficientFunds(err))
	assert.Equal(t, "INSUFFICIENT_FUNDS", GetErrorCode(err))

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.True(t, decimal.NewFromInt(30).Equal(details["shortage"].(decimal.Decimal)))
	assert.True(t, decimal.NewFromInt(50).Equal(details["current_balance"].(decimal.Decimal)))
	assert.True(t, decimal.NewFromInt(80).Equal(details["required_amount"].(decimal.Decimal)))
}

func TestWrappedDomainErrorsKeepTheirKind(t *testing.T) {
	base := AlreadyProcessedError("WITHDRAWAL", "completed")
	wrapped := fmt.Errorf("resolve withdrawal: %w", base)

	assert.True(t, IsAlreadyProcessed(wrapped))
	assert.False(t, IsInsufficientFunds(wrapped))
	assert.Equal(t, "ALREADY_PROCESSED", GetErrorCode(wrapped))
	assert.Equal(t, "withdrawal already processed (status completed)", base.Error())
}

func TestStorageFailureIsRetryable(t *testing.T) {
	err := StorageFailureError("purchase", fmt.Errorf("deadlock detected"))

	assert.True(t, IsStorageFailure(err))
	assert.True(t, ShouldRetry(err))
	assert.False(t, ShouldRetry(NotFoundError("ACCOUNT")))
	assert.False(t, ShouldRetry(fmt.Errorf("plain")))
}

func TestNotFoundErrorMessage(t *testing.T) {
	err := NotFoundError("DEPOSIT_NOTIFICATION")

	assert.Equal(t, "DEPOSIT_NOTIFICATION_NOT_FOUND", err.Code)
	assert.Equal(t, "deposit notification not found", err.Error())
	assert.True(t, IsNotFound(err))
}

func TestGetErrorCode_Unknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN_ERROR", GetErrorCode(fmt.Errorf("boom")))
	assert.Nil(t, GetErrorDetails(fmt.Errorf("boom")))
	assert.Nil(t, Wrap(nil, "ctx"))
}

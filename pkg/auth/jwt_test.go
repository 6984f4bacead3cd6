package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	accountID := uuid.New()
	token, expiresAt, err := GenerateToken(accountID, RoleAdmin, "secret", "flash_service", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := ValidateToken(token, "secret", "flash_service")
	require.NoError(t, err)
	assert.Equal(t, accountID, claims.AccountID)
	assert.Equal(t, accountID.String(), claims.Subject)
	assert.True(t, claims.IsAdmin())
}

func TestValidateToken_Rejects(t *testing.T) {
	accountID := uuid.New()
	token, _, err := GenerateToken(accountID, RoleUser, "secret", "flash_service", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other-secret", "flash_service")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ValidateToken(token, "secret", "someone_else")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, _, err := GenerateToken(accountID, RoleUser, "secret", "flash_service", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(expired, "secret", "flash_service")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ValidateToken("not-a-jwt", "secret", "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

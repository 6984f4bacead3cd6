package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
)

// AccountLookup exposes the minimal method needed to gate features on KYC
type AccountLookup interface {
	GetAccount(ctx context.Context, accountID uuid.UUID) (*entities.Account, error)
}

// RequireVerified enforces that the authenticated account passed KYC before
// it can buy packages or withdraw.
func RequireVerified(accounts AccountLookup, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := c.Value(ContextAccountID).(uuid.UUID)
		if !ok {
			unauthorized(c, "Authentication required")
			return
		}

		account, err := accounts.GetAccount(c.Request.Context(), accountID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				c.AbortWithStatusJSON(http.StatusNotFound, entities.ErrorResponse{
					Code:    "ACCOUNT_NOT_FOUND",
					Message: "account not found",
				})
				return
			}
			log.Error("Failed to fetch KYC status for gating",
				zap.Error(err),
				zap.String("account_id", accountID.String()),
				zap.String("request_id", c.GetString(ContextRequestID)))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, entities.ErrorResponse{
				Code:    "KYC_STATUS_ERROR",
				Message: "Unable to verify KYC status at this time",
				Details: map[string]interface{}{"retryable": true},
			})
			return
		}

		if !account.Verified {
			c.AbortWithStatusJSON(http.StatusForbidden, entities.ErrorResponse{
				Code:    "KYC_REQUIRED",
				Message: "Please complete KYC to access this feature",
				Details: map[string]interface{}{"kyc_status": account.KYCStatus},
			})
			return
		}

		c.Next()
	}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/pkg/logger"
)

// Error codes as constants for consistent error responses across handlers
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeValidationError    = "VALIDATION_ERROR"
	ErrCodeInvalidID          = "INVALID_ID"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	ErrCodeAlreadyProcessed   = "ALREADY_PROCESSED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Error messages as constants for consistency
const (
	MsgInvalidRequest     = "Invalid request payload"
	MsgUnauthorized       = "Authentication required"
	MsgInternalError      = "Internal server error"
	MsgServiceUnavailable = "Service temporarily unavailable, please retry"
)

// HandleDomainError maps a ledger failure to its HTTP status and JSON body.
// Unknown errors are logged and reported as 500 without leaking their text.
func HandleDomainError(c *gin.Context, log *logger.Logger, err error) {
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		log.Error("Unhandled error", "error", err, "path", c.FullPath(), "request_id", getRequestID(c))
		SendInternalError(c, ErrCodeInternalError, MsgInternalError)
		return
	}

	status := http.StatusInternalServerError
	code := domainErr.Code
	details := domainErr.Details

	switch {
	case apperrors.IsInsufficientFunds(err):
		status = http.StatusUnprocessableEntity
		code = ErrCodeInsufficientFunds
	case apperrors.IsAlreadyProcessed(err):
		status = http.StatusConflict
		code = ErrCodeAlreadyProcessed
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsInvalidInput(err):
		status = http.StatusBadRequest
		code = ErrCodeValidationError
	case apperrors.IsConflict(err):
		status = http.StatusConflict
	case apperrors.IsUnauthorized(err):
		status = http.StatusUnauthorized
	case apperrors.IsForbidden(err):
		status = http.StatusForbidden
	case apperrors.IsStorageFailure(err):
		log.Error("Storage failure", "error", err, "details", details, "retryable", domainErr.IsRetryable(),
			"path", c.FullPath(), "request_id", getRequestID(c))
		if !domainErr.IsRetryable() {
			c.JSON(http.StatusInternalServerError, entities.ErrorResponse{
				Code:    ErrCodeInternalError,
				Message: MsgInternalError,
				Details: map[string]interface{}{"retryable": false},
			})
			return
		}
		c.JSON(http.StatusServiceUnavailable, entities.ErrorResponse{
			Code:    ErrCodeServiceUnavailable,
			Message: MsgServiceUnavailable,
			Details: map[string]interface{}{"retryable": true},
		})
		return
	default:
		log.Error("Unclassified domain error", "error", err, "code", code, "request_id", getRequestID(c))
		SendInternalError(c, ErrCodeInternalError, MsgInternalError)
		return
	}

	c.JSON(status, entities.ErrorResponse{
		Code:    code,
		Message: domainErr.Error(),
		Details: details,
	})
}

// SendBindError reports a request that failed JSON binding or struct validation
func SendBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		SendValidationError(c, "Request validation failed", fields)
		return
	}
	SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
}

// SendBadRequest sends a 400 Bad Request error
func SendBadRequest(c *gin.Context, code, message string, details ...map[string]interface{}) {
	var det map[string]interface{}
	if len(details) > 0 {
		det = details[0]
	}
	c.JSON(http.StatusBadRequest, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: det,
	})
}

// SendUnauthorized sends a 401 Unauthorized error
func SendUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, entities.ErrorResponse{
		Code:    ErrCodeUnauthorized,
		Message: message,
	})
}

// SendForbidden sends a 403 Forbidden error
func SendForbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, entities.ErrorResponse{
		Code:    ErrCodeForbidden,
		Message: message,
	})
}

// SendNotFound sends a 404 Not Found error
func SendNotFound(c *gin.Context, code, message string) {
	c.JSON(http.StatusNotFound, entities.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// SendInternalError sends a 500 Internal Server Error
func SendInternalError(c *gin.Context, code, message string) {
	c.JSON(http.StatusInternalServerError, entities.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// SendServiceUnavailable sends a 503 Service Unavailable error
func SendServiceUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, entities.ErrorResponse{
		Code:    ErrCodeServiceUnavailable,
		Message: message,
		Details: map[string]interface{}{"retryable": true},
	})
}

// SendSuccess sends a 200 OK response with data
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendCreated sends a 201 Created response with data
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// SendNoContent sends a 204 No Content response
func SendNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// SendValidationError sends a validation error with field details
func SendValidationError(c *gin.Context, message string, fieldErrors map[string]string) {
	c.JSON(http.StatusBadRequest, entities.ErrorResponse{
		Code:    ErrCodeValidationError,
		Message: message,
		Details: map[string]interface{}{
			"validation_errors": fieldErrors,
		},
	})
}

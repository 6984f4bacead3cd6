// Package errors provides the failure taxonomy of the ledger core.
// Every ledger operation fails with one of these kinds and callers map
// them to HTTP responses or admin CLI messages without inspecting
// storage-level errors themselves.
package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Standard error categories
var (
	// ErrNotFound indicates the referenced account, package or record does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates malformed input caught before any transaction opens
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientFunds indicates a debit larger than the available balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAlreadyProcessed indicates a resolve/confirm targeted a record that is no longer pending
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrStorageFailure indicates the transaction could not commit; nothing was written
	ErrStorageFailure = errors.New("storage failure")

	// ErrConflict indicates an operation refused because of dependent state
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized indicates the caller is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller may not perform the operation
	ErrForbidden = errors.New("forbidden")
)

// DomainError represents a domain-specific error with additional context
type DomainError struct {
	Err       error
	Code      string
	Message   string
	Details   map[string]interface{}
	Retryable bool
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target
func (e *DomainError) Is(target error) bool {
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(err error, code, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Code:    code,
		Message: message,
	}
}

// WithDetails adds details to the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	e.Details = details
	return e
}

// WithRetryable marks the error as retryable
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// IsRetryable returns true if the error is retryable
func (e *DomainError) IsRetryable() bool {
	return e.Retryable
}

// NotFoundError creates a not found error
func NotFoundError(resource string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    fmt.Sprintf("%s_NOT_FOUND", resource),
		Message: fmt.Sprintf("%s not found", toLowerWords(resource)),
	}
}

// ValidationError creates a validation error
func ValidationError(field, message string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidInput,
		Code:    "VALIDATION_ERROR",
		Message: message,
		Details: map[string]interface{}{
			"field": field,
		},
	}
}

// InsufficientFundsError reports the balance, the required amount and the shortage.
func InsufficientFundsError(current, required decimal.Decimal) *DomainError {
	shortage := required.Sub(current)
	return &DomainError{
		Err:     ErrInsufficientFunds,
		Code:    "INSUFFICIENT_FUNDS",
		Message: fmt.Sprintf("insufficient funds: balance %s, required %s, short by %s", current.String(), required.String(), shortage.String()),
		Details: map[string]interface{}{
			"current_balance": current,
			"required_amount": required,
			"shortage":        shortage,
		},
	}
}

// AlreadyProcessedError is returned when a record has already left the pending state.
func AlreadyProcessedError(resource string, status string) *DomainError {
	return &DomainError{
		Err:     ErrAlreadyProcessed,
		Code:    "ALREADY_PROCESSED",
		Message: fmt.Sprintf("%s already processed (status %s)", toLowerWords(resource), status),
		Details: map[string]interface{}{
			"status": status,
		},
	}
}

// StorageFailureError wraps a commit/lock/connectivity failure. Always retryable.
func StorageFailureError(op string, err error) *DomainError {
	de := &DomainError{
		Err:       ErrStorageFailure,
		Code:      "STORAGE_FAILURE",
		Message:   fmt.Sprintf("%s: storage temporarily unavailable", op),
		Retryable: true,
	}
	if err != nil {
		de.Details = map[string]interface{}{
			"cause": err.Error(),
		}
	}
	return de
}

// ConflictError creates a conflict error
func ConflictError(resource, reason string) *DomainError {
	return &DomainError{
		Err:     ErrConflict,
		Code:    "CONFLICT",
		Message: fmt.Sprintf("conflict with %s: %s", toLowerWords(resource), reason),
	}
}

// UnauthorizedError creates an unauthorized error
func UnauthorizedError(message string) *DomainError {
	return &DomainError{
		Err:     ErrUnauthorized,
		Code:    "UNAUTHORIZED",
		Message: message,
	}
}

// ForbiddenError creates a forbidden error
func ForbiddenError(message string) *DomainError {
	return &DomainError{
		Err:     ErrForbidden,
		Code:    "FORBIDDEN",
		Message: message,
	}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput checks if an error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsInsufficientFunds checks if an error is an insufficient funds error
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsAlreadyProcessed checks if an error is an already processed error
func IsAlreadyProcessed(err error) bool {
	return errors.Is(err, ErrAlreadyProcessed)
}

// IsStorageFailure checks if an error is a storage failure
func IsStorageFailure(err error) bool {
	return errors.Is(err, ErrStorageFailure)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsUnauthorized checks if an error is an unauthorized error
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsForbidden checks if an error is a forbidden error
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// ShouldRetry reports whether the failure is safe to retry blindly.
func ShouldRetry(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "UNKNOWN_ERROR"
}

// GetErrorDetails extracts details from a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func toLowerWords(resource string) string {
	out := make([]rune, 0, len(resource))
	for _, r := range resource {
		switch {
		case r == '_':
			out = append(out, ' ')
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

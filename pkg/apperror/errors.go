package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Withdrawal Business Logic (WDR) ----

func ErrInvalidDestination(reason string) *AppError {
	return New("WDR_001", fmt.Sprintf("Invalid destination: %s", reason), http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("WDR_002", "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrUnknownAsset() *AppError {
	return New("WDR_003", "Unknown asset", http.StatusBadRequest)
}

func ErrQuoteUnavailable(err error) *AppError {
	return Wrap("WDR_004", "Pricing quote unavailable", http.StatusServiceUnavailable, err)
}

func ErrNotFound(entity string) *AppError {
	return New("WDR_005", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrAlreadyAuthorized() *AppError {
	return New("WDR_006", "Transaction already authorized", http.StatusConflict)
}

func ErrInsufficientFunds() *AppError {
	return New("WDR_007", "Insufficient balance", http.StatusPaymentRequired)
}

func ErrUnsupportedDestinationType(event string) *AppError {
	return New("WDR_008", fmt.Sprintf("Unsupported destination type %q", event), http.StatusBadRequest)
}

// ---- Authorization (AUTH) ----

func ErrInvalidCredential() *AppError {
	return New("AUTH_001", "Invalid transaction PIN", http.StatusUnauthorized)
}

func ErrChallengeExpiredOrReused() *AppError {
	return New("AUTH_002", "Authorization challenge expired or already used", http.StatusUnauthorized)
}

func ErrAccountLocked() *AppError {
	return New("AUTH_003", "Account is locked due to too many failed attempts", http.StatusForbidden)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_004", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrDeviceMismatch() *AppError {
	return New("AUTH_005", "Request device does not match session binding", http.StatusForbidden)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrEnqueueInconsistency marks the debit-committed-but-enqueue-failed
// state. It is surfaced to the alerting path; the reconciliation sweep
// resolves the transaction itself.
func ErrEnqueueInconsistency(err error) *AppError {
	return Wrap("SYS_002", "Execution task could not be enqueued", http.StatusInternalServerError, err)
}

// Validation returns a WDR_002-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("WDR_002", message, http.StatusBadRequest)
}

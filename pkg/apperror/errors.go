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

// ---- Ledger & Wallet (LED) ----

func ErrDuplicateReference() *AppError {
	return New("LED_001", "Reference already used", http.StatusConflict)
}

func ErrInsufficientBalance() *AppError {
	return New("LED_002", "Insufficient wallet balance", http.StatusPaymentRequired)
}

func ErrNotFound(entity string) *AppError {
	return New("LED_003", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrStaleTransition() *AppError {
	return New("LED_004", "Transaction already resolved", http.StatusConflict)
}

func ErrInvalidAmount() *AppError {
	return New("LED_005", "Invalid amount", http.StatusBadRequest)
}

// ---- Provider Gateway (PRV) ----

func ErrProviderUnreachable(err error) *AppError {
	return Wrap("PRV_001", "Provider unreachable", http.StatusBadGateway, err)
}

func ErrProviderRejected(reason string) *AppError {
	return New("PRV_002", fmt.Sprintf("Provider rejected transaction: %s", reason), http.StatusBadGateway)
}

func ErrFundingInitFailed(err error) *AppError {
	return Wrap("PRV_003", "Could not initialize payment", http.StatusBadGateway, err)
}

// ---- Security (SEC) ----

func ErrInvalidWebhookSignature() *AppError {
	return New("SEC_001", "Invalid webhook signature", http.StatusBadRequest)
}

func ErrInvalidToken() *AppError {
	return New("SEC_002", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ---- Request validation (REQ) ----

// Validation returns a malformed-request error. Ledger-level amount
// checks use ErrInvalidAmount instead.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}

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

// ---- Ledger Network (LGR) ----

// ErrAccountCreationFailed reports a non-success receipt for an
// account-creation transaction. The raw receipt status travels in the
// wrapped error for operator diagnosis.
func ErrAccountCreationFailed(err error) *AppError {
	return Wrap("LGR_001", "Ledger account creation failed", http.StatusBadGateway, err)
}

// ErrTransferFailed reports a non-success receipt for a transfer. The
// transfer definitively did not happen; callers must not conflate this with
// an unresolved verification.
func ErrTransferFailed(err error) *AppError {
	return Wrap("LGR_002", "Transfer rejected by the ledger network", http.StatusBadGateway, err)
}

// ErrInvalidCustodyState reports that stored key material could not be
// decrypted. The enclosing operation must abort; there is no fallback key.
func ErrInvalidCustodyState(err error) *AppError {
	return Wrap("LGR_003", "Stored key material is unusable", http.StatusInternalServerError, err)
}

// ErrVerificationUnresolved reports that the observer never confirmed the
// transaction within the retry budget. Outcome is unknown, not failed.
func ErrVerificationUnresolved(txID string) *AppError {
	return New("LGR_004", fmt.Sprintf("Transaction %s not yet confirmed by the observer", txID), http.StatusAccepted)
}

// ErrNetworkUnavailable reports an unreachable ledger network. Safe to retry
// the whole operation.
func ErrNetworkUnavailable(err error) *AppError {
	return Wrap("NET_001", "Ledger network unavailable", http.StatusServiceUnavailable, err)
}

// ErrConfiguration reports malformed operator identity or key material.
// Fatal: fails startup or the operation outright.
func ErrConfiguration(err error) *AppError {
	return Wrap("CFG_001", "Invalid ledger configuration", http.StatusInternalServerError, err)
}

// ---- Transfer validation (PAY) ----

func ErrInvalidAmount() *AppError {
	return New("PAY_001", "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrAmountTooLarge(max float64) *AppError {
	return New("PAY_002", fmt.Sprintf("Amount too large. Maximum transfer is %g", max), http.StatusBadRequest)
}

func ErrSelfTransfer() *AppError {
	return New("PAY_003", "Cannot send funds to your own wallet", http.StatusBadRequest)
}

func ErrInsufficientBalance(have, want float64) *AppError {
	return New("PAY_004", fmt.Sprintf("Insufficient balance. You have %.2f, but trying to send %.2f", have, want), http.StatusBadRequest)
}

func ErrInvalidAddress(address string) *AppError {
	return New("PAY_005", fmt.Sprintf("Invalid wallet address %q. Ledger addresses look like 0.0.N", address), http.StatusBadRequest)
}

func ErrWalletNotConfigured() *AppError {
	return New("PAY_006", "Wallet not found or not properly configured", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_007", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request-validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

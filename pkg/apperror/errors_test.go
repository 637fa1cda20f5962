package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	e := New("PAY_001", "Amount must be greater than zero", http.StatusBadRequest)
	assert.Equal(t, "[PAY_001] Amount must be greater than zero", e.Error())

	wrapped := Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, fmt.Errorf("connection refused"))
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("receipt status: INSUFFICIENT_PAYER_BALANCE")
	e := ErrTransferFailed(inner)

	assert.ErrorIs(t, e, inner)
	assert.Equal(t, "LGR_002", e.Code)
	assert.Equal(t, http.StatusBadGateway, e.HTTPStatus)
}

func TestErrVerificationUnresolved_IsNotAFailure(t *testing.T) {
	e := ErrVerificationUnresolved("0.0.100-1700000000.1")

	// "Could not confirm yet" must not look like "did not happen".
	assert.Equal(t, http.StatusAccepted, e.HTTPStatus)
	assert.NotEqual(t, ErrTransferFailed(nil).Code, e.Code)
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		err    *AppError
		code   string
		status int
	}{
		{ErrAccountCreationFailed(nil), "LGR_001", http.StatusBadGateway},
		{ErrInvalidCustodyState(nil), "LGR_003", http.StatusInternalServerError},
		{ErrNetworkUnavailable(nil), "NET_001", http.StatusServiceUnavailable},
		{ErrConfiguration(nil), "CFG_001", http.StatusInternalServerError},
		{ErrInvalidAmount(), "PAY_001", http.StatusBadRequest},
		{ErrSelfTransfer(), "PAY_003", http.StatusBadRequest},
		{ErrInvalidToken(), "AUTH_001", http.StatusUnauthorized},
		{ErrRateLimitExceeded(), "RATE_001", http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.err.Code)
		assert.Equal(t, tt.status, tt.err.HTTPStatus)
	}
}

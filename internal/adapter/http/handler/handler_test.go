package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"donation-settlement-engine/internal/adapter/http/dto"
	"donation-settlement-engine/internal/adapter/http/middleware"
	"donation-settlement-engine/internal/core/domain"
	"donation-settlement-engine/internal/core/ports"
	"donation-settlement-engine/internal/core/ports/mocks"
	"donation-settlement-engine/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Donation Handler Tests ---

func TestDonate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettlement := mocks.NewMockSettlementService(ctrl)
	h := NewDonationHandler(mockSettlement, mocks.NewMockDonationRepository(ctrl))

	donorID := uuid.New()
	projectID := uuid.New()
	donation := &domain.Donation{
		ID:            uuid.New(),
		DonorID:       donorID,
		ProjectID:     projectID,
		AmountTinybar: 500000000,
		TransactionID: "0.0.1234-1700000000.123",
		Status:        domain.DonationStatusCompleted,
		CreatedAt:     time.Now().UTC(),
	}

	mockSettlement.EXPECT().Donate(gomock.Any(), ports.DonationRequest{
		DonorID:    donorID,
		ProjectID:  projectID,
		AmountHbar: 5.0,
		Memo:       "for the well",
	}).Return(donation, nil)

	body, _ := json.Marshal(dto.DonationRequest{
		ProjectID: projectID.String(),
		Amount:    5.0,
		Memo:      "for the well",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.CtxUserID, donorID)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/donations", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Donate(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, projectID.String(), data["project_id"])
	assert.Equal(t, 5.0, data["amount"])
	assert.Equal(t, "0.0.1234-1700000000.123", data["transaction_id"])
	assert.Equal(t, "COMPLETED", data["status"])
}

func TestDonate_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettlement := mocks.NewMockSettlementService(ctrl)
	h := NewDonationHandler(mockSettlement, mocks.NewMockDonationRepository(ctrl))

	// Empty body => binding error, service never called
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.CtxUserID, uuid.New())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/donations", bytes.NewReader([]byte("{}")))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Donate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDonate_MissingUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewDonationHandler(mocks.NewMockSettlementService(ctrl), mocks.NewMockDonationRepository(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/donations", bytes.NewReader([]byte("{}")))

	h.Donate(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDonate_ServiceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettlement := mocks.NewMockSettlementService(ctrl)
	h := NewDonationHandler(mockSettlement, mocks.NewMockDonationRepository(ctrl))

	mockSettlement.EXPECT().Donate(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientBalance(1.0, 5.0))

	body, _ := json.Marshal(dto.DonationRequest{
		ProjectID: uuid.New().String(),
		Amount:    5.0,
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.CtxUserID, uuid.New())
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Donate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PAY_004", resp["error_code"])
}

func TestListDonations_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockDonationRepository(ctrl)
	h := NewDonationHandler(mocks.NewMockSettlementService(ctrl), mockRepo)

	donorID := uuid.New()
	mockRepo.EXPECT().ListCompletedByDonor(gomock.Any(), donorID).Return([]domain.Donation{
		{ID: uuid.New(), DonorID: donorID, ProjectID: uuid.New(), AmountTinybar: 500000000, Status: domain.DonationStatusCompleted},
		{ID: uuid.New(), DonorID: donorID, ProjectID: uuid.New(), AmountTinybar: 150000000, Status: domain.DonationStatusCompleted},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.CtxUserID, donorID)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/donations", nil)

	h.ListDonations(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["total"])
	items := data["items"].([]interface{})
	first := items[0].(map[string]interface{})
	assert.Equal(t, 5.0, first["amount"])
}

// --- Transfer Handler Tests ---

func TestTransfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettlement := mocks.NewMockSettlementService(ctrl)
	h := NewTransferHandler(mockSettlement)

	senderID := uuid.New()
	mockSettlement.EXPECT().TransferP2P(gomock.Any(), ports.P2PRequest{
		SenderID:         senderID,
		RecipientAddress: "0.0.5005",
		AmountHbar:       2.5,
		Memo:             "lunch",
	}).Return(&ports.P2PResult{
		TransactionID: "0.0.1234-1700000000.123",
		FromAddress:   "0.0.1234",
		ToAddress:     "0.0.5005",
		AmountHbar:    2.5,
		Memo:          "lunch",
	}, nil)

	body, _ := json.Marshal(dto.TransferRequest{
		RecipientAddress: "0.0.5005",
		Amount:           2.5,
		Memo:             "lunch",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.CtxUserID, senderID)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Transfer(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "0.0.5005", data["to_address"])
	assert.Equal(t, 2.5, data["amount"])
}

func TestTransfer_MalformedRecipient(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTransferHandler(mocks.NewMockSettlementService(ctrl))

	// Fails the account_id binding rule before the service is consulted.
	body, _ := json.Marshal(dto.TransferRequest{
		RecipientAddress: "not-an-address",
		Amount:           2.5,
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.CtxUserID, uuid.New())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Transfer(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Wallet Handler Tests ---

func TestCreateWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockProvisioning := mocks.NewMockProvisioningService(ctrl)
	h := NewWalletHandler(mockProvisioning, mocks.NewMockSettlementService(ctrl))

	userID := uuid.New()
	mockProvisioning.EXPECT().CreateUserWallet(gomock.Any(), userID).Return(&domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   userID,
		Role:      domain.WalletRoleUser,
		Address:   "0.0.1234",
		CreatedAt: time.Now().UTC(),
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.CtxUserID, userID)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/wallets", nil)

	h.CreateWallet(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "0.0.1234", data["address"])
	assert.Equal(t, "USER", data["role"])
}

func TestCreateProjectWallet_InvalidID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWalletHandler(mocks.NewMockProvisioningService(ctrl), mocks.NewMockSettlementService(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/projects/not-a-uuid/wallet", nil)

	h.CreateProjectWallet(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettlement := mocks.NewMockSettlementService(ctrl)
	h := NewWalletHandler(mocks.NewMockProvisioningService(ctrl), mockSettlement)

	userID := uuid.New()
	mockSettlement.EXPECT().Balance(gomock.Any(), userID).Return(&ports.WalletBalance{
		Address:        "0.0.1234",
		BalanceHbar:    12.5,
		BalanceTinybar: 1250000000,
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.CtxUserID, userID)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallets/balance", nil)

	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, 12.5, data["balance"])
	assert.Equal(t, float64(1250000000), data["balance_tinybar"])
}

func TestValidateWallet_Invalid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettlement := mocks.NewMockSettlementService(ctrl)
	h := NewWalletHandler(mocks.NewMockProvisioningService(ctrl), mockSettlement)

	mockSettlement.EXPECT().ValidateWallet(gomock.Any(), "0.0.99999").Return(nil, false, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.CtxUserID, uuid.New())
	c.Params = gin.Params{{Key: "address", Value: "0.0.99999"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallets/validate/0.0.99999", nil)

	h.ValidateWallet(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, false, data["valid"])
}

// --- Trace Handler Tests ---

func TestTrace_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTrace := mocks.NewMockTraceService(ctrl)
	h := NewTraceHandler(mockTrace)

	mockTrace.EXPECT().Trace(gomock.Any(), "0.0.1234-1700000000-000000123").Return(&ports.TraceResult{
		Verification: &domain.VerificationResult{
			Valid:         true,
			TransactionID: "0.0.1234-1700000000-000000123",
			AmountTinybar: 500000000,
		},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "0.0.1234-1700000000-000000123"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/transactions/0.0.1234-1700000000-000000123/trace", nil)

	h.Trace(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	verification := data["verification"].(map[string]interface{})
	assert.Equal(t, true, verification["valid"])
}

func TestTrace_MalformedID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTrace := mocks.NewMockTraceService(ctrl)
	h := NewTraceHandler(mockTrace)

	mockTrace.EXPECT().Trace(gomock.Any(), "garbage").Return(nil, apperror.Validation("malformed transaction id"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "garbage"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/transactions/garbage/trace", nil)

	h.Trace(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Health Check Tests ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(ctx context.Context) error { return s.err }
func (s stubChecker) Name() string                   { return s.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(
		stubChecker{name: "postgresql"},
		stubChecker{name: "redis", err: errors.New("connection refused")},
	)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]interface{})
	redisDep := deps["redis"].(map[string]interface{})
	assert.Equal(t, "unhealthy", redisDep["status"])
}

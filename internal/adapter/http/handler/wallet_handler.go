package handler

import (
	"donation-settlement-engine/internal/adapter/http/dto"
	"donation-settlement-engine/internal/adapter/http/middleware"
	"donation-settlement-engine/internal/core/domain"
	"donation-settlement-engine/internal/core/ports"
	"donation-settlement-engine/pkg/apperror"
	"donation-settlement-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet provisioning and balance endpoints.
type WalletHandler struct {
	provisioningSvc ports.ProvisioningService
	settlementSvc   ports.SettlementService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(provisioningSvc ports.ProvisioningService, settlementSvc ports.SettlementService) *WalletHandler {
	return &WalletHandler{
		provisioningSvc: provisioningSvc,
		settlementSvc:   settlementSvc,
	}
}

// CreateWallet handles POST /api/v1/wallets. Provisioning is idempotent:
// repeating the call returns the already-issued wallet.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.provisioningSvc.CreateUserWallet(c.Request.Context(), userID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWalletResponse(wallet))
}

// CreateProjectWallet handles POST /api/v1/projects/:id/wallet.
func (h *WalletHandler) CreateProjectWallet(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid project id"))
		return
	}

	wallet, err := h.provisioningSvc.CreateProjectWallet(c.Request.Context(), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWalletResponse(wallet))
}

// GetBalance handles GET /api/v1/wallets/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	balance, err := h.settlementSvc.Balance(c.Request.Context(), userID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		Address:        balance.Address,
		Balance:        balance.BalanceHbar,
		BalanceTinybar: balance.BalanceTinybar,
	})
}

// ValidateWallet handles GET /api/v1/wallets/validate/:address.
func (h *WalletHandler) ValidateWallet(c *gin.Context) {
	address := c.Param("address")

	balance, valid, err := h.settlementSvc.ValidateWallet(c.Request.Context(), address)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.ValidateWalletResponse{Address: address, Valid: valid}
	if valid && balance != nil {
		resp.Balance = balance.BalanceHbar
	}
	response.OK(c, resp)
}

// toWalletResponse converts domain.Wallet to DTO.
func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		ID:        w.ID.String(),
		OwnerID:   w.OwnerID.String(),
		Role:      string(w.Role),
		Address:   w.Address,
		CreatedAt: w.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

package handler

import (
	"donation-settlement-engine/internal/adapter/http/dto"
	"donation-settlement-engine/internal/adapter/http/middleware"
	"donation-settlement-engine/internal/core/ports"
	"donation-settlement-engine/pkg/apperror"
	"donation-settlement-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransferHandler handles peer-to-peer transfer endpoints.
type TransferHandler struct {
	settlementSvc ports.SettlementService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(settlementSvc ports.SettlementService) *TransferHandler {
	return &TransferHandler{settlementSvc: settlementSvc}
}

// Transfer handles POST /api/v1/transfers. Peer transfers settle on the
// ledger but are not recorded in the donation ledger.
func (h *TransferHandler) Transfer(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.settlementSvc.TransferP2P(c.Request.Context(), ports.P2PRequest{
		SenderID:         userID.(uuid.UUID),
		RecipientAddress: req.RecipientAddress,
		AmountHbar:       req.Amount,
		Memo:             req.Memo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.TransferResponse{
		TransactionID: result.TransactionID,
		FromAddress:   result.FromAddress,
		ToAddress:     result.ToAddress,
		Amount:        result.AmountHbar,
		Memo:          result.Memo,
	})
}

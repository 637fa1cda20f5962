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

// DonationHandler handles donation endpoints.
type DonationHandler struct {
	settlementSvc ports.SettlementService
	donations     ports.DonationRepository
}

// NewDonationHandler creates a new DonationHandler.
func NewDonationHandler(settlementSvc ports.SettlementService, donations ports.DonationRepository) *DonationHandler {
	return &DonationHandler{settlementSvc: settlementSvc, donations: donations}
}

// Donate handles POST /api/v1/donations.
func (h *DonationHandler) Donate(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.DonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid project id"))
		return
	}

	donation, err := h.settlementSvc.Donate(c.Request.Context(), ports.DonationRequest{
		DonorID:    userID.(uuid.UUID),
		ProjectID:  projectID,
		AmountHbar: req.Amount,
		Memo:       req.Memo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toDonationResponse(donation))
}

// ListDonations handles GET /api/v1/donations. Only completed entries are
// part of a donor's history.
func (h *DonationHandler) ListDonations(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	donations, err := h.donations.ListCompletedByDonor(c.Request.Context(), userID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.DonationResponse, 0, len(donations))
	for i := range donations {
		items = append(items, toDonationResponse(&donations[i]))
	}
	response.OK(c, dto.DonationListResponse{Items: items, Total: len(items)})
}

// toDonationResponse converts domain.Donation to DTO.
func toDonationResponse(d *domain.Donation) dto.DonationResponse {
	return dto.DonationResponse{
		ID:            d.ID.String(),
		ProjectID:     d.ProjectID.String(),
		Amount:        d.Amount(),
		TransactionID: d.TransactionID,
		Status:        string(d.Status),
		CreatedAt:     d.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

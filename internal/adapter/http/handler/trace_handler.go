package handler

import (
	"donation-settlement-engine/internal/core/ports"
	"donation-settlement-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// TraceHandler handles public transaction trace endpoints.
type TraceHandler struct {
	traceSvc ports.TraceService
}

// NewTraceHandler creates a new TraceHandler.
func NewTraceHandler(traceSvc ports.TraceService) *TraceHandler {
	return &TraceHandler{traceSvc: traceSvc}
}

// Trace handles GET /api/v1/transactions/:id/trace. The id is accepted in
// any of the three textual transaction id forms.
func (h *TraceHandler) Trace(c *gin.Context) {
	result, err := h.traceSvc.Trace(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

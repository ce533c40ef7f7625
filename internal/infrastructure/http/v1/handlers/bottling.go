package handlers

import (
	"github.com/gin-gonic/gin"

	"oilmill/internal/domain/bottling"
	"oilmill/internal/infrastructure/http/v1/dto"
)

// BottlingHandler runs bottling.
type BottlingHandler struct {
	*BaseHandler
	bottling *bottling.Service
}

// NewBottlingHandler creates a bottling handler.
func NewBottlingHandler(base *BaseHandler, svc *bottling.Service) *BottlingHandler {
	return &BottlingHandler{BaseHandler: base, bottling: svc}
}

// Run handles POST /bottling/runs
func (h *BottlingHandler) Run(c *gin.Context) {
	var req dto.BottlingRunRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.bottling.Run(c.Request.Context(), req.ToLines(), h.EventKey(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, res)
}

// SKUs handles GET /bottling/skus
func (h *BottlingHandler) SKUs(c *gin.Context) {
	h.OK(c, dto.NewListResponse(bottling.SKUs))
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"oilmill/internal/domain/production"
	"oilmill/internal/infrastructure/http/v1/dto"
)

// ProductionHandler serves production batches.
type ProductionHandler struct {
	*BaseHandler
	production *production.Service
}

// NewProductionHandler creates a production handler.
func NewProductionHandler(base *BaseHandler, svc *production.Service) *ProductionHandler {
	return &ProductionHandler{BaseHandler: base, production: svc}
}

// Create handles POST /production/batches
func (h *ProductionHandler) Create(c *gin.Context) {
	var req dto.CreateBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	b, err := h.production.CreateBatch(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, b)
}

// List handles GET /production/batches
func (h *ProductionHandler) List(c *gin.Context) {
	var q dto.ListBatchesQuery
	if !h.BindQuery(c, &q) {
		return
	}
	batches, err := h.production.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(batches))
}

// Get handles GET /production/batches/:id
func (h *ProductionHandler) Get(c *gin.Context) {
	batchID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	b, err := h.production.Get(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, b)
}

// Advance handles POST /production/batches/:id/advance
func (h *ProductionHandler) Advance(c *gin.Context) {
	batchID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.AdvanceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.production.Advance(c.Request.Context(), batchID, req.ToInput(), h.EventKey(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

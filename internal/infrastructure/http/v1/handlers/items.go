package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/ledger"
	"oilmill/internal/domain/valuation"
	"oilmill/internal/infrastructure/http/v1/dto"
)

// ItemHandler serves the inventory catalog and its ledger.
type ItemHandler struct {
	*BaseHandler
	catalog   *catalog.Service
	ledger    *ledger.Service
	valuation *valuation.Engine
}

// NewItemHandler creates an item handler.
func NewItemHandler(base *BaseHandler, catalogSvc *catalog.Service, ledgerSvc *ledger.Service, engine *valuation.Engine) *ItemHandler {
	return &ItemHandler{BaseHandler: base, catalog: catalogSvc, ledger: ledgerSvc, valuation: engine}
}

// List handles GET /items
func (h *ItemHandler) List(c *gin.Context) {
	var q dto.ListItemsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	items, err := h.catalog.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.FromItems(items)))
}

// LowStock handles GET /items/low-stock
func (h *ItemHandler) LowStock(c *gin.Context) {
	items, err := h.catalog.LowStock(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.FromItems(items)))
}

// Create handles POST /items. The item and its opening balance are written
// in one transaction.
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item := req.ToItem()
	err := h.ledger.Once(c.Request.Context(), h.EventKey(c), func(ctx context.Context) error {
		if err := h.catalog.Create(ctx, item); err != nil {
			return err
		}
		return h.ledger.OpeningBalance(ctx, item.ID, req.OpeningQuantity)
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	created, err := h.catalog.Get(c.Request.Context(), item.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromItem(created))
}

// Get handles GET /items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	item, err := h.catalog.Get(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromItem(item))
}

// Update handles PATCH /items/:id
func (h *ItemHandler) Update(c *gin.Context) {
	itemID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	item, err := h.catalog.UpdateMetadata(c.Request.Context(), itemID, req.ToPatch())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromItem(item))
}

// Shortfall handles POST /items/shortfall
func (h *ItemHandler) Shortfall(c *gin.Context) {
	var req dto.ShortfallRequest
	if !h.BindJSON(c, &req) {
		return
	}
	reqs, err := h.catalog.Shortfall(c.Request.Context(), req.ToDemands())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.FromRequirements(reqs)))
}

// Movements handles GET /items/:id/movements?limit=
func (h *ItemHandler) Movements(c *gin.Context) {
	itemID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	limit := h.ParseIntQuery(c, "limit", ledger.DefaultHistoryLimit)

	moves := make([]dto.MovementResponse, 0, min(max(limit, 0), ledger.MaxHistoryLimit))
	for m, err := range h.ledger.History(c.Request.Context(), itemID, limit) {
		if err != nil {
			h.Error(c, err)
			return
		}
		moves = append(moves, m)
	}
	h.OK(c, dto.NewListResponse(moves))
}

// Adjust handles POST /items/:id/movements
func (h *ItemHandler) Adjust(c *gin.Context) {
	itemID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustRequest
	if !h.BindJSON(c, &req) {
		return
	}

	var move *ledger.Movement
	err := h.ledger.Once(c.Request.Context(), h.EventKey(c), func(ctx context.Context) error {
		var err error
		move, err = h.ledger.Adjust(ctx, itemID, req.Delta, req.Reason)
		return err
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, move)
}

// Revalue handles POST /items/:id/revalue
func (h *ItemHandler) Revalue(c *gin.Context) {
	itemID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.RevalueRequest
	if !h.BindJSON(c, &req) {
		return
	}

	var res *valuation.Result
	err := h.ledger.Once(c.Request.Context(), h.EventKey(c), func(ctx context.Context) error {
		var err error
		res, err = h.valuation.Revalue(ctx, itemID, req.Quantity, req.Amount, req.Reason)
		return err
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

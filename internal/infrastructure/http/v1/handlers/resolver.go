package handlers

import (
	"github.com/gin-gonic/gin"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/resolver"
	"oilmill/internal/infrastructure/http/v1/dto"
)

// ResolverHandler exposes role resolution and the mapping table.
type ResolverHandler struct {
	*BaseHandler
	resolver *resolver.Service
}

// NewResolverHandler creates a resolver handler.
func NewResolverHandler(base *BaseHandler, svc *resolver.Service) *ResolverHandler {
	return &ResolverHandler{BaseHandler: base, resolver: svc}
}

// Resolve handles GET /resolver/resolve?role=|hint=
func (h *ResolverHandler) Resolve(c *gin.Context) {
	var q dto.ResolveQuery
	if !h.BindQuery(c, &q) {
		return
	}

	var (
		item *catalog.Item
		err  error
	)
	if q.Role != "" {
		item, err = h.resolver.ResolveRole(c.Request.Context(), resolver.Role(q.Role))
	} else {
		item, err = h.resolver.ResolveHint(c.Request.Context(), q.Hint)
	}
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromItem(item))
}

// Roles handles GET /resolver/roles
func (h *ResolverHandler) Roles(c *gin.Context) {
	h.OK(c, dto.NewListResponse(resolver.Roles()))
}

// Mappings handles GET /resolver/mappings
func (h *ResolverHandler) Mappings(c *gin.Context) {
	mappings, err := h.resolver.Mappings(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(mappings))
}

// SetMapping handles PUT /resolver/mappings/:role
func (h *ResolverHandler) SetMapping(c *gin.Context) {
	role, ok := h.role(c)
	if !ok {
		return
	}
	var req dto.MappingRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m, err := h.resolver.SetMapping(c.Request.Context(), role, id.MustParse(req.ItemID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, m)
}

// DeleteMapping handles DELETE /resolver/mappings/:role
func (h *ResolverHandler) DeleteMapping(c *gin.Context) {
	role, ok := h.role(c)
	if !ok {
		return
	}
	if err := h.resolver.DeleteMapping(c.Request.Context(), role); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

func (h *ResolverHandler) role(c *gin.Context) (resolver.Role, bool) {
	role := resolver.Role(c.Param("role"))
	if !role.Valid() {
		h.Error(c, apperror.NewValidation("unknown role").WithDetail("role", role).WithDetail("known", resolver.Roles()))
		return "", false
	}
	return role, true
}

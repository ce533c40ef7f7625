// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
)

// ResourceRouteHandler is a collection with list, create and get by id.
type ResourceRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
}

// RegisterResourceRoutes registers the standard collection routes. createGuard
// runs before Create only.
//
// Usage:
//
//	handler := handlers.NewProductionHandler(base, svc)
//	RegisterResourceRoutes(protected.Group("/production/batches"), handler)
func RegisterResourceRoutes(group *gin.RouterGroup, handler ResourceRouteHandler, createGuard ...gin.HandlerFunc) {
	group.GET("", handler.List)
	group.POST("", append(createGuard, handler.Create)...)
	group.GET("/:id", handler.Get)
}

package v1

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	appctx "oilmill/internal/core/context"
	"oilmill/internal/core/idempotency"
	"oilmill/internal/domain/bottling"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/finance"
	"oilmill/internal/domain/ledger"
	"oilmill/internal/domain/production"
	"oilmill/internal/domain/resolver"
	"oilmill/internal/domain/valuation"
	"oilmill/internal/infrastructure/http/v1/dto"
	"oilmill/internal/infrastructure/http/v1/handlers"
	"oilmill/internal/infrastructure/http/v1/middleware"
	"oilmill/pkg/logger"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Catalog    *catalog.Service
	Ledger     *ledger.Service
	Valuation  *valuation.Engine
	Resolver   *resolver.Service
	Production *production.Service
	Bottling   *bottling.Service
	Finance    *finance.Service
}

// RouterConfig holds router configuration.
type RouterConfig struct {
	Services Services

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Idempotency replays responses by X-Idempotency-Key; nil disables it.
	Idempotency idempotency.Store

	// HealthChecks are probed by /health/ready.
	HealthChecks map[string]handlers.Check
	HealthInfo   map[string]any

	// CORSOrigins lists allowed browser origins; empty allows all outside
	// production.
	CORSOrigins []string
	Production  bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := dto.RegisterValidators(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(cors.New(corsConfig(cfg)))

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks, cfg.HealthInfo)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	admin := middleware.RequireRole(appctx.RoleAdmin)
	svc := cfg.Services

	registerItemRoutes(v1.Group("/items"), handlers.NewItemHandler(base, svc.Catalog, svc.Ledger, svc.Valuation), admin)
	registerResolverRoutes(v1.Group("/resolver"), handlers.NewResolverHandler(base, svc.Resolver), admin)

	{
		h := handlers.NewProductionHandler(base, svc.Production)
		batches := v1.Group("/production/batches")
		RegisterResourceRoutes(batches, h)
		batches.POST("/:id/advance", h.Advance)
	}

	{
		h := handlers.NewBottlingHandler(base, svc.Bottling)
		v1.POST("/bottling/runs", h.Run)
		v1.GET("/bottling/skus", h.SKUs)
	}

	registerFinanceRoutes(v1.Group("/finance"), handlers.NewFinanceHandler(base, svc.Finance))

	return router, nil
}

func registerItemRoutes(items *gin.RouterGroup, h *handlers.ItemHandler, admin gin.HandlerFunc) {
	items.GET("/low-stock", h.LowStock)
	items.POST("/shortfall", h.Shortfall)

	RegisterResourceRoutes(items, h, admin)
	items.PATCH("/:id", admin, h.Update)
	items.GET("/:id/movements", h.Movements)
	items.POST("/:id/movements", h.Adjust)
	items.POST("/:id/revalue", admin, h.Revalue)
}

func registerResolverRoutes(rg *gin.RouterGroup, h *handlers.ResolverHandler, admin gin.HandlerFunc) {
	rg.GET("/resolve", h.Resolve)
	rg.GET("/roles", h.Roles)
	rg.GET("/mappings", h.Mappings)
	rg.PUT("/mappings/:role", admin, h.SetMapping)
	rg.DELETE("/mappings/:role", admin, h.DeleteMapping)
}

func registerFinanceRoutes(rg *gin.RouterGroup, h *handlers.FinanceHandler) {
	rg.POST("/expenses", h.LogExpense)
	rg.GET("/expenses", h.ListExpenses)
	rg.POST("/expenses/:id/pay", h.MarkPaid)
	rg.POST("/loans", h.CreateLoan)
	rg.GET("/loans", h.ListLoans)
	rg.GET("/loans/:id/transactions", h.LoanTransactions)
	rg.POST("/loans/:id/transactions", h.AddLoanTransaction)
	rg.GET("/cogs", h.COGS)
	rg.GET("/snapshot", h.Snapshot)
}

func corsConfig(cfg RouterConfig) cors.Config {
	c := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		c.AllowOrigins = cfg.CORSOrigins
	} else if cfg.Production {
		c.AllowOrigins = []string{}
		c.AllowOriginFunc = func(string) bool { return false }
	} else {
		c.AllowAllOrigins = true
	}
	c.AddAllowHeaders("Authorization", handlers.HeaderIdempotencyKey, middleware.HeaderRequestID)
	c.AddExposeHeaders(middleware.HeaderRequestID, middleware.HeaderTraceID)
	c.MaxAge = 12 * time.Hour
	return c
}

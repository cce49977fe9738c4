package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/marketplace/docs"
	"github.com/99minutos/marketplace/internal/api/handler"
	"github.com/99minutos/marketplace/internal/api/middleware"
	"github.com/99minutos/marketplace/internal/core/ports"
)

// Deps is everything the router wires into handlers.
type Deps struct {
	Ledger      ports.Marketplace
	Auth        ports.AuthService
	Guard       handler.IdempotencyGuard
	Payouts     handler.PayoutHistory
	Height      func() uint64
	Checks      map[string]handler.Check
	JWTSecret   string
	Log         zerolog.Logger
	EnableDocs  bool
	MetricsPath string
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(contextLogger(d.Log))
	e.Use(echoprometheus.NewMiddleware("marketplace"))

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Auth)
	e.POST("/auth/challenge", authHandler.Challenge)
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Health probes and metrics (no auth required) ---
	e.GET("/health", handler.NewHealthHandler(d.Height).Liveness)
	e.GET("/health/ready", handler.NewHealthDependenciesHandler(d.Checks).Readiness)

	metricsPath := d.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	e.GET(metricsPath, echoprometheus.NewHandler())

	if d.EnableDocs {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	// --- Ledger routes ---
	h := handler.NewMarketplaceHandler(d.Ledger, d.Guard, d.Payouts)
	v1 := e.Group("/v1", middleware.Auth(d.JWTSecret))

	ownerOnly := middleware.RBAC(d.Ledger, middleware.RoleOwner)
	adminOnly := middleware.RBAC(d.Ledger, middleware.RoleAdmin)
	storeOwnerOnly := middleware.RBAC(d.Ledger, middleware.RoleStoreOwner)

	v1.GET("/roles/:address", h.GetRoles)
	v1.POST("/admins", h.AddAdmin, ownerOnly)
	v1.DELETE("/admins/:address", h.RemoveAdmin, ownerOnly)
	v1.POST("/store-owners", h.AddStoreOwner, adminOnly)
	v1.DELETE("/store-owners/:address", h.RemoveStoreOwner, adminOnly)

	v1.POST("/stores", h.AddStore, storeOwnerOnly)
	v1.DELETE("/stores/:store_id", h.RemoveStore, storeOwnerOnly)
	v1.POST("/stores/:store_id/items", h.AddItem, storeOwnerOnly)
	v1.DELETE("/stores/:store_id/items/:item_id", h.RemoveItem, storeOwnerOnly)
	v1.POST("/stores/:store_id/items/:item_id/restock", h.Restock, storeOwnerOnly)
	v1.PUT("/stores/:store_id/items/:item_id/price", h.ChangePrice, storeOwnerOnly)

	v1.GET("/owners/:owner/stores", h.ListStores)
	v1.GET("/owners/:owner/stores/:store_id", h.GetStore)
	v1.GET("/owners/:owner/stores/:store_id/items", h.ListItems)
	v1.GET("/owners/:owner/stores/:store_id/items/:item_id", h.GetItem)

	v1.POST("/purchases", h.Purchase)
	v1.POST("/withdrawals", h.Withdraw, storeOwnerOnly)
	v1.GET("/payouts", h.ListPayouts, storeOwnerOnly)
	v1.GET("/balances/:owner", h.GetBalance)

	return e
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// contextLogger puts a logger tagged with the request id on the request
// context, where handlers pick it up with zerolog.Ctx.
func contextLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqLog := log.With().Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Logger()
			req := c.Request()
			c.SetRequest(req.WithContext(reqLog.WithContext(req.Context())))
			return next(c)
		}
	}
}

// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"backoffice/internal/domain/auth"
	"backoffice/internal/domain/opname"
	"backoffice/internal/infrastructure/http/v1/handlers"
	"backoffice/internal/infrastructure/http/v1/middleware"
	"backoffice/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Opname is the reconciliation engine
	Opname *opname.Service

	// Review serves listings
	Review *opname.ReviewService

	// History reads transition history; optional
	History opname.HistoryReader

	// Ledger reads posted stock movements; optional
	Ledger opname.MovementLedger

	// MaxImportSize caps uploaded count sheets; zero means handlers.MaxImportSize
	MaxImportSize int64

	// Health serves /health
	Health *handlers.HealthHandler

	// Debug switches gin to debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	if cfg.MaxImportSize <= 0 {
		cfg.MaxImportSize = handlers.MaxImportSize
	}
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxImportSize

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	if cfg.Health != nil {
		health := router.Group("/health")
		{
			health.GET("/live", cfg.Health.Live)
			health.GET("/ready", cfg.Health.Ready)
			health.GET("/info", cfg.Health.Info)
		}
	}

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		registerOpnameRoutes(protected, cfg)
	}

	return router
}

// registerOpnameRoutes registers stock opname endpoints.
func registerOpnameRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()
	handler := handlers.NewOpnameHandler(baseHandler, cfg.Opname, cfg.Review, cfg.History).
		WithMaxImportSize(cfg.MaxImportSize)
	if cfg.Ledger != nil {
		handler.WithLedger(cfg.Ledger)
	}
	handler.RegisterRoutes(rg.Group("/stock-opname"), middleware.RequirePermission(auth.PermOpnameReview))
}

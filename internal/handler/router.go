package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"buildcrm/sharehub/internal/config"
	"buildcrm/sharehub/internal/handler/middleware"
	jwtpkg "buildcrm/sharehub/pkg/jwt"
)

// Capabilities gating the internal share-link management surface.
const (
	PermissionShareCreate = "share.create"
	PermissionShareRevoke = "share.revoke"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *jwtpkg.Manager,
	shareHandler *ShareLinkHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public claim endpoint: no authentication, the link is the policy gate.
	r.POST("/api/v1/share/:token/claim", shareHandler.Claim)

	// Internal management routes
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(jwtManager))
	{
		protected.POST("/share-links",
			middleware.RequirePermission(PermissionShareCreate), shareHandler.Create)
		protected.DELETE("/share-links/:token",
			middleware.RequirePermission(PermissionShareRevoke), shareHandler.Revoke)
		protected.GET("/share-links", shareHandler.List)
	}

	return r
}

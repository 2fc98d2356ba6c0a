// internal/app/router.go
package app

import (
	"net/http"

	authHandler "voucher-portal/internal/handlers/auth"
	navHandler "voucher-portal/internal/handlers/navigation"
	portalHandler "voucher-portal/internal/handlers/portal"
	wsHandler "voucher-portal/internal/handlers/websocket"
	"voucher-portal/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	NavHandler     *navHandler.NavigationHandler
	PortalHandler  *portalHandler.PortalHandler
	WSHandler      *wsHandler.WebSocketHandler
	Scope          gin.HandlerFunc
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, allowedOrigins []string, h *Handlers) {
	r.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(allowedOrigins),
	)

	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	scoped := api.Group("")
	scoped.Use(h.Scope)

	// ==================== WebSocket ====================
	scoped.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Login ====================
	scoped.POST("/auth/session", h.AuthHandler.Login)

	// ==================== Session-aware Routes ====================
	session := scoped.Group("")
	session.Use(h.AuthMiddleware.LoadUser())
	{
		session.DELETE("/auth/session", h.AuthHandler.Logout)
		session.GET("/auth/status", h.AuthHandler.Status)
		session.GET("/auth/me", h.AuthMiddleware.Auth(), h.AuthHandler.Me)

		nav := session.Group("/navigation")
		{
			nav.GET("/menu", h.NavHandler.Menu)
			nav.GET("/menu-items", h.NavHandler.MenuItems)
			nav.GET("/access", h.NavHandler.Access)
		}
	}

	// ==================== Portal Pages ====================
	r.NoRoute(
		h.PortalHandler.Assets,
		h.Scope,
		h.AuthMiddleware.LoadUser(),
		h.AuthMiddleware.PageGuard(),
		h.PortalHandler.Index,
	)
}

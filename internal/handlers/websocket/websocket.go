// internal/handlers/websocket/websocket.go
package handlers

import (
	"net/http"

	"voucher-portal/internal/middleware"
	ws "voucher-portal/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler accepts upgrades from requests without an Origin
// header or from one of allowedOrigins. A "*" entry allows any origin.
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		logger: logger,
	}
}

// HandleConnection upgrades the request and attaches the socket to the
// caller's portal session.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	sess := middleware.MustGetSession(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	client := ws.NewClient(h.hub, conn, sess)
	if !h.hub.Attach(client) {
		h.logger.Warn("websocket hub stopped, closing connection",
			zap.String("scope", sess.ID()),
		)
		client.Close()
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

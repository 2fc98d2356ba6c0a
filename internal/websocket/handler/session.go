// internal/websocket/handler/session.go
package handlers

import (
	"context"
	"fmt"

	wstypes "voucher-portal/internal/domain/websocket"
	"voucher-portal/internal/pkg/permission"
	ws "voucher-portal/internal/websocket"
)

// SessionHandler answers session queries over the socket.
type SessionHandler struct {
	resolver *permission.Resolver
}

func NewSessionHandler(resolver *permission.Resolver) *SessionHandler {
	return &SessionHandler{resolver: resolver}
}

func (h *SessionHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{
		wstypes.EventTypeSessionStatus,
		wstypes.EventTypeSessionMenu,
	}
}

func (h *SessionHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	switch msg.Type {
	case wstypes.EventTypeSessionStatus:
		status := client.Session().Status(ctx)
		client.SendMessage(wstypes.NewMessage(wstypes.EventTypeSessionStatus, status))
		return nil

	case wstypes.EventTypeSessionMenu:
		return h.handleMenu(ctx, client)

	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
}

func (h *SessionHandler) handleMenu(ctx context.Context, client *ws.Client) error {
	user, err := client.Session().Current(ctx)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	checker := h.resolver.For(user)
	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeSessionMenu, map[string]any{
		"menu":  checker.FilterMenu(),
		"items": checker.AccessibleMenuItems(),
	}))
	return nil
}

// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "voucher-portal/internal/domain/websocket"
	"voucher-portal/internal/pkg/session"

	"go.uber.org/zap"
)

type Hub struct {
	// Registered clients by portal-session scope
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	handlerRegistry *HandlerRegistry

	manager *session.Manager
	logger  *zap.Logger
}

type BroadcastMessage struct {
	Scopes  []string // nil means every scope
	Channel wstypes.ChannelType
	Message *wstypes.WSMessage
}

func NewHub(manager *session.Manager, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		done:            make(chan struct{}),
		handlerRegistry: NewHandlerRegistry(),
		manager:         manager,
		logger:          logger,
	}
}

// Attach hands a connected client to the running hub. It reports false once
// the hub has stopped; the caller then owns closing the connection.
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Done is closed after Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage dispatches a client message to its registered handler.
// It reports false when no handler claims the event type.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

// Run serves registrations and broadcasts until ctx is done. Session changes
// published by the manager are forwarded while it runs.
func (h *Hub) Run(ctx context.Context) {
	unsubscribe := h.manager.Subscribe(h.onSessionEvent)
	defer func() {
		unsubscribe()
		close(h.done)
		h.shutdown()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

func (h *Hub) onSessionEvent(ev session.Event) {
	data := wstypes.SessionEventData{Scope: ev.Scope, User: ev.User}

	var eventType wstypes.EventType
	switch ev.Type {
	case session.EventLogin:
		eventType = wstypes.EventTypeSessionLogin
	case session.EventLogout:
		eventType = wstypes.EventTypeSessionLogout
		data.Reason = "logged out"
	case session.EventExpired:
		eventType = wstypes.EventTypeSessionExpired
		data.Reason = "token expired"
	default:
		return
	}

	msg := wstypes.NewMessage(eventType, data)
	msg.Timestamp = ev.At
	h.Publish(&BroadcastMessage{
		Scopes:  []string{ev.Scope},
		Channel: wstypes.ChannelSession,
		Message: msg,
	})
}

// Publish queues a broadcast without blocking the caller. The message is
// dropped when the queue is full.
func (h *Hub) Publish(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping message",
			zap.String("type", string(msg.Message.Type)),
		)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.scope] == nil {
		h.clients[client.scope] = make(map[*Client]bool)
	}
	h.clients[client.scope][client] = true

	h.logger.Info("websocket client connected",
		zap.String("scope", client.scope),
		zap.Int("total", h.totalClients()),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]any{
		"scope":    client.scope,
		"channels": client.Channels(),
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.scope]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}

	delete(clients, client)
	client.Close()
	if len(clients) == 0 {
		delete(h.clients, client.scope)
	}

	h.logger.Info("websocket client disconnected",
		zap.String("scope", client.scope),
		zap.Int("total", h.totalClients()),
	)
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	send := func(clients map[*Client]bool) {
		for client := range clients {
			if client.IsSubscribed(msg.Channel) {
				client.SendMessage(msg.Message)
			}
		}
	}

	if msg.Scopes == nil {
		for _, clients := range h.clients {
			send(clients)
		}
		return
	}
	for _, scope := range msg.Scopes {
		send(h.clients[scope])
	}
}

// ConnectedClients counts open connections of one portal session.
func (h *Hub) ConnectedClients(scope string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[scope])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for scope, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
		delete(h.clients, scope)
	}
}

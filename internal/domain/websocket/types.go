// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"time"

	"voucher-portal/internal/domain/auth"

	"github.com/oklog/ulid/v2"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Session events (server -> client)
	EventTypeSessionLogin   EventType = "session:login"
	EventTypeSessionLogout  EventType = "session:logout"
	EventTypeSessionExpired EventType = "session:expired"

	// Session queries (client -> server)
	EventTypeSessionStatus EventType = "session:status"
	EventTypeSessionMenu   EventType = "session:menu"

	// Subscription events
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType      `json:"type"`
	Data      any            `json:"data,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	ID        string         `json:"id,omitempty"`
}

// ChannelType is a stream a client can subscribe to.
type ChannelType string

const (
	ChannelSession ChannelType = "session"
)

// SubscribeRequest sent by client to subscribe to specific channels
type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// UnsubscribeRequest sent by client to unsubscribe from channels
type UnsubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SessionEventData describes a change of the current user of a portal
// session. User is omitted once the session was cleared.
type SessionEventData struct {
	Scope  string     `json:"scope"`
	User   *auth.User `json:"user,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

// Helper to create messages
func NewMessage(eventType EventType, data any) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ID:        ulid.Make().String(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

// internal/pkg/session/types.go
package session

import (
	"time"

	"voucher-portal/internal/domain/auth"
	"voucher-portal/internal/pkg/jwt"
)

// Storage slots kept per portal session.
const (
	TokenKey        = "auth_token"
	RefreshTokenKey = "refresh_token" // written on login, not read by any path yet
	UserKey         = "user_data"
)

// RefreshThreshold is how close to expiry a token must be before the portal
// asks for a new one.
const RefreshThreshold = 300 * time.Second

type EventType string

const (
	EventLogin   EventType = "login"
	EventLogout  EventType = "logout"
	EventExpired EventType = "expired"
)

// Event is published after the current user of a scope changes. User is nil
// when the session was cleared.
type Event struct {
	Scope string
	Type  EventType
	User  *auth.User
	At    time.Time
}

// UserFromPayload builds the authenticated user from a decoded token. A nil
// permissions argument falls back to the token's own permissions claim.
func UserFromPayload(p *jwt.Payload, permissions []string) *auth.User {
	if permissions == nil {
		permissions = p.Permissions
	}
	perms := make([]string, len(permissions))
	copy(perms, permissions)

	return &auth.User{
		ID:              string(p.Subject),
		Name:            p.Name,
		Role:            p.Role,
		ServiceCenterID: p.ServiceCenterID,
		Email:           p.Email,
		MobileNumber:    p.MobileNumber,
		AuthProvider:    p.AuthProvider,
		IsActive:        p.IsActive,
		Permissions:     perms,
	}
}

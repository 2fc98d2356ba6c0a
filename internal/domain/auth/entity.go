// internal/domain/auth/entity.go
package auth

import "time"

// User is the authenticated portal user derived from the bearer token.
// A value is replaced wholesale on every login; it is never patched.
type User struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Role            string   `json:"role"`
	ServiceCenterID *int64   `json:"serviceCenterId,omitempty"`
	Email           string   `json:"email,omitempty"`
	MobileNumber    string   `json:"mobileNumber,omitempty"`
	AuthProvider    string   `json:"authProvider,omitempty"`
	IsActive        *bool    `json:"isActive,omitempty"`
	Permissions     []string `json:"permissions"`
}

// HasPermission checks if the user holds a specific capability
func (u *User) HasPermission(permission string) bool {
	if u == nil {
		return false
	}
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Status is the token state reported to the portal.
type Status struct {
	Authenticated bool       `json:"authenticated"`
	NeedsRefresh  bool       `json:"needs_refresh"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

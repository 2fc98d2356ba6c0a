// internal/domain/auth/dto.go
package auth

// LoginRequest carries the tokens the backend API issued after a successful
// credential check. Permissions, when present, take precedence over the
// token's "permissions" claim.
type LoginRequest struct {
	Token        string   `json:"token" binding:"required"`
	RefreshToken string   `json:"refresh_token"`
	Permissions  []string `json:"permissions"`
}

type LoginResponse struct {
	Authenticated bool   `json:"authenticated"`
	User          *User  `json:"user,omitempty"`
	Status        Status `json:"status"`
}

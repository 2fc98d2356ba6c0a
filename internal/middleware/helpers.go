// internal/middleware/helpers.go
package middleware

import (
	"voucher-portal/internal/domain/auth"
	"voucher-portal/internal/pkg/permission"
	"voucher-portal/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

const (
	ctxScope   = "session_scope"
	ctxSession = "session"
	ctxUser    = "user"
	ctxChecker = "permission_checker"
)

// GetSession gets the portal session bound by Scope()
func GetSession(c *gin.Context) (*session.Session, bool) {
	v, exists := c.Get(ctxSession)
	if !exists {
		return nil, false
	}
	sess, ok := v.(*session.Session)
	return sess, ok
}

// MustGetSession gets the portal session from context or panics
func MustGetSession(c *gin.Context) *session.Session {
	sess, ok := GetSession(c)
	if !ok {
		panic("session not found in context")
	}
	return sess
}

// GetUser gets the authenticated user, nil when anonymous
func GetUser(c *gin.Context) *auth.User {
	v, exists := c.Get(ctxUser)
	if !exists {
		return nil
	}
	user, _ := v.(*auth.User)
	return user
}

// MustGetChecker gets the permission checker from context or panics
func MustGetChecker(c *gin.Context) *permission.Checker {
	v, exists := c.Get(ctxChecker)
	if !exists {
		panic("permission checker not found in context")
	}
	return v.(*permission.Checker)
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	return GetUser(c) != nil
}

// internal/middleware/scope_middleware.go
package middleware

import (
	"net/http"

	"voucher-portal/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

const (
	ScopeCookie = "portal_sid"
	ScopeHeader = "X-Portal-Session"

	scopeCookieMaxAge = 30 * 24 * 60 * 60
)

// Scope binds every request to a portal session. The id comes from the
// session header or cookie; requests without a valid one get a fresh ULID.
func Scope(manager *session.Manager, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(ScopeHeader)
		if !validScopeID(id) {
			id, _ = c.Cookie(ScopeCookie)
		}
		if !validScopeID(id) {
			id = ulid.Make().String()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(ScopeCookie, id, scopeCookieMaxAge, "/", "", secureCookie, true)
		c.Header(ScopeHeader, id)

		c.Set(ctxScope, id)
		c.Set(ctxSession, manager.Scope(id))
		c.Next()
	}
}

func validScopeID(id string) bool {
	if id == "" {
		return false
	}
	_, err := ulid.ParseStrict(id)
	return err == nil
}

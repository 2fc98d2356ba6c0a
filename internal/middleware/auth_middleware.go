// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"

	"voucher-portal/internal/pkg/permission"
	"voucher-portal/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthMiddleware struct {
	resolver *permission.Resolver
	logger   *zap.Logger
}

func NewAuthMiddleware(resolver *permission.Resolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		logger:   logger,
	}
}

// LoadUser resolves the current user of the request's portal session and
// stores it with a permission checker. Requests without a user continue as
// anonymous. MUST be used after Scope().
func (m *AuthMiddleware) LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := MustGetSession(c)

		user, err := sess.Current(c.Request.Context())
		if err != nil {
			m.logger.Error("failed to load session",
				zap.String("scope", sess.ID()),
				zap.Error(err),
			)
			response.Unavailable(c, "session storage unavailable", nil)
			return
		}

		if user != nil {
			c.Set(ctxUser, user)
		}
		c.Set(ctxChecker, m.resolver.For(user))
		c.Next()
	}
}

// Auth rejects requests without an authenticated user.
// MUST be used after LoadUser()
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAuthenticated(c) {
			response.Unauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// PageGuard redirects portal page navigations the user may not make.
// MUST be used after LoadUser()
func (m *AuthMiddleware) PageGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := MustGetChecker(c).Guard(c.Request.URL.Path)
		if !decision.Allowed {
			m.logger.Debug("navigation denied",
				zap.String("path", decision.Path),
				zap.String("redirect", decision.Redirect),
			)
			c.Redirect(http.StatusFound, decision.Redirect)
			c.Abort()
			return
		}
		c.Next()
	}
}

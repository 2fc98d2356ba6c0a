// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"

	"voucher-portal/internal/domain/auth"
	"voucher-portal/internal/middleware"
	"voucher-portal/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	logger *zap.Logger
}

func NewAuthHandler(logger *zap.Logger) *AuthHandler {
	return &AuthHandler{logger: logger}
}

// ========== Login ==========

// Login stores the tokens issued by the backend in the caller's portal
// session. A token that cannot be decoded or is already expired stays stored
// but does not authenticate.
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	sess := middleware.MustGetSession(c)
	ctx := c.Request.Context()

	user, err := sess.Login(ctx, &req)
	if err != nil {
		h.logger.Error("login failed",
			zap.String("scope", sess.ID()),
			zap.Error(err),
		)
		response.Unavailable(c, "failed to store session", err)
		return
	}

	resp := auth.LoginResponse{
		Authenticated: user != nil,
		User:          user,
		Status:        sess.Status(ctx),
	}
	if user == nil {
		response.Error(c, http.StatusUnauthorized, "token rejected", nil, resp)
		return
	}

	h.logger.Info("user logged in",
		zap.String("scope", sess.ID()),
		zap.String("user_id", user.ID),
		zap.String("role", user.Role),
	)

	response.Success(c, http.StatusOK, "login successful", resp)
}

// ========== Logout ==========

func (h *AuthHandler) Logout(c *gin.Context) {
	sess := middleware.MustGetSession(c)

	if err := sess.Logout(c.Request.Context()); err != nil {
		h.logger.Error("logout failed",
			zap.String("scope", sess.ID()),
			zap.Error(err),
		)
		response.Unavailable(c, "failed to clear session", err)
		return
	}

	response.Success(c, http.StatusOK, "logout successful", nil)
}

// ========== Session ==========

// Me returns the current user. MUST be routed behind Auth().
func (h *AuthHandler) Me(c *gin.Context) {
	response.Success(c, http.StatusOK, "current user", middleware.GetUser(c))
}

// Status reports the stored token state, including for anonymous callers.
func (h *AuthHandler) Status(c *gin.Context) {
	sess := middleware.MustGetSession(c)
	response.Success(c, http.StatusOK, "session status", sess.Status(c.Request.Context()))
}

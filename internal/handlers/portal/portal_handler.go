// internal/handlers/portal/portal_handler.go
package portal

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"voucher-portal/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const indexFile = "index.html"

// PortalHandler serves the single-page portal build.
type PortalHandler struct {
	staticDir string
}

func NewPortalHandler(staticDir string) *PortalHandler {
	return &PortalHandler{staticDir: staticDir}
}

// Assets serves existing build files without a page guard and rejects
// anything that is not a portal page navigation. Other requests continue to
// the guard.
func (h *PortalHandler) Assets(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		response.NotFound(c, "route not found")
		return
	}
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		response.NotFound(c, "route not found")
		return
	}
	if h.staticDir == "" {
		c.Next()
		return
	}

	name := filepath.Join(h.staticDir, filepath.FromSlash(path.Clean("/"+c.Request.URL.Path)))
	if info, err := os.Stat(name); err == nil && info.Mode().IsRegular() {
		c.File(name)
		c.Abort()
		return
	}
	c.Next()
}

// Index serves the portal entry page; the client router renders the path.
func (h *PortalHandler) Index(c *gin.Context) {
	if h.staticDir == "" {
		response.NotFound(c, "portal not configured")
		return
	}
	c.File(filepath.Join(h.staticDir, indexFile))
}

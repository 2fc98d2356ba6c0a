// internal/handlers/navigation/navigation_handler.go
package navigation

import (
	"net/http"

	"voucher-portal/internal/middleware"
	"voucher-portal/internal/pkg/permission"
	"voucher-portal/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type NavigationHandler struct{}

func NewNavigationHandler() *NavigationHandler {
	return &NavigationHandler{}
}

// Menu returns the navigation tree visible to the caller. Anonymous callers
// get an empty tree.
func (h *NavigationHandler) Menu(c *gin.Context) {
	menu := middleware.MustGetChecker(c).FilterMenu()
	if menu == nil {
		menu = []permission.MenuNode{}
	}
	response.Success(c, http.StatusOK, "menu", menu)
}

func (h *NavigationHandler) MenuItems(c *gin.Context) {
	items := middleware.MustGetChecker(c).AccessibleMenuItems()
	response.Success(c, http.StatusOK, "menu items", items)
}

// Access answers whether the caller may open a portal path and where it
// would be sent otherwise.
func (h *NavigationHandler) Access(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		response.ValidationError(c, "path is required", nil)
		return
	}
	response.Success(c, http.StatusOK, "access decision", middleware.MustGetChecker(c).Guard(path))
}

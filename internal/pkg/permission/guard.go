// internal/pkg/permission/guard.go
package permission

import "strings"

// Redirect targets for denied navigation.
const (
	AdminLoginPath    = "/admin-login"
	CustomerLoginPath = "/customer/login"
	CustomerAreaPath  = "/customer"
)

var publicPaths = []string{
	AdminLoginPath,
	CustomerLoginPath,
	"/customer/register",
}

// Decision is the outcome of guarding one navigation.
type Decision struct {
	Path     string `json:"path"`
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
}

// Guard decides a portal navigation. Customer pages only need a login and
// send anonymous visitors to the customer login. Admin pages send anonymous
// visitors to the admin login and unauthorized users to the dashboard.
func (c *Checker) Guard(path string) Decision {
	p := NormalizePath(path)
	if p == "" {
		p = "/"
	}

	for _, public := range publicPaths {
		if p == public {
			return Decision{Path: p, Allowed: true}
		}
	}

	if IsCustomerArea(p) {
		if !c.IsLoggedIn() {
			return Decision{Path: p, Redirect: CustomerLoginPath}
		}
		return Decision{Path: p, Allowed: true}
	}

	if !c.IsLoggedIn() {
		return Decision{Path: p, Redirect: AdminLoginPath}
	}
	if !c.CanAccessRoute(p) {
		return Decision{Path: p, Redirect: DashboardPath}
	}
	return Decision{Path: p, Allowed: true}
}

func IsCustomerArea(p string) bool {
	return p == CustomerAreaPath || strings.HasPrefix(p, CustomerAreaPath+"/")
}

// internal/pkg/permission/resolver.go
package permission

import (
	"strings"

	"voucher-portal/internal/domain/auth"
)

const (
	DashboardMenuID = "dashboard"
	DashboardPath   = "/dashboard"
)

// Resolver answers access questions against a fixed set of tables.
type Resolver struct {
	tables *Tables
}

func NewResolver(tables *Tables) *Resolver {
	return &Resolver{tables: tables}
}

func (r *Resolver) Tables() *Tables {
	return r.tables
}

// For binds the resolver to a user. A nil user holds no permissions and is
// not logged in.
func (r *Resolver) For(user *auth.User) *Checker {
	return &Checker{user: user, tables: r.tables}
}

// Checker evaluates permissions of one user. Every method is a total
// function; a missing user is not an error.
type Checker struct {
	user   *auth.User
	tables *Tables
}

func (c *Checker) User() *auth.User {
	return c.user
}

func (c *Checker) IsLoggedIn() bool {
	return c.user != nil
}

func (c *Checker) HasPermission(name string) bool {
	return c.user.HasPermission(name)
}

// HasAnyPermission is false for an empty list.
func (c *Checker) HasAnyPermission(names []string) bool {
	for _, name := range names {
		if c.HasPermission(name) {
			return true
		}
	}
	return false
}

// HasAllPermissions is true for an empty list, even without a user.
func (c *Checker) HasAllPermissions(names []string) bool {
	for _, name := range names {
		if !c.HasPermission(name) {
			return false
		}
	}
	return true
}

// CanAccessRoute decides by the first route rule covering path. Dashboard
// routes only need a login and unmapped routes are allowed.
func (c *Checker) CanAccessRoute(path string) bool {
	p := NormalizePath(path)

	if matchesPrefix(p, DashboardPath) {
		return c.IsLoggedIn()
	}

	if capability, ok := c.governingCapability(p); ok {
		return c.HasPermission(capability)
	}
	return true
}

// governingCapability returns the capability of the first rule with a path
// equal to p or a parent of p. Later rules are never consulted.
func (c *Checker) governingCapability(p string) (string, bool) {
	for _, rule := range c.tables.Routes {
		for _, candidate := range rule.Paths {
			if matchesPrefix(p, candidate) {
				return rule.Capability, true
			}
		}
	}
	return "", false
}

func (c *Checker) CanAccessMenuItem(menuID string) bool {
	if menuID == DashboardMenuID {
		return c.IsLoggedIn()
	}
	perms, ok := c.tables.menuPermissions(menuID)
	if !ok || len(perms) == 0 {
		return true
	}
	return c.HasAnyPermission(perms)
}

// AccessibleMenuItems filters every known menu id through CanAccessMenuItem.
func (c *Checker) AccessibleMenuItems() []string {
	ids := make([]string, 0, len(c.tables.MenuPermissions))
	for _, id := range c.tables.MenuIDs() {
		if c.CanAccessMenuItem(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// FilterMenu returns the navigation tree visible to the user, dashboard
// first. A node is dropped when the user holds none of its permissions; a
// group is also dropped when none of its children remain. Nothing is visible
// without a login.
func (c *Checker) FilterMenu() []MenuNode {
	if !c.IsLoggedIn() {
		return nil
	}

	filtered := c.filterNodes(c.tables.Menu)

	dashboard, ok := c.tables.menuNode(DashboardMenuID)
	if !ok {
		return filtered
	}
	out := make([]MenuNode, 0, len(filtered)+1)
	out = append(out, dashboard)
	for _, n := range filtered {
		if n.ID != DashboardMenuID {
			out = append(out, n)
		}
	}
	return out
}

func (c *Checker) filterNodes(nodes []MenuNode) []MenuNode {
	out := make([]MenuNode, 0, len(nodes))
	for _, n := range nodes {
		if len(n.Permissions) > 0 && !c.HasAnyPermission(n.Permissions) {
			continue
		}
		if n.IsGroup() {
			children := c.filterNodes(n.Children)
			if len(children) == 0 {
				continue
			}
			n.Children = children
		}
		out = append(out, n)
	}
	return out
}

// matchesPrefix reports whether p equals candidate or lies below it.
func matchesPrefix(p, candidate string) bool {
	candidate = NormalizePath(candidate)
	return p == candidate || strings.HasPrefix(p, candidate+"/")
}

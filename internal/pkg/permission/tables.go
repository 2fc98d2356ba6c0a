// internal/pkg/permission/tables.go
package permission

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	xerrors "voucher-portal/internal/pkg/errors"

	"gopkg.in/yaml.v3"
)

//go:embed access.yaml
var defaultAccessYAML []byte

// RouteRule grants a capability over a set of route prefixes.
type RouteRule struct {
	Capability string   `yaml:"capability" json:"capability"`
	Paths      []string `yaml:"paths" json:"paths"`
}

// MenuPermission lists the capabilities that reveal one menu id.
type MenuPermission struct {
	ID          string   `yaml:"id" json:"id"`
	Permissions []string `yaml:"permissions" json:"permissions"`
}

type NodeKind string

const (
	KindLeaf  NodeKind = "leaf"
	KindGroup NodeKind = "group"
)

// MenuNode is one navigation entry. Groups hold children and usually no
// route; leaves are navigable. Permissions are any-of; empty means every
// authenticated user.
type MenuNode struct {
	ID          string     `yaml:"id" json:"id"`
	Kind        NodeKind   `yaml:"-" json:"kind"`
	Label       string     `yaml:"label" json:"label"`
	Icon        string     `yaml:"icon" json:"icon,omitempty"`
	Route       string     `yaml:"route" json:"route,omitempty"`
	Permissions []string   `yaml:"permissions" json:"permissions"`
	Children    []MenuNode `yaml:"children" json:"children,omitempty"`
}

func (n MenuNode) IsGroup() bool {
	return n.Kind == KindGroup
}

// Tables is the static access configuration. It is never mutated after load.
type Tables struct {
	// Routes is scanned in order and the first match wins, so the order here
	// changes which capability governs overlapping prefixes.
	Routes          []RouteRule      `yaml:"routes"`
	MenuPermissions []MenuPermission `yaml:"menuPermissions"`
	Menu            []MenuNode       `yaml:"menu"`

	menuIndex map[string][]string
}

// DefaultTables returns the tables compiled into the binary.
func DefaultTables() (*Tables, error) {
	return ParseTables(defaultAccessYAML)
}

// LoadTables reads tables from a YAML file.
func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to read access tables")
	}
	return ParseTables(data)
}

func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, xerrors.Wrap(err, "failed to parse access tables")
	}
	if err := t.prepare(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Tables) prepare() error {
	for i := range t.Routes {
		rule := &t.Routes[i]
		if rule.Capability == "" {
			return fmt.Errorf("%w: route rule %d has no capability", xerrors.ErrInvalidInput, i)
		}
		if len(rule.Paths) == 0 {
			return fmt.Errorf("%w: capability %s has no paths", xerrors.ErrInvalidInput, rule.Capability)
		}
		for j, p := range rule.Paths {
			if !strings.HasPrefix(p, "/") {
				return fmt.Errorf("%w: path %q of %s must start with /", xerrors.ErrInvalidInput, p, rule.Capability)
			}
			rule.Paths[j] = NormalizePath(p)
		}
	}

	t.menuIndex = make(map[string][]string, len(t.MenuPermissions))
	for _, mp := range t.MenuPermissions {
		if mp.ID == "" {
			return fmt.Errorf("%w: menu permission without id", xerrors.ErrInvalidInput)
		}
		if _, dup := t.menuIndex[mp.ID]; dup {
			return fmt.Errorf("%w: duplicate menu id %s", xerrors.ErrInvalidInput, mp.ID)
		}
		t.menuIndex[mp.ID] = mp.Permissions
	}

	seen := make(map[string]bool)
	return markKinds(t.Menu, seen)
}

func markKinds(nodes []MenuNode, seen map[string]bool) error {
	for i := range nodes {
		n := &nodes[i]
		if n.ID == "" {
			return fmt.Errorf("%w: menu node without id", xerrors.ErrInvalidInput)
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: duplicate menu node %s", xerrors.ErrInvalidInput, n.ID)
		}
		seen[n.ID] = true

		if len(n.Children) > 0 {
			n.Kind = KindGroup
			if err := markKinds(n.Children, seen); err != nil {
				return err
			}
		} else {
			n.Kind = KindLeaf
		}
	}
	return nil
}

// MenuIDs returns every menu id of the menu-permission table in declaration
// order.
func (t *Tables) MenuIDs() []string {
	ids := make([]string, 0, len(t.MenuPermissions))
	for _, mp := range t.MenuPermissions {
		ids = append(ids, mp.ID)
	}
	return ids
}

func (t *Tables) menuPermissions(id string) ([]string, bool) {
	perms, ok := t.menuIndex[id]
	return perms, ok
}

func (t *Tables) menuNode(id string) (MenuNode, bool) {
	for _, n := range t.Menu {
		if n.ID == id {
			return n, true
		}
	}
	return MenuNode{}, false
}

// NormalizePath strips a single trailing slash, except from "/".
func NormalizePath(p string) string {
	if p != "/" && strings.HasSuffix(p, "/") {
		return p[:len(p)-1]
	}
	return p
}

// Package routes holds the page route table and the navigation guard.
package routes

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"citizenconnect/webclient/internal/domain"
)

const (
	HomePath      = "/"
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

var ErrInvalidTable = errors.New("invalid route table")

//go:embed routes.yaml
var defaultTable []byte

type Route struct {
	Path      string        `yaml:"path" json:"path"`
	Page      string        `yaml:"page" json:"page"`
	Protected bool          `yaml:"protected" json:"protected"`
	GuestOnly bool          `yaml:"guest_only" json:"guestOnly"`
	Roles     []domain.Role `yaml:"roles" json:"roles,omitempty"`

	segments []string
}

// Allows reports whether role may open the route. An empty role set admits
// everyone.
func (r Route) Allows(role domain.Role) bool {
	if len(r.Roles) == 0 {
		return true
	}
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

type Viewer struct {
	Authenticated bool
	Role          domain.Role
}

type Decision struct {
	Route    Route
	Params   map[string]string
	Redirect string
	Reason   string
}

func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

type Table struct {
	routes []Route
}

func Default() (*Table, error) {
	return Load(defaultTable)
}

func Load(data []byte) (*Table, error) {
	var doc struct {
		Routes []Route `yaml:"routes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if len(doc.Routes) == 0 {
		return nil, fmt.Errorf("%w: no routes", ErrInvalidTable)
	}

	seen := make(map[string]bool, len(doc.Routes))
	for i := range doc.Routes {
		r := &doc.Routes[i]
		r.Path = Clean(r.Path)
		if strings.TrimSpace(r.Page) == "" {
			return nil, fmt.Errorf("%w: route %s has no page", ErrInvalidTable, r.Path)
		}
		if r.Protected && r.GuestOnly {
			return nil, fmt.Errorf("%w: route %s cannot be both protected and guest only", ErrInvalidTable, r.Path)
		}
		if len(r.Roles) > 0 && !r.Protected {
			return nil, fmt.Errorf("%w: route %s restricts roles but is not protected", ErrInvalidTable, r.Path)
		}
		for _, role := range r.Roles {
			if !role.Valid() {
				return nil, fmt.Errorf("%w: route %s: %w %q", ErrInvalidTable, r.Path, domain.ErrUnknownRole, role)
			}
		}
		key := patternKey(r.Path)
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate route %s", ErrInvalidTable, r.Path)
		}
		seen[key] = true
		r.segments = split(r.Path)
	}
	return &Table{routes: doc.Routes}, nil
}

func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Match finds the route for path. Among matching patterns the one with the
// most static segments wins.
func (t *Table) Match(path string) (Route, map[string]string, bool) {
	segs := split(Clean(path))
	best := -1
	bestStatic := -1
	var bestParams map[string]string
	for i, r := range t.routes {
		params, static, ok := matchSegments(r.segments, segs)
		if !ok || static <= bestStatic {
			continue
		}
		best, bestStatic, bestParams = i, static, params
	}
	if best < 0 {
		return Route{}, nil, false
	}
	return t.routes[best], bestParams, true
}

// Resolve decides whether v may open path and, if not, where to send them.
// It never performs I/O.
func (t *Table) Resolve(path string, v Viewer) Decision {
	r, params, ok := t.Match(path)
	switch {
	case !ok:
		return Decision{Redirect: HomePath, Reason: "unknown route"}
	case r.Protected && !v.Authenticated:
		return Decision{Route: r, Params: params, Redirect: LoginPath, Reason: "authentication required"}
	case r.Protected && !r.Allows(v.Role):
		return Decision{Route: r, Params: params, Redirect: DashboardPath, Reason: "role not permitted"}
	case r.GuestOnly && v.Authenticated:
		return Decision{Route: r, Params: params, Redirect: DashboardPath, Reason: "already signed in"}
	}
	return Decision{Route: r, Params: params}
}

// Clean strips the query and any trailing slash and guarantees a leading one.
func Clean(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

func split(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func patternKey(path string) string {
	segs := split(path)
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			segs[i] = ":"
		}
	}
	return "/" + strings.Join(segs, "/")
}

func matchSegments(pattern, path []string) (map[string]string, int, bool) {
	if len(pattern) != len(path) {
		return nil, 0, false
	}
	var params map[string]string
	static := 0
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if path[i] == "" {
				return nil, 0, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[p[1:]] = path[i]
			continue
		}
		if p != path[i] {
			return nil, 0, false
		}
		static++
	}
	return params, static, true
}

// Package router holds the client route table and the navigation guard that
// runs before every route transition.
package router

import (
	_ "embed"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"shdrug/client/internal/session"
)

//go:embed routes.yaml
var defaultRoutes []byte

type Route struct {
	Name             string       `yaml:"name"`
	Path             string       `yaml:"path"`
	RequiresAuth     bool         `yaml:"requires_auth"`
	RequiresRole     session.Role `yaml:"requires_role"`
	RequiresVerified bool         `yaml:"requires_verified"`
	MergedInto       *Merge       `yaml:"merged_into"`
}

// Merge folds a retired route into a tab of its host page.
type Merge struct {
	Route string            `yaml:"route"`
	Query map[string]string `yaml:"query"`
}

type tableFile struct {
	Landing           string   `yaml:"landing"`
	Login             string   `yaml:"login"`
	UnauthNotice      string   `yaml:"unauth_notice"`
	AdminHome         string   `yaml:"admin_home"`
	UnverifiedAllowed []string `yaml:"unverified_allowed"`
	Routes            []Route  `yaml:"routes"`
}

type Table struct {
	Landing      string
	Login        string
	UnauthNotice string
	AdminHome    string

	routes            []Route
	byName            map[string]int
	byPattern         map[string]int
	unverifiedAllowed map[string]bool
	mux               *chi.Mux
}

// Default returns the embedded route table.
func Default() *Table {
	table, err := Load(defaultRoutes)
	if err != nil {
		panic(fmt.Sprintf("embedded route table: %v", err))
	}
	return table
}

func Load(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse route table: %w", err)
	}

	t := &Table{
		Landing:           file.Landing,
		Login:             file.Login,
		UnauthNotice:      file.UnauthNotice,
		AdminHome:         file.AdminHome,
		routes:            file.Routes,
		byName:            make(map[string]int, len(file.Routes)),
		byPattern:         make(map[string]int, len(file.Routes)),
		unverifiedAllowed: make(map[string]bool, len(file.UnverifiedAllowed)),
		mux:               chi.NewRouter(),
	}
	noop := func(http.ResponseWriter, *http.Request) {}
	for i, route := range file.Routes {
		if route.Name == "" || !strings.HasPrefix(route.Path, "/") {
			return nil, fmt.Errorf("route %d: name and absolute path are required", i)
		}
		if _, dup := t.byName[route.Name]; dup {
			return nil, fmt.Errorf("route %q declared twice", route.Name)
		}
		if route.RequiresRole != "" && !route.RequiresRole.Valid() {
			return nil, fmt.Errorf("route %q: unknown role %q", route.Name, route.RequiresRole)
		}
		t.byName[route.Name] = i
		t.byPattern[route.Path] = i
		t.mux.Get(route.Path, noop)
	}
	for _, route := range file.Routes {
		if route.MergedInto != nil {
			if _, ok := t.byName[route.MergedInto.Route]; !ok {
				return nil, fmt.Errorf("route %q merged into unknown route %q", route.Name, route.MergedInto.Route)
			}
		}
	}
	for _, name := range []string{t.Landing, t.Login, t.UnauthNotice, t.AdminHome} {
		if _, ok := t.byName[name]; !ok {
			return nil, fmt.Errorf("special route %q is not declared", name)
		}
	}
	for _, name := range file.UnverifiedAllowed {
		t.unverifiedAllowed[name] = true
	}
	return t, nil
}

func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

func (t *Table) Route(name string) (Route, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Route{}, false
	}
	return t.routes[i], true
}

func (t *Table) UnverifiedAllowed(name string) bool {
	return t.unverifiedAllowed[name]
}

// Resolve turns a concrete target such as "/tenants/4?tab=stock" into a
// Location. Unknown paths resolve to a Location without a name.
func (t *Table) Resolve(target string) Location {
	u, err := url.Parse(target)
	if err != nil || u.Path == "" {
		u = &url.URL{Path: "/"}
	}
	loc := Location{Path: u.Path, Query: u.Query()}

	rctx := chi.NewRouteContext()
	if !t.mux.Match(rctx, http.MethodGet, u.Path) {
		return loc
	}
	// RoutePattern trims the trailing slash, which turns "/" into "".
	i, ok := t.byPattern[strings.Join(rctx.RoutePatterns, "")]
	if !ok {
		return loc
	}
	loc.Name = t.routes[i].Name
	if n := len(rctx.URLParams.Keys); n > 0 {
		loc.Params = make(map[string]string, n)
		for k, key := range rctx.URLParams.Keys {
			loc.Params[key] = rctx.URLParams.Values[k]
		}
	}
	return loc
}

// Named builds the Location of a parameterless route.
func (t *Table) Named(name string, query url.Values) Location {
	route, _ := t.Route(name)
	return Location{Name: name, Path: route.Path, Query: query}
}

package navigation

import (
	"path"
	"strings"
)

const (
	// LoginPath is where anonymous visitors of protected routes are sent.
	LoginPath = "/login"
	// HomePath is where signed-in visitors of guest-only routes are sent.
	HomePath = "/tabs/workouts"
)

// Route is one entry of the application's route table. Children inherit
// the parent's requirements and extend its path.
type Route struct {
	Path          string
	Name          string
	Redirect      string
	RequiresAuth  bool
	RequiresGuest bool
	Children      []Route
}

// DefaultRoutes returns the application's route table.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/", Redirect: HomePath},
		{Path: "/login", Name: "Login", RequiresGuest: true},
		{Path: "/signup", Name: "Signup", RequiresGuest: true},
		{
			Path:         "/tabs/",
			RequiresAuth: true,
			Children: []Route{
				{Path: "", Redirect: HomePath},
				{Path: "workouts", Name: "Workouts"},
				{Path: "exercises", Name: "Exercises"},
				{Path: "account", Name: "Account"},
			},
		},
		{Path: "/exercises/:id", Name: "ExerciseDetail", RequiresAuth: true},
		{Path: "/workouts/:id", Name: "WorkoutDetail", RequiresAuth: true},
	}
}

// entry is a leaf of the route tree with its inherited requirements.
type entry struct {
	pattern       string
	segments      []string
	name          string
	redirect      string
	requiresAuth  bool
	requiresGuest bool
}

// Match is the result of matching a path against the table.
type Match struct {
	Pattern       string
	Name          string
	Redirect      string
	Params        map[string]string
	RequiresAuth  bool
	RequiresGuest bool
}

// Table matches paths against a flattened route tree. Entries are tried
// in declaration order.
type Table struct {
	entries []entry
}

// NewTable flattens routes into a Table.
func NewTable(routes []Route) *Table {
	t := &Table{}
	for _, r := range routes {
		t.flatten(r, "", false, false)
	}
	return t
}

func (t *Table) flatten(r Route, prefix string, auth, guest bool) {
	full := joinPattern(prefix, r.Path)
	auth = auth || r.RequiresAuth
	guest = guest || r.RequiresGuest

	if len(r.Children) > 0 {
		for _, child := range r.Children {
			t.flatten(child, full, auth, guest)
		}
		return
	}
	t.entries = append(t.entries, entry{
		pattern:       full,
		segments:      splitPath(full),
		name:          r.Name,
		redirect:      r.Redirect,
		requiresAuth:  auth,
		requiresGuest: guest,
	})
}

// Match returns the first entry matching p.
func (t *Table) Match(p string) (Match, bool) {
	segments := splitPath(CleanPath(p))
	for _, e := range t.entries {
		params, ok := matchSegments(e.segments, segments)
		if !ok {
			continue
		}
		return Match{
			Pattern:       e.pattern,
			Name:          e.name,
			Redirect:      e.redirect,
			Params:        params,
			RequiresAuth:  e.requiresAuth,
			RequiresGuest: e.requiresGuest,
		}, true
	}
	return Match{}, false
}

func matchSegments(pattern, segments []string) (map[string]string, bool) {
	if len(pattern) != len(segments) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range pattern {
		if strings.HasPrefix(seg, ":") {
			if params == nil {
				params = make(map[string]string)
			}
			params[seg[1:]] = segments[i]
			continue
		}
		if seg != segments[i] {
			return nil, false
		}
	}
	return params, true
}

// CleanPath normalizes p to a rooted path without a trailing slash.
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func joinPattern(prefix, p string) string {
	if strings.HasPrefix(p, "/") || prefix == "" {
		return CleanPath(p)
	}
	return CleanPath(strings.TrimSuffix(prefix, "/") + "/" + p)
}

func splitPath(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Package tabroute maps the embedded web app's URL space onto the
// shell's fixed set of navigation tabs. The mapping is total: every path
// resolves to exactly one tab, with dashboard as the default for
// anything no explicit prefix claims.
package tabroute

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tidwall/btree"
)

// Tab identifies one of the shell's top-level navigation destinations.
type Tab string

const (
	TabDashboard Tab = "dashboard"
	TabWorkout   Tab = "workout"
	TabNutrition Tab = "nutrition"
	TabProfile   Tab = "profile"
)

// LoginPath is the web app's sign-in route. Embedded content navigating
// here means the web app no longer considers the user authenticated.
const LoginPath = "/login"

// Tabs returns the closed tab set in display order.
func Tabs() []Tab {
	return []Tab{TabDashboard, TabWorkout, TabNutrition, TabProfile}
}

// ParseTab validates a tab identifier coming across the gomobile seam.
func ParseTab(s string) (Tab, bool) {
	switch Tab(s) {
	case TabDashboard, TabWorkout, TabNutrition, TabProfile:
		return Tab(s), true
	}
	return "", false
}

const memoSize = 256

// Table resolves embedded-content paths to tabs by longest matching
// path prefix on segment boundaries. Resolution is deterministic and
// memoized; the prefix set is fixed at construction.
type Table struct {
	prefixes *btree.Map[string, Tab]
	roots    map[Tab]string
	memo     *lru.Cache[string, Tab]
}

// New builds a table from prefix → tab entries plus the canonical root
// path per tab. Prefixes must be absolute paths.
func New(entries map[string]Tab, roots map[Tab]string) (*Table, error) {
	prefixes := &btree.Map[string, Tab]{}
	for prefix, tab := range entries {
		if !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("tabroute: prefix %q is not absolute", prefix)
		}
		prefixes.Set(normalize(prefix), tab)
	}
	for _, tab := range Tabs() {
		if _, ok := roots[tab]; !ok {
			return nil, fmt.Errorf("tabroute: no root path for tab %q", tab)
		}
	}
	memo, err := lru.New[string, Tab](memoSize)
	if err != nil {
		return nil, err
	}
	return &Table{prefixes: prefixes, roots: roots, memo: memo}, nil
}

// Default returns the production route table.
func Default() *Table {
	t, err := New(
		map[string]Tab{
			"/training":  TabWorkout,
			"/nutrition": TabNutrition,
			"/profile":   TabProfile,
			"/billing":   TabProfile,
		},
		map[Tab]string{
			TabDashboard: "/",
			TabWorkout:   "/training",
			TabNutrition: "/nutrition",
			TabProfile:   "/profile",
		},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// RootPath returns the tab's canonical root in the embedded URL space.
func (t *Table) RootPath(tab Tab) string {
	return t.roots[tab]
}

// Resolve maps a path to the tab owning the longest matching prefix.
// ok is false when no explicit prefix claims the path.
func (t *Table) Resolve(path string) (tab Tab, ok bool) {
	path = normalize(path)
	if tab, ok := t.memo.Get(path); ok {
		return tab, true
	}
	t.prefixes.Descend(path, func(prefix string, candidate Tab) bool {
		if prefixMatches(path, prefix) {
			tab, ok = candidate, true
			return false
		}
		return true
	})
	if ok {
		t.memo.Add(path, tab)
	}
	return tab, ok
}

// ResolveOr is the total form of Resolve: unclaimed paths fall through
// to the dashboard tab.
func (t *Table) ResolveOr(path string) Tab {
	if tab, ok := t.Resolve(path); ok {
		return tab
	}
	return TabDashboard
}

// IsLogin reports whether a path belongs to the web app's sign-in flow.
func IsLogin(path string) bool {
	return prefixMatches(normalize(path), LoginPath)
}

// prefixMatches reports whether prefix covers path on a segment
// boundary, so "/nutrition" claims "/nutrition/log" but not
// "/nutritionist".
func prefixMatches(path, prefix string) bool {
	if path == prefix {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return strings.HasSuffix(prefix, "/") || path[len(prefix)] == '/'
}

// normalize strips query and fragment, forces a leading slash, and
// drops trailing slashes so "/training/" and "/training" resolve alike.
func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}

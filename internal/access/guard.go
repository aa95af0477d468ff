// Package access decides which request paths require an authenticated user.
package access

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Guard decides whether a path requires authentication, given a list of
// excluded paths.
//
// An excluded path ending in "*" excludes every path starting with what
// comes before the "*". Other excluded paths must match exactly, a
// trailing slash on either side is ignored.
type Guard struct {
	exact    map[string]struct{}
	prefixes []glob.Glob
}

// NewGuard creates a Guard for the given excluded paths.
func NewGuard(excluded []string) (*Guard, error) {
	g := &Guard{
		exact: make(map[string]struct{}),
	}

	for _, x := range excluded {
		if x == "" {
			continue
		}

		if prefix, ok := strings.CutSuffix(x, "*"); ok {
			pattern, err := glob.Compile(glob.QuoteMeta(prefix) + "*")
			if err != nil {
				return nil, fmt.Errorf("invalid excluded path %q: %w", x, err)
			}
			g.prefixes = append(g.prefixes, pattern)
			continue
		}

		g.exact[withSlash(x)] = struct{}{}
	}

	return g, nil
}

// RequireAuth reports whether path requires authentication.
// The empty path always does, and so does every path when nothing is excluded.
func (g *Guard) RequireAuth(path string) bool {
	if path == "" || (len(g.exact) == 0 && len(g.prefixes) == 0) {
		return true
	}

	if _, ok := g.exact[withSlash(path)]; ok {
		return false
	}

	for _, p := range g.prefixes {
		if p.Match(path) {
			return false
		}
	}

	return true
}

// RequireAuth reports whether path requires authentication given the excluded paths.
// See Guard for the matching rules.
func RequireAuth(path string, excluded []string) bool {
	if path == "" || len(excluded) == 0 {
		return true
	}

	g, err := NewGuard(excluded)
	if err != nil {
		return true
	}

	return g.RequireAuth(path)
}

func withSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// Package origin decides which browser origins may call the API.
package origin

import (
	"errors"
	"fmt"
)

// ErrNotAllowed is returned by Check for an origin outside the allow-list.
var ErrNotAllowed = errors.New("origin not allowed")

// Guard holds the allow-list. It is read-only after construction and safe
// for concurrent use.
type Guard struct {
	origins []string
	set     map[string]struct{}
}

// NewGuard builds a Guard from the given origins, dropping empty values and
// duplicates while keeping the first-seen order.
func NewGuard(origins []string) *Guard {
	g := &Guard{set: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		if o == "" {
			continue
		}
		if _, dup := g.set[o]; dup {
			continue
		}
		g.set[o] = struct{}{}
		g.origins = append(g.origins, o)
	}
	return g
}

// IsAllowed reports whether a request with this Origin header may proceed.
// An empty origin (curl, server-to-server, same-origin navigation) is always
// allowed; otherwise the match is exact and case-sensitive.
func (g *Guard) IsAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	_, ok := g.set[origin]
	return ok
}

// Check is IsAllowed as an error.
func (g *Guard) Check(origin string) error {
	if g.IsAllowed(origin) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotAllowed, origin)
}

// Origins returns a copy of the allow-list in order.
func (g *Guard) Origins() []string {
	out := make([]string, len(g.origins))
	copy(out, g.origins)
	return out
}

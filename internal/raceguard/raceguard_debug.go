//go:build satur_debug

package raceguard

import (
	"fmt"

	"github.com/petermattis/goid"
	"github.com/sasha-s/go-deadlock"
)

// guardImpl is the satur_debug implementation: it records the owning
// goroutine id on first use and panics on a cross-goroutine call, and
// layers a deadlock-detecting mutex on top so a genuine re-entrant call
// from the same owner (a bug, not a concurrency violation) is reported
// too.
type guardImpl struct {
	mu    deadlock.Mutex
	owner int64
	set   bool
}

func (g *guardImpl) enter(who string) {
	id := goid.Get()
	if !g.set {
		g.owner = id
		g.set = true
	} else if g.owner != id {
		panic(fmt.Sprintf("satur: %s entered from goroutine %d, owned by %d (core state is not thread-safe, spec.md §5)", who, id, g.owner))
	}
	g.mu.Lock()
}

func (g *guardImpl) leave() {
	g.mu.Unlock()
}

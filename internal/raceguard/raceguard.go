// Package raceguard turns spec.md §5's prose contract ("not thread-safe;
// assumes exclusive access") into a cheap runtime check instead of a
// comment. The term bank and substitution trail are mutated in place
// (binding fields, GC colour, WHNF caches); nothing about Go prevents a
// caller from reaching them from two goroutines at once. Under the
// satur_debug build tag this package records the creating goroutine id
// with github.com/petermattis/goid and panics if a later call arrives from
// a different one, and additionally backs a github.com/sasha-s/go-deadlock
// lock so accidental concurrent re-entrancy is reported with a deadlock-style
// diagnostic rather than silently corrupting a hash-consed cell. Without the
// tag (the default, including all production builds) these become no-ops so
// the guard costs nothing when the single-threaded-cooperative contract is
// trusted.
package raceguard

// Guard is embedded by the term bank and the substitution trail. Its
// zero value is ready to use.
type Guard struct {
	impl guardImpl
}

// Enter asserts that the calling goroutine is either the guard's first
// caller (which it then records as the owner) or the previously recorded
// owner, and acquires the debug-mode deadlock-detecting lock. Leave must be
// called (typically via defer) before the enclosing call returns.
func (g *Guard) Enter(who string) { g.impl.enter(who) }

// Leave releases what Enter acquired.
func (g *Guard) Leave() { g.impl.leave() }

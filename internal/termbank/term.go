// Package termbank implements the hash-consed term DAG of spec.md §3–§4.2:
// every non-variable term is looked up in a per-arity store keyed by
// (f_code, arg-entry-ids) and reused if present, giving hash-consing
// invariant 1 ("two shared terms are the same object iff same f_code and
// argument identity") for free.
package termbank

import (
	"satur/internal/signature"
	"satur/internal/typetab"
	"satur/internal/varbank"
)

// Kind discriminates the three term-cell variants of spec.md §3.
type Kind uint8

const (
	KindFreeVar Kind = iota
	KindDBVar
	KindApp
)

// Props is a bitset of per-cell flags distinct from the structural
// invariants (weight/ground/v_count), mirroring spec.md §3's "properties
// bitset": rewrite state, predicate-position marking, and the transient
// op/output flags one algorithm at a time may use (design note §9) and
// must clear before returning.
type Props uint32

const (
	PropRewritten Props = 1 << iota
	PropPredicatePosition
	PropOpFlag     // transient scratch bit, convention-owned by one algorithm at a time
	PropOutputFlag // transient scratch bit, convention-owned by one algorithm at a time
)

// Term is one term cell. Before it has been interned by a Bank its ID is
// zero and it must not be compared by pointer identity with shared terms;
// Bank.Insert (or one of its variants) returns the canonical shared cell.
type Term struct {
	ID    int64
	Kind  Kind
	FCode signature.Code // valid iff Kind == KindApp
	Args  []*Term        // shared children, valid iff Kind == KindApp
	Var   *varbank.FreeVar
	DB    *varbank.DBVar
	Typ   *typetab.Type // full type; an arrow for an unapplied HO head

	Weight int
	FCount int
	VCount int // count of FREE-variable leaves only; excludes DB leaves (see DESIGN.md)

	Props Props

	// Binding is mutated only through internal/trail's Bind/BacktrackTo
	// discipline; meaningful only when Kind == KindFreeVar.
	Binding *Term

	whnf        *Term // weak-head-normal-form memo, invalidated on GC sweep
	gcMark      bool
	rewriteDate int64
	betaNormal  bool // true once known to contain no beta-redex; permanent once set
}

// CachedWHNF returns the memoised weak-head-normal-form of t, or nil if
// none has been computed yet (or it was invalidated by a GC sweep).
func (t *Term) CachedWHNF() *Term { return t.whnf }

// SetCachedWHNF installs w as t's memoised weak-head-normal-form. Only
// internal/lambda calls this, after performing the reduction itself.
func (t *Term) SetCachedWHNF(w *Term) { t.whnf = w }

// IsKnownBetaNormal reports whether t has previously been determined to
// contain no beta-redex, letting beta_normalize short-circuit structural
// recursion (spec.md §4.5).
func (t *Term) IsKnownBetaNormal() bool { return t.betaNormal }

// MarkBetaNormal records that t is beta-normal. The fact is permanent: it
// does not need to be invalidated by GC.
func (t *Term) MarkBetaNormal() { t.betaNormal = true }

// IsGround reports whether t contains no free-variable subterm.
func (t *Term) IsGround() bool { return t.VCount == 0 }

// IsFreeVar, IsDBVar, IsApp are shape predicates.
func (t *Term) IsFreeVar() bool { return t.Kind == KindFreeVar }
func (t *Term) IsDBVar() bool   { return t.Kind == KindDBVar }
func (t *Term) IsApp() bool     { return t.Kind == KindApp }

// IsVariableShaped reports whether t is a leaf variable of either kind
// (lambda.BetaNormalize returns such a leaf unchanged).
func (t *Term) IsVariableShaped() bool { return t.Kind == KindFreeVar || t.Kind == KindDBVar }

// Depth returns t's term depth: 1 for a leaf, one more than the deepest
// argument's depth otherwise. Unlike Weight, depth is not cached on the
// cell — it is a diagnostic/heuristic metric, not a structural invariant
// maintained at insertion time.
func (t *Term) Depth() int {
	max := 0
	for _, a := range t.Args {
		if d := a.Depth(); d > max {
			max = d
		}
	}
	return max + 1
}

// IsSubterm reports whether test occurs as a subterm of super, anywhere
// including at the top, compared by shared pointer identity (both terms
// are assumed already interned in the same bank).
func IsSubterm(super, test *Term) bool {
	if super == test {
		return true
	}
	for _, a := range super.Args {
		if IsSubterm(a, test) {
			return true
		}
	}
	return false
}

// DerefMode selects how Insert resolves bindings on free variables
// (spec.md §4.2).
type DerefMode int

const (
	// DerefAlways follows the binding chain to its end.
	DerefAlways DerefMode = iota
	// DerefOnce follows exactly one binding, even if the result is itself bound.
	DerefOnce
	// DerefNever returns the variable cell as-is.
	DerefNever
)

// Deref resolves t according to mode; a no-op for non-variable terms.
func Deref(t *Term, mode DerefMode) *Term {
	if t == nil || t.Kind != KindFreeVar {
		return t
	}
	switch mode {
	case DerefNever:
		return t
	case DerefOnce:
		if t.Binding != nil {
			return t.Binding
		}
		return t
	default:
		cur := t
		for cur.Kind == KindFreeVar && cur.Binding != nil {
			cur = cur.Binding
		}
		return cur
	}
}

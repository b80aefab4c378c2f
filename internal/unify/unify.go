// Package unify implements first-order unification and matching over
// terms shared in a termbank.Bank (spec.md §4.6): standard Robinson MGU
// with occurs-check, and one-way matching. Both operate through the
// substitution trail so a caller can backtrack to retry an alternative.
package unify

import (
	"satur/internal/termbank"
	"satur/internal/trail"
)

// Unify attempts to extend tr with bindings making t1 and t2 identical,
// using occurs-checked Robinson unification. On failure it returns false
// having already backtracked any partial bindings it made back to the
// trail position at entry, so the caller never has to clean up.
func Unify(tr *trail.Trail, t1, t2 *termbank.Term) bool {
	pos := tr.SavePos()
	if unify1(tr, t1, t2) {
		return true
	}
	tr.BacktrackTo(pos)
	return false
}

func unify1(tr *trail.Trail, t1, t2 *termbank.Term) bool {
	t1 = termbank.Deref(t1, termbank.DerefAlways)
	t2 = termbank.Deref(t2, termbank.DerefAlways)
	if t1 == t2 {
		return true
	}
	if t1.IsFreeVar() {
		return bindVar(tr, t1, t2)
	}
	if t2.IsFreeVar() {
		return bindVar(tr, t2, t1)
	}
	if t1.IsDBVar() || t2.IsDBVar() {
		return t1.IsDBVar() && t2.IsDBVar() && t1.DB == t2.DB
	}
	if t1.FCode != t2.FCode || len(t1.Args) != len(t2.Args) {
		return false
	}
	for i := range t1.Args {
		if !unify1(tr, t1.Args[i], t2.Args[i]) {
			return false
		}
	}
	return true
}

func bindVar(tr *trail.Trail, v, t *termbank.Term) bool {
	if v.Typ != t.Typ {
		return false
	}
	if t.IsFreeVar() && t.Var == v.Var {
		return true
	}
	if occurs(v, t) {
		return false
	}
	tr.Bind(v, t)
	return true
}

// occurs reports whether v occurs free in t (the occurs-check).
func occurs(v, t *termbank.Term) bool {
	t = termbank.Deref(t, termbank.DerefAlways)
	if t.IsFreeVar() {
		return t.Var == v.Var
	}
	for _, a := range t.Args {
		if occurs(v, a) {
			return true
		}
	}
	return false
}

// Match attempts one-way matching of pattern against term: only
// pattern's free variables may be bound, and the same pattern variable
// matching two different subterms is a failure. On failure it restores
// the trail to its entry position.
func Match(tr *trail.Trail, pattern, term *termbank.Term) bool {
	pos := tr.SavePos()
	if match1(tr, pattern, term) {
		return true
	}
	tr.BacktrackTo(pos)
	return false
}

func match1(tr *trail.Trail, pattern, term *termbank.Term) bool {
	pattern = termbank.Deref(pattern, termbank.DerefAlways)
	if pattern.IsFreeVar() {
		if pattern.Typ != term.Typ {
			return false
		}
		tr.Bind(pattern, term)
		return true
	}
	if pattern.IsDBVar() {
		return term.IsDBVar() && pattern.DB == term.DB
	}
	if term.IsFreeVar() {
		return false // term-side variables may not be bound by a one-way match
	}
	if pattern.FCode != term.FCode || len(pattern.Args) != len(term.Args) {
		return false
	}
	for i := range pattern.Args {
		if !match1(tr, pattern.Args[i], term.Args[i]) {
			return false
		}
	}
	return true
}

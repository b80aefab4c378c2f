// Package hobind is the general higher-order binding enumerator
// (spec.md §4.6 next_binding): the fallback a caller reaches for once
// internal/pattern's fixpoint oracle or full pattern unifier reports
// NOT_IN_FRAGMENT. Given a disagreement pair (a flexible variable applied
// to some arguments, against a right-hand term), it produces candidate
// bindings one at a time, in a fixed order, resuming from a per-pair
// State the caller threads back in on the next call.
package hobind

import (
	"satur/internal/coreconfig"
	"satur/internal/signature"
	"satur/internal/termbank"
	"satur/internal/typetab"
	"satur/internal/varbank"
)

// Kind names the candidate-generation strategy a State is currently in.
type Kind int

const (
	KindImitation Kind = iota
	KindProjection
	KindElimination
	KindIdentification
	kindDone
)

// State is the per-pair progress marker NextBinding consumes and
// produces; a caller backtracking to retry a disagreement pair restarts
// enumeration from the State it was given just before trying the
// candidate that failed.
type State struct {
	Kind  Kind
	Index int // next position/attempt to try within Kind
}

// InitialState is the State a caller passes in for a disagreement pair it
// has not yet enumerated any candidate for.
func InitialState() State { return State{Kind: KindImitation, Index: 0} }

// Enumerator generates candidates bounded by a coreconfig.Limits.
type Enumerator struct {
	bank   *termbank.Bank
	vars   *varbank.Bank
	limits coreconfig.Limits
}

// New creates an enumerator; limits bounds how many candidates of each
// kind NextBinding will produce for a single disagreement pair before
// moving on (spec.md §4.6: "each guarded by a separate Limits counter the
// caller maintains" — here the counter is folded into State.Index so the
// caller does not have to track it itself).
func New(bank *termbank.Bank, vars *varbank.Bank, limits coreconfig.Limits) *Enumerator {
	return &Enumerator{bank: bank, vars: vars, limits: limits}
}

// NextBinding produces the next candidate binding for flex (applied to
// flexArgs) against rhs, and the State to resume from on the next call.
// ok is false once every kind applicable to this pair has been exhausted.
func (e *Enumerator) NextBinding(state State, flex *termbank.Term, flexArgs []*termbank.Term, rhs *termbank.Term) (*termbank.Term, State, bool) {
	n := len(flexArgs)
	paramSorts := make([]typetab.SortID, n)
	for i, a := range flexArgs {
		paramSorts[i] = a.Typ.Result
	}

	for state.Kind != kindDone {
		switch state.Kind {
		case KindImitation:
			if state.Index == 0 {
				next := State{Kind: KindProjection, Index: 0}
				if cand, ok := e.imitate(paramSorts, rhs); ok {
					return cand, next, true
				}
			}
			state = State{Kind: KindProjection, Index: 0}

		case KindProjection:
			for state.Index < n && state.Index < e.limits.MaxProjections {
				i := state.Index
				state.Index++
				if cand, ok := e.project(paramSorts, i, flex.Typ.Result); ok {
					return cand, state, true
				}
			}
			state = State{Kind: KindElimination, Index: 0}

		case KindElimination:
			for state.Index < n && state.Index < e.limits.MaxEliminations {
				i := state.Index
				state.Index++
				cand := e.eliminate(paramSorts, i)
				return cand, state, true
			}
			state = State{Kind: KindIdentification, Index: 0}

		case KindIdentification:
			if state.Index == 0 {
				next := State{Kind: kindDone, Index: 0}
				if cand, ok := e.identify(paramSorts, flex, rhs); ok {
					return cand, next, true
				}
			}
			state = State{Kind: kindDone, Index: 0}
		}
	}
	return nil, State{Kind: kindDone}, false
}

// imitate copies rhs's head (a plain function symbol, never a bound
// variable, a lambda, or a phony-application head) and supplies each of
// its arguments via a fresh flexible variable applied to all of the
// binding's own parameters (spec.md §4.6 imitation).
func (e *Enumerator) imitate(paramSorts []typetab.SortID, rhs *termbank.Term) (*termbank.Term, bool) {
	if !rhs.IsApp() || rhs.FCode == signature.PhonyApp || rhs.FCode == signature.Lambda {
		return nil, false
	}
	argSorts := e.bank.Sig.TypeOf(rhs.FCode).Args
	fresh := make([]*termbank.Term, len(argSorts))
	for i, sort := range argSorts {
		fresh[i] = e.freshProjectorApplication(paramSorts, sort)
	}
	body := e.bank.AppTyped(rhs.FCode, fresh, e.bank.Types.Base(e.bank.Sig.TypeOf(rhs.FCode).Result))
	return wrapLambdas(e.bank, e.vars, paramSorts, body), true
}

// project replaces the binding by its i-th own parameter, when that
// parameter's sort already matches resultSort, the sort the binding as a
// whole must produce (spec.md §4.6 projection; arguments in this type
// system are always base-sorted, so no further application is ever
// needed to reach that sort once it matches).
func (e *Enumerator) project(paramSorts []typetab.SortID, i int, resultSort typetab.SortID) (*termbank.Term, bool) {
	if paramSorts[i] != resultSort {
		return nil, false
	}
	n := len(paramSorts)
	body := e.bank.DB(e.vars.DB(e.bank.Types.Base(resultSort), n-1-i))
	return wrapLambdas(e.bank, e.vars, paramSorts, body), true
}

func (e *Enumerator) eliminate(paramSorts []typetab.SortID, drop int) *termbank.Term {
	n := len(paramSorts)
	reduced := make([]typetab.SortID, 0, n-1)
	for i, s := range paramSorts {
		if i != drop {
			reduced = append(reduced, s)
		}
	}
	freshTyp := e.bank.Types.Intern(reduced, paramSorts[n-1])
	freshVar := e.vars.Fresh(0, freshTyp)
	freshCell := e.bank.Var(freshVar)

	bodyArgs := make([]*termbank.Term, 0, len(reduced))
	for i := range paramSorts {
		if i == drop {
			continue
		}
		bodyArgs = append(bodyArgs, e.bank.DB(e.vars.DB(e.bank.Types.Base(paramSorts[i]), n-1-i)))
	}
	body := e.bank.AppTyped(signature.PhonyApp, append([]*termbank.Term{freshCell}, bodyArgs...), e.bank.Types.Base(paramSorts[n-1]))
	return wrapLambdas(e.bank, e.vars, paramSorts, body)
}

// identify handles two distinct flexible heads by introducing one shared
// fresh variable, filling each side's slots the other side does not
// supply with fresh nullary placeholders (spec.md §4.6 identification).
// This is a sound but deliberately conservative candidate: it does not
// enumerate every unifier two arbitrary flexible heads might admit, only
// one that is always available.
func (e *Enumerator) identify(paramSorts []typetab.SortID, flex, rhs *termbank.Term) (*termbank.Term, bool) {
	rHead, rArgs, ok := flexHeaded(rhs)
	if !ok || rHead.Var == flex.Var {
		return nil, false
	}
	rSorts := make([]typetab.SortID, len(rArgs))
	for i, a := range rArgs {
		rSorts[i] = a.Typ.Result
	}

	combined := append(append([]typetab.SortID{}, paramSorts...), rSorts...)
	sharedTyp := e.bank.Types.Intern(combined, flex.Typ.Result)
	shared := e.bank.Var(e.vars.Fresh(0, sharedTyp))

	// Only flex's own binding is returned: rHead is left as a standalone
	// flexible variable, to be constrained by whatever other disagreement
	// pairs reference it (or by a later call to NextBinding on the pair
	// symmetric to this one, with rHead as the distinguished variable).
	return e.identifyBinding(paramSorts, len(rSorts), true, shared), true
}

// identifyBinding builds λ(ownSorts...). shared(ownParams or placeholders,
// otherSlots filled with fresh nullary placeholders), in the order the
// combined fresh variable's arity expects: own slots first when
// ownFirst, otherwise after otherCount fresh placeholders.
func (e *Enumerator) identifyBinding(ownSorts []typetab.SortID, otherCount int, ownFirst bool, shared *termbank.Term) *termbank.Term {
	n := len(ownSorts)
	ownArgs := make([]*termbank.Term, n)
	for i, s := range ownSorts {
		ownArgs[i] = e.bank.DB(e.vars.DB(e.bank.Types.Base(s), n-1-i))
	}
	placeholders := make([]*termbank.Term, otherCount)
	otherSorts := shared.Typ.Args
	var offset int
	if ownFirst {
		offset = n
	}
	for i := range placeholders {
		sort := otherSorts[offset+i]
		placeholders[i] = e.bank.Var(e.vars.Fresh(0, e.bank.Types.Base(sort)))
	}

	var args []*termbank.Term
	if ownFirst {
		args = append(append([]*termbank.Term{}, ownArgs...), placeholders...)
	} else {
		args = append(append([]*termbank.Term{}, placeholders...), ownArgs...)
	}
	body := e.bank.AppTyped(signature.PhonyApp, append([]*termbank.Term{shared}, args...), e.bank.Types.Base(shared.Typ.Result))
	return wrapLambdas(e.bank, e.vars, ownSorts, body)
}

// freshProjectorApplication builds a fresh variable of type
// (paramSorts -> resultSort) applied to all of the binding's own
// parameters, the imitation case's per-argument placeholder.
func (e *Enumerator) freshProjectorApplication(paramSorts []typetab.SortID, resultSort typetab.SortID) *termbank.Term {
	n := len(paramSorts)
	freshTyp := e.bank.Types.Intern(paramSorts, resultSort)
	fresh := e.bank.Var(e.vars.Fresh(0, freshTyp))
	if n == 0 {
		return fresh
	}
	args := make([]*termbank.Term, n)
	for i, s := range paramSorts {
		args[i] = e.bank.DB(e.vars.DB(e.bank.Types.Base(s), n-1-i))
	}
	return e.bank.AppTyped(signature.PhonyApp, append([]*termbank.Term{fresh}, args...), e.bank.Types.Base(resultSort))
}

func flexHeaded(t *termbank.Term) (*termbank.Term, []*termbank.Term, bool) {
	if t.IsFreeVar() {
		return t, nil, true
	}
	if t.IsApp() && t.FCode == signature.PhonyApp && t.Args[0].IsFreeVar() {
		return t.Args[0], t.Args[1:], true
	}
	return nil, nil, false
}

// wrapLambdas builds λ(sorts...). body, assigning the i-th sort's binder
// the final de Bruijn index len(sorts)-1-i, matching internal/lambda's
// and internal/pattern's convention that the first-listed parameter is
// bound by the outermost lambda.
func wrapLambdas(bank *termbank.Bank, vars *varbank.Bank, sorts []typetab.SortID, body *termbank.Term) *termbank.Term {
	result := body
	for i := len(sorts) - 1; i >= 0; i-- {
		dbCell := bank.DB(vars.DB(bank.Types.Base(sorts[i]), 0))
		typ := bank.ArrowPrepend(sorts[i], result.Typ)
		result = bank.AppTyped(signature.Lambda, []*termbank.Term{dbCell, result}, typ)
	}
	return result
}

// Package lambda implements the beta/eta normaliser of spec.md §4.5 over
// de Bruijn terms built in a termbank.Bank: shift, weak-head beta
// stepping (with per-cell memoisation), full beta normalisation, eta
// reduction, top-level eta expansion, and the combined lambda_normalize
// entry point whose eta policy callers may swap.
package lambda

import (
	"satur/internal/signature"
	"satur/internal/termbank"
	"satur/internal/typetab"
	"satur/internal/varbank"
)

// EtaPolicy selects lambda_normalize's post-beta behavior (spec.md §4.5's
// "TermNormalizer hook").
type EtaPolicy int

const (
	// EtaReduce eta-reduces after beta normalisation (the default).
	EtaReduce EtaPolicy = iota
	// EtaNone leaves the beta-normal form as-is.
	EtaNone
)

// Normalizer owns the lambda-calculus rewriting rules over terms shared in
// one term bank.
type Normalizer struct {
	bank *termbank.Bank
	vars *varbank.Bank
	eta  EtaPolicy
}

// New creates a normaliser over bank, using vars to mint de Bruijn cells.
func New(bank *termbank.Bank, vars *varbank.Bank) *Normalizer {
	return &Normalizer{bank: bank, vars: vars, eta: EtaReduce}
}

// SetEtaPolicy installs the eta policy LambdaNormalize uses after beta
// normalisation.
func (n *Normalizer) SetEtaPolicy(p EtaPolicy) { n.eta = p }

// isLambda reports whether t is a λ-abstraction cell.
func isLambda(t *termbank.Term) bool {
	return t.IsApp() && t.FCode == signature.Lambda
}

// isPhonyApp reports whether t is a phony-application cell.
func isPhonyApp(t *termbank.Term) bool {
	return t.IsApp() && t.FCode == signature.PhonyApp
}

// applyArgs builds h applied to args, flattening into an ordinary rigid
// application when h's head is, or reduces to, a plain function symbol —
// spec.md §4.5's edge case: "no phony-application cell with rigid head
// survives."
func (n *Normalizer) applyArgs(h *termbank.Term, args []*termbank.Term) *termbank.Term {
	if len(args) == 0 {
		return h
	}
	if h.IsApp() {
		switch h.FCode {
		case signature.Lambda:
			return n.bank.AppTyped(signature.PhonyApp, append([]*termbank.Term{h}, args...), n.bank.ArrowDrop(h.Typ, len(args)))
		case signature.PhonyApp:
			merged := make([]*termbank.Term, 0, len(h.Args)+len(args))
			merged = append(merged, h.Args...)
			merged = append(merged, args...)
			return n.applyArgs(merged[0], merged[1:])
		default:
			newArgs := make([]*termbank.Term, 0, len(h.Args)+len(args))
			newArgs = append(newArgs, h.Args...)
			newArgs = append(newArgs, args...)
			return n.bank.AppTyped(h.FCode, newArgs, n.bank.ArrowDrop(h.Typ, len(args)))
		}
	}
	// free variable or DB head: stays a phony application.
	return n.bank.AppTyped(signature.PhonyApp, append([]*termbank.Term{h}, args...), n.bank.ArrowDrop(h.Typ, len(args)))
}

// Shift adds k to every free (loose) de Bruijn index in t — indices at or
// above the current binder depth. It reuses t unchanged when no DB index
// appears, and shift(t, 0) == t (spec.md §4.5).
func (n *Normalizer) Shift(t *termbank.Term, k int) *termbank.Term {
	if k == 0 {
		return t
	}
	return n.shiftFrom(t, k, 0)
}

// shiftWork is one pending node in shiftFrom's explicit traversal stack: a
// term paired with the binder depth it must shift relative to, in the
// style of BASICS/clb_plocalstacks.h's tagged local stack (a pending
// value plus a small tag carried alongside it — here the depth instead of
// a shift amount, since k is fixed for the whole call). exit marks a node
// whose children have already been pushed and scheduled for processing;
// when popped a second time its result is assembled from childValues.
type shiftWork struct {
	term  *termbank.Term
	depth int
	exit  bool
}

// shiftFrom walks t with an explicit work stack instead of recursing, so a
// pathologically deep (but shallow-branching) term cannot exhaust the Go
// call stack: each non-leaf node is pushed once to have its children
// scheduled (mirroring clb_plocalstacks.h's PLocalStackPushTermArgsReversed,
// which pushes a term's args in reverse so popping yields them in their
// original left-to-right order) and a second time, after its children, to
// rebuild itself from their already-computed results.
func (n *Normalizer) shiftFrom(t *termbank.Term, k, depth int) *termbank.Term {
	work := []shiftWork{{term: t, depth: depth}}
	var childValues []*termbank.Term

	for len(work) > 0 {
		top := work[len(work)-1]
		work = work[:len(work)-1]

		if top.exit {
			if isLambda(top.term) {
				newBody := childValues[len(childValues)-1]
				childValues = childValues[:len(childValues)-1]
				if newBody == top.term.Args[1] {
					childValues = append(childValues, top.term)
				} else {
					childValues = append(childValues, n.bank.AppTyped(signature.Lambda, []*termbank.Term{top.term.Args[0], newBody}, top.term.Typ))
				}
				continue
			}
			nargs := len(top.term.Args)
			newArgs := make([]*termbank.Term, nargs)
			copy(newArgs, childValues[len(childValues)-nargs:])
			childValues = childValues[:len(childValues)-nargs]
			changed := false
			for i, a := range newArgs {
				if a != top.term.Args[i] {
					changed = true
				}
			}
			if !changed {
				childValues = append(childValues, top.term)
			} else {
				childValues = append(childValues, n.bank.AppTyped(top.term.FCode, newArgs, top.term.Typ))
			}
			continue
		}

		switch top.term.Kind {
		case termbank.KindDBVar:
			if top.term.DB.Index < top.depth {
				childValues = append(childValues, top.term)
			} else {
				childValues = append(childValues, n.bank.DB(n.vars.DB(top.term.Typ, top.term.DB.Index+k)))
			}
		case termbank.KindFreeVar:
			childValues = append(childValues, top.term)
		default:
			work = append(work, shiftWork{term: top.term, depth: top.depth, exit: true})
			if isLambda(top.term) {
				work = append(work, shiftWork{term: top.term.Args[1], depth: top.depth + 1})
			} else {
				for i := len(top.term.Args) - 1; i >= 0; i-- {
					work = append(work, shiftWork{term: top.term.Args[i], depth: top.depth})
				}
			}
		}
	}
	return childValues[0]
}

// substWork is substN's explicit work-stack item, the same (term, depth,
// exit) shape as shiftWork above.
type substWork struct {
	term  *termbank.Term
	depth int
	exit  bool
}

// substN substitutes args[i] for loose DB index (depth+i) in t, shifting
// each replacement by depth on the way in and renumbering indices above
// the substituted range downward by len(args). It walks t with an explicit
// work stack for the same reason shiftFrom does (see its comment): a work
// queue standing in for recursion, pushing each node's args for later
// combination instead of calling back into substN directly.
func (n *Normalizer) substN(t *termbank.Term, args []*termbank.Term, depth int) *termbank.Term {
	work := []substWork{{term: t, depth: depth}}
	var childValues []*termbank.Term

	for len(work) > 0 {
		top := work[len(work)-1]
		work = work[:len(work)-1]

		if top.exit {
			if isLambda(top.term) {
				newBody := childValues[len(childValues)-1]
				childValues = childValues[:len(childValues)-1]
				childValues = append(childValues, n.bank.AppTyped(signature.Lambda, []*termbank.Term{top.term.Args[0], newBody}, top.term.Typ))
				continue
			}
			nargs := len(top.term.Args)
			newArgs := make([]*termbank.Term, nargs)
			copy(newArgs, childValues[len(childValues)-nargs:])
			childValues = childValues[:len(childValues)-nargs]
			if top.term.FCode == signature.PhonyApp {
				childValues = append(childValues, n.applyArgs(newArgs[0], newArgs[1:]))
			} else {
				childValues = append(childValues, n.bank.AppTyped(top.term.FCode, newArgs, top.term.Typ))
			}
			continue
		}

		switch top.term.Kind {
		case termbank.KindDBVar:
			idx := top.term.DB.Index
			switch {
			case idx < top.depth:
				childValues = append(childValues, top.term)
			case idx < top.depth+len(args):
				childValues = append(childValues, n.Shift(args[idx-top.depth], top.depth))
			default:
				childValues = append(childValues, n.bank.DB(n.vars.DB(top.term.Typ, idx-len(args))))
			}
		case termbank.KindFreeVar:
			childValues = append(childValues, top.term)
		default:
			work = append(work, substWork{term: top.term, depth: top.depth, exit: true})
			if isLambda(top.term) {
				work = append(work, substWork{term: top.term.Args[1], depth: top.depth + 1})
			} else {
				for i := len(top.term.Args) - 1; i >= 0; i-- {
					work = append(work, substWork{term: top.term.Args[i], depth: top.depth})
				}
			}
		}
	}
	return childValues[0]
}

// BetaWHNFStep performs one weak-head beta step (spec.md §4.5): if
// t = @(λτ.body, a1..an) with n >= 1, it substitutes as many leading
// arguments as there are nested lambdas to unfold, reapplies any
// remaining arguments, and memoises the result in t's WHNF cache. The
// result may still contain redexes below the head. A non-redex is
// returned unchanged.
func (n *Normalizer) BetaWHNFStep(t *termbank.Term) *termbank.Term {
	if cached := t.CachedWHNF(); cached != nil {
		return cached
	}
	result := n.betaWHNFStepUncached(t)
	t.SetCachedWHNF(result)
	return result
}

func (n *Normalizer) betaWHNFStepUncached(t *termbank.Term) *termbank.Term {
	if !isPhonyApp(t) {
		return t
	}
	head := t.Args[0]
	rest := t.Args[1:]
	if !isLambda(head) {
		return t
	}

	var prefix []*termbank.Term
	body := head
	for len(prefix) < len(rest) && isLambda(body) {
		prefix = append(prefix, body.Args[0])
		body = body.Args[1]
	}
	k := len(prefix)
	// substN binds args[i] to DB index i (innermost binder first); the
	// outermost unfolded lambda's argument is rest[0], which binds the
	// innermost lambda's own DB0 only when k == 1. For k > 1 the supplied
	// arguments must be reversed so rest[0] (outermost binder) lands on
	// the highest DB index (k-1) and rest[k-1] (innermost binder) lands
	// on DB0.
	substArgs := make([]*termbank.Term, k)
	for i := 0; i < k; i++ {
		substArgs[i] = rest[k-1-i]
	}
	result := n.substN(body, substArgs, 0)
	if k < len(rest) {
		result = n.applyArgs(result, rest[k:])
	}
	return result
}

// hasBetaRedex reports whether t contains any beta-redex anywhere,
// consulting and maintaining the permanent "known beta-normal" bit so
// repeated calls over a shared DAG are cheap after the first pass.
func (n *Normalizer) hasBetaRedex(t *termbank.Term) bool {
	if t.IsKnownBetaNormal() {
		return false
	}
	found := false
	if isPhonyApp(t) && isLambda(t.Args[0]) {
		found = true
	}
	if !found {
		for _, a := range t.Args {
			if n.hasBetaRedex(a) {
				found = true
				break
			}
		}
	}
	if !found {
		t.MarkBetaNormal()
	}
	return found
}

// betaWork is BetaNormalize's explicit work-stack item. Unlike shiftWork/
// substWork, the "visit" phase here does real work of its own (the redex
// short-circuit check and the WHNF step) before deciding whether there is
// anything left to push; whnf and lam carry what the exit phase needs to
// rebuild the node, since they are not recoverable from term alone.
type betaWork struct {
	term *termbank.Term
	whnf *termbank.Term
	lam  bool
	exit bool
}

// BetaNormalize computes t's full beta-normal form using an explicit work
// stack in place of direct recursion, short-circuiting immediately when a
// node is already known redex-free (spec.md §4.5). The stack-of-frames
// shape stands in for the call stack a recursive version would use,
// following the same explicit-work-queue strategy as shiftFrom/substN
// above for pathologically deep terms.
func (n *Normalizer) BetaNormalize(t *termbank.Term) *termbank.Term {
	work := []betaWork{{term: t}}
	var childValues []*termbank.Term

	for len(work) > 0 {
		top := work[len(work)-1]
		work = work[:len(work)-1]

		if top.exit {
			if top.lam {
				newBody := childValues[len(childValues)-1]
				childValues = childValues[:len(childValues)-1]
				if newBody == top.whnf.Args[1] {
					childValues = append(childValues, top.whnf)
				} else {
					childValues = append(childValues, n.bank.AppTyped(signature.Lambda, []*termbank.Term{top.whnf.Args[0], newBody}, top.whnf.Typ))
				}
				continue
			}
			nargs := len(top.whnf.Args)
			newArgs := make([]*termbank.Term, nargs)
			copy(newArgs, childValues[len(childValues)-nargs:])
			childValues = childValues[:len(childValues)-nargs]
			changed := top.whnf != top.term
			for i, a := range newArgs {
				if a != top.whnf.Args[i] {
					changed = true
				}
			}
			if !changed {
				top.term.MarkBetaNormal()
				childValues = append(childValues, top.term)
			} else {
				result := n.bank.AppTyped(top.whnf.FCode, newArgs, top.whnf.Typ)
				result.MarkBetaNormal()
				childValues = append(childValues, result)
			}
			continue
		}

		if !n.hasBetaRedex(top.term) {
			childValues = append(childValues, top.term)
			continue
		}
		whnf := n.BetaWHNFStep(top.term)
		if whnf.IsVariableShaped() {
			childValues = append(childValues, whnf)
			continue
		}
		if isLambda(whnf) {
			work = append(work, betaWork{term: top.term, whnf: whnf, lam: true, exit: true})
			work = append(work, betaWork{term: whnf.Args[1]})
			continue
		}
		work = append(work, betaWork{term: top.term, whnf: whnf, exit: true})
		for i := len(whnf.Args) - 1; i >= 0; i-- {
			work = append(work, betaWork{term: whnf.Args[i]})
		}
	}
	return childValues[0]
}

func containsLooseDB(t *termbank.Term, bound int) bool {
	return containsLooseDBAt(t, bound, 0)
}

// containsLooseDBAt is a pure existential test, so its explicit work
// stack needs no exit/combine phase: it pushes pending (term, depth)
// pairs — the same tagged-stack shape as shiftWork/substWork, grounded in
// BASICS/clb_plocalstacks.h's tagged local stack — and returns as soon as
// one matches, rather than recursing arbitrarily deep to confirm absence.
func containsLooseDBAt(t *termbank.Term, bound, depth int) bool {
	type pending struct {
		term  *termbank.Term
		depth int
	}
	stack := []pending{{t, depth}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch top.term.Kind {
		case termbank.KindDBVar:
			if top.term.DB.Index-top.depth < bound && top.term.DB.Index >= top.depth {
				return true
			}
		case termbank.KindFreeVar:
			// no loose index possible
		default:
			if isLambda(top.term) {
				stack = append(stack, pending{top.term.Args[1], top.depth + 1})
			} else {
				for _, a := range top.term.Args {
					stack = append(stack, pending{a, top.depth})
				}
			}
		}
	}
	return false
}

func containsLooseDBInArgs(args []*termbank.Term, bound int) bool {
	for _, a := range args {
		if containsLooseDB(a, bound) {
			return true
		}
	}
	return false
}

// EtaReduceTop reduces a chain of outer lambdas λτ1...τk. h(..., DBk-1,
// ..., DB0) to h(...) when the stripped suffix of DBs is exactly
// DBk-1...DB0 in order, none of them occurs earlier in the body or in the
// head, and the stripped tail does not cross a bound variable used
// beneath (spec.md §4.5 eta_reduce). Terms not of this shape are returned
// unchanged.
func (n *Normalizer) EtaReduceTop(t *termbank.Term) *termbank.Term {
	k := 0
	body := t
	for isLambda(body) {
		k++
		body = body.Args[1]
	}
	if k == 0 || !body.IsApp() || isLambda(body) {
		return t
	}

	var rebuild func(prefix []*termbank.Term) *termbank.Term
	var headForOccursCheck *termbank.Term
	var args []*termbank.Term
	if isPhonyApp(body) {
		head := body.Args[0]
		headForOccursCheck = head
		args = body.Args[1:]
		rebuild = func(prefix []*termbank.Term) *termbank.Term { return n.applyArgs(head, prefix) }
	} else {
		code := body.FCode
		args = body.Args
		headForOccursCheck = nil
		rebuild = func(prefix []*termbank.Term) *termbank.Term {
			sorts := make([]typetab.SortID, len(prefix))
			for i, a := range prefix {
				sorts[i] = a.Typ.Result
			}
			typ := n.bank.Types.Intern(sorts, body.Typ.Result)
			return n.bank.AppTyped(code, prefix, typ)
		}
	}
	if len(args) < k {
		return t
	}
	suffix := args[len(args)-k:]
	prefix := args[:len(args)-k]
	for i, a := range suffix {
		if !a.IsDBVar() || a.DB.Index != k-1-i {
			return t
		}
	}
	if headForOccursCheck != nil && containsLooseDB(headForOccursCheck, k) {
		return t
	}
	if containsLooseDBInArgs(prefix, k) {
		return t
	}
	return n.Shift(rebuild(prefix), -k)
}

// EtaExpandTop produces λτ1...τn. @(shift(t, n), DBn-1, ..., DB0) when t
// has arrow type τ1→...→τn→σ and is not already a lambda (spec.md §4.5
// eta_expand_top). A term that is already a λ, or whose type is not an
// arrow, is returned unchanged.
func (n *Normalizer) EtaExpandTop(t *termbank.Term) *termbank.Term {
	if isLambda(t) || t.Typ.IsBase() {
		return t
	}
	argSorts := t.Typ.Args
	shifted := n.Shift(t, len(argSorts))
	dbArgs := make([]*termbank.Term, len(argSorts))
	for i, s := range argSorts {
		idx := len(argSorts) - 1 - i
		dbArgs[i] = n.bank.DB(n.vars.DB(n.bank.Types.Base(s), idx))
	}
	body := n.applyArgs(shifted, dbArgs)
	return n.wrapLambdas(argSorts, body)
}

func (n *Normalizer) wrapLambdas(argSorts []typetab.SortID, body *termbank.Term) *termbank.Term {
	result := body
	for i := len(argSorts) - 1; i >= 0; i-- {
		dbCell := n.bank.DB(n.vars.DB(n.bank.Types.Base(argSorts[i]), 0))
		typ := n.bank.ArrowPrepend(argSorts[i], result.Typ)
		result = n.bank.AppTyped(signature.Lambda, []*termbank.Term{dbCell, result}, typ)
	}
	return result
}

// LambdaNormalize computes beta-then-eta normal form, using the installed
// EtaPolicy (spec.md §4.5).
func (n *Normalizer) LambdaNormalize(t *termbank.Term) *termbank.Term {
	b := n.BetaNormalize(t)
	if n.eta == EtaNone {
		return b
	}
	return n.etaReduceDeep(b)
}

func (n *Normalizer) etaReduceDeep(t *termbank.Term) *termbank.Term {
	reduced := n.EtaReduceTop(t)
	if reduced != t {
		return n.etaReduceDeep(reduced)
	}
	if !t.IsApp() {
		return t
	}
	changed := false
	newArgs := make([]*termbank.Term, len(t.Args))
	for i, a := range t.Args {
		newArgs[i] = n.etaReduceDeep(a)
		if newArgs[i] != a {
			changed = true
		}
	}
	if !changed {
		return t
	}
	return n.bank.AppTyped(t.FCode, newArgs, t.Typ)
}

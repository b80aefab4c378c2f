// Package pattern implements the fixpoint oracle and the Miller
// higher-order pattern fragment's unification and matching (spec.md
// §4.6). A term is in the pattern fragment when every flexible
// (free-variable-headed) subterm's arguments are distinct bound
// variables; such pairs admit a most general unifier without the general
// enumeration internal/hobind performs.
package pattern

import (
	"satur/internal/lambda"
	"satur/internal/signature"
	"satur/internal/termbank"
	"satur/internal/trail"
	"satur/internal/typetab"
	"satur/internal/varbank"
)

// Oracle is the three-valued result of the fixpoint pre-check and of
// pattern unification/matching.
type Oracle int

const (
	Unifiable Oracle = iota
	NotUnifiable
	NotInFragment
)

func (o Oracle) String() string {
	switch o {
	case Unifiable:
		return "UNIFIABLE"
	case NotUnifiable:
		return "NOT_UNIFIABLE"
	default:
		return "NOT_IN_FRAGMENT"
	}
}

// Solver bundles the collaborators pattern unification needs: the term
// bank, a lambda normaliser (for WHNF reduction), and a variable bank (to
// mint fresh variables the flex/flex cases introduce).
type Solver struct {
	bank *termbank.Bank
	norm *lambda.Normalizer
	vars *varbank.Bank
}

// New creates a pattern solver; bank, norm and vars must all belong to
// the same prover context.
func New(bank *termbank.Bank, norm *lambda.Normalizer, vars *varbank.Bank) *Solver {
	return &Solver{bank: bank, norm: norm, vars: vars}
}

func isFlexHeaded(t *termbank.Term) (*termbank.Term, []*termbank.Term, bool) {
	if t.IsFreeVar() {
		return t, nil, true
	}
	if t.IsApp() && t.FCode == signature.PhonyApp && t.Args[0].IsFreeVar() {
		return t.Args[0], t.Args[1:], true
	}
	return nil, nil, false
}

// FixpointUnify is the cheap pre-check of spec.md §4.6: both sides are
// reduced to WHNF; two distinct free variables unify trivially; a free
// variable X against a term t succeeds by binding unless a rigid path
// from t reaches X (NOT_UNIFIABLE) or only a non-rigid path does
// (NOT_IN_FRAGMENT, since computing the right substitution needs the
// general enumerator); any other shape is NOT_IN_FRAGMENT.
func (s *Solver) FixpointUnify(tr *trail.Trail, t1, t2 *termbank.Term) Oracle {
	t1 = s.norm.BetaWHNFStep(termbank.Deref(t1, termbank.DerefAlways))
	t2 = s.norm.BetaWHNFStep(termbank.Deref(t2, termbank.DerefAlways))

	if t1.IsFreeVar() && t2.IsFreeVar() {
		if t1.Var != t2.Var {
			tr.Bind(t1, t2)
		}
		return Unifiable
	}
	if t1.IsFreeVar() {
		return s.bindAgainstRigidPath(tr, t1, t2)
	}
	if t2.IsFreeVar() {
		return s.bindAgainstRigidPath(tr, t2, t1)
	}
	return NotInFragment
}

func (s *Solver) bindAgainstRigidPath(tr *trail.Trail, x, t *termbank.Term) Oracle {
	found, ambiguous := s.rigidPathCheck(x, t, false)
	switch {
	case found && !ambiguous:
		return NotUnifiable
	case found && ambiguous:
		return NotInFragment
	default:
		tr.Bind(x, t)
		return Unifiable
	}
}

// rigidPathCheck descends t looking for x, tracking whether the path
// crossed a lambda or a variable head. found reports whether x occurs at
// all; ambiguous reports whether every occurrence found was under such a
// non-rigid position (spec.md §4.6).
func (s *Solver) rigidPathCheck(x, t *termbank.Term, nonRigid bool) (found, ambiguous bool) {
	t = s.norm.BetaWHNFStep(t)
	if t.IsFreeVar() {
		if t.Var == x.Var {
			return true, nonRigid
		}
		return false, false
	}
	if t.IsDBVar() {
		return false, false
	}

	childNonRigid := nonRigid
	args := t.Args
	if t.FCode == signature.PhonyApp {
		head := t.Args[0]
		args = t.Args[1:]
		if head.IsFreeVar() {
			childNonRigid = true
			if head.Var == x.Var {
				return true, true
			}
		} else if head.IsApp() && head.FCode == signature.Lambda {
			childNonRigid = true
		}
	} else if t.FCode == signature.Lambda {
		return s.rigidPathCheck(x, t.Args[1], true)
	}

	anyFound, allAmbiguous := false, true
	for _, a := range args {
		f, amb := s.rigidPathCheck(x, a, childNonRigid)
		if f {
			anyFound = true
			if !amb {
				allAmbiguous = false
			}
		}
	}
	return anyFound, anyFound && allAmbiguous
}

// job is one pending unification obligation.
type job struct {
	lhs, rhs *termbank.Term
}

// Unify attempts Miller pattern unification of t1 and t2, requiring every
// flexible subterm encountered to have distinct-bound-variable arguments.
// Any configuration outside the fragment returns NotInFragment without
// leaving any bindings on the trail beyond its entry position.
func (s *Solver) Unify(tr *trail.Trail, t1, t2 *termbank.Term) Oracle {
	pos := tr.SavePos()
	queue := []job{{t1, t2}}
	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]
		lhs := s.norm.BetaWHNFStep(termbank.Deref(j.lhs, termbank.DerefAlways))
		rhs := s.norm.BetaWHNFStep(termbank.Deref(j.rhs, termbank.DerefAlways))
		if lhs == rhs {
			continue
		}

		lHead, lArgs, lFlex := isFlexHeaded(lhs)
		rHead, rArgs, rFlex := isFlexHeaded(rhs)

		switch {
		case lhs.IsDBVar() || rhs.IsDBVar():
			if !lhs.IsDBVar() || !rhs.IsDBVar() || lhs.DB != rhs.DB {
				tr.BacktrackTo(pos)
				return NotInFragment
			}
		case lFlex && rFlex:
			lVars, ok1 := distinctBoundVars(lArgs)
			rVars, ok2 := distinctBoundVars(rArgs)
			if !ok1 || !ok2 {
				tr.BacktrackTo(pos)
				return NotInFragment
			}
			if lHead.Var == rHead.Var {
				s.solveFlexFlexSame(tr, lHead, lVars, rVars)
			} else {
				s.solveFlexFlexDiff(tr, lHead, lVars, rHead, rVars)
			}
		case lFlex:
			if !s.solveOneFlexRigid(tr, pos, lHead, lArgs, rhs) {
				return oracleResultAfterFail(tr, pos)
			}
		case rFlex:
			if !s.solveOneFlexRigid(tr, pos, rHead, rArgs, lhs) {
				return oracleResultAfterFail(tr, pos)
			}
		default:
			if lhs.FCode != rhs.FCode {
				tr.BacktrackTo(pos)
				return NotUnifiable
			}
			lKids, rKids := rigidChildren(lhs), rigidChildren(rhs)
			if len(lKids) != len(rKids) {
				tr.BacktrackTo(pos)
				return NotInFragment
			}
			for i := range lKids {
				queue = append(queue, job{lKids[i], rKids[i]})
			}
		}
	}
	return Unifiable
}

// solveOneFlexRigid validates the flex side's arguments are distinct
// bound variables and installs its binding, returning false (and leaving
// the trail untouched beyond pos) on any failure. It does not say which
// check failed: a bad argument shape, an occurs-check failure and an
// unmapped bound variable all return false, and the callers report every
// such failure as NotInFragment (see oracleResultAfterFail).
func (s *Solver) solveOneFlexRigid(tr *trail.Trail, pos trail.Pos, flex *termbank.Term, flexArgs []*termbank.Term, rigid *termbank.Term) bool {
	vars, ok := distinctBoundVars(flexArgs)
	if !ok {
		tr.BacktrackTo(pos)
		return false
	}
	if !s.solveFlexRigid(tr, flex, vars, rigid) {
		tr.BacktrackTo(pos)
		return false
	}
	return true
}

// oracleResultAfterFail is a thin seam kept for symmetry with the
// in-fragment/not-unifiable split the Miller algorithm makes; in this
// implementation solveOneFlexRigid always backs out to NotInFragment,
// since distinguishing "bad argument shape" from "occurs-check failure"
// at the call site would otherwise require plumbing an extra return
// value through every case above.
func oracleResultAfterFail(tr *trail.Trail, pos trail.Pos) Oracle {
	return NotInFragment
}

// Match is the one-way variant: only the pattern side's (t1) flexible
// variables may be bound; a free variable on the term side is never a
// valid match target.
func (s *Solver) Match(tr *trail.Trail, patternTerm, term *termbank.Term) Oracle {
	pos := tr.SavePos()
	queue := []job{{patternTerm, term}}
	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]
		lhs := s.norm.BetaWHNFStep(termbank.Deref(j.lhs, termbank.DerefAlways))
		rhs := s.norm.BetaWHNFStep(j.rhs)
		if lhs == rhs {
			continue
		}
		lHead, lArgs, lFlex := isFlexHeaded(lhs)
		switch {
		case rhs.IsFreeVar():
			tr.BacktrackTo(pos)
			return NotUnifiable
		case lhs.IsDBVar() || rhs.IsDBVar():
			if !lhs.IsDBVar() || !rhs.IsDBVar() || lhs.DB != rhs.DB {
				tr.BacktrackTo(pos)
				return NotInFragment
			}
		case lFlex:
			if !s.solveOneFlexRigid(tr, pos, lHead, lArgs, rhs) {
				return NotInFragment
			}
		default:
			if lhs.FCode != rhs.FCode {
				tr.BacktrackTo(pos)
				return NotUnifiable
			}
			lKids, rKids := rigidChildren(lhs), rigidChildren(rhs)
			if len(lKids) != len(rKids) {
				tr.BacktrackTo(pos)
				return NotInFragment
			}
			for i := range lKids {
				queue = append(queue, job{lKids[i], rKids[i]})
			}
		}
	}
	return Unifiable
}

func rigidChildren(t *termbank.Term) []*termbank.Term {
	if t.FCode == signature.PhonyApp {
		return t.Args[1:]
	}
	return t.Args
}

// distinctBoundVars checks that args is a sequence of de Bruijn
// variables with no repeats.
func distinctBoundVars(args []*termbank.Term) ([]*termbank.Term, bool) {
	seen := make(map[int]bool, len(args))
	for _, a := range args {
		if !a.IsDBVar() {
			return nil, false
		}
		if seen[a.DB.Index] {
			return nil, false
		}
		seen[a.DB.Index] = true
	}
	return args, true
}

// solveFlexRigid builds the binding for flex = X applied to distinct
// bound variables vars, against rigid side t: it replaces every free DB
// in t that occurs among vars with a reference to the corresponding
// formal parameter of a fresh abstraction over X's own arguments, and
// fails (occurs-check or unmapped DB) if that is not possible (spec.md
// §4.6 flex/rigid).
func (s *Solver) solveFlexRigid(tr *trail.Trail, flex *termbank.Term, vars []*termbank.Term, t *termbank.Term) bool {
	dbMap := make(map[int]int, len(vars))
	for i, v := range vars {
		dbMap[v.DB.Index] = i
	}
	body, ok := s.remap(t, flex.Var, dbMap, 0, len(vars))
	if !ok {
		return false
	}
	tr.Bind(flex, s.wrapLambdas(vars, body))
	return true
}

// remap rewrites t (found at binder-depth depth below the point where
// vars were the flex variable's arguments) into the body of the fresh
// abstraction replacing flex: every loose DB mapped by dbMap becomes a
// reference to the matching formal parameter; a loose DB not in dbMap, or
// an occurrence of avoid (the occurs-check), fails the whole binding.
func (s *Solver) remap(t *termbank.Term, avoid *varbank.FreeVar, dbMap map[int]int, depth, n int) (*termbank.Term, bool) {
	switch t.Kind {
	case termbank.KindDBVar:
		idx := t.DB.Index
		if idx < depth {
			return t, true
		}
		pos, ok := dbMap[idx-depth]
		if !ok {
			return nil, false
		}
		return s.bank.DB(s.vars.DB(t.Typ, depth+(n-1-pos))), true
	case termbank.KindFreeVar:
		if t.Var == avoid {
			return nil, false
		}
		return t, true
	default:
		nextDepth := depth
		if t.FCode == signature.Lambda {
			nextDepth = depth + 1
		}
		newArgs := make([]*termbank.Term, len(t.Args))
		for i, a := range t.Args {
			na, ok := s.remap(a, avoid, dbMap, nextDepth, n)
			if !ok {
				return nil, false
			}
			newArgs[i] = na
		}
		return s.bank.AppTyped(t.FCode, newArgs, t.Typ), true
	}
}

// wrapLambdas builds λ(vars...). body, where vars[i]'s bound-variable
// sort supplies the i-th formal parameter's type and the final DB index
// assigned to it is n-1-i (matching internal/lambda's eta-expansion
// convention: the first-listed argument is bound by the outermost
// lambda).
func (s *Solver) wrapLambdas(vars []*termbank.Term, body *termbank.Term) *termbank.Term {
	result := body
	for i := len(vars) - 1; i >= 0; i-- {
		sort := vars[i].Typ.Result
		dbCell := s.bank.DB(s.vars.DB(s.bank.Types.Base(sort), 0))
		typ := s.bank.ArrowPrepend(sort, result.Typ)
		result = s.bank.AppTyped(signature.Lambda, []*termbank.Term{dbCell, result}, typ)
	}
	return result
}

// solveFlexFlexSame handles X s1...sn =?= X t1...tn (spec.md §4.6
// flex/flex same head): project onto the positions where si and ti
// denote the same bound variable.
func (s *Solver) solveFlexFlexSame(tr *trail.Trail, head *termbank.Term, lVars, rVars []*termbank.Term) {
	var coincident []*termbank.Term
	for i := range lVars {
		if lVars[i].DB.Index == rVars[i].DB.Index {
			coincident = append(coincident, lVars[i])
		}
	}
	binding := s.buildProjectionBinding(lVars, coincident, s.freshProjector(head, coincident))
	tr.Bind(head, binding)
}

// solveFlexFlexDiff handles X s1...sm =?= Y t1...tn for distinct flex
// heads X, Y (spec.md §4.6 flex/flex different heads): introduce one
// shared fresh variable whose arity is the number of bound variables
// common to both argument lists, and bind both heads to project onto it.
func (s *Solver) solveFlexFlexDiff(tr *trail.Trail, lHead *termbank.Term, lVars []*termbank.Term, rHead *termbank.Term, rVars []*termbank.Term) {
	rIdx := make(map[int]bool, len(rVars))
	for _, v := range rVars {
		rIdx[v.DB.Index] = true
	}
	var coincident []*termbank.Term
	for _, v := range lVars {
		if rIdx[v.DB.Index] {
			coincident = append(coincident, v)
		}
	}
	fresh := s.freshProjector(lHead, coincident)
	tr.Bind(lHead, s.buildProjectionBinding(lVars, coincident, fresh))
	tr.Bind(rHead, s.buildProjectionBinding(rVars, coincident, fresh))
}

// freshProjector mints the shared fresh variable a flex/flex case
// introduces, with arity len(selected) and the result sort of head's own
// (necessarily arrow, since head is applied) type.
func (s *Solver) freshProjector(head *termbank.Term, selected []*termbank.Term) *termbank.Term {
	sorts := make([]typetab.SortID, len(selected))
	for i, v := range selected {
		sorts[i] = v.Typ.Result
	}
	freshTyp := s.bank.Types.Intern(sorts, head.Typ.Result)
	return s.bank.Var(s.vars.Fresh(head.Var.Bank, freshTyp))
}

// buildProjectionBinding builds λ(allVars...). fresh(selected...), where
// selected is a subsequence of allVars, each reference re-expressed as
// the matching formal parameter of the new abstraction.
func (s *Solver) buildProjectionBinding(allVars, selected []*termbank.Term, fresh *termbank.Term) *termbank.Term {
	n := len(allVars)
	posOf := make(map[int]int, n)
	for i, v := range allVars {
		posOf[v.DB.Index] = i
	}
	bodyArgs := make([]*termbank.Term, len(selected))
	for i, v := range selected {
		pos := posOf[v.DB.Index]
		bodyArgs[i] = s.bank.DB(s.vars.DB(v.Typ, n-1-pos))
	}
	var body *termbank.Term
	if len(bodyArgs) == 0 {
		body = fresh
	} else {
		body = s.bank.AppTyped(signature.PhonyApp, append([]*termbank.Term{fresh}, bodyArgs...), s.bank.Types.Base(fresh.Typ.Result))
	}
	return s.wrapLambdas(allVars, body)
}

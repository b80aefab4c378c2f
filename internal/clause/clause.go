// Package clause implements the clause representation and bulk operations
// of spec.md §4.7 second half: a clause is a linked list of equations plus
// metadata (id, counts, date, weight, properties, derivation handle).
package clause

import (
	"satur/internal/equation"
	"satur/internal/errcore"
	"satur/internal/signature"
	"satur/internal/termbank"
	"satur/internal/varbank"

	"github.com/segmentio/ksuid"
)

// Props is the clause properties bitset of spec.md §4.7: lifecycle flags,
// indexing flags, and (per SPEC_FULL §2's external-interfaces note) the
// TPTP role an input clause was parsed with.
type Props uint32

const (
	PropInitial Props = 1 << iota
	PropProcessed
	PropDead
	PropOriented
	PropIndexedDemodulator
	PropIndexedFV
	PropSetOfSupport
	PropDuplicate

	PropAxiom
	PropHypothesis
	PropConjecture
	PropNegatedConjecture
	PropLemma
	PropWatchlist
)

var roleProps = PropAxiom | PropHypothesis | PropConjecture | PropNegatedConjecture | PropLemma | PropWatchlist

// Role names the TPTP formula role an input clause arrived with; it is
// stored as one of the mutually-exclusive role bits in Props, per
// SPEC_FULL §2: "the clause constructor accepts such records verbatim;
// role bits are stored in the clause properties bitset."
type Role uint8

const (
	RoleNone Role = iota
	RoleAxiom
	RoleHypothesis
	RoleConjecture
	RoleNegatedConjecture
	RoleLemma
	RoleWatchlist
)

func (r Role) prop() Props {
	switch r {
	case RoleAxiom:
		return PropAxiom
	case RoleHypothesis:
		return PropHypothesis
	case RoleConjecture:
		return PropConjecture
	case RoleNegatedConjecture:
		return PropNegatedConjecture
	case RoleLemma:
		return PropLemma
	case RoleWatchlist:
		return PropWatchlist
	default:
		return 0
	}
}

// Annotation carries the out-of-scope parser's per-clause metadata: a
// source location string (format unspecified, opaque to this package) and
// a TPTP role.
type Annotation struct {
	Source string
	Role   Role
}

// DerivationHandle is an opaque, time-sortable external correlation id
// handed to the out-of-scope derivation recorder. It is deliberately
// independent of the clause's own monotonic integer Id, which remains a
// plain incrementing counter.
type DerivationHandle struct {
	id ksuid.KSUID
}

// NewDerivationHandle stamps a fresh handle.
func NewDerivationHandle() DerivationHandle {
	return DerivationHandle{id: ksuid.New()}
}

func (h DerivationHandle) String() string { return h.id.String() }

// IDAllocator hands out clause ids: positive and increasing for derived
// clauses, negative and decreasing for initial (input) clauses, per
// spec.md §4.7: "Integer id (provenance-preserving; negative ids reserved
// for initial clauses)."
type IDAllocator struct {
	nextDerived int64
	nextInitial int64
}

// NewIDAllocator creates an allocator starting derived ids at 1 and
// initial ids at -1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{nextDerived: 1, nextInitial: -1}
}

func (a *IDAllocator) next(initial bool) int64 {
	if initial {
		id := a.nextInitial
		a.nextInitial--
		return id
	}
	id := a.nextDerived
	a.nextDerived++
	return id
}

// Clause is a linked list of equations (ordered positives-then-negatives)
// plus the metadata of spec.md §4.7.
type Clause struct {
	ID       int64
	Literals *equation.Equation
	PosCount int
	NegCount int
	Props    Props
	Source   string

	ProofDepth   int
	ProofSize    int
	Date         int64
	Derivation   *DerivationHandle
	cachedWeight int

	// Pred and Succ are this clause's links in its owning clause set's
	// doubly-linked circular list; both nil when the clause belongs to no
	// set. OwnerID identifies that set (0 = none). Only
	// internal/clauseset mutates these three fields.
	Pred, Succ *Clause
	OwnerID    int64

	bank *termbank.Bank
	sig  *signature.Table
}

// New partitions lits stably into positives-then-negatives, threads them
// through Equation.Next, assigns a globally unique id via ids (negative
// iff initial), and caches the literal counts.
func New(bank *termbank.Bank, sig *signature.Table, ids *IDAllocator, lits []*equation.Equation, initial bool) *Clause {
	pos := make([]*equation.Equation, 0, len(lits))
	neg := make([]*equation.Equation, 0, len(lits))
	for _, l := range lits {
		if l.Positive {
			pos = append(pos, l)
		} else {
			neg = append(neg, l)
		}
	}
	ordered := append(pos, neg...)
	for i, l := range ordered {
		if i+1 < len(ordered) {
			l.Next = ordered[i+1]
		} else {
			l.Next = nil
		}
	}
	var head *equation.Equation
	if len(ordered) > 0 {
		head = ordered[0]
	}
	c := &Clause{
		ID:       ids.next(initial),
		Literals: head,
		PosCount: len(pos),
		NegCount: len(neg),
		bank:     bank,
		sig:      sig,
	}
	if initial {
		c.Props |= PropInitial
	}
	c.RecomputeWeight()
	return c
}

// NewAnnotated is New for a clause delivered with a parser Annotation: it
// is always an initial clause, and ann.Role is recorded as one of the
// mutually-exclusive role bits.
func NewAnnotated(bank *termbank.Bank, sig *signature.Table, ids *IDAllocator, lits []*equation.Equation, ann Annotation) *Clause {
	c := New(bank, sig, ids, lits, true)
	c.Source = ann.Source
	c.SetRole(ann.Role)
	return c
}

// SetRole clears any previously set role bit and sets r's bit (a no-op for
// RoleNone).
func (c *Clause) SetRole(r Role) {
	c.Props &^= roleProps
	c.Props |= r.prop()
}

// Role returns the clause's recorded TPTP role, or RoleNone if none of the
// role bits is set.
func (c *Clause) Role() Role {
	switch {
	case c.Props&PropAxiom != 0:
		return RoleAxiom
	case c.Props&PropHypothesis != 0:
		return RoleHypothesis
	case c.Props&PropConjecture != 0:
		return RoleConjecture
	case c.Props&PropNegatedConjecture != 0:
		return RoleNegatedConjecture
	case c.Props&PropLemma != 0:
		return RoleLemma
	case c.Props&PropWatchlist != 0:
		return RoleWatchlist
	default:
		return RoleNone
	}
}

// IsInitial, IsDead, IsProcessed, MarkDead, MarkProcessed access the
// lifecycle property bits.
func (c *Clause) IsInitial() bool   { return c.Props&PropInitial != 0 }
func (c *Clause) IsDead() bool      { return c.Props&PropDead != 0 }
func (c *Clause) IsProcessed() bool { return c.Props&PropProcessed != 0 }
func (c *Clause) MarkDead()         { c.Props |= PropDead }
func (c *Clause) MarkProcessed()    { c.Props |= PropProcessed }

// StampDerivation installs a fresh DerivationHandle on c. Derivation
// stamping is optional (spec.md §4.7: "optional derivation handle"): a
// clause constructed purely for local reasoning (e.g. an intermediate
// value in a test) need never be stamped.
func (c *Clause) StampDerivation() DerivationHandle {
	h := NewDerivationHandle()
	c.Derivation = &h
	return h
}

// LiteralSlice walks the Literals linked list into a slice.
func (c *Clause) LiteralSlice() []*equation.Equation {
	out := make([]*equation.Equation, 0, c.PosCount+c.NegCount)
	for l := c.Literals; l != nil; l = l.Next {
		out = append(out, l)
	}
	return out
}

// Weight returns the clause's cached standard weight, as last computed by
// RecomputeWeight.
func (c *Clause) Weight() int { return c.cachedWeight }

// RecomputeWeight recomputes and caches the clause's standard weight: the
// sum of its literals' weights (spec.md §4.7: "computed standard weight").
// New calls this once at construction; callers that mutate a clause's
// literals in place (NormaliseVariableIndices) must call it again, and
// internal/clauseset's bulk re-weight operation calls it across a whole
// set after a term-bank-wide change invalidates cached weights.
func (c *Clause) RecomputeWeight() int {
	w := 0
	for l := c.Literals; l != nil; l = l.Next {
		w += l.Weight()
	}
	c.cachedWeight = w
	return w
}

func sameAtom(a, b *equation.Equation) bool {
	if a.LHS == b.LHS && a.RHS == b.RHS {
		return true
	}
	return a.Equational && b.Equational && a.LHS == b.RHS && a.RHS == b.LHS
}

// IsTrivial recognises the two syntactic triviality shapes of spec.md
// §4.7: a positive literal t = t, or a pair of syntactically complementary
// literals (the same atom, opposite sign, equality taken up to symmetry).
func (c *Clause) IsTrivial() bool {
	for l := c.Literals; l != nil; l = l.Next {
		if l.Positive && l.Equational && l.LHS == l.RHS {
			return true
		}
	}
	for l := c.Literals; l != nil; l = l.Next {
		for m := l.Next; m != nil; m = m.Next {
			if l.Positive != m.Positive && sameAtom(l, m) {
				return true
			}
		}
	}
	return false
}

func collectFreeVars(t *termbank.Term, out map[*varbank.FreeVar]bool) {
	switch {
	case t.IsFreeVar():
		out[t.Var] = true
	case t.IsApp():
		for _, a := range t.Args {
			collectFreeVars(a, out)
		}
	}
}

// IsRangeRestricted reports whether every free variable occurring in a
// negative literal also occurs in some positive literal (spec.md §4.7:
// "vars of positive literals ⊇ vars of negative literals").
func (c *Clause) IsRangeRestricted() bool {
	posVars := make(map[*varbank.FreeVar]bool)
	for l := c.Literals; l != nil; l = l.Next {
		if l.Positive {
			collectFreeVars(l.LHS, posVars)
			collectFreeVars(l.RHS, posVars)
		}
	}
	for l := c.Literals; l != nil; l = l.Next {
		if l.Positive {
			continue
		}
		negVars := make(map[*varbank.FreeVar]bool)
		collectFreeVars(l.LHS, negVars)
		collectFreeVars(l.RHS, negVars)
		for v := range negVars {
			if !posVars[v] {
				return false
			}
		}
	}
	return true
}

func occursFCode(t *termbank.Term, code signature.Code) bool {
	if !t.IsApp() {
		return false
	}
	if t.FCode == code {
		return true
	}
	for _, a := range t.Args {
		if occursFCode(a, code) {
			return true
		}
	}
	return false
}

// EqualityDefinitionShape reports whether eq has the shape
// f(X1, ..., Xn) = t with X1..Xn pairwise-distinct free variables, f not
// occurring anywhere in t, and every free variable of t among X1..Xn
// (spec.md §4.7).
func EqualityDefinitionShape(eq *equation.Equation) bool {
	if !eq.Positive || !eq.Equational || !eq.LHS.IsApp() {
		return false
	}
	seen := make(map[*varbank.FreeVar]bool, len(eq.LHS.Args))
	for _, a := range eq.LHS.Args {
		if !a.IsFreeVar() || seen[a.Var] {
			return false
		}
		seen[a.Var] = true
	}
	if occursFCode(eq.RHS, eq.LHS.FCode) {
		return false
	}
	rhsVars := make(map[*varbank.FreeVar]bool)
	collectFreeVars(eq.RHS, rhsVars)
	for v := range rhsVars {
		if !seen[v] {
			return false
		}
	}
	return true
}

// EqualityDefinition reports whether c is a unit positive-equational
// clause whose literal has the equality-definition shape, returning that
// literal.
func (c *Clause) EqualityDefinition() (*equation.Equation, bool) {
	if c.PosCount != 1 || c.NegCount != 0 {
		return nil, false
	}
	if EqualityDefinitionShape(c.Literals) {
		return c.Literals, true
	}
	return nil, false
}

func collectSkolemTargets(bank *termbank.Bank, sig *signature.Table, t *termbank.Term, subst map[*varbank.FreeVar]*termbank.Term) error {
	switch {
	case t.IsFreeVar():
		if _, ok := subst[t.Var]; ok {
			return nil
		}
		if t.Var.Type.Arity() > 0 {
			return errcore.TypeMismatchf("cannot skolemise higher-order free variable of arrow type")
		}
		code := sig.FreshSkolem(nil, t.Var.Type.Result)
		skolem, err := bank.App(code, nil)
		if err != nil {
			return err
		}
		subst[t.Var] = skolem
		return nil
	case t.IsApp():
		for _, a := range t.Args {
			if err := collectSkolemTargets(bank, sig, a, subst); err != nil {
				return err
			}
		}
	}
	return nil
}

// SkolemizeFreeVars replaces every free variable occurring in c with a
// fresh Skolem constant allocated in sig (spec.md §4.7: "skolemise free
// variables of a clause using fresh constants allocated in the
// signature"), returning a new clause with a fresh id. Only base-sorted
// free variables can be skolemised by a nullary constant; a higher-order
// (arrow-sorted) free variable reports an error rather than silently
// producing an unsound substitution.
func (c *Clause) SkolemizeFreeVars(ids *IDAllocator) (*Clause, error) {
	subst := make(map[*varbank.FreeVar]*termbank.Term)
	for l := c.Literals; l != nil; l = l.Next {
		if err := collectSkolemTargets(c.bank, c.sig, l.LHS, subst); err != nil {
			return nil, err
		}
		if err := collectSkolemTargets(c.bank, c.sig, l.RHS, subst); err != nil {
			return nil, err
		}
	}
	return c.rebuildWith(ids, c.IsInitial(), func(t *termbank.Term) *termbank.Term {
		return c.bank.InsertInstantiated(t, subst)
	})
}

// CopyToBank rebuilds every literal term of c in newBank (which must share
// c's signature and variable bank), preserving the clause's id and
// metadata: this is the "copy with optional term-bank change" operation of
// spec.md §4.7, used e.g. after a term-bank compaction that replaces the
// bank instance without changing any clause's logical identity.
func (c *Clause) CopyToBank(newBank *termbank.Bank) *Clause {
	lits := make([]*equation.Equation, 0, c.PosCount+c.NegCount)
	for l := c.Literals; l != nil; l = l.Next {
		lhs := newBank.Insert(l.LHS, termbank.DerefAlways)
		rhs := newBank.Insert(l.RHS, termbank.DerefAlways)
		nl, err := equation.New(newBank, c.sig, lhs, rhs, l.Positive)
		if err != nil {
			errcore.InvariantViolation("clause.CopyToBank: %v", err)
		}
		nl.Props = l.Props
		lits = append(lits, nl)
	}
	nc := &Clause{
		ID:         c.ID,
		PosCount:   c.PosCount,
		NegCount:   c.NegCount,
		Props:      c.Props,
		Source:     c.Source,
		ProofDepth: c.ProofDepth,
		ProofSize:  c.ProofSize,
		Date:       c.Date,
		Derivation: c.Derivation,
		bank:       newBank,
		sig:        c.sig,
	}
	threadLiterals(nc, lits)
	nc.cachedWeight = c.cachedWeight
	return nc
}

// CopyDisjoint returns a fresh-id copy of c with every free variable
// replaced by a newly allocated one in the given variable-bank parity
// (spec.md §4.7 "copy with disjoint variables"), used to standardise two
// parent clauses apart before an inference rule unifies across them. A
// variable occurring in several literals of c is mapped to the same fresh
// variable throughout, matching termbank.Bank.InsertDisjoint's contract
// extended across a whole clause instead of one term.
func (c *Clause) CopyDisjoint(ids *IDAllocator, parity int) *Clause {
	subst := make(map[*varbank.FreeVar]*termbank.Term)
	var collect func(t *termbank.Term)
	collect = func(t *termbank.Term) {
		switch {
		case t.IsFreeVar():
			if _, ok := subst[t.Var]; ok {
				return
			}
			fresh := c.bank.Vars.Fresh(parity, t.Var.Type)
			subst[t.Var] = c.bank.Var(fresh)
		case t.IsApp():
			for _, a := range t.Args {
				collect(a)
			}
		}
	}
	for l := c.Literals; l != nil; l = l.Next {
		collect(l.LHS)
		collect(l.RHS)
	}
	nc, err := c.rebuildWith(ids, c.IsInitial(), func(t *termbank.Term) *termbank.Term {
		return c.bank.InsertInstantiated(t, subst)
	})
	if err != nil {
		errcore.InvariantViolation("clause.CopyDisjoint: %v", err)
	}
	return nc
}

// NormaliseVariableIndices renumbers c's free variables in place into a
// canonical sequence ordered by first occurrence (spec.md §4.7 "normalise
// variable indices"), the representation internal/clauseset's mark_copies
// structural comparison relies on to recognise variants as duplicates.
func (c *Clause) NormaliseVariableIndices() {
	var order []*varbank.FreeVar
	seen := make(map[*varbank.FreeVar]bool)
	var collect func(t *termbank.Term)
	collect = func(t *termbank.Term) {
		switch {
		case t.IsFreeVar():
			if !seen[t.Var] {
				seen[t.Var] = true
				order = append(order, t.Var)
			}
		case t.IsApp():
			for _, a := range t.Args {
				collect(a)
			}
		}
	}
	for l := c.Literals; l != nil; l = l.Next {
		collect(l.LHS)
		collect(l.RHS)
	}
	subst := make(map[*varbank.FreeVar]*termbank.Term, len(order))
	for _, v := range order {
		fresh := c.bank.Vars.Fresh(v.Bank, v.Type)
		subst[v] = c.bank.Var(fresh)
	}
	for l := c.Literals; l != nil; l = l.Next {
		l.LHS = c.bank.InsertInstantiated(l.LHS, subst)
		l.RHS = c.bank.InsertInstantiated(l.RHS, subst)
	}
	c.RecomputeWeight()
}

// rebuildWith constructs a fresh-id clause from c's literals, each side
// passed through xform, preserving sign and per-literal property bits.
func (c *Clause) rebuildWith(ids *IDAllocator, initial bool, xform func(*termbank.Term) *termbank.Term) (*Clause, error) {
	lits := make([]*equation.Equation, 0, c.PosCount+c.NegCount)
	for l := c.Literals; l != nil; l = l.Next {
		lhs := xform(l.LHS)
		rhs := xform(l.RHS)
		nl, err := equation.New(c.bank, c.sig, lhs, rhs, l.Positive)
		if err != nil {
			return nil, err
		}
		nl.Props = l.Props
		lits = append(lits, nl)
	}
	nc := New(c.bank, c.sig, ids, lits, initial)
	nc.Source = c.Source
	return nc, nil
}

func threadLiterals(c *Clause, lits []*equation.Equation) {
	for i, l := range lits {
		if i+1 < len(lits) {
			l.Next = lits[i+1]
		} else {
			l.Next = nil
		}
	}
	if len(lits) > 0 {
		c.Literals = lits[0]
	}
}

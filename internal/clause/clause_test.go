package clause

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"satur/internal/coreconfig"
	"satur/internal/equation"
	"satur/internal/signature"
	"satur/internal/termbank"
	"satur/internal/typetab"
	"satur/internal/varbank"
)

type fixture struct {
	types *typetab.Table
	sig   *signature.Table
	vars  *varbank.Bank
	bank  *termbank.Bank
}

func newFixture() *fixture {
	types := typetab.New()
	sig := signature.New(types)
	vars := varbank.New()
	bank := termbank.New(sig, types, vars, coreconfig.Default(), nil)
	return &fixture{types: types, sig: sig, vars: vars, bank: bank}
}

func (f *fixture) constant(name string) *termbank.Term {
	c, _ := f.sig.InsertOrFind(name, nil, typetab.Individual)
	t, _ := f.bank.App(c, nil)
	return t
}

func (f *fixture) unary(name string, arg *termbank.Term) *termbank.Term {
	c, _ := f.sig.InsertOrFind(name, []typetab.SortID{typetab.Individual}, typetab.Individual)
	t, _ := f.bank.App(c, []*termbank.Term{arg})
	return t
}

func (f *fixture) predicate(name string, arg *termbank.Term) *termbank.Term {
	c, _ := f.sig.InsertOrFind(name, []typetab.SortID{typetab.Individual}, typetab.Bool)
	t, _ := f.bank.App(c, []*termbank.Term{arg})
	return t
}

func (f *fixture) freeVar() *termbank.Term {
	return f.bank.Var(f.vars.Fresh(0, f.types.Base(typetab.Individual)))
}

func (f *fixture) eq(lhs, rhs *termbank.Term, positive bool) *equation.Equation {
	e, err := equation.New(f.bank, f.sig, lhs, rhs, positive)
	if err != nil {
		panic(err)
	}
	return e
}

func TestNewPartitionsPositivesBeforeNegatives(t *testing.T) {
	f := newFixture()
	a, b, c := f.constant("a"), f.constant("b"), f.constant("c")

	neg1 := f.eq(a, b, false)
	pos1 := f.eq(a, c, true)
	neg2 := f.eq(b, c, false)
	pos2 := f.eq(b, a, true)

	ids := NewIDAllocator()
	cl := New(f.bank, f.sig, ids, []*equation.Equation{neg1, pos1, neg2, pos2}, false)

	assert.Equal(t, 2, cl.PosCount)
	assert.Equal(t, 2, cl.NegCount)
	lits := cl.LiteralSlice()
	assert.Equal(t, []*equation.Equation{pos1, pos2, neg1, neg2}, lits)
}

func TestNewAssignsNegativeIdsToInitialClauses(t *testing.T) {
	f := newFixture()
	a := f.constant("a")
	ids := NewIDAllocator()

	derived := New(f.bank, f.sig, ids, []*equation.Equation{f.eq(a, a, true)}, false)
	initial := New(f.bank, f.sig, ids, []*equation.Equation{f.eq(a, a, true)}, true)

	assert.Greater(t, derived.ID, int64(0))
	assert.Less(t, initial.ID, int64(0))
	assert.True(t, initial.IsInitial())
	assert.False(t, derived.IsInitial())
}

func TestNewAnnotatedRecordsRoleAndSource(t *testing.T) {
	f := newFixture()
	a := f.constant("a")
	ids := NewIDAllocator()

	cl := NewAnnotated(f.bank, f.sig, ids, []*equation.Equation{f.eq(a, a, true)},
		Annotation{Source: "input.p:42", Role: RoleConjecture})

	assert.True(t, cl.IsInitial())
	assert.Equal(t, "input.p:42", cl.Source)
	assert.Equal(t, RoleConjecture, cl.Role())
}

func TestIsTrivialDetectsReflexiveEquation(t *testing.T) {
	f := newFixture()
	a := f.constant("a")
	ids := NewIDAllocator()

	cl := New(f.bank, f.sig, ids, []*equation.Equation{f.eq(a, a, true)}, false)
	assert.True(t, cl.IsTrivial())
}

func TestIsTrivialDetectsComplementaryLiterals(t *testing.T) {
	f := newFixture()
	a := f.constant("a")
	p := f.predicate("p", a)
	ids := NewIDAllocator()

	pos, _ := equation.NewPredicate(f.bank, f.sig, p, true)
	neg, _ := equation.NewPredicate(f.bank, f.sig, p, false)
	cl := New(f.bank, f.sig, ids, []*equation.Equation{pos, neg}, false)

	assert.True(t, cl.IsTrivial())
}

func TestIsTrivialDetectsSwappedEqualityComplement(t *testing.T) {
	f := newFixture()
	a, b := f.constant("a"), f.constant("b")
	ids := NewIDAllocator()

	pos := f.eq(a, b, true)
	neg := f.eq(b, a, false)
	cl := New(f.bank, f.sig, ids, []*equation.Equation{pos, neg}, false)

	assert.True(t, cl.IsTrivial())
}

func TestIsTrivialFalseOnNonTrivialClause(t *testing.T) {
	f := newFixture()
	a, b := f.constant("a"), f.constant("b")
	ids := NewIDAllocator()

	cl := New(f.bank, f.sig, ids, []*equation.Equation{f.eq(a, b, true)}, false)
	assert.False(t, cl.IsTrivial())
}

func TestIsRangeRestrictedRequiresNegativeVarsCoveredByPositive(t *testing.T) {
	f := newFixture()
	x := f.freeVar()
	y := f.freeVar()
	fx := f.unary("f", x)
	a := f.constant("a")
	ids := NewIDAllocator()

	covered := New(f.bank, f.sig, ids, []*equation.Equation{
		f.eq(fx, a, true),
		f.eq(x, a, false),
	}, false)
	assert.True(t, covered.IsRangeRestricted())

	uncovered := New(f.bank, f.sig, ids, []*equation.Equation{
		f.eq(fx, a, true),
		f.eq(y, a, false),
	}, false)
	assert.False(t, uncovered.IsRangeRestricted())
}

func TestEqualityDefinitionShapeAcceptsWellFormedDefinition(t *testing.T) {
	f := newFixture()
	x := f.freeVar()
	a := f.constant("a")
	fx := f.unary("f", x)
	ids := NewIDAllocator()

	lit := f.eq(fx, a, true)
	cl := New(f.bank, f.sig, ids, []*equation.Equation{lit}, false)

	def, ok := cl.EqualityDefinition()
	assert.True(t, ok)
	assert.Same(t, lit, def)
}

func TestEqualityDefinitionShapeRejectsRecursiveOccurrence(t *testing.T) {
	f := newFixture()
	x := f.freeVar()
	fx := f.unary("f", x)
	ffx := f.unary("f", fx)
	ids := NewIDAllocator()

	cl := New(f.bank, f.sig, ids, []*equation.Equation{f.eq(fx, ffx, true)}, false)
	_, ok := cl.EqualityDefinition()
	assert.False(t, ok)
}

func TestEqualityDefinitionShapeRejectsRepeatedArgument(t *testing.T) {
	f := newFixture()
	x := f.freeVar()
	c, _ := f.sig.InsertOrFind("g", []typetab.SortID{typetab.Individual, typetab.Individual}, typetab.Individual)
	gxx, _ := f.bank.App(c, []*termbank.Term{x, x})
	a := f.constant("a")
	ids := NewIDAllocator()

	cl := New(f.bank, f.sig, ids, []*equation.Equation{f.eq(gxx, a, true)}, false)
	_, ok := cl.EqualityDefinition()
	assert.False(t, ok)
}

func TestSkolemizeFreeVarsReplacesEveryVariable(t *testing.T) {
	f := newFixture()
	x := f.freeVar()
	fx := f.unary("f", x)
	ids := NewIDAllocator()

	cl := New(f.bank, f.sig, ids, []*equation.Equation{f.eq(fx, x, true)}, true)
	sk, err := cl.SkolemizeFreeVars(ids)
	assert.NoError(t, err)

	for _, l := range sk.LiteralSlice() {
		var vars []*termbank.Term
		var walk func(t *termbank.Term)
		walk = func(t *termbank.Term) {
			if t.IsFreeVar() {
				vars = append(vars, t)
			}
			for _, a := range t.Args {
				walk(a)
			}
		}
		walk(l.LHS)
		walk(l.RHS)
		assert.Empty(t, vars)
	}
	assert.NotEqual(t, cl.ID, sk.ID)
}

func TestCopyDisjointRenamesConsistentlyAcrossLiterals(t *testing.T) {
	f := newFixture()
	x := f.freeVar()
	fx := f.unary("f", x)
	a := f.constant("a")
	ids := NewIDAllocator()

	cl := New(f.bank, f.sig, ids, []*equation.Equation{
		f.eq(fx, a, true),
		f.eq(x, a, false),
	}, false)

	disjoint := cl.CopyDisjoint(ids, 1)
	assert.NotEqual(t, cl.ID, disjoint.ID)

	lits := disjoint.LiteralSlice()
	// lits[0] is f(Y) = a (positive), lits[1] is Y = a (negative); Y must
	// be the same fresh variable in both.
	assert.True(t, lits[0].LHS.IsApp())
	freshFromFirst := lits[0].LHS.Args[0]
	assert.True(t, freshFromFirst.IsFreeVar())
	assert.Same(t, freshFromFirst, lits[1].LHS)
	assert.NotSame(t, freshFromFirst.Var, x.Var)
}

func TestNormaliseVariableIndicesPreservesStructure(t *testing.T) {
	f := newFixture()
	x := f.freeVar()
	fx := f.unary("f", x)
	a := f.constant("a")
	ids := NewIDAllocator()

	cl := New(f.bank, f.sig, ids, []*equation.Equation{
		f.eq(fx, a, true),
		f.eq(x, a, false),
	}, false)
	originalID := cl.ID

	cl.NormaliseVariableIndices()

	assert.Equal(t, originalID, cl.ID)
	lits := cl.LiteralSlice()
	assert.True(t, lits[0].LHS.IsApp())
	renamed := lits[0].LHS.Args[0]
	assert.Same(t, renamed, lits[1].LHS)
}

func TestCopyToBankPreservesIDAndProps(t *testing.T) {
	f := newFixture()
	a := f.constant("a")
	ids := NewIDAllocator()

	cl := New(f.bank, f.sig, ids, []*equation.Equation{f.eq(a, a, true)}, false)
	cl.MarkProcessed()

	newBank := termbank.New(f.sig, f.types, f.vars, coreconfig.Default(), nil)
	copied := cl.CopyToBank(newBank)

	assert.Equal(t, cl.ID, copied.ID)
	assert.True(t, copied.IsProcessed())
	assert.Equal(t, cl.PosCount, copied.PosCount)
}

func TestWeightSumsLiteralWeights(t *testing.T) {
	f := newFixture()
	a, b := f.constant("a"), f.constant("b")
	ids := NewIDAllocator()

	one := New(f.bank, f.sig, ids, []*equation.Equation{f.eq(a, a, true)}, false)
	two := New(f.bank, f.sig, ids, []*equation.Equation{f.eq(a, a, true), f.eq(a, b, false)}, false)

	assert.Greater(t, two.Weight(), one.Weight())
}

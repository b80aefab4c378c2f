package pdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"satur/internal/clause"
	"satur/internal/clauseset"
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
	ids   *clause.IDAllocator
}

func newFixture() *fixture {
	types := typetab.New()
	sig := signature.New(types)
	vars := varbank.New()
	bank := termbank.New(sig, types, vars, coreconfig.Default(), nil)
	return &fixture{types: types, sig: sig, vars: vars, bank: bank, ids: clause.NewIDAllocator()}
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

func (f *fixture) binary(name string, a, b *termbank.Term) *termbank.Term {
	c, _ := f.sig.InsertOrFind(name, []typetab.SortID{typetab.Individual, typetab.Individual}, typetab.Individual)
	t, _ := f.bank.App(c, []*termbank.Term{a, b})
	return t
}

func (f *fixture) freeVar() *termbank.Term {
	return f.bank.Var(f.vars.Fresh(0, f.types.Base(typetab.Individual)))
}

func (f *fixture) unitPosition(t *termbank.Term) clauseset.Position {
	e, err := equation.New(f.bank, f.sig, t, t, true)
	if err != nil {
		panic(err)
	}
	cl := clause.New(f.bank, f.sig, f.ids, []*equation.Equation{e}, false)
	return clauseset.Position{Clause: cl, Literal: cl.Literals, Side: clauseset.SideLHS}
}

func TestFindGeneralizationsMatchesExactTerm(t *testing.T) {
	f := newFixture()
	tree := New()
	a := f.constant("a")
	fa := f.unary("f", a)
	pos := f.unitPosition(fa)
	tree.Insert(pos)

	found := tree.FindGeneralizations(fa)
	assert.Equal(t, []clauseset.Position{pos}, found)
}

func TestFindGeneralizationsStoredVariableAbsorbsAnything(t *testing.T) {
	f := newFixture()
	tree := New()
	x := f.freeVar()
	fx := f.unary("f", x)
	pos := f.unitPosition(fx)
	tree.Insert(pos)

	a := f.constant("a")
	b := f.unary("g", a)
	assert.Equal(t, []clauseset.Position{pos}, tree.FindGeneralizations(f.unary("f", a)))
	assert.Equal(t, []clauseset.Position{pos}, tree.FindGeneralizations(f.unary("f", b)))
}

func TestFindGeneralizationsRejectsMismatchedFunctor(t *testing.T) {
	f := newFixture()
	tree := New()
	a := f.constant("a")
	pos := f.unitPosition(f.unary("f", a))
	tree.Insert(pos)

	assert.Empty(t, tree.FindGeneralizations(f.unary("g", a)))
}

func TestFindGeneralizationsRejectsMismatchedArity(t *testing.T) {
	f := newFixture()
	tree := New()
	a, b := f.constant("a"), f.constant("b")
	pos := f.unitPosition(f.unary("f", a))
	tree.Insert(pos)

	fCode, _ := f.sig.Lookup("f", 1)
	// The signature refuses a second arity for "f", so the binary query
	// cell is built directly with the same function code.
	fab := f.bank.AppTyped(fCode, []*termbank.Term{a, b}, f.types.Base(typetab.Individual))
	assert.Empty(t, tree.FindGeneralizations(fab))
}

func TestFindUnifiableExploresQueryVariableAcrossBranches(t *testing.T) {
	f := newFixture()
	tree := New()
	a := f.constant("a")
	posF := f.unitPosition(f.unary("f", a))
	posG := f.unitPosition(f.unary("g", a))
	tree.Insert(posF)
	tree.Insert(posG)

	results := tree.FindUnifiable(f.freeVar())
	assert.ElementsMatch(t, []clauseset.Position{posF, posG}, results)
}

func TestDeleteRemovesOnlyTheGivenPosition(t *testing.T) {
	f := newFixture()
	tree := New()
	a := f.constant("a")
	fa := f.unary("f", a)
	pos1 := f.unitPosition(fa)
	pos2 := f.unitPosition(fa)
	tree.Insert(pos1)
	tree.Insert(pos2)

	tree.Delete(pos1)

	assert.Equal(t, []clauseset.Position{pos2}, tree.FindGeneralizations(fa))
}

func TestDeleteOfAbsentPositionIsNoop(t *testing.T) {
	f := newFixture()
	tree := New()
	a := f.constant("a")
	pos := f.unitPosition(f.unary("f", a))

	assert.NotPanics(t, func() { tree.Delete(pos) })
}

func TestInstallOnClauseSetBackfillsAndTracksMutations(t *testing.T) {
	f := newFixture()
	set := clauseset.New(1)
	a := f.constant("a")
	fa := f.unary("f", a)
	e, err := equation.New(f.bank, f.sig, fa, fa, true)
	if err != nil {
		t.Fatal(err)
	}
	cl := clause.New(f.bank, f.sig, f.ids, []*equation.Equation{e}, false)
	set.Insert(cl)

	tree := New()
	set.InstallIndex(tree)

	found := tree.FindGeneralizations(fa)
	assert.Len(t, found, 1)
	assert.Same(t, cl, found[0].Clause)

	set.Extract(cl)
	assert.Empty(t, tree.FindGeneralizations(fa))
}

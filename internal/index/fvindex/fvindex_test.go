package fvindex

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
	fCode signature.Code
}

func newFixture() *fixture {
	types := typetab.New()
	sig := signature.New(types)
	vars := varbank.New()
	bank := termbank.New(sig, types, vars, coreconfig.Default(), nil)
	fCode, _ := sig.InsertOrFind("f", []typetab.SortID{typetab.Individual}, typetab.Individual)
	return &fixture{types: types, sig: sig, vars: vars, bank: bank, ids: clause.NewIDAllocator(), fCode: fCode}
}

func (f *fixture) constant(name string) *termbank.Term {
	c, _ := f.sig.InsertOrFind(name, nil, typetab.Individual)
	t, _ := f.bank.App(c, nil)
	return t
}

func (f *fixture) unary(arg *termbank.Term) *termbank.Term {
	t, _ := f.bank.App(f.fCode, []*termbank.Term{arg})
	return t
}

func (f *fixture) eq(lhs, rhs *termbank.Term, positive bool) *equation.Equation {
	e, err := equation.New(f.bank, f.sig, lhs, rhs, positive)
	if err != nil {
		panic(err)
	}
	return e
}

func (f *fixture) unit(lhs, rhs *termbank.Term) *clause.Clause {
	return clause.New(f.bank, f.sig, f.ids, []*equation.Equation{f.eq(lhs, rhs, true)}, false)
}

func (f *fixture) position(c *clause.Clause) clauseset.Position {
	return clauseset.Position{Clause: c, Literal: c.Literals, Side: clauseset.SideLHS}
}

func TestVectorCountsLiteralsAndFunctionOccurrences(t *testing.T) {
	f := newFixture()
	a := f.constant("a")
	ffa := f.unary(f.unary(a))
	cl := f.unit(ffa, a)

	cfg := Config{FunctionCodes: []signature.Code{f.fCode}}
	vec := Vector(cfg, cl)

	assert.Equal(t, []int{1, 0, 2, 1}, vec) // posCount, negCount, count(f)=2, maxDepth(f)=1
}

func TestFindSubsumptionCandidatesReturnsOnlyDominated(t *testing.T) {
	f := newFixture()
	idx := New(Config{FunctionCodes: []signature.Code{f.fCode}})

	a := f.constant("a")
	light := f.unit(a, a)
	heavy := f.unit(f.unary(f.unary(a)), a)

	idx.Insert(f.position(light))
	idx.Insert(f.position(heavy))

	query := Vector(idx.cfg, heavy)
	candidates := idx.FindSubsumptionCandidates(query)

	assert.Contains(t, candidates, light)
	assert.Contains(t, candidates, heavy)

	lightOnlyQuery := Vector(idx.cfg, light)
	candidates2 := idx.FindSubsumptionCandidates(lightOnlyQuery)
	assert.Equal(t, []*clause.Clause{light}, candidates2)
}

func TestInsertIsIdempotentPerClause(t *testing.T) {
	f := newFixture()
	idx := New(Config{})
	a := f.constant("a")
	cl := f.unit(a, a)
	pos := f.position(cl)

	idx.Insert(pos)
	idx.Insert(pos)

	assert.Len(t, idx.buckets, 1)
	assert.Len(t, idx.buckets[0].clauses, 1)
}

func TestDeleteRemovesClauseFromItsBucket(t *testing.T) {
	f := newFixture()
	idx := New(Config{})
	a := f.constant("a")
	cl := f.unit(a, a)
	pos := f.position(cl)

	idx.Insert(pos)
	idx.Delete(pos)

	assert.Empty(t, idx.FindSubsumptionCandidates(Vector(idx.cfg, cl)))
}

func TestComputePermutationOrdersMostDiscriminativeFirst(t *testing.T) {
	f := newFixture()
	idx := New(Config{FunctionCodes: []signature.Code{f.fCode}})
	a := f.constant("a")

	sample := []*clause.Clause{
		f.unit(a, a),
		f.unit(f.unary(a), a),
		f.unit(f.unary(f.unary(a)), a),
	}
	idx.ComputePermutation(sample)

	assert.Len(t, idx.perm, 4)
	// posCount/negCount are constant across the sample (always 1, 0);
	// the function-occurrence coordinates vary, so one of them should
	// rank ahead of the constant coordinates.
	assert.NotEqual(t, 0, idx.perm[0])
}

func TestInstallOnClauseSetBackfills(t *testing.T) {
	f := newFixture()
	set := clauseset.New(1)
	a := f.constant("a")
	cl := f.unit(a, a)
	set.Insert(cl)

	idx := New(Config{})
	set.InstallIndex(idx)

	assert.Len(t, idx.buckets, 1)
	assert.Equal(t, []*clause.Clause{cl}, idx.buckets[0].clauses)
}

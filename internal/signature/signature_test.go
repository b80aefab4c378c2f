package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"satur/internal/typetab"
)

func newTable() (*typetab.Table, *Table) {
	types := typetab.New()
	return types, New(types)
}

func TestInsertOrFindIsIdempotent(t *testing.T) {
	types, sig := newTable()
	c1, err := sig.InsertOrFind("f", []typetab.SortID{typetab.Individual}, typetab.Individual)
	assert.NoError(t, err)
	c2, err := sig.InsertOrFind("f", []typetab.SortID{typetab.Individual}, typetab.Individual)
	assert.NoError(t, err)
	assert.Equal(t, c1, c2)
	_ = types
}

func TestArityConflictIsHardError(t *testing.T) {
	_, sig := newTable()
	_, err := sig.InsertOrFind("f", []typetab.SortID{typetab.Individual}, typetab.Individual)
	assert.NoError(t, err)
	_, err = sig.InsertOrFind("f", []typetab.SortID{typetab.Individual, typetab.Individual}, typetab.Individual)
	assert.Error(t, err)
}

func TestDeclarePredicateIdempotentAndConflicting(t *testing.T) {
	_, sig := newTable()
	p, _ := sig.InsertOrFind("p", []typetab.SortID{typetab.Individual}, typetab.Individual)
	assert.NoError(t, sig.DeclarePredicate(p))
	assert.NoError(t, sig.DeclarePredicate(p), "declaring a predicate twice must be idempotent")
	assert.True(t, sig.HasProperty(p, PropPredicate))
	assert.Equal(t, typetab.Bool, sig.TypeOf(p).Result)

	custom := typetab.New()
	sig2 := New(custom)
	g, _ := sig2.InsertOrFind("g", []typetab.SortID{typetab.Individual}, custom.InternSort("nat"))
	assert.Error(t, sig2.DeclarePredicate(g), "a symbol with a fixed non-Boolean result must refuse predicate declaration")
}

func TestFreshSkolemAllocatesDistinctCodes(t *testing.T) {
	_, sig := newTable()
	s1 := sig.FreshSkolem([]typetab.SortID{typetab.Individual}, typetab.Individual)
	s2 := sig.FreshSkolem([]typetab.SortID{typetab.Individual}, typetab.Individual)
	assert.NotEqual(t, s1, s2)
	assert.True(t, sig.HasProperty(s1, PropSkolem))
}

func TestReservedCodesPresent(t *testing.T) {
	_, sig := newTable()
	assert.Equal(t, "$true", sig.Name(True))
	assert.Equal(t, typetab.Bool, sig.TypeOf(EqPos).Result)
	assert.True(t, sig.HasProperty(EqPos, PropPredicate))
	assert.True(t, IsEquational(EqPos))
	assert.True(t, IsEquational(EqNeg))
	assert.False(t, IsEquational(And))
}

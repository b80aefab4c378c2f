package unify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"satur/internal/coreconfig"
	"satur/internal/signature"
	"satur/internal/termbank"
	"satur/internal/trail"
	"satur/internal/typetab"
	"satur/internal/varbank"
)

type fixture struct {
	bank *termbank.Bank
	sig  *signature.Table
	vars *varbank.Bank
	tr   *trail.Trail
	iSrt typetab.SortID
}

func newFixture() *fixture {
	types := typetab.New()
	sig := signature.New(types)
	vars := varbank.New()
	bank := termbank.New(sig, types, vars, coreconfig.Default(), nil)
	return &fixture{bank: bank, sig: sig, vars: vars, tr: trail.New(), iSrt: typetab.Individual}
}

func TestUnifyGroundTermsEqual(t *testing.T) {
	f := newFixture()
	a, _ := f.sig.InsertOrFind("a", nil, f.iSrt)
	aTerm, _ := f.bank.App(a, nil)
	assert.True(t, Unify(f.tr, aTerm, aTerm))
}

func TestUnifyGroundTermsDiffer(t *testing.T) {
	f := newFixture()
	a, _ := f.sig.InsertOrFind("a", nil, f.iSrt)
	b, _ := f.sig.InsertOrFind("b", nil, f.iSrt)
	aTerm, _ := f.bank.App(a, nil)
	bTerm, _ := f.bank.App(b, nil)
	assert.False(t, Unify(f.tr, aTerm, bTerm))
	assert.Equal(t, 0, f.tr.Depth())
}

func TestUnifyVariableWithGroundTerm(t *testing.T) {
	f := newFixture()
	iTy := f.bank.Types.Base(f.iSrt)
	a, _ := f.sig.InsertOrFind("a", nil, f.iSrt)
	aTerm, _ := f.bank.App(a, nil)
	x := f.bank.Var(f.vars.Fresh(0, iTy))

	assert.True(t, Unify(f.tr, x, aTerm))
	assert.Same(t, aTerm, termbank.Deref(x, termbank.DerefAlways))
}

func TestUnifyOccursCheckFails(t *testing.T) {
	f := newFixture()
	iTy := f.bank.Types.Base(f.iSrt)
	g, _ := f.sig.InsertOrFind("g", []typetab.SortID{f.iSrt}, f.iSrt)
	x := f.bank.Var(f.vars.Fresh(0, iTy))
	gx, err := f.bank.App(g, []*termbank.Term{x})
	assert.NoError(t, err)

	assert.False(t, Unify(f.tr, x, gx))
	assert.Equal(t, 0, f.tr.Depth())
}

func TestUnifyStructural(t *testing.T) {
	f := newFixture()
	iTy := f.bank.Types.Base(f.iSrt)
	fCode, _ := f.sig.InsertOrFind("f", []typetab.SortID{f.iSrt, f.iSrt}, f.iSrt)
	a, _ := f.sig.InsertOrFind("a", nil, f.iSrt)
	b, _ := f.sig.InsertOrFind("b", nil, f.iSrt)
	aTerm, _ := f.bank.App(a, nil)
	bTerm, _ := f.bank.App(b, nil)
	x := f.bank.Var(f.vars.Fresh(0, iTy))
	y := f.bank.Var(f.vars.Fresh(0, iTy))

	t1, _ := f.bank.App(fCode, []*termbank.Term{x, bTerm})
	t2, _ := f.bank.App(fCode, []*termbank.Term{aTerm, y})

	assert.True(t, Unify(f.tr, t1, t2))
	assert.Same(t, aTerm, termbank.Deref(x, termbank.DerefAlways))
	assert.Same(t, bTerm, termbank.Deref(y, termbank.DerefAlways))
}

func TestMatchFailsWhenTermVariableWouldNeedBinding(t *testing.T) {
	f := newFixture()
	iTy := f.bank.Types.Base(f.iSrt)
	a, _ := f.sig.InsertOrFind("a", nil, f.iSrt)
	aTerm, _ := f.bank.App(a, nil)
	y := f.bank.Var(f.vars.Fresh(0, iTy))

	assert.False(t, Match(f.tr, aTerm, y))
}

func TestMatchSameVariableTwiceRequiresSameBinding(t *testing.T) {
	f := newFixture()
	iTy := f.bank.Types.Base(f.iSrt)
	fCode, _ := f.sig.InsertOrFind("f", []typetab.SortID{f.iSrt, f.iSrt}, f.iSrt)
	a, _ := f.sig.InsertOrFind("a", nil, f.iSrt)
	b, _ := f.sig.InsertOrFind("b", nil, f.iSrt)
	aTerm, _ := f.bank.App(a, nil)
	bTerm, _ := f.bank.App(b, nil)
	x := f.bank.Var(f.vars.Fresh(0, iTy))

	pattern, _ := f.bank.App(fCode, []*termbank.Term{x, x})
	mismatched, _ := f.bank.App(fCode, []*termbank.Term{aTerm, bTerm})
	assert.False(t, Match(f.tr, pattern, mismatched))
	assert.Equal(t, 0, f.tr.Depth())

	matching, _ := f.bank.App(fCode, []*termbank.Term{aTerm, aTerm})
	assert.True(t, Match(f.tr, pattern, matching))
	assert.Same(t, aTerm, termbank.Deref(x, termbank.DerefAlways))
}

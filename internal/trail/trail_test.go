package trail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"satur/internal/coreconfig"
	"satur/internal/signature"
	"satur/internal/termbank"
	"satur/internal/typetab"
	"satur/internal/varbank"
)

func newFixture(t *testing.T) (*termbank.Bank, *varbank.Bank) {
	t.Helper()
	types := typetab.New()
	sig := signature.New(types)
	vars := varbank.New()
	bank := termbank.New(sig, types, vars, coreconfig.Default(), nil)
	return bank, vars
}

func TestBindAndBacktrackRestoresState(t *testing.T) {
	bank, vars := newFixture(t)
	iTy := bank.Types.Base(typetab.Individual)
	x := bank.Var(vars.Fresh(0, iTy))
	a := bank.CreateMinTerm(signature.MinConst)

	tr := New()
	pos := tr.SavePos()
	tr.Bind(x, a)
	assert.Same(t, a, x.Binding)
	assert.Equal(t, 1, tr.Depth())

	tr.BacktrackTo(pos)
	assert.Nil(t, x.Binding)
	assert.Equal(t, 0, tr.Depth())
}

func TestBindTwiceWithoutBacktrackPanics(t *testing.T) {
	bank, vars := newFixture(t)
	iTy := bank.Types.Base(typetab.Individual)
	x := bank.Var(vars.Fresh(0, iTy))
	a := bank.CreateMinTerm(signature.MinConst)

	tr := New()
	tr.Bind(x, a)
	assert.Panics(t, func() { tr.Bind(x, a) })
}

func TestSortMismatchPanics(t *testing.T) {
	bank, vars := newFixture(t)
	iTy := bank.Types.Base(typetab.Individual)
	boolTy := bank.Types.Base(typetab.Bool)
	x := bank.Var(vars.Fresh(0, iTy))
	tru := &termbank.Term{Kind: termbank.KindApp, Typ: boolTy}

	tr := New()
	assert.Panics(t, func() { tr.Bind(x, tru) })
}

func TestIsRenamingDetectsCollisionsAndClearsFlag(t *testing.T) {
	bank, vars := newFixture(t)
	iTy := bank.Types.Base(typetab.Individual)
	x := bank.Var(vars.Fresh(0, iTy))
	y := bank.Var(vars.Fresh(0, iTy))
	z := bank.Var(vars.Fresh(0, iTy))

	tr := New()
	pos := tr.SavePos()
	tr.Bind(x, y)
	tr.Bind(z, y) // both x and z bind to y: not a renaming
	assert.False(t, tr.IsRenaming(pos))
	assert.Equal(t, termbank.Props(0), y.Props&termbank.PropOpFlag, "scratch flag must be cleared after the check")

	tr.BacktrackTo(pos)
	tr.Bind(x, y)
	tr.Bind(z, x)
	assert.True(t, tr.IsRenaming(pos))
}

func TestBacktrackBeyondDepthPanics(t *testing.T) {
	tr := New()
	assert.Panics(t, func() { tr.BacktrackTo(1) })
}

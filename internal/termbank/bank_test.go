package termbank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"satur/internal/coreconfig"
	"satur/internal/signature"
	"satur/internal/typetab"
	"satur/internal/varbank"
)

func newBank() (*Bank, *signature.Table, *varbank.Bank) {
	types := typetab.New()
	sig := signature.New(types)
	vars := varbank.New()
	b := New(sig, types, vars, coreconfig.Default(), nil)
	return b, sig, vars
}

func TestSameShapeYieldsSameObject(t *testing.T) {
	b, sig, vars := newBank()
	iSort := typetab.Individual
	f, _ := sig.InsertOrFind("f", []typetab.SortID{iSort, iSort}, iSort)
	g, _ := sig.InsertOrFind("g", []typetab.SortID{iSort}, iSort)
	a, _ := sig.InsertOrFind("a", nil, iSort)

	x := vars.AssertNamed("X", b.Types.Base(iSort))
	y := vars.AssertNamed("Y", b.Types.Base(iSort))

	aTerm, err := b.App(a, nil)
	assert.NoError(t, err)
	xTerm := b.Var(x)
	yTerm := b.Var(y)

	gy1, err := b.App(g, []*Term{yTerm})
	assert.NoError(t, err)
	t1, err := b.App(f, []*Term{xTerm, gy1})
	assert.NoError(t, err)

	gy2, err := b.App(g, []*Term{yTerm})
	assert.NoError(t, err)
	t2, err := b.App(f, []*Term{aTerm, gy2})
	assert.NoError(t, err)
	_ = t2

	// Re-build f(X, g(Y)) a second time: must be the exact same object.
	gy3, err := b.App(g, []*Term{yTerm})
	assert.NoError(t, err)
	t3, err := b.App(f, []*Term{xTerm, gy3})
	assert.NoError(t, err)

	assert.Same(t, t1, t3)
	assert.Same(t, gy1, gy3)
}

func TestArityMismatchIsTypeMismatch(t *testing.T) {
	b, sig, _ := newBank()
	f, _ := sig.InsertOrFind("f", []typetab.SortID{typetab.Individual, typetab.Individual}, typetab.Individual)
	_, err := b.App(f, []*Term{b.True()})
	assert.Error(t, err)
}

func TestWeightAndGroundLaws(t *testing.T) {
	b, sig, vars := newBank()
	iSort := typetab.Individual
	a, _ := sig.InsertOrFind("a", nil, iSort)
	f, _ := sig.InsertOrFind("f", []typetab.SortID{iSort, iSort}, iSort)

	aTerm, _ := b.App(a, nil)
	assert.True(t, aTerm.IsGround())
	assert.Equal(t, b.cfg.DefaultFunctionWeight, aTerm.Weight)

	x := vars.Fresh(0, b.Types.Base(iSort))
	xTerm := b.Var(x)
	assert.False(t, xTerm.IsGround())
	assert.Equal(t, 1, xTerm.VCount)

	ft, err := b.App(f, []*Term{aTerm, xTerm})
	assert.NoError(t, err)
	assert.False(t, ft.IsGround())
	assert.Equal(t, 1, ft.VCount)
	assert.Equal(t, aTerm.Weight+xTerm.Weight+b.cfg.DefaultFunctionWeight, ft.Weight)
}

func TestVarCellIsInterned(t *testing.T) {
	b, _, vars := newBank()
	x := vars.Fresh(0, b.Types.Base(typetab.Individual))
	t1 := b.Var(x)
	t2 := b.Var(x)
	assert.Same(t, t1, t2)
}

func TestDBCellIsInterned(t *testing.T) {
	b, _, vars := newBank()
	d := vars.DB(b.Types.Base(typetab.Individual), 0)
	t1 := b.DB(d)
	t2 := b.DB(d)
	assert.Same(t, t1, t2)
}

func TestInsertPropsMergeOnHashHit(t *testing.T) {
	b, sig, _ := newBank()
	a, _ := sig.InsertOrFind("a", nil, typetab.Individual)
	t1, err := b.App(a, nil)
	assert.NoError(t, err)

	loose := &Term{Kind: KindApp, FCode: a, Args: nil, Typ: t1.Typ, Props: PropRewritten}
	merged := b.Insert(loose, DerefAlways)
	assert.Same(t, t1, merged)
	assert.True(t, merged.Props&PropRewritten != 0, "Insert must merge property bits into the existing cell")
}

func TestInsertNoPropsDoesNotMerge(t *testing.T) {
	b, sig, _ := newBank()
	a, _ := sig.InsertOrFind("a", nil, typetab.Individual)
	t1, err := b.App(a, nil)
	assert.NoError(t, err)

	loose := &Term{Kind: KindApp, FCode: a, Args: nil, Typ: t1.Typ, Props: PropRewritten}
	merged := b.InsertNoProps(loose, DerefAlways)
	assert.Same(t, t1, merged)
	assert.True(t, merged.Props&PropRewritten == 0, "InsertNoProps must not merge property bits")
}

func TestInsertDisjointRenamesConsistently(t *testing.T) {
	b, sig, vars := newBank()
	iSort := typetab.Individual
	f, _ := sig.InsertOrFind("f", []typetab.SortID{iSort, iSort}, iSort)
	x := vars.AssertNamed("X", b.Types.Base(iSort))
	xTerm := b.Var(x)
	ft, _ := b.App(f, []*Term{xTerm, xTerm})

	copy1 := b.InsertDisjoint(ft, 1)
	assert.NotSame(t, ft.Args[0], copy1.Args[0])
	assert.Same(t, copy1.Args[0], copy1.Args[1], "both occurrences of X must rename to the same fresh variable")

	copy2 := b.InsertDisjoint(ft, 1)
	assert.NotSame(t, copy1.Args[0], copy2.Args[0], "separate InsertDisjoint calls must pick distinct fresh variables")
}

func TestFindFailsOnUnsharedSubterm(t *testing.T) {
	b, sig, _ := newBank()
	a, _ := sig.InsertOrFind("a", nil, typetab.Individual)
	loose := &Term{Kind: KindApp, FCode: a, Args: nil}
	_, ok := b.Find(loose)
	assert.False(t, ok)

	shared, err := b.App(a, nil)
	assert.NoError(t, err)
	found, ok := b.Find(shared)
	assert.True(t, ok)
	assert.Same(t, shared, found)
}

func TestCreateMinTermIsIdempotent(t *testing.T) {
	b, _, _ := newBank()
	m1 := b.CreateMinTerm(signature.MinConst)
	m2 := b.CreateMinTerm(signature.MinConst)
	assert.Same(t, m1, m2)
}

func TestTrueFalseAreDistinctAndStable(t *testing.T) {
	b, _, _ := newBank()
	assert.NotSame(t, b.True(), b.False())
	assert.Same(t, b.True(), b.True())
}

func TestGCSweepFreesUnreachableAndKeepsRoots(t *testing.T) {
	b, sig, _ := newBank()
	a, _ := sig.InsertOrFind("a", nil, typetab.Individual)
	junk, err := b.App(a, nil)
	assert.NoError(t, err)

	g, _ := sig.InsertOrFind("g", []typetab.SortID{typetab.Individual}, typetab.Individual)
	kept, err := b.App(g, []*Term{junk})
	assert.NoError(t, err)

	var live *Term
	b.RegisterRoot(func() []*Term { return []*Term{live} })
	live = kept

	freed := b.GCSweep()
	assert.Equal(t, 0, freed, "nothing should be collectable while kept is rooted")
	_, ok := b.Find(kept)
	assert.True(t, ok)

	live = nil
	freed = b.GCSweep()
	assert.True(t, freed >= 2, "dropping the root should free kept and junk")
	_, ok = b.Find(kept)
	assert.False(t, ok)
}

func TestGCAlwaysKeepsTrueFalseMinTerm(t *testing.T) {
	b, _, _ := newBank()
	m := b.CreateMinTerm(signature.MinConst)
	b.GCSweep()
	b.GCSweep()
	_, ok := b.Find(b.True())
	assert.True(t, ok)
	_, ok = b.Find(b.False())
	assert.True(t, ok)
	_, ok = b.Find(m)
	assert.True(t, ok)
}

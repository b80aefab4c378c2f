package termtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"satur/internal/core"
)

func TestReadTermBuildsNestedFunctionApplication(t *testing.T) {
	r := NewReader(core.New())
	term, err := r.ReadTerm("f(X, g(Y))")
	require.NoError(t, err)
	assert.True(t, term.IsApp())
	assert.Len(t, term.Args, 2)
	assert.True(t, term.Args[0].IsFreeVar())
	inner := term.Args[1]
	assert.True(t, inner.IsApp())
	assert.True(t, inner.Args[0].IsFreeVar())
}

func TestReadTermReusesVariableByName(t *testing.T) {
	r := NewReader(core.New())
	term, err := r.ReadTerm("f(X, X)")
	require.NoError(t, err)
	assert.Same(t, term.Args[0], term.Args[1])
}

func TestReadTermConstantHasNoArgs(t *testing.T) {
	r := NewReader(core.New())
	term, err := r.ReadTerm("a")
	require.NoError(t, err)
	assert.True(t, term.IsApp())
	assert.Empty(t, term.Args)
}

func TestReadClauseBuildsEquationalLiteral(t *testing.T) {
	r := NewReader(core.New())
	cl, err := r.ReadClause("f(X) = a.")
	require.NoError(t, err)
	assert.Equal(t, 1, cl.PosCount)
	assert.Equal(t, 0, cl.NegCount)
	assert.True(t, cl.Literals.Equational)
}

func TestReadClauseNegatedEquationIsNegativeLiteral(t *testing.T) {
	r := NewReader(core.New())
	cl, err := r.ReadClause("X != a.")
	require.NoError(t, err)
	assert.Equal(t, 0, cl.PosCount)
	assert.Equal(t, 1, cl.NegCount)
}

func TestReadClauseTildeBeforeParenthesisedEquationIsRejected(t *testing.T) {
	r := NewReader(core.New())
	cl, err := r.ReadClause("~(X = a).")
	require.Error(t, err) // parenthesised literal negation is not supported; "~" binds to a bare atom or term
	_ = cl
}

func TestReadClauseBuildsPredicateLiteral(t *testing.T) {
	r := NewReader(core.New())
	cl, err := r.ReadClause("p(X).")
	require.NoError(t, err)
	assert.Equal(t, 1, cl.PosCount)
	assert.False(t, cl.Literals.Equational)
}

func TestReadClauseTildeNegatesPredicate(t *testing.T) {
	r := NewReader(core.New())
	cl, err := r.ReadClause("~p(X).")
	require.NoError(t, err)
	assert.Equal(t, 0, cl.PosCount)
	assert.Equal(t, 1, cl.NegCount)
}

func TestReadClauseSharesVariablesAcrossLiterals(t *testing.T) {
	r := NewReader(core.New())
	cl, err := r.ReadClause("~p(X) | q(X, Y).")
	require.NoError(t, err)
	assert.Equal(t, 1, cl.PosCount)
	assert.Equal(t, 1, cl.NegCount)

	neg := cl.Literals
	for !neg.Positive {
		neg = neg.Next
	}
	pos := cl.Literals // positives are ordered first by clause.New

	assert.Same(t, pos.LHS.Args[0], neg.LHS.Args[0])
}

func TestReadClauseRejectsAppliedVariable(t *testing.T) {
	r := NewReader(core.New())
	_, err := r.ReadClause("p(X(Y)).")
	require.Error(t, err)
}

func TestReadClauseBareVariableLiteralIsRejected(t *testing.T) {
	r := NewReader(core.New())
	_, err := r.ReadClause("X.")
	require.Error(t, err)
}

func TestReadTermTrueIsSharedCell(t *testing.T) {
	ctx := core.New()
	r := NewReader(ctx)
	tr, err := r.ReadTerm("$true")
	require.NoError(t, err)
	assert.Same(t, ctx.Bank.True(), tr)
}

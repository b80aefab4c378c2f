// Package core ties the term/clause engine's pieces into one explicit
// Context, per spec.md's design note on global mutable state: output
// format, option flags, id counters, the normaliser, and every other
// piece of process-wide state live on Context instead of a package
// global, so tests (and an embedding process running more than one
// proof attempt) can each build their own without interfering.
package core

import (
	"satur/internal/clause"
	"satur/internal/clauseset"
	"satur/internal/coreconfig"
	"satur/internal/corelog"
	"satur/internal/hobind"
	"satur/internal/lambda"
	"satur/internal/ordering"
	"satur/internal/pattern"
	"satur/internal/signature"
	"satur/internal/termbank"
	"satur/internal/trail"
	"satur/internal/typetab"
	"satur/internal/varbank"
)

// Context bundles every piece of the engine a caller needs to build
// terms, equations, clauses, and clause sets against a single consistent
// signature/variable/term bank, with one shared id allocator and
// reduction-ordering callback. Nothing in internal/core reads state
// outside of a Context value passed to it.
type Context struct {
	Config coreconfig.Config
	Log    corelog.Logger

	Types *typetab.Table
	Sig   *signature.Table
	Vars  *varbank.Bank
	Bank  *termbank.Bank
	Trail *trail.Trail

	Normalizer *lambda.Normalizer
	Pattern    *pattern.Solver
	HOBind     *hobind.Enumerator

	IDs *clause.IDAllocator
	OCB ordering.OCB

	nextSetID int64
}

// Option configures a Context at construction time.
type Option func(*Context)

// WithConfig overrides the coreconfig.Default() configuration.
func WithConfig(cfg coreconfig.Config) Option {
	return func(c *Context) { c.Config = cfg }
}

// WithLogger overrides the default silent logger.
func WithLogger(log corelog.Logger) Option {
	return func(c *Context) { c.Log = log }
}

// WithOCB overrides the default SizeOCB reduction-ordering callback.
func WithOCB(ocb ordering.OCB) Option {
	return func(c *Context) { c.OCB = ocb }
}

// New builds a fresh Context: its own type table, signature, variable
// bank, term bank, trail, normaliser, pattern solver, HO-binding
// enumerator, and clause id allocator, wired together the way a single
// proof attempt needs them. Two Contexts never share a term bank, so
// terms from one are never valid in the other.
func New(opts ...Option) *Context {
	c := &Context{
		Config: coreconfig.Default(),
		Log:    corelog.Discard,
		OCB:    ordering.SizeOCB{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Types = typetab.New()
	c.Sig = signature.New(c.Types)
	c.Vars = varbank.New()
	c.Bank = termbank.New(c.Sig, c.Types, c.Vars, c.Config, c.Log)
	c.Trail = trail.New()
	c.Normalizer = lambda.New(c.Bank, c.Vars)
	c.Pattern = pattern.New(c.Bank, c.Normalizer, c.Vars)
	c.HOBind = hobind.New(c.Bank, c.Vars, c.Config.Limits)
	c.IDs = clause.NewIDAllocator()

	return c
}

// NewClauseSet allocates a fresh clauseset.Set with the next set id this
// Context has not yet handed out, so callers never need a package-level
// counter of their own.
func (c *Context) NewClauseSet() *clauseset.Set {
	c.nextSetID++
	return clauseset.New(c.nextSetID)
}

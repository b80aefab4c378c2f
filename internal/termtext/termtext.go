// Package termtext is a tiny prefix-notation term/clause reader used only
// from _test.go files to build fixtures tersely: "f(X, g(Y)) = a",
// "~p(X) | q(X, Y).". It is explicitly not a TPTP/TSTP/LOP parser and has
// no production entry point; it exists purely to keep test fixtures
// readable instead of hand-building terms call by call.
//
// An identifier starting with an uppercase letter names a free variable,
// reused by name within a single ReadTerm/ReadClause call (matching the
// first-order convention the rest of the engine assumes); any other
// identifier names a function or predicate symbol, declared on first use
// at the arity it is seen with. "$true" and "$false" denote the bank's
// distinguished truth values.
package termtext

import (
	"fmt"
	"unicode"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"satur/internal/clause"
	"satur/internal/core"
	"satur/internal/equation"
	"satur/internal/termbank"
	"satur/internal/typetab"
	"satur/internal/varbank"
)

var termLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Ident", `\$?[A-Za-z_][A-Za-z0-9_]*`, nil},
		{"NotEqual", `!=`, nil},
		{"Equal", `=`, nil},
		{"Tilde", `~`, nil},
		{"Pipe", `\|`, nil},
		{"LParen", `\(`, nil},
		{"RParen", `\)`, nil},
		{"Comma", `,`, nil},
		{"Dot", `\.`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})

type astTerm struct {
	Name string     `@Ident`
	Args []*astTerm `[ "(" @@ { "," @@ } ")" ]`
}

type astEqTail struct {
	Op  string   `@("!=" | "=")`
	RHS *astTerm `@@`
}

type astLiteral struct {
	Negated  bool       `[ @"~" ]`
	LHS      *astTerm   `@@`
	Equation *astEqTail `[ @@ ]`
}

type astClause struct {
	Literals []*astLiteral `@@ { "|" @@ }`
	Dot      string        `"."`
}

var (
	termParser = participle.MustBuild[astTerm](
		participle.Lexer(termLexer),
		participle.Elide("Whitespace"),
	)
	clauseParser = participle.MustBuild[astClause](
		participle.Lexer(termLexer),
		participle.Elide("Whitespace"),
	)
)

// Reader builds terms and clauses in ctx's term bank from source text.
type Reader struct {
	ctx *core.Context
}

// NewReader binds a Reader to ctx; every term/clause it builds is
// interned in ctx.Bank against ctx.Sig.
func NewReader(ctx *core.Context) *Reader {
	return &Reader{ctx: ctx}
}

func isVariableName(name string) bool {
	if name == "" {
		return false
	}
	return unicode.IsUpper([]rune(name)[0])
}

// ReadTerm parses a single function/predicate/variable term.
func (r *Reader) ReadTerm(src string) (*termbank.Term, error) {
	ast, err := termParser.ParseString("", src)
	if err != nil {
		return nil, err
	}
	return r.term(ast, make(map[string]*varbank.FreeVar))
}

// ReadClause parses a clause: literals separated by "|", terminated by
// ".", each optionally negated with "~" and either a bare atom or an
// equation ("=" / "!="). Free variables are shared by name across every
// literal in the clause, not across separate ReadClause calls.
func (r *Reader) ReadClause(src string) (*clause.Clause, error) {
	ast, err := clauseParser.ParseString("", src)
	if err != nil {
		return nil, err
	}
	vars := make(map[string]*varbank.FreeVar)
	lits := make([]*equation.Equation, 0, len(ast.Literals))
	for _, l := range ast.Literals {
		eq, err := r.literal(l, vars)
		if err != nil {
			return nil, err
		}
		lits = append(lits, eq)
	}
	return clause.New(r.ctx.Bank, r.ctx.Sig, r.ctx.IDs, lits, false), nil
}

func (r *Reader) literal(a *astLiteral, vars map[string]*varbank.FreeVar) (*equation.Equation, error) {
	positive := !a.Negated
	if a.Equation == nil {
		atom, err := r.atom(a.LHS, vars)
		if err != nil {
			return nil, err
		}
		return equation.NewPredicate(r.ctx.Bank, r.ctx.Sig, atom, positive)
	}
	lhs, err := r.term(a.LHS, vars)
	if err != nil {
		return nil, err
	}
	rhs, err := r.term(a.Equation.RHS, vars)
	if err != nil {
		return nil, err
	}
	if a.Equation.Op == "!=" {
		positive = !positive
	}
	return equation.New(r.ctx.Bank, r.ctx.Sig, lhs, rhs, positive)
}

// atom builds a literal's head application, declaring its symbol with a
// Bool result sort (a predicate), distinct from term's Individual-result
// functions.
func (r *Reader) atom(a *astTerm, vars map[string]*varbank.FreeVar) (*termbank.Term, error) {
	switch a.Name {
	case "$true":
		return r.ctx.Bank.True(), nil
	case "$false":
		return r.ctx.Bank.False(), nil
	}
	if isVariableName(a.Name) {
		return nil, fmt.Errorf("termtext: %q cannot be used as a predicate", a.Name)
	}
	args, argSorts, err := r.args(a.Args, vars)
	if err != nil {
		return nil, err
	}
	code, err := r.ctx.Sig.InsertOrFind(a.Name, argSorts, typetab.Bool)
	if err != nil {
		return nil, err
	}
	return r.ctx.Bank.App(code, args)
}

// term builds a function application or variable reference, declaring
// any new symbol with an Individual result sort.
func (r *Reader) term(a *astTerm, vars map[string]*varbank.FreeVar) (*termbank.Term, error) {
	switch a.Name {
	case "$true":
		return r.ctx.Bank.True(), nil
	case "$false":
		return r.ctx.Bank.False(), nil
	}
	if isVariableName(a.Name) {
		if len(a.Args) > 0 {
			return nil, fmt.Errorf("termtext: variable %q cannot be applied", a.Name)
		}
		fv, ok := vars[a.Name]
		if !ok {
			fv = r.ctx.Vars.Fresh(0, r.ctx.Types.Base(typetab.Individual))
			vars[a.Name] = fv
		}
		return r.ctx.Bank.Var(fv), nil
	}
	args, argSorts, err := r.args(a.Args, vars)
	if err != nil {
		return nil, err
	}
	code, err := r.ctx.Sig.InsertOrFind(a.Name, argSorts, typetab.Individual)
	if err != nil {
		return nil, err
	}
	return r.ctx.Bank.App(code, args)
}

func (r *Reader) args(asts []*astTerm, vars map[string]*varbank.FreeVar) ([]*termbank.Term, []typetab.SortID, error) {
	args := make([]*termbank.Term, len(asts))
	sorts := make([]typetab.SortID, len(asts))
	for i, a := range asts {
		t, err := r.term(a, vars)
		if err != nil {
			return nil, nil, err
		}
		args[i] = t
		sorts[i] = typetab.Individual
	}
	return args, sorts, nil
}

// Package signature maps integer function codes to (name, arity, type,
// property-bitset) entries, per spec.md §2 "Signature" and §4.1. It
// reserves fixed internal codes for equality, the Boolean connectives, the
// two quantifiers, $true/$false, the lambda-abstraction marker, the de
// Bruijn application head, and cons/nil; user symbols get codes above a
// threshold.
package signature

import (
	"fmt"

	"github.com/iancoleman/strcase"
	"satur/internal/errcore"
	"satur/internal/typetab"
)

// Code is a non-negative function code. Reserved codes below firstUser are
// fixed for every table; user symbols are allocated starting at firstUser.
type Code int32

// Reserved codes, present in every table (spec.md §3 "Function code").
const (
	True Code = iota
	False
	EqPos // positive (un-negated) equality
	EqNeg // negated equality
	And
	Or
	Not
	Impl
	Iff
	Forall
	Exists
	Lambda   // the λ-abstraction marker: arity 2, args (DB0, body)
	PhonyApp // the de Bruijn application head: @(h, a1..an)
	Cons
	Nil
	MinConst // the "arbitrary-integer min constant" used for default RHS terms

	firstUser Code = 100
)

// Properties is a bitset of independent per-symbol flags (spec.md §3).
type Properties uint32

const (
	PropPredicate Properties = 1 << iota
	PropPolymorphic
	PropNumeric
	PropSkolem
	PropDefinition
	PropConnective
	PropCommutative
	PropAssociative
	PropSpecial // one of the reserved/internal codes above
)

// Has reports whether all bits of other are set in p.
func (p Properties) Has(other Properties) bool { return p&other == other }

// Entry is one signature row.
type Entry struct {
	Code  Code
	Name  string
	Arity int
	Type  *typetab.Type
	Props Properties

	// resultFixed is true once the caller has explicitly pinned a result
	// sort other than typetab.Individual; DeclarePredicate refuses to
	// override a fixed non-Boolean result (spec.md §4.1).
	resultFixed bool
}

type nameArity struct {
	name  string
	arity int
}

// Table is a signature for one prover context.
type Table struct {
	types       *typetab.Table
	byCode      map[Code]*Entry
	byNameArity map[nameArity]*Entry
	byName      map[string]*Entry // first entry seen for this name, any arity
	nextUser    Code
	skolemCount int
}

// New creates a table pre-populated with the reserved codes.
func New(types *typetab.Table) *Table {
	tb := &Table{
		types:       types,
		byCode:      make(map[Code]*Entry),
		byNameArity: make(map[nameArity]*Entry),
		byName:      make(map[string]*Entry),
		nextUser:    firstUser,
	}
	bo := types.Base(typetab.Bool)
	tb.reserve(True, "$true", 0, bo)
	tb.reserve(False, "$false", 0, bo)
	tb.reserve(EqPos, "=", 2, types.Intern([]typetab.SortID{typetab.Individual, typetab.Individual}, typetab.Bool))
	tb.reserve(EqNeg, "!=", 2, types.Intern([]typetab.SortID{typetab.Individual, typetab.Individual}, typetab.Bool))
	tb.reserve(And, "&", 2, types.Intern([]typetab.SortID{typetab.Bool, typetab.Bool}, typetab.Bool))
	tb.reserve(Or, "|", 2, types.Intern([]typetab.SortID{typetab.Bool, typetab.Bool}, typetab.Bool))
	tb.reserve(Not, "~", 1, types.Intern([]typetab.SortID{typetab.Bool}, typetab.Bool))
	tb.reserve(Impl, "=>", 2, types.Intern([]typetab.SortID{typetab.Bool, typetab.Bool}, typetab.Bool))
	tb.reserve(Iff, "<=>", 2, types.Intern([]typetab.SortID{typetab.Bool, typetab.Bool}, typetab.Bool))
	tb.reserve(Forall, "!", 1, types.Intern([]typetab.SortID{typetab.Individual}, typetab.Bool))
	tb.reserve(Exists, "?", 1, types.Intern([]typetab.SortID{typetab.Individual}, typetab.Bool))
	tb.reserve(Lambda, "^", 2, bo) // type recomputed per-instance by the lambda normaliser
	tb.reserve(PhonyApp, "@", -1, bo)
	tb.reserve(Cons, "cons", 2, types.Intern([]typetab.SortID{typetab.Individual, typetab.Individual}, typetab.Individual))
	tb.reserve(Nil, "nil", 0, types.Base(typetab.Individual))
	tb.reserve(MinConst, "$min", 0, types.Base(typetab.Individual))

	for _, e := range tb.byCode {
		e.Props |= PropSpecial
	}
	tb.byCode[EqPos].Props |= PropPredicate
	tb.byCode[EqNeg].Props |= PropPredicate
	tb.byCode[Cons].Props |= PropPolymorphic
	tb.byCode[Nil].Props |= PropPolymorphic

	return tb
}

func (tb *Table) reserve(code Code, name string, arity int, typ *typetab.Type) {
	e := &Entry{Code: code, Name: name, Arity: arity, Type: typ, resultFixed: true}
	tb.byCode[code] = e
	tb.byNameArity[nameArity{name, arity}] = e
	tb.byName[name] = e
}

// InsertOrFind finds a symbol by (name, arity), inserting a fresh user code
// with the given argument/result sorts if none exists. A prior declaration
// of the same name with a different arity is a hard error (spec.md §4.1).
func (tb *Table) InsertOrFind(name string, argSorts []typetab.SortID, result typetab.SortID) (Code, error) {
	arity := len(argSorts)
	if existing, ok := tb.byName[name]; ok && existing.Arity != arity {
		return 0, errcore.SignatureConflictf(errcore.CodeSignatureArityConflict,
			"symbol %q redeclared with arity %d, previously declared with arity %d", name, arity, existing.Arity).
			WithHelp("use a distinct name or match the previously declared arity")
	}
	if e, ok := tb.byNameArity[nameArity{name, arity}]; ok {
		return e.Code, nil
	}
	code := tb.nextUser
	tb.nextUser++
	e := &Entry{
		Code:        code,
		Name:        name,
		Arity:       arity,
		Type:        tb.types.Intern(argSorts, result),
		resultFixed: result != typetab.Individual,
	}
	tb.byCode[code] = e
	tb.byNameArity[nameArity{name, arity}] = e
	tb.byName[name] = e
	return code, nil
}

// Lookup finds a symbol by (name, arity) without inserting.
func (tb *Table) Lookup(name string, arity int) (Code, bool) {
	e, ok := tb.byNameArity[nameArity{name, arity}]
	if !ok {
		return 0, false
	}
	return e.Code, true
}

// Entry returns the full entry for code, or nil if unknown.
func (tb *Table) Entry(code Code) *Entry { return tb.byCode[code] }

// TypeOf returns the declared type of code.
func (tb *Table) TypeOf(code Code) *typetab.Type {
	e := tb.byCode[code]
	if e == nil {
		return nil
	}
	return e.Type
}

// Arity returns the declared arity of code, or -1 for the variadic phony
// application head.
func (tb *Table) Arity(code Code) int {
	e := tb.byCode[code]
	if e == nil {
		return 0
	}
	return e.Arity
}

// Name returns the declared name of code.
func (tb *Table) Name(code Code) string {
	e := tb.byCode[code]
	if e == nil {
		return "?"
	}
	return e.Name
}

// SetProperty ORs bits into code's property bitset.
func (tb *Table) SetProperty(code Code, bits Properties) {
	if e := tb.byCode[code]; e != nil {
		e.Props |= bits
	}
}

// ClearProperty ANDs out bits from code's property bitset.
func (tb *Table) ClearProperty(code Code, bits Properties) {
	if e := tb.byCode[code]; e != nil {
		e.Props &^= bits
	}
}

// HasProperty reports whether all of bits are set on code.
func (tb *Table) HasProperty(code Code, bits Properties) bool {
	e := tb.byCode[code]
	return e != nil && e.Props.Has(bits)
}

// DeclarePredicate converts code's result type to Bool. It is idempotent,
// but fails if code already has a fixed non-Boolean result type (spec.md
// §4.1).
func (tb *Table) DeclarePredicate(code Code) error {
	e := tb.byCode[code]
	if e == nil {
		return errcore.SignatureConflictf(errcore.CodeSignaturePredicateConflict, "declare-predicate on unknown code %d", code)
	}
	if e.Type.Result == typetab.Bool {
		e.Props |= PropPredicate
		return nil
	}
	if e.resultFixed {
		return errcore.SignatureConflictf(errcore.CodeSignaturePredicateConflict,
			"symbol %q already has a fixed non-Boolean result type", e.Name).
			WithHelp("declare it as a predicate before it is used with a concrete result sort")
	}
	e.Type = tb.types.Intern(e.Type.Args, typetab.Bool)
	e.resultFixed = true
	e.Props |= PropPredicate
	return nil
}

// FreshSkolem allocates a guaranteed-unused function code for a Skolem
// symbol of the given argument/result sorts, deriving a readable default
// display name (e.g. "Skolem7") via strcase.
func (tb *Table) FreshSkolem(argSorts []typetab.SortID, result typetab.SortID) Code {
	tb.skolemCount++
	name := strcase.ToCamel(fmt.Sprintf("skolem_%d", tb.skolemCount))
	code := tb.nextUser
	tb.nextUser++
	e := &Entry{
		Code:        code,
		Name:        name,
		Arity:       len(argSorts),
		Type:        tb.types.Intern(argSorts, result),
		Props:       PropSkolem,
		resultFixed: true,
	}
	tb.byCode[code] = e
	tb.byNameArity[nameArity{name, len(argSorts)}] = e
	tb.byName[name] = e
	return code
}

// IsEquational reports whether code is one of the two equality codes.
func IsEquational(code Code) bool { return code == EqPos || code == EqNeg }

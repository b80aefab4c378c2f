// Package typetab interns sorts and function types.
//
// A sort is an opaque integer identifier; Bool and Individual are
// distinguished and always present. A type is either a base sort or a
// flattened arrow over argument sorts to a result sort. Types are interned
// by structural equality on the argument vector plus result sort, so equal
// types share pointer identity (ties to spec.md §3 "Sort / Type").
package typetab

import (
	"fmt"
	"strings"
)

// SortID is an interned, opaque sort identifier.
type SortID int32

// Distinguished sorts present in every table.
const (
	Bool SortID = iota
	Individual
	firstUserSort
)

// Type is an interned function type τ1 × … × τn → τ. A base sort is
// represented with an empty Args slice.
type Type struct {
	Args   []SortID
	Result SortID
}

// Arity is the number of argument sorts; zero for a base sort.
func (t *Type) Arity() int { return len(t.Args) }

// IsBase reports whether t is a plain sort with no arguments.
func (t *Type) IsBase() bool { return len(t.Args) == 0 }

func (t *Type) key() string {
	var b strings.Builder
	for _, a := range t.Args {
		fmt.Fprintf(&b, "%d>", a)
	}
	fmt.Fprintf(&b, "%d", t.Result)
	return b.String()
}

// Table interns sorts and types for one prover context.
type Table struct {
	sortNames []string
	sortByNm  map[string]SortID
	types     map[string]*Type
}

// New creates a table pre-populated with Bool and Individual.
func New() *Table {
	tb := &Table{
		sortNames: []string{"$o", "$i"},
		sortByNm:  map[string]SortID{"$o": Bool, "$i": Individual},
		types:     make(map[string]*Type),
	}
	return tb
}

// InternSort returns the SortID for name, allocating a fresh one if this is
// the first time name has been seen.
func (tb *Table) InternSort(name string) SortID {
	if id, ok := tb.sortByNm[name]; ok {
		return id
	}
	id := SortID(len(tb.sortNames))
	tb.sortNames = append(tb.sortNames, name)
	tb.sortByNm[name] = id
	return id
}

// SortName returns the declared name of a sort, or "?" if unknown.
func (tb *Table) SortName(s SortID) string {
	if int(s) < 0 || int(s) >= len(tb.sortNames) {
		return "?"
	}
	return tb.sortNames[s]
}

// Intern returns the shared *Type for the given argument/result sorts,
// creating and caching it on first use.
func (tb *Table) Intern(args []SortID, result SortID) *Type {
	t := &Type{Args: args, Result: result}
	k := t.key()
	if existing, ok := tb.types[k]; ok {
		return existing
	}
	cp := make([]SortID, len(args))
	copy(cp, args)
	t.Args = cp
	tb.types[k] = t
	return t
}

// Base interns the zero-arity type wrapping a bare sort.
func (tb *Table) Base(s SortID) *Type {
	return tb.Intern(nil, s)
}

// String renders a type for debugging (e.g. "$i x $i > $o").
func (tb *Table) String(t *Type) string {
	if t.IsBase() {
		return tb.SortName(t.Result)
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = tb.SortName(a)
	}
	return strings.Join(parts, " x ") + " > " + tb.SortName(t.Result)
}

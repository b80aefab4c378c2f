// Package varbank dispenses free-variable and de Bruijn variable cells,
// per spec.md §4.3. Free variables are identified by a negative integer id
// whose parity selects a "bank" (A/B) used for variable-disjoint renamings;
// de Bruijn cells are interned per (type, index) across the whole bank.
package varbank

import "satur/internal/typetab"

// FreeVar identifies a free term variable. Two FreeVars are the same
// variable iff their IDs are equal; IDs are negative and allocated by Bank.
type FreeVar struct {
	ID   int64
	Type *typetab.Type
	Bank int // 0 or 1, the parity used for disjoint renaming
}

// DBVar identifies a de Bruijn bound variable, interned by (Type, Index)
// bank-wide: DB0:τ in one abstraction is the identical cell as DB0:τ in
// any other.
type DBVar struct {
	Type  *typetab.Type
	Index int
}

type dbKey struct {
	typ   *typetab.Type
	index int
}

// Bank dispenses and interns variable cells.
type Bank struct {
	nextEven int64 // bank 0: -2, -4, -6, ...
	nextOdd  int64 // bank 1: -1, -3, -5, ...
	byID     map[int64]*FreeVar
	db       map[dbKey]*DBVar
	names    map[string]*FreeVar // extended name mappings (test/debug tooling use)
}

// New creates an empty variable bank.
func New() *Bank {
	return &Bank{
		nextEven: -2,
		nextOdd:  -1,
		byID:     make(map[int64]*FreeVar),
		db:       make(map[dbKey]*DBVar),
		names:    make(map[string]*FreeVar),
	}
}

// Fresh allocates a new free variable of the given type in the given bank
// parity (0 or 1), guaranteed distinct from every previously allocated
// variable.
func (b *Bank) Fresh(bank int, typ *typetab.Type) *FreeVar {
	var id int64
	if bank == 1 {
		id = b.nextOdd
		b.nextOdd -= 2
	} else {
		bank = 0
		id = b.nextEven
		b.nextEven -= 2
	}
	v := &FreeVar{ID: id, Type: typ, Bank: bank}
	b.byID[id] = v
	return v
}

// Assert returns the interned cell for an explicit negative id, creating it
// if this is the first time id has been asserted. The bank parity is
// derived from id's parity.
func (b *Bank) Assert(id int64, typ *typetab.Type) *FreeVar {
	if v, ok := b.byID[id]; ok {
		return v
	}
	bank := 0
	if id%2 != 0 {
		bank = 1
	}
	v := &FreeVar{ID: id, Type: typ, Bank: bank}
	b.byID[id] = v
	return v
}

// AssertNamed interns a free variable under an external display name (used
// by test tooling to parse "X", "Y" variable names into distinct cells
// without the caller tracking ids itself), allocating a fresh id on first
// use of the name.
func (b *Bank) AssertNamed(name string, typ *typetab.Type) *FreeVar {
	if v, ok := b.names[name]; ok {
		return v
	}
	v := b.Fresh(0, typ)
	b.names[name] = v
	return v
}

// DB interns the de Bruijn cell for (typ, index).
func (b *Bank) DB(typ *typetab.Type, index int) *DBVar {
	k := dbKey{typ, index}
	if v, ok := b.db[k]; ok {
		return v
	}
	v := &DBVar{Type: typ, Index: index}
	b.db[k] = v
	return v
}

// Reset clears the extended name mappings (spec.md §4.3: "a reset
// operation clears extended-name mappings used by the parser"). It does
// not affect interned ids or DB cells.
func (b *Bank) Reset() {
	b.names = make(map[string]*FreeVar)
}

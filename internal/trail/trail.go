// Package trail implements the substitution trail of spec.md §4.4: a LIFO
// stack of free-variable cells whose Binding is currently set, supporting
// backtracking to a saved position. Binding mutation on a shared term cell
// is only ever safe under this discipline; unification and pattern
// matching must pair every Bind with a BacktrackTo on every exit path.
package trail

import (
	"satur/internal/errcore"
	"satur/internal/raceguard"
	"satur/internal/termbank"
)

// Trail owns the stack of currently-bound free variables.
type Trail struct {
	stack []*termbank.Term
	guard raceguard.Guard
}

// New creates an empty trail.
func New() *Trail {
	return &Trail{}
}

// Pos is an opaque saved stack depth, returned by SavePos and consumed by
// BacktrackTo.
type Pos int

// SavePos returns the trail's current depth.
func (tr *Trail) SavePos() Pos {
	return Pos(len(tr.stack))
}

// Bind sets v's binding to t and pushes v onto the trail. It panics via
// errcore.InvariantViolation if v is not a free variable, is already
// bound, is marked as a predicate position, or has a sort mismatching t's
// (spec.md §4.4's add_binding contract).
func (tr *Trail) Bind(v, t *termbank.Term) {
	tr.guard.Enter("Trail.Bind")
	defer tr.guard.Leave()

	if !v.IsFreeVar() {
		errcore.InvariantViolation("trail.Bind: target %v is not a free variable", v.Kind)
	}
	if v.Binding != nil {
		errcore.InvariantViolation("trail.Bind: variable %d is already bound", v.Var.ID)
	}
	if v.Props&termbank.PropPredicatePosition != 0 {
		errcore.InvariantViolation("trail.Bind: variable %d is in predicate position and cannot be bound to a term", v.Var.ID)
	}
	if v.Typ != t.Typ {
		errcore.InvariantViolation("trail.Bind: sort mismatch binding variable %d", v.Var.ID)
	}
	v.Binding = t
	tr.stack = append(tr.stack, v)
}

// BacktrackTo pops and unbinds cells until the trail's depth equals pos.
// pos must not exceed the trail's current depth.
func (tr *Trail) BacktrackTo(pos Pos) {
	tr.guard.Enter("Trail.BacktrackTo")
	defer tr.guard.Leave()

	if int(pos) > len(tr.stack) {
		errcore.InvariantViolation("trail.BacktrackTo: target depth %d exceeds current depth %d", pos, len(tr.stack))
	}
	for len(tr.stack) > int(pos) {
		top := tr.stack[len(tr.stack)-1]
		top.Binding = nil
		tr.stack[len(tr.stack)-1] = nil
		tr.stack = tr.stack[:len(tr.stack)-1]
	}
}

// Depth returns the number of currently bound cells.
func (tr *Trail) Depth() int { return len(tr.stack) }

// IsRenaming reports whether every binding pushed since pos maps to a
// distinct free variable, using a transient term-property bit to detect
// collisions and clearing it afterward (spec.md §4.4).
func (tr *Trail) IsRenaming(pos Pos) bool {
	tr.guard.Enter("Trail.IsRenaming")
	defer tr.guard.Leave()

	seen := make([]*termbank.Term, 0, len(tr.stack)-int(pos))
	renaming := true
	for i := int(pos); i < len(tr.stack); i++ {
		img := tr.stack[i].Binding
		if !img.IsFreeVar() {
			renaming = false
			continue
		}
		if img.Props&termbank.PropOpFlag != 0 {
			renaming = false
			continue
		}
		img.Props |= termbank.PropOpFlag
		seen = append(seen, img)
	}
	for _, img := range seen {
		img.Props &^= termbank.PropOpFlag
	}
	return renaming
}

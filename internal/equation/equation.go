// Package equation implements the literal representation and comparison
// rules of spec.md §4.7 first half: a non-equational literal P(t) is
// encoded as the equation P(t) = $true, with the equational bit
// distinguishing a real equation from this encoding.
package equation

import (
	"satur/internal/errcore"
	"satur/internal/ordering"
	"satur/internal/signature"
	"satur/internal/termbank"
)

// Props is a bitset of per-literal flags distinct from sign/equational
// (which are their own fields, not bits, since every equation has exactly
// one value of each).
type Props uint32

const (
	// PropPseudo marks a literal that does not contribute to the clause's
	// logical semantics; pseudo-literals sort strictly below every real
	// literal (spec.md glossary "Pseudo-literal").
	PropPseudo Props = 1 << iota
	// PropSelected marks a literal as selected by the (out-of-scope)
	// literal-selection policy; Compare consults it but never sets it.
	PropSelected
)

// Equation is one literal: (sign, lhs, rhs, bank, properties,
// position-in-clause via Next) per spec.md §3. Next threads a raw literal
// list before internal/clause partitions it into positives-then-negatives.
type Equation struct {
	bank *termbank.Bank
	sig  *signature.Table

	LHS, RHS   *termbank.Term
	Positive   bool
	Equational bool
	Props      Props

	Next *Equation

	orientedValid bool
	oriented      ordering.Comparison
}

// New constructs an equation, asserting lhs and rhs both belong to bank
// (an invariant violation, not a recoverable error, since it can only
// happen from a caller mixing up term banks) and marking lhs's function
// code as a predicate in sig when the literal is non-equational (rhs is
// bank.True()).
func New(bank *termbank.Bank, sig *signature.Table, lhs, rhs *termbank.Term, positive bool) (*Equation, error) {
	if _, ok := bank.Find(lhs); !ok {
		errcore.InvariantViolation("equation.New: lhs does not belong to bank")
	}
	if _, ok := bank.Find(rhs); !ok {
		errcore.InvariantViolation("equation.New: rhs does not belong to bank")
	}
	eq := &Equation{bank: bank, sig: sig, LHS: lhs, RHS: rhs, Positive: positive}
	eq.Equational = rhs != bank.True()
	if !eq.Equational && lhs.IsApp() {
		if err := sig.DeclarePredicate(lhs.FCode); err != nil {
			return nil, err
		}
	}
	return eq, nil
}

// NewPredicate builds the P(t) = $true / P(t) != $true encoding directly.
func NewPredicate(bank *termbank.Bank, sig *signature.Table, atom *termbank.Term, positive bool) (*Equation, error) {
	return New(bank, sig, atom, bank.True(), positive)
}

// IsPseudo, Select, Deselect, IsSelected access Props.
func (e *Equation) IsPseudo() bool   { return e.Props&PropPseudo != 0 }
func (e *Equation) MarkPseudo()      { e.Props |= PropPseudo }
func (e *Equation) Select()          { e.Props |= PropSelected }
func (e *Equation) Deselect()        { e.Props &^= PropSelected }
func (e *Equation) IsSelected() bool { return e.Props&PropSelected != 0 }

// Weight is the equation's standard weight: the sum of both sides' term
// weights.
func (e *Equation) Weight() int { return e.LHS.Weight + e.RHS.Weight }

// SwapSides exchanges lhs and rhs, invalidating the cached orientation.
// Only valid for equational literals: swapping a P(t) = $true encoding
// would silently reclassify it as equational (rhs would no longer be
// $true), corrupting the representation invariant, so SwapSides refuses
// that case via InvariantViolation rather than producing a literal with a
// changed meaning.
func (e *Equation) SwapSides() {
	if !e.Equational {
		errcore.InvariantViolation("equation.SwapSides: literal is non-equational, sides may not be swapped")
	}
	e.LHS, e.RHS = e.RHS, e.LHS
	e.orientedValid = false
}

// Orient computes (and caches) the ground-instance orientation of the
// equation's two sides under ocb: Greater means lhs > rhs, i.e. the
// equation is oriented left-to-right (spec.md glossary "Oriented
// equation").
func (e *Equation) Orient(ocb ordering.OCB) ordering.Comparison {
	if e.orientedValid {
		return e.oriented
	}
	e.oriented = ocb.Compare(e.LHS, e.RHS)
	e.orientedValid = true
	return e.oriented
}

// IsOriented reports whether a cached/fresh Orient call finds lhs > rhs.
func (e *Equation) IsOriented(ocb ordering.OCB) bool {
	return e.Orient(ocb) == ordering.Greater
}

// Compare implements the literal comparison rules of spec.md §4.7:
// pseudo-literals sort below regular ones; a selected literal always beats
// an unselected one regardless of sign; two selected literals of opposite
// sign are flagged Incomparable rather than compared further (documented in
// the source this module is grounded on as a fundamental design choice, not
// a safety fallback — see DESIGN.md); otherwise same-sign literals compare
// as the {l, r} multiset and opposite-sign literals compare the positive
// one's {l, r} against the negative one's {{l}, {r}} (the
// Bachmair-Ganzinger refined representation).
func (e *Equation) Compare(other *Equation, ocb ordering.OCB) ordering.Comparison {
	if e.IsPseudo() != other.IsPseudo() {
		if e.IsPseudo() {
			return ordering.Less
		}
		return ordering.Greater
	}
	if e.IsSelected() != other.IsSelected() {
		if e.IsSelected() {
			return ordering.Greater
		}
		return ordering.Less
	}
	if e.IsSelected() && e.Positive != other.Positive {
		return ordering.Incomparable
	}
	if e.Positive == other.Positive {
		return compareMultisets(ocb, []*termbank.Term{e.LHS, e.RHS}, []*termbank.Term{other.LHS, other.RHS})
	}

	pos, neg := e, other
	if !e.Positive {
		pos, neg = other, e
	}
	posGroups := [][]*termbank.Term{{pos.LHS, pos.RHS}}
	negGroups := [][]*termbank.Term{{neg.LHS}, {neg.RHS}}
	result := compareGroupMultisets(ocb, posGroups, negGroups)
	if e.Positive {
		return result
	}
	return result.Flip()
}

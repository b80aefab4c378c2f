// Package clauseset implements the doubly-linked circular clause set of
// spec.md §4.8: an anchor-sentinel list with pluggable indices and
// heuristic-priority evaluation trees.
package clauseset

import (
	"satur/internal/clause"
	"satur/internal/equation"
	"satur/internal/errcore"
	"satur/internal/termbank"
	"satur/internal/varbank"

	"github.com/google/btree"
)

// Side identifies which half of a literal's equation a position refers to.
type Side uint8

const (
	SideLHS Side = iota
	SideRHS
)

// Position is the (clause, literal, side) record every installed index
// keys its entries by (spec.md §4.9: "indices never own clauses").
type Position struct {
	Clause  *clause.Clause
	Literal *equation.Equation
	Side    Side
}

// Term returns the term this position names.
func (p Position) Term() *termbank.Term {
	if p.Side == SideLHS {
		return p.Literal.LHS
	}
	return p.Literal.RHS
}

// Index is the hook every installed index (PDT, FVI, fingerprint)
// implements; Set.Insert/Extract fan out a clause's positions to each
// installed index.
type Index interface {
	Insert(pos Position)
	Delete(pos Position)
}

func forEachPosition(c *clause.Clause, fn func(Position)) {
	for l := c.Literals; l != nil; l = l.Next {
		fn(Position{Clause: c, Literal: l, Side: SideLHS})
		fn(Position{Clause: c, Literal: l, Side: SideRHS})
	}
}

// PriorityFunc scores a clause for one evaluation tree; find_best returns
// the minimum-scoring clause, matching a "prefer lighter/simpler clauses
// first" heuristic convention (spec.md §4.8: "find_best(priority)").
type PriorityFunc func(c *clause.Clause) float64

// priorityItem is the btree.Item an evaluation tree orders by; ties break
// on clause id so two equally-scored clauses still have a strict order
// (required by the tree's Less-only comparator).
type priorityItem struct {
	priority float64
	clause   *clause.Clause
}

func (a priorityItem) Less(than btree.Item) bool {
	b := than.(priorityItem)
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.clause.ID < b.clause.ID
}

// evalTree is one heuristic-priority ordered structure: spec.md §4.8 calls
// these "evaluation trees indexed by heuristic priority." Backed by
// google/btree rather than a hand-rolled balanced tree.
type evalTree struct {
	fn   PriorityFunc
	tree *btree.BTree
	byID map[int64]priorityItem
}

func newEvalTree(fn PriorityFunc) *evalTree {
	return &evalTree{fn: fn, tree: btree.New(32), byID: make(map[int64]priorityItem)}
}

func (e *evalTree) insert(c *clause.Clause) {
	item := priorityItem{priority: e.fn(c), clause: c}
	e.tree.ReplaceOrInsert(item)
	e.byID[c.ID] = item
}

func (e *evalTree) remove(c *clause.Clause) {
	item, ok := e.byID[c.ID]
	if !ok {
		return
	}
	e.tree.Delete(item)
	delete(e.byID, c.ID)
}

func (e *evalTree) min() (*clause.Clause, bool) {
	item := e.tree.Min()
	if item == nil {
		return nil, false
	}
	return item.(priorityItem).clause, true
}

// Set is the circular doubly-linked clause list of spec.md §4.8, anchored
// at a sentinel clause so Insert/Extract never special-case an empty set.
// id identifies this set for the clauses' OwnerID check; it is supplied by
// the caller (internal/core owns the counter) rather than drawn from
// package-level mutable state, per design note §9.
type Set struct {
	id     int64
	anchor clause.Clause
	count  int
	date   int64

	indices []Index

	evalTrees map[int]*evalTree
}

// New creates an empty set identified by id.
func New(id int64) *Set {
	s := &Set{id: id, evalTrees: make(map[int]*evalTree)}
	s.anchor.Pred = &s.anchor
	s.anchor.Succ = &s.anchor
	return s
}

// Count is the number of clauses currently in s.
func (s *Set) Count() int { return s.count }

// Insert appends c immediately before the anchor, indexed into every
// installed Index and evaluation tree. Per spec.md §4.8 ("a clause may
// belong to at most one set, enforced at insert time"), inserting a
// clause that already belongs to a set is a programmer-contract
// violation, not a recoverable condition.
func (s *Set) Insert(c *clause.Clause) {
	if c.OwnerID != 0 {
		errcore.InvariantViolation("clauseset.Insert: clause %d already belongs to set %d", c.ID, c.OwnerID)
	}
	c.Pred = s.anchor.Pred
	c.Succ = &s.anchor
	s.anchor.Pred.Succ = c
	s.anchor.Pred = c
	c.OwnerID = s.id
	s.count++
	s.date++
	c.Date = s.date

	for _, idx := range s.indices {
		forEachPosition(c, idx.Insert)
	}
	for _, et := range s.evalTrees {
		et.insert(c)
	}
}

// Extract unlinks c from s and from every attached index, returning it.
func (s *Set) Extract(c *clause.Clause) *clause.Clause {
	if c.OwnerID != s.id {
		errcore.InvariantViolation("clauseset.Extract: clause %d does not belong to set %d", c.ID, s.id)
	}
	for _, idx := range s.indices {
		forEachPosition(c, idx.Delete)
	}
	for _, et := range s.evalTrees {
		et.remove(c)
	}
	c.Pred.Succ = c.Succ
	c.Succ.Pred = c.Pred
	c.Pred, c.Succ = nil, nil
	c.OwnerID = 0
	s.count--
	return c
}

// Delete extracts c; with no separate resource to free (Go's GC reclaims
// the Clause value), Delete is Extract without returning the clause.
func (s *Set) Delete(c *clause.Clause) {
	s.Extract(c)
}

// InstallIndex attaches idx and immediately indexes every clause already
// in s.
func (s *Set) InstallIndex(idx Index) {
	s.indices = append(s.indices, idx)
	s.Each(func(c *clause.Clause) {
		forEachPosition(c, idx.Insert)
	})
}

// InstallEvalTree attaches a priority function under priorityIndex,
// immediately scoring every clause already in s. find_best(priorityIndex)
// later consults this tree.
func (s *Set) InstallEvalTree(priorityIndex int, fn PriorityFunc) {
	et := newEvalTree(fn)
	s.Each(et.insert)
	s.evalTrees[priorityIndex] = et
}

// FindBest returns the minimal clause under the named evaluation tree, or
// false if the tree is empty or was never installed.
func (s *Set) FindBest(priorityIndex int) (*clause.Clause, bool) {
	et, ok := s.evalTrees[priorityIndex]
	if !ok {
		return nil, false
	}
	return et.min()
}

// Each walks every clause currently in s in list order.
func (s *Set) Each(fn func(*clause.Clause)) {
	for c := s.anchor.Succ; c != &s.anchor; c = c.Succ {
		fn(c)
	}
}

// Reweight recomputes every clause's cached standard weight and, where
// installed, re-inserts it into every evaluation tree so priorities keyed
// on weight stay current (spec.md §4.8 bulk "re-weight").
func (s *Set) Reweight() {
	s.Each(func(c *clause.Clause) {
		c.RecomputeWeight()
	})
	for _, et := range s.evalTrees {
		et.tree = btree.New(32)
		et.byID = make(map[int64]priorityItem)
		s.Each(et.insert)
	}
}

// SetProps ORs bits into every clause's properties; ClearProps AND-NOTs
// them out. Both are spec.md §4.8's "set/clear property bits" bulk op.
func (s *Set) SetProps(bits clause.Props) {
	s.Each(func(c *clause.Clause) { c.Props |= bits })
}

func (s *Set) ClearProps(bits clause.Props) {
	s.Each(func(c *clause.Clause) { c.Props &^= bits })
}

// FilterTrivial extracts and returns every trivial clause in s.
func (s *Set) FilterTrivial() []*clause.Clause {
	return s.filter(func(c *clause.Clause) bool { return c.IsTrivial() })
}

// FilterTautologies is an alias for FilterTrivial: in this representation
// a clause is a tautology exactly when IsTrivial reports true (spec.md
// §4.7's two triviality shapes are the clause-level tautology detector).
func (s *Set) FilterTautologies() []*clause.Clause {
	return s.filter(func(c *clause.Clause) bool { return c.IsTrivial() })
}

func (s *Set) filter(pred func(*clause.Clause) bool) []*clause.Clause {
	var matched []*clause.Clause
	var cur []*clause.Clause
	s.Each(func(c *clause.Clause) { cur = append(cur, c) })
	for _, c := range cur {
		if pred(c) {
			matched = append(matched, c)
			s.Extract(c)
		}
	}
	return matched
}

// InsertIndexed is Insert, named to match spec.md §4.8's bulk-operation
// vocabulary ("insert-indexed"): every installed index and evaluation
// tree sees cs as they are appended.
func (s *Set) InsertIndexed(cs []*clause.Clause) {
	for _, c := range cs {
		s.Insert(c)
	}
}

// NewTermsCopy rebuilds every clause in s into newBank (spec.md §4.8 bulk
// "new-terms copy"), returning a fresh set with the same id-space clauses
// (via Clause.CopyToBank) installed in list order. Indices and evaluation
// trees are not carried over: they key on term identity, which a bank
// change invalidates, so the caller reinstalls fresh ones against the
// returned set.
func (s *Set) NewTermsCopy(newBank *termbank.Bank) *Set {
	out := New(s.id)
	s.Each(func(c *clause.Clause) {
		out.Insert(c.CopyToBank(newBank))
	})
	return out
}

// structuralKey renders c into a key stable under alpha-renaming and
// equality symmetry, so two clauses that are copies of one another up to
// variable names and equation orientation collide in mark_copies'
// grouping. Free variables are numbered locally by first occurrence
// within the key-building walk itself (not by the identity of the
// *varbank.FreeVar, which differs between two independently-allocated
// alpha-variants), so the numbering lines up across clauses regardless of
// which underlying variable objects each clause was built from.
func appendEncoded(b []byte, t *termbank.Term, locals map[*varbank.FreeVar]int) []byte {
	switch {
	case t.IsFreeVar():
		idx, ok := locals[t.Var]
		if !ok {
			idx = len(locals)
			locals[t.Var] = idx
		}
		b = append(b, 'V')
		b = append(b, []byte(itoa(idx))...)
	case t.IsDBVar():
		b = append(b, 'D')
		b = append(b, []byte(itoa(t.DB.Index))...)
	case t.IsApp():
		b = append(b, 'A')
		b = append(b, []byte(itoa(int(t.FCode)))...)
		b = append(b, '(')
		for i, a := range t.Args {
			if i > 0 {
				b = append(b, ',')
			}
			b = appendEncoded(b, a, locals)
		}
		b = append(b, ')')
	}
	return b
}

// termKey is appendEncoded starting from a fresh local numbering, used
// only to pick a canonical side order for an equational literal: its
// output depends solely on term structure, so it orders two alpha-variant
// equations' sides identically regardless of which *varbank.FreeVar
// objects either side happens to hold.
func termKey(t *termbank.Term) string {
	return string(appendEncoded(nil, t, make(map[*varbank.FreeVar]int)))
}

func structuralKey(c *clause.Clause) string {
	var b []byte
	locals := make(map[*varbank.FreeVar]int)

	appendInt := func(n int) {
		if n < 0 {
			b = append(b, '-')
			n = -n
		}
		b = append(b, []byte(itoa(n))...)
	}

	appendInt(c.PosCount)
	b = append(b, '|')
	appendInt(c.NegCount)
	for l := c.Literals; l != nil; l = l.Next {
		b = append(b, '|')
		if l.Positive {
			b = append(b, '+')
		} else {
			b = append(b, '-')
		}
		lhs, rhs := l.LHS, l.RHS
		if l.Equational && termKey(rhs) < termKey(lhs) {
			lhs, rhs = rhs, lhs
		}
		b = append(b, '[')
		b = appendEncoded(b, lhs, locals)
		b = append(b, ',')
		b = appendEncoded(b, rhs, locals)
		b = append(b, ']')
	}
	return string(b)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// MarkCopies partitions the clauses currently in s into structural-
// equivalence classes (after normalising each clause's variable indices,
// so alpha-equivalent clauses collide, and comparing equational literals
// up to side symmetry) and marks every non-representative member of a
// class with clause.PropDuplicate, returning the marked clauses. The
// first clause encountered in list order within each class survives as
// the representative.
func (s *Set) MarkCopies() []*clause.Clause {
	seen := make(map[string]*clause.Clause)
	var marked []*clause.Clause
	s.Each(func(c *clause.Clause) {
		c.NormaliseVariableIndices()
		key := structuralKey(c)
		if _, ok := seen[key]; ok {
			c.Props |= clause.PropDuplicate
			marked = append(marked, c)
			return
		}
		seen[key] = c
	})
	return marked
}

// DeleteCopies runs MarkCopies and extracts every clause it marks.
func (s *Set) DeleteCopies() []*clause.Clause {
	marked := s.MarkCopies()
	for _, c := range marked {
		s.Extract(c)
	}
	return marked
}

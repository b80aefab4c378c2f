// Package pdt implements the perfect discrimination tree of spec.md §4.9:
// a trie keyed by the left-to-right preorder traversal of an oriented
// term, storing (clause, literal-side) positions for retrieval by
// generalization or unification query.
package pdt

import (
	"satur/internal/clauseset"
	"satur/internal/signature"
	"satur/internal/termbank"
)

type funcKey struct {
	code  signature.Code
	arity int
}

// node is one trie vertex. funcChildren branches on a stored function
// symbol and its arity; varChild is the single branch every stored free
// variable collapses into (a perfect discrimination tree does not
// distinguish between distinct variables at index time); dbChildren
// branches on a stored de Bruijn index. positions is non-empty only at a
// node reached by consuming a whole stored term.
type node struct {
	funcChildren map[funcKey]*node
	varChild     *node
	dbChildren   map[int]*node
	positions    []clauseset.Position
}

// Tree is a clauseset.Index backed by a perfect discrimination tree.
type Tree struct {
	root *node
}

// New creates an empty tree.
func New() *Tree {
	return &Tree{root: &node{}}
}

func samePosition(a, b clauseset.Position) bool {
	return a.Clause == b.Clause && a.Literal == b.Literal && a.Side == b.Side
}

// Insert adds pos, keyed by the preorder traversal of pos.Term(). It
// implements clauseset.Index so a Tree can be installed directly on a
// clauseset.Set.
func (t *Tree) Insert(pos clauseset.Position) {
	n := t.root
	frontier := []*termbank.Term{pos.Term()}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		switch {
		case cur.IsFreeVar():
			if n.varChild == nil {
				n.varChild = &node{}
			}
			n = n.varChild
		case cur.IsDBVar():
			if n.dbChildren == nil {
				n.dbChildren = make(map[int]*node)
			}
			c, ok := n.dbChildren[cur.DB.Index]
			if !ok {
				c = &node{}
				n.dbChildren[cur.DB.Index] = c
			}
			n = c
		case cur.IsApp():
			key := funcKey{cur.FCode, len(cur.Args)}
			if n.funcChildren == nil {
				n.funcChildren = make(map[funcKey]*node)
			}
			c, ok := n.funcChildren[key]
			if !ok {
				c = &node{}
				n.funcChildren[key] = c
			}
			n = c
			frontier = append(append([]*termbank.Term{}, cur.Args...), frontier...)
		}
	}
	n.positions = append(n.positions, pos)
}

// Delete removes pos from the node its term's preorder traversal leads
// to. A lookup for a term never inserted, or for a position already
// removed, is a silent no-op. Emptied interior nodes are not pruned —
// pruning would require parent back-links this trie does not keep; a
// background compaction pass would need to rebuild the tree wholesale.
func (t *Tree) Delete(pos clauseset.Position) {
	n := t.root
	frontier := []*termbank.Term{pos.Term()}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		switch {
		case cur.IsFreeVar():
			if n.varChild == nil {
				return
			}
			n = n.varChild
		case cur.IsDBVar():
			c, ok := n.dbChildren[cur.DB.Index]
			if !ok {
				return
			}
			n = c
		case cur.IsApp():
			key := funcKey{cur.FCode, len(cur.Args)}
			c, ok := n.funcChildren[key]
			if !ok {
				return
			}
			n = c
			frontier = append(append([]*termbank.Term{}, cur.Args...), frontier...)
		}
	}
	for i, p := range n.positions {
		if samePosition(p, pos) {
			n.positions = append(n.positions[:i], n.positions[i+1:]...)
			return
		}
	}
}

type frontierItem struct {
	term     *termbank.Term
	wildcard bool
}

func wc() frontierItem                  { return frontierItem{wildcard: true} }
func concrete(t *termbank.Term) frontierItem { return frontierItem{term: t} }

func (t *Tree) walk(n *node, frontier []frontierItem, unifyMode bool, out *[]clauseset.Position) {
	if len(frontier) == 0 {
		*out = append(*out, n.positions...)
		return
	}
	head, rest := frontier[0], frontier[1:]

	// A stored free variable absorbs the query's current subtree
	// wholesale, regardless of its shape — this is what lets the index
	// return generalizations of the query.
	if n.varChild != nil {
		t.walk(n.varChild, rest, unifyMode, out)
	}

	explodeWildcard := head.wildcard || (unifyMode && head.term != nil && head.term.IsFreeVar())
	if explodeWildcard {
		for _, c := range n.dbChildren {
			t.walk(c, rest, unifyMode, out)
		}
		for key, c := range n.funcChildren {
			extended := make([]frontierItem, 0, key.arity+len(rest))
			for i := 0; i < key.arity; i++ {
				extended = append(extended, wc())
			}
			extended = append(extended, rest...)
			t.walk(c, extended, unifyMode, out)
		}
		return
	}
	if head.wildcard {
		return
	}

	cur := head.term
	switch {
	case cur.IsApp():
		key := funcKey{cur.FCode, len(cur.Args)}
		if c, ok := n.funcChildren[key]; ok {
			extended := make([]frontierItem, 0, len(cur.Args)+len(rest))
			for _, a := range cur.Args {
				extended = append(extended, concrete(a))
			}
			extended = append(extended, rest...)
			t.walk(c, extended, unifyMode, out)
		}
	case cur.IsDBVar():
		if c, ok := n.dbChildren[cur.DB.Index]; ok {
			t.walk(c, rest, unifyMode, out)
		}
	}
}

// FindGeneralizations returns every stored position whose term is a
// generalization of (i.e. query is an instance of) query — the retrieval
// a demodulator lookup needs, since a rewrite rule l -> r applies at a
// query position only if l is more general than the subterm there.
func (t *Tree) FindGeneralizations(query *termbank.Term) []clauseset.Position {
	var out []clauseset.Position
	t.walk(t.root, []frontierItem{concrete(query)}, false, &out)
	return out
}

// FindUnifiable returns every stored position whose term could unify
// with query: in addition to FindGeneralizations' traversal, a query
// variable explores every branch of the tree, since a variable unifies
// with anything.
func (t *Tree) FindUnifiable(query *termbank.Term) []clauseset.Position {
	var out []clauseset.Position
	t.walk(t.root, []frontierItem{concrete(query)}, true, &out)
	return out
}

// Package fpindex implements the fingerprint index of spec.md §4.9: each
// term is summarised by probing n fixed paths through it, yielding one of
// {concrete symbol, variable-under, cannot-exist, nothing-here} per path;
// two terms are unifiable only if their fingerprints are entry-wise
// compatible.
package fpindex

import (
	"satur/internal/clauseset"
	"satur/internal/signature"
	"satur/internal/termbank"
)

type symbolKind uint8

const (
	kindFunc symbolKind = iota // concrete function/predicate symbol
	kindDB                     // concrete de Bruijn index
	kindVar                    // variable occurs at or above this path ("variable-under")
	kindBot                    // an ancestor functor's arity forbids this path ("cannot exist")
	kindNothing                // an ancestor was a leaf; the path simply runs out ("nothing-here")
)

type symbol struct {
	kind    symbolKind
	code    signature.Code
	dbIndex int
}

// DefaultPaths returns the canonical 7-probe set: the root, its two
// immediate arguments, and the four grandchildren reachable through them
// (spec.md §4.9's "n probe paths (e.g. 7)").
func DefaultPaths() [][]int {
	return [][]int{
		{},
		{0},
		{1},
		{0, 0},
		{0, 1},
		{1, 0},
		{1, 1},
	}
}

func probe(t *termbank.Term, path []int) symbol {
	if t.IsFreeVar() {
		return symbol{kind: kindVar}
	}
	if len(path) == 0 {
		if t.IsApp() {
			return symbol{kind: kindFunc, code: t.FCode}
		}
		return symbol{kind: kindDB, dbIndex: t.DB.Index}
	}
	if t.IsApp() {
		i, rest := path[0], path[1:]
		if i >= len(t.Args) {
			return symbol{kind: kindBot}
		}
		return probe(t.Args[i], rest)
	}
	return symbol{kind: kindNothing}
}

// Fingerprint computes one symbol per path in paths, probing t.
func Fingerprint(paths [][]int, t *termbank.Term) []symbol {
	fp := make([]symbol, len(paths))
	for i, p := range paths {
		fp[i] = probe(t, p)
	}
	return fp
}

func isAbsent(k symbolKind) bool { return k == kindBot || k == kindNothing }

func symbolsCompatible(a, b symbol) bool {
	if a.kind == kindVar || b.kind == kindVar {
		return true
	}
	if a.kind == kindFunc && b.kind == kindFunc {
		return a.code == b.code
	}
	if a.kind == kindDB && b.kind == kindDB {
		return a.dbIndex == b.dbIndex
	}
	if isAbsent(a.kind) && isAbsent(b.kind) {
		return true
	}
	return false
}

func fingerprintsCompatible(a, b []symbol) bool {
	for i := range a {
		if !symbolsCompatible(a[i], b[i]) {
			return false
		}
	}
	return true
}

type bucket struct {
	fp        []symbol
	positions []clauseset.Position
}

// Index is a clauseset.Index backed by fingerprint comparison: positions
// sharing the exact same fingerprint are grouped, and a query walks every
// bucket testing entry-wise compatibility.
type Index struct {
	paths   [][]int
	buckets []*bucket
}

// New creates an index probing the given paths (DefaultPaths() if nil).
func New(paths [][]int) *Index {
	if paths == nil {
		paths = DefaultPaths()
	}
	return &Index{paths: paths}
}

func (idx *Index) bucketFor(fp []symbol) *bucket {
	for _, b := range idx.buckets {
		if fingerprintsEqual(b.fp, fp) {
			return b
		}
	}
	b := &bucket{fp: fp}
	idx.buckets = append(idx.buckets, b)
	return b
}

func fingerprintsEqual(a, b []symbol) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Insert implements clauseset.Index.
func (idx *Index) Insert(pos clauseset.Position) {
	fp := Fingerprint(idx.paths, pos.Term())
	b := idx.bucketFor(fp)
	b.positions = append(b.positions, pos)
}

// Delete implements clauseset.Index.
func (idx *Index) Delete(pos clauseset.Position) {
	fp := Fingerprint(idx.paths, pos.Term())
	for _, b := range idx.buckets {
		if !fingerprintsEqual(b.fp, fp) {
			continue
		}
		for i, p := range b.positions {
			if p == pos {
				b.positions = append(b.positions[:i], b.positions[i+1:]...)
				return
			}
		}
	}
}

// FindCompatible returns every stored position whose fingerprint is
// entry-wise compatible with query's — a necessary condition for the two
// terms to unify, used to prune paramodulation/rewrite candidates before
// the real unification attempt.
func (idx *Index) FindCompatible(query *termbank.Term) []clauseset.Position {
	qfp := Fingerprint(idx.paths, query)
	var out []clauseset.Position
	for _, b := range idx.buckets {
		if fingerprintsCompatible(b.fp, qfp) {
			out = append(out, b.positions...)
		}
	}
	return out
}

// Package fvindex implements the feature-vector index of spec.md §4.9: a
// sound filter for subsumption. Each clause is summarised into a
// fixed-length integer vector; a query only needs to walk buckets whose
// vector is coordinate-wise ≤ its own, since that is a necessary
// condition for one clause to subsume another.
package fvindex

import (
	"sort"

	"satur/internal/clause"
	"satur/internal/clauseset"
	"satur/internal/signature"
	"satur/internal/termbank"
)

// Config chooses which function codes contribute occurrence-count and
// max-depth coordinates beyond the two fixed literal-count coordinates
// every vector starts with.
type Config struct {
	FunctionCodes []signature.Code
}

func walkFeatures(t *termbank.Term, depth int, counts, depths map[signature.Code]int) {
	if !t.IsApp() {
		return
	}
	counts[t.FCode]++
	if depth > depths[t.FCode] {
		depths[t.FCode] = depth
	}
	for _, a := range t.Args {
		walkFeatures(a, depth+1, counts, depths)
	}
}

// Vector computes c's feature vector under cfg: number of positive
// literals, number of negative literals, then one (occurrence count,
// max depth) pair per configured function code, in the order given.
func Vector(cfg Config, c *clause.Clause) []int {
	vec := make([]int, 0, 2+2*len(cfg.FunctionCodes))
	vec = append(vec, c.PosCount, c.NegCount)

	counts := make(map[signature.Code]int)
	depths := make(map[signature.Code]int)
	for l := c.Literals; l != nil; l = l.Next {
		walkFeatures(l.LHS, 0, counts, depths)
		walkFeatures(l.RHS, 0, counts, depths)
	}
	for _, code := range cfg.FunctionCodes {
		vec = append(vec, counts[code], depths[code])
	}
	return vec
}

type bucket struct {
	vector  []int
	clauses []*clause.Clause
}

// Index is a clauseset.Index: it buckets clauses by their feature vector
// and answers coordinate-wise-≤ subsumption-candidate queries. It
// processes a clause's positions idempotently — every literal side of a
// clause reports the same vector, so only the first Insert (and the
// matching Delete) call for a clause id has any effect.
type Index struct {
	cfg      Config
	buckets  []*bucket
	byClause map[int64]*bucket
	perm     []int // feature-position order used to accelerate comparison
}

// New creates an index with the given feature configuration.
func New(cfg Config) *Index {
	return &Index{cfg: cfg, byClause: make(map[int64]*bucket)}
}

func (idx *Index) bucketFor(vec []int) *bucket {
	for _, b := range idx.buckets {
		if vectorsEqual(b.vector, vec) {
			return b
		}
	}
	b := &bucket{vector: vec}
	idx.buckets = append(idx.buckets, b)
	return b
}

func vectorsEqual(a, b []int) bool {
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
	c := pos.Clause
	if _, ok := idx.byClause[c.ID]; ok {
		return
	}
	vec := Vector(idx.cfg, c)
	b := idx.bucketFor(vec)
	b.clauses = append(b.clauses, c)
	idx.byClause[c.ID] = b
}

// Delete implements clauseset.Index.
func (idx *Index) Delete(pos clauseset.Position) {
	c := pos.Clause
	b, ok := idx.byClause[c.ID]
	if !ok {
		return
	}
	for i, stored := range b.clauses {
		if stored == c {
			b.clauses = append(b.clauses[:i], b.clauses[i+1:]...)
			break
		}
	}
	delete(idx.byClause, c.ID)
}

// leq reports whether query's vector dominates candidate coordinate-wise
// under the index's permutation order, so a mismatch on a highly
// discriminative coordinate short-circuits before the less useful ones.
func (idx *Index) leq(candidate, query []int) bool {
	order := idx.perm
	if len(order) != len(candidate) {
		order = nil
	}
	for i := range candidate {
		pos := i
		if order != nil {
			pos = order[i]
		}
		if candidate[pos] > query[pos] {
			return false
		}
	}
	return true
}

// FindSubsumptionCandidates returns every indexed clause whose vector is
// coordinate-wise ≤ query's — the necessary (not sufficient) condition a
// subsuming clause's vector must satisfy against query's vector.
func (idx *Index) FindSubsumptionCandidates(query []int) []*clause.Clause {
	var out []*clause.Clause
	for _, b := range idx.buckets {
		if len(b.clauses) == 0 {
			continue
		}
		if idx.leq(b.vector, query) {
			out = append(out, b.clauses...)
		}
	}
	return out
}

// ComputePermutation orders feature positions by descending discriminative
// power (the number of distinct values the coordinate takes across
// sample, most-discriminating first), computed once from a representative
// clause set per spec.md §4.9, then used by FindSubsumptionCandidates to
// prune on the coordinates most likely to fail first.
func (idx *Index) ComputePermutation(sample []*clause.Clause) {
	if len(sample) == 0 {
		return
	}
	width := len(Vector(idx.cfg, sample[0]))
	distinct := make([]map[int]bool, width)
	for i := range distinct {
		distinct[i] = make(map[int]bool)
	}
	for _, c := range sample {
		vec := Vector(idx.cfg, c)
		for i, v := range vec {
			distinct[i][v] = true
		}
	}
	perm := make([]int, width)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return len(distinct[perm[a]]) > len(distinct[perm[b]])
	})
	idx.perm = perm
}

package equation

import (
	"slices"

	"satur/internal/ordering"
	"satur/internal/termbank"
)

// cmpFn compares two elements of type T under the ambient ordering.
type cmpFn[T any] func(a, b T) ordering.Comparison

// multisetGreater tests the standard Dershowitz–Manna multiset extension
// of a partial order: m is greater than n iff, after cancelling equal
// pairs one at a time, m has an element left and every remaining element
// of n is dominated by some remaining element of m. One element of m may
// dominate several elements of n.
func multisetGreater[T any](cmp cmpFn[T], m, n []T) bool {
	var unmatched []T
outer:
	for _, y := range n {
		for i, x := range m {
			if cmp(x, y) == ordering.Equal {
				m = without(m, i)
				continue outer
			}
		}
		unmatched = append(unmatched, y)
	}
	for _, y := range unmatched {
		if !slices.ContainsFunc(m, func(x T) bool { return cmp(x, y) == ordering.Greater }) {
			return false
		}
	}
	return len(m) > 0
}

// multisetEqual reports whether m and n are the same multiset: every
// element of one has a distinct equal partner in the other.
func multisetEqual[T any](cmp cmpFn[T], m, n []T) bool {
	if len(m) != len(n) {
		return false
	}
	used := make([]bool, len(n))
	for _, x := range m {
		found := false
		for j, y := range n {
			if !used[j] && cmp(x, y) == ordering.Equal {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func without[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	out = append(out, s[i+1:]...)
	return out
}

// compareMultisets compares two small multisets of terms via ocb's
// multiset extension.
func compareMultisets(ocb ordering.OCB, m, n []*termbank.Term) ordering.Comparison {
	cmp := func(a, b *termbank.Term) ordering.Comparison { return ocb.Compare(a, b) }
	if multisetEqual(cmp, m, n) {
		return ordering.Equal
	}
	if multisetGreater(cmp, m, n) {
		return ordering.Greater
	}
	if multisetGreater(cmp, n, m) {
		return ordering.Less
	}
	return ordering.Incomparable
}

// compareGroupMultisets compares two multisets of term-groups (each group
// itself a small term multiset), giving the nested multiset extension the
// Bachmair–Ganzinger refined literal representation needs to compare a
// positive equation's {l, r} against a negative equation's {{l}, {r}}.
func compareGroupMultisets(ocb ordering.OCB, m, n [][]*termbank.Term) ordering.Comparison {
	cmp := func(a, b []*termbank.Term) ordering.Comparison { return compareMultisets(ocb, a, b) }
	if multisetEqual(cmp, m, n) {
		return ordering.Equal
	}
	if multisetGreater(cmp, m, n) {
		return ordering.Greater
	}
	if multisetGreater(cmp, n, m) {
		return ordering.Less
	}
	return ordering.Incomparable
}

package nms

import "sort"

// outranks reports whether box i ranks above box j: higher score first, and
// for equal scores the lower index first. This is the only tie-break used by
// any sweep, so every backend produces the same order.
func outranks(scores []float64, i, j int) bool {
	if scores[i] != scores[j] {
		return scores[i] > scores[j]
	}
	return i < j
}

// Rank returns the box indices ordered by score descending, ties broken by
// index ascending. NaN scores must be rejected before ranking.
//
// @example
// order := Rank([]float64{0.9, 0.8, 0.95}) // Returns [2, 0, 1]
func Rank(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return outranks(scores, order[a], order[b])
	})
	return order
}

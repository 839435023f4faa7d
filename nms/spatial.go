package nms

import (
	"math"
	"sort"

	"github.com/nvr-ai/go-nms/boxes"
)

// spatialIndex orders boxes by their left edge so a winner only visits boxes
// whose x-extent can reach its own. The window is conservative: every box
// with a positive overlap is visited, and boxes with zero overlap can neither
// be suppressed nor decayed, so pruned and naive sweeps agree exactly.
type spatialIndex struct {
	boxes []boxes.Box
	order []int     // box indices sorted by X1, then index
	lefts []float64 // X1 in order
	reach float64   // widest box plus bias
	bias  float64
}

func newSpatialIndex(set *boxes.Set, bias float64) *spatialIndex {
	n := set.Len()
	idx := &spatialIndex{
		boxes: set.Boxes,
		order: make([]int, n),
		lefts: make([]float64, n),
		reach: set.MaxWidth() + bias,
		bias:  bias,
	}
	for i := range idx.order {
		idx.order[i] = i
	}
	sort.Slice(idx.order, func(a, b int) bool {
		ia, ib := idx.order[a], idx.order[b]
		if set.Boxes[ia].X1 != set.Boxes[ib].X1 {
			return set.Boxes[ia].X1 < set.Boxes[ib].X1
		}
		return ia < ib
	})
	for k, i := range idx.order {
		idx.lefts[k] = set.Boxes[i].X1
	}
	return idx
}

// candidates appends to dst the active boxes that may overlap winner.
func (s *spatialIndex) candidates(winner int, active []bool, dst []int) []int {
	w := s.boxes[winner]
	lo := w.X1 - s.reach
	lo -= slack(lo)
	hi := w.X2 + s.bias
	hi += slack(hi)

	start := sort.SearchFloat64s(s.lefts, lo)
	for k := start; k < len(s.lefts) && s.lefts[k] <= hi; k++ {
		j := s.order[k]
		if !active[j] {
			continue
		}
		// Cheap reject on the right edge; the geometry decides the rest.
		if right := s.boxes[j].X2 + s.bias; right+slack(right) < w.X1 {
			continue
		}
		dst = append(dst, j)
	}
	return dst
}

// slack widens window bounds past any rounding in the bound arithmetic.
func slack(v float64) float64 {
	return 1e-9 * (1 + math.Abs(v))
}

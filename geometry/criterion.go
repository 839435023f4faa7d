package geometry

import (
	"github.com/nvr-ai/go-nms/boxes"
	"github.com/nvr-ai/go-nms/common"
)

// Criterion selects the overlap measure compared against the suppression
// threshold.
type Criterion string

const (
	// CriterionIoU is intersection over union, in [0, 1].
	CriterionIoU Criterion = "iou"
	// CriterionIoMin is intersection over the smaller of the two areas, in [0, 1].
	CriterionIoMin Criterion = "iomin"
	// CriterionIntersection is the raw intersection area.
	CriterionIntersection Criterion = "intersection"
)

// ParseCriterion resolves a criterion name; the empty string means IoU.
func ParseCriterion(name string) (Criterion, error) {
	switch Criterion(name) {
	case "", CriterionIoU:
		return CriterionIoU, nil
	case CriterionIoMin, CriterionIntersection:
		return Criterion(name), nil
	default:
		return "", common.NewInvalidArgument("criterion", "unsupported overlap criterion %q", name)
	}
}

// IsRatio reports whether the criterion is bounded to [0, 1].
func (c Criterion) IsRatio() bool {
	return c != CriterionIntersection
}

// Ratio turns an intersection area and the two box areas into the overlap
// value for criterion c. A zero denominator yields 0, never NaN.
func Ratio(c Criterion, inter, areaA, areaB float64) float64 {
	switch c {
	case CriterionIntersection:
		return inter
	case CriterionIoMin:
		d := min(areaA, areaB)
		if d <= 0 {
			return 0
		}
		return inter / d
	default:
		union := float64(areaA+areaB) - inter
		if union <= 0 {
			return 0
		}
		return inter / union
	}
}

// Overlap returns the overlap value between boxes i and j of set.
//
// Arguments:
//   - set: The canonical set holding both boxes.
//   - i, j: Indices into set.
//   - c: The overlap criterion.
//   - bias: Pixel offset for axis-aligned boxes; ignored for rotated sets.
//
// Returns:
//   - The overlap value; symmetric in i and j.
func Overlap(set *boxes.Set, i, j int, c Criterion, bias float64) float64 {
	if set.IsRotated() {
		return RotatedOverlap(set.Rotated[i], set.Rotated[j], c)
	}
	a, b := set.Boxes[i], set.Boxes[j]
	return Ratio(c, Intersection(a, b, bias), Area(a, bias), Area(b, bias))
}

// Row computes the overlap between one box and a list of candidates, writing
// the values into dst. It is the lazy unit of work of a suppression step: only
// the candidates still in play are ever evaluated.
//
// Arguments:
//   - set: The canonical set.
//   - winner: Index of the reference box.
//   - candidates: Indices to compare against winner.
//   - c: The overlap criterion.
//   - bias: Pixel offset for axis-aligned boxes.
//   - dst: Output, len(dst) >= len(candidates).
func Row(set *boxes.Set, winner int, candidates []int, c Criterion, bias float64, dst []float64) {
	for k, j := range candidates {
		dst[k] = Overlap(set, winner, j, c, bias)
	}
}

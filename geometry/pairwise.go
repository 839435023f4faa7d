package geometry

import (
	"gonum.org/v1/gonum/mat"

	"github.com/nvr-ai/go-nms/boxes"
)

// Pairwise computes the full m×n overlap matrix between two sets. Entry (i, j)
// is the overlap of a[i] and b[j]. Suppression never needs the full matrix;
// this is for inspection, evaluation and tests.
//
// Arguments:
//   - a, b: Canonical sets; both rotated or both axis-aligned.
//   - c: The overlap criterion.
//   - bias: Pixel offset for axis-aligned boxes.
//
// Returns:
//   - *mat.Dense: The overlap matrix; an empty matrix when either set is empty.
func Pairwise(a, b *boxes.Set, c Criterion, bias float64) *mat.Dense {
	m, n := a.Len(), b.Len()
	if m == 0 || n == 0 {
		return &mat.Dense{}
	}

	out := mat.NewDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, pairOverlap(a, b, i, j, c, bias))
		}
	}
	return out
}

func pairOverlap(a, b *boxes.Set, i, j int, c Criterion, bias float64) float64 {
	if a.IsRotated() && b.IsRotated() {
		return RotatedOverlap(a.Rotated[i], b.Rotated[j], c)
	}
	x, y := a.Boxes[i], b.Boxes[j]
	return Ratio(c, Intersection(x, y, bias), Area(x, bias), Area(y, bias))
}

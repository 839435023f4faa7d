// Package geometry - area, intersection and overlap measures between boxes.
//
// All arithmetic is done in float64. Intermediate products are rounded
// explicitly (float64 conversions) so the compiler can not fuse them into
// FMA instructions; the scalar path and the vectorized graph kernel then
// produce bit-identical overlaps and therefore identical suppression
// decisions near the threshold.
package geometry

import (
	"github.com/nvr-ai/go-nms/boxes"
)

// Area returns the area of b under the pixel offset bias: (w+bias)*(h+bias).
// Degenerate boxes have zero area; the result is never negative.
//
// Arguments:
//   - b: A canonical box.
//   - bias: 0 for continuous coordinates, 1 for inclusive pixel indices.
//
// Returns:
//   - The area of the box.
func Area(b boxes.Box, bias float64) float64 {
	w := b.X2 - b.X1 + bias
	h := b.Y2 - b.Y1 + bias
	if w <= 0 || h <= 0 {
		return 0
	}
	return float64(w * h)
}

// Intersection returns the area of the overlap rectangle of a and b, or 0 when
// they do not overlap. Touching edges do not count as overlap when bias is 0.
//
// @example
// a := boxes.Box{X1: 0, Y1: 0, X2: 100, Y2: 100}
// b := boxes.Box{X1: 50, Y1: 50, X2: 150, Y2: 150}
// area := Intersection(a, b, 0) // Returns 2500.0 (50x50 overlap)
func Intersection(a, b boxes.Box, bias float64) float64 {
	w, h := overlapExtents(a, b, bias)
	return float64(w * h)
}

// Union returns area(a) + area(b) - intersection(a, b).
func Union(a, b boxes.Box, bias float64) float64 {
	return float64(Area(a, bias)+Area(b, bias)) - Intersection(a, b, bias)
}

// IoU returns the Intersection over Union of a and b. When both boxes are
// degenerate the union is zero and the IoU is defined as 0.
//
// @example
// a := boxes.Box{X1: 0, Y1: 0, X2: 100, Y2: 100}
// b := boxes.Box{X1: 50, Y1: 50, X2: 150, Y2: 150}
// iou := IoU(a, b, 0) // Returns ~0.143 (2500/17500)
func IoU(a, b boxes.Box, bias float64) float64 {
	return Ratio(CriterionIoU, Intersection(a, b, bias), Area(a, bias), Area(b, bias))
}

// overlapExtents returns the clamped width and height of the overlap.
func overlapExtents(a, b boxes.Box, bias float64) (w, h float64) {
	xx1, yy1, xx2, yy2 := overlapCorners(a, b)
	w = rectify(xx2 - xx1 + bias)
	h = rectify(yy2 - yy1 + bias)
	return w, h
}

// overlapCorners returns the corners of the (possibly empty) overlap rectangle.
func overlapCorners(a, b boxes.Box) (xx1, yy1, xx2, yy2 float64) {
	return max(a.X1, b.X1), max(a.Y1, b.Y1), min(a.X2, b.X2), min(a.Y2, b.Y2)
}

func rectify(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

package geometry

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/nvr-ai/go-nms/boxes"
)

// PolygonArea returns the unsigned area of a simple polygon (shoelace formula).
func PolygonArea(poly []r2.Point) float64 {
	if len(poly) < 3 {
		return 0
	}
	var twice float64
	for i := range poly {
		twice += poly[i].Cross(poly[(i+1)%len(poly)])
	}
	return math.Abs(twice) / 2
}

// ClipPolygon clips subject against a convex clip polygon given in
// counter-clockwise order (Sutherland–Hodgman). The result is the part of
// subject inside clip; it may be empty.
func ClipPolygon(subject, clip []r2.Point) []r2.Point {
	out := append([]r2.Point(nil), subject...)

	for i := range clip {
		if len(out) == 0 {
			return out
		}
		a, b := clip[i], clip[(i+1)%len(clip)]
		edge := b.Sub(a)

		in := out
		out = make([]r2.Point, 0, len(in)+2)
		for j, cur := range in {
			prev := in[(j+len(in)-1)%len(in)]
			curIn := edge.Cross(cur.Sub(a)) >= 0
			prevIn := edge.Cross(prev.Sub(a)) >= 0

			switch {
			case curIn && !prevIn:
				out = append(out, crossing(prev, cur, a, edge), cur)
			case curIn:
				out = append(out, cur)
			case prevIn:
				out = append(out, crossing(prev, cur, a, edge))
			}
		}
	}

	return out
}

// crossing returns where segment p→q crosses the line through a with
// direction edge.
func crossing(p, q, a, edge r2.Point) r2.Point {
	r := q.Sub(p)
	denom := edge.Cross(r)
	if denom == 0 {
		return p
	}
	t := edge.Cross(a.Sub(p)) / denom
	return p.Add(r.Mul(t))
}

// RotatedIntersection returns the intersection area of two oriented boxes.
// Operands are ordered canonically first, so the result is exactly symmetric.
func RotatedIntersection(a, b boxes.Rotated) float64 {
	if b.Less(a) {
		a, b = b, a
	}
	areaA, areaB := a.Area(), b.Area()
	if areaA <= 0 || areaB <= 0 {
		return 0
	}
	inter := PolygonArea(ClipPolygon(a.Polygon(), b.Polygon()))
	// Clipping round-off must not push the overlap past the smaller box.
	return min(inter, areaA, areaB)
}

// RotatedIoU returns the Intersection over Union of two oriented boxes.
func RotatedIoU(a, b boxes.Rotated) float64 {
	return RotatedOverlap(a, b, CriterionIoU)
}

// RotatedOverlap returns the overlap value of two oriented boxes for criterion c.
func RotatedOverlap(a, b boxes.Rotated, c Criterion) float64 {
	return Ratio(c, RotatedIntersection(a, b), a.Area(), b.Area())
}

package boxes

import (
	"math"

	"github.com/golang/geo/r2"
)

// Rotated is an oriented rectangle: center, size and a rotation angle in
// radians. A rectangle is symmetric under a half turn, so angles are kept in
// [0, π).
type Rotated struct {
	CX, CY float64
	W, H   float64
	Angle  float64
}

// NormalizeAngle folds any finite angle into [0, π).
func NormalizeAngle(angle float64) float64 {
	a := math.Mod(angle, math.Pi)
	if a < 0 {
		a += math.Pi
	}
	// a+π can round up to exactly π for tiny negative inputs.
	if a >= math.Pi {
		a = 0
	}
	return a
}

// Area returns W*H.
func (r Rotated) Area() float64 {
	return float64(r.W * r.H)
}

// Polygon returns the four corners of r in counter-clockwise order.
func (r Rotated) Polygon() []r2.Point {
	sin, cos := math.Sincos(r.Angle)
	ux := r2.Point{X: cos, Y: sin}.Mul(r.W / 2)
	uy := r2.Point{X: -sin, Y: cos}.Mul(r.H / 2)
	c := r2.Point{X: r.CX, Y: r.CY}

	return []r2.Point{
		c.Sub(ux).Sub(uy),
		c.Add(ux).Sub(uy),
		c.Add(ux).Add(uy),
		c.Sub(ux).Add(uy),
	}
}

// Bounds returns the axis-aligned box enclosing r.
func (r Rotated) Bounds() Box {
	rect := r2.RectFromPoints(r.Polygon()...)
	return Box{X1: rect.X.Lo, Y1: rect.Y.Lo, X2: rect.X.Hi, Y2: rect.Y.Hi}
}

// Less orders rotated boxes lexicographically by (CX, CY, W, H, Angle). Pair
// geometry evaluates operands in this order to stay exactly symmetric.
func (r Rotated) Less(o Rotated) bool {
	switch {
	case r.CX != o.CX:
		return r.CX < o.CX
	case r.CY != o.CY:
		return r.CY < o.CY
	case r.W != o.W:
		return r.W < o.W
	case r.H != o.H:
		return r.H < o.H
	default:
		return r.Angle < o.Angle
	}
}

func decodeRotated(index int, row []float64) (Rotated, error) {
	if err := checkFinite(index, row); err != nil {
		return Rotated{}, err
	}
	if err := checkSize(index, row[2], row[3]); err != nil {
		return Rotated{}, err
	}
	return Rotated{
		CX:    row[0],
		CY:    row[1],
		W:     row[2],
		H:     row[3],
		Angle: NormalizeAngle(row[4]),
	}, nil
}

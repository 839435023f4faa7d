package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"

	"github.com/nvr-ai/go-nms/boxes"
)

func TestPolygonArea(t *testing.T) {
	square := []r2.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}
	assert.Equal(t, 4.0, PolygonArea(square))

	// Orientation does not change the unsigned area.
	reversed := []r2.Point{{X: 0, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 0}}
	assert.Equal(t, 4.0, PolygonArea(reversed))

	assert.Equal(t, 0.0, PolygonArea(square[:2]))
}

func TestClipPolygon(t *testing.T) {
	a := []r2.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}
	b := []r2.Point{{X: 1, Y: 1}, {X: 3, Y: 1}, {X: 3, Y: 3}, {X: 1, Y: 3}}
	assert.InDelta(t, 1.0, PolygonArea(ClipPolygon(a, b)), 1e-12)

	far := []r2.Point{{X: 10, Y: 10}, {X: 11, Y: 10}, {X: 11, Y: 11}, {X: 10, Y: 11}}
	assert.Empty(t, ClipPolygon(a, far))
}

func TestRotatedMatchesAxisAlignedAtZeroAngle(t *testing.T) {
	tests := []struct {
		name string
		a, b boxes.Box
	}{
		{name: "partial", a: boxes.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, b: boxes.Box{X1: 1, Y1: 1, X2: 11, Y2: 11}},
		{name: "contained", a: boxes.Box{X1: 0, Y1: 0, X2: 100, Y2: 100}, b: boxes.Box{X1: 25, Y1: 25, X2: 75, Y2: 75}},
		{name: "disjoint", a: boxes.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, b: boxes.Box{X1: 20, Y1: 0, X2: 30, Y2: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := IoU(tt.a, tt.b, 0)
			got := RotatedIoU(toRotated(tt.a), toRotated(tt.b))
			assert.InDelta(t, want, got, 1e-9)
		})
	}
}

func TestRotatedIoU(t *testing.T) {
	square := boxes.Rotated{CX: 0, CY: 0, W: 2, H: 2}
	diamond := boxes.Rotated{CX: 0, CY: 0, W: 2, H: 2, Angle: math.Pi / 4}

	// The overlap of a square and the same square turned by 45 degrees is a
	// regular octagon of area 8(√2-1).
	inter := 8 * (math.Sqrt2 - 1)
	assert.InDelta(t, inter, RotatedIntersection(square, diamond), 1e-9)
	assert.InDelta(t, inter/(8-inter), RotatedIoU(square, diamond), 1e-9)

	assert.InDelta(t, 1.0, RotatedIoU(square, square), 1e-12)
	assert.Equal(t, 0.0, RotatedIoU(square, boxes.Rotated{CX: 0, CY: 0, W: 0, H: 2}))
}

func TestRotatedSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		a := randomRotated(rng)
		b := randomRotated(rng)
		for _, c := range []Criterion{CriterionIoU, CriterionIoMin, CriterionIntersection} {
			ab := RotatedOverlap(a, b, c)
			ba := RotatedOverlap(b, a, c)
			assert.Equal(t, ab, ba, "overlap must be bit-for-bit symmetric")
			if c.IsRatio() {
				assert.GreaterOrEqual(t, ab, 0.0)
				assert.LessOrEqual(t, ab, 1.0)
			}
		}
	}
}

func toRotated(b boxes.Box) boxes.Rotated {
	cx, cy := b.Center()
	return boxes.Rotated{CX: cx, CY: cy, W: b.Width(), H: b.Height()}
}

func randomRotated(rng *rand.Rand) boxes.Rotated {
	return boxes.Rotated{
		CX:    rng.Float64() * 20,
		CY:    rng.Float64() * 20,
		W:     1 + rng.Float64()*10,
		H:     1 + rng.Float64()*10,
		Angle: rng.Float64() * math.Pi,
	}
}

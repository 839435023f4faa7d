package geometry

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-nms/boxes"
)

func TestGraphKernelMatchesScalar(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	candidates := make([]boxes.Box, 37)
	for i := range candidates {
		x, y := rng.Float64()*100, rng.Float64()*100
		w, h := rng.Float64()*40, rng.Float64()*40
		if i%9 == 0 {
			w = 0 // degenerate
		}
		candidates[i] = boxes.Box{X1: x, Y1: y, X2: x + w, Y2: y + h}
	}
	a := boxes.Box{X1: 30, Y1: 30, X2: 70, Y2: 65}

	tests := []struct {
		name string
		c    Criterion
		size int
		bias float64
	}{
		{name: "iou chunked", c: CriterionIoU, size: 8},
		{name: "iou single chunk", c: CriterionIoU, size: 64},
		{name: "iou with pixel offset", c: CriterionIoU, size: 16, bias: 1},
		{name: "iomin", c: CriterionIoMin, size: 10},
		{name: "intersection", c: CriterionIntersection, size: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := NewGraphKernel(tt.size, tt.c)
			require.NoError(t, err)
			defer k.Close()
			assert.Equal(t, tt.size, k.Size())

			got := make([]float64, len(candidates))
			require.NoError(t, k.Compute(a, candidates, tt.bias, got))

			for i, b := range candidates {
				want := Ratio(tt.c, Intersection(a, b, tt.bias), Area(a, tt.bias), Area(b, tt.bias))
				assert.Equal(t, want, got[i], "candidate %d", i)
			}
		})
	}
}

func TestGraphKernelReuse(t *testing.T) {
	k, err := NewGraphKernel(4, CriterionIoU)
	require.NoError(t, err)
	defer k.Close()

	a := boxes.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}
	dst := make([]float64, 1)
	require.NoError(t, k.Compute(a, []boxes.Box{{X1: 1, Y1: 1, X2: 11, Y2: 11}}, 0, dst))
	assert.Equal(t, IoU(a, boxes.Box{X1: 1, Y1: 1, X2: 11, Y2: 11}, 0), dst[0])

	require.NoError(t, k.Compute(a, []boxes.Box{{X1: 50, Y1: 50, X2: 60, Y2: 60}}, 0, dst))
	assert.Equal(t, 0.0, dst[0])
}

func TestNewGraphKernelRejectsEmptySize(t *testing.T) {
	_, err := NewGraphKernel(0, CriterionIoU)
	assert.Error(t, err)
}

func TestGraphKernelCriteria(t *testing.T) {
	a := boxes.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}
	b := boxes.Box{X1: 1, Y1: 1, X2: 11, Y2: 11}

	tests := []struct {
		name string
		c    Criterion
		want float64
	}{
		{name: "intersection is the raw area", c: CriterionIntersection, want: 81},
		{name: "iomin divides by the smaller area", c: CriterionIoMin, want: 0.81},
		{name: "iou divides by the union", c: CriterionIoU, want: 81.0 / 119.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := NewGraphKernel(2, tt.c)
			require.NoError(t, err)
			defer k.Close()

			dst := make([]float64, 1)
			require.NoError(t, k.Compute(a, []boxes.Box{b}, 0, dst))
			assert.Equal(t, tt.want, dst[0])
		})
	}
}

func TestGraphKernelComputeIndexed(t *testing.T) {
	set := boxes.NewSet([]boxes.Box{
		{X1: 0, Y1: 0, X2: 10, Y2: 10},
		{X1: 50, Y1: 50, X2: 60, Y2: 60},
		{X1: 1, Y1: 1, X2: 11, Y2: 11},
		{X1: 5, Y1: 0, X2: 15, Y2: 10},
		{X1: 2, Y1: 2, X2: 8, Y2: 8},
	})
	candidates := []int{4, 2, 1, 3}

	for _, c := range []Criterion{CriterionIoU, CriterionIoMin, CriterionIntersection} {
		t.Run(string(c), func(t *testing.T) {
			k, err := NewGraphKernel(3, c)
			require.NoError(t, err)
			defer k.Close()

			got := make([]float64, len(candidates))
			require.NoError(t, k.ComputeIndexed(set, 0, candidates, 0, got))

			a := set.Boxes[0]
			for i, j := range candidates {
				b := set.Boxes[j]
				want := Ratio(c, Intersection(a, b, 0), Area(a, 0), Area(b, 0))
				assert.Equal(t, want, got[i], "candidate %d", j)
			}
		})
	}
}

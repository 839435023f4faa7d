package geometry

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-nms/boxes"
)

func TestPairwise(t *testing.T) {
	a := boxes.NewSet([]boxes.Box{
		{X1: 0, Y1: 0, X2: 10, Y2: 10},
		{X1: 20, Y1: 20, X2: 30, Y2: 30},
	})
	b := boxes.NewSet([]boxes.Box{
		{X1: 1, Y1: 1, X2: 11, Y2: 11},
		{X1: 0, Y1: 0, X2: 10, Y2: 10},
		{X1: 25, Y1: 25, X2: 35, Y2: 35},
	})

	m := Pairwise(a, b, CriterionIoU, 0)
	rows, cols := m.Dims()
	require.Equal(t, 2, rows)
	require.Equal(t, 3, cols)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			assert.Equal(t, IoU(a.Boxes[i], b.Boxes[j], 0), m.At(i, j))
		}
	}
	assert.Equal(t, 1.0, m.At(0, 1))
}

func TestPairwiseSymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	bs := make([]boxes.Box, 30)
	for i := range bs {
		x, y := rng.Float64()*50, rng.Float64()*50
		bs[i] = boxes.Box{X1: x, Y1: y, X2: x + 1 + rng.Float64()*20, Y2: y + 1 + rng.Float64()*20}
	}
	set := boxes.NewSet(bs)

	m := Pairwise(set, set, CriterionIoU, 0)
	for i := range bs {
		assert.Equal(t, 1.0, m.At(i, i))
		for j := range bs {
			assert.Equal(t, m.At(i, j), m.At(j, i))
		}
	}
}

func TestPairwiseEmpty(t *testing.T) {
	m := Pairwise(boxes.NewSet(nil), boxes.NewSet([]boxes.Box{{X2: 1, Y2: 1}}), CriterionIoU, 0)
	assert.True(t, m.IsEmpty())
}

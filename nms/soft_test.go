package nms

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-nms/boxes"
	"github.com/nvr-ai/go-nms/fixtures"
	"github.com/nvr-ai/go-nms/geometry"
)

func softParams(decay Decay) Params {
	p := DefaultParams()
	p.Variant = VariantSoft
	p.Decay = decay
	return p
}

func TestSoftDecay(t *testing.T) {
	set := mustDecode(t, boxes.EncodingXYXY,
		0, 0, 10, 10,
		1, 1, 11, 11,
		40, 40, 50, 50,
	)
	scores := []float64{0.9, 0.8, 0.5}
	iou := geometry.IoU(set.Boxes[0], set.Boxes[1], 0)

	tests := []struct {
		name        string
		params      func() Params
		wantIndices []int
		wantScores  []float64
	}{
		{
			name:        "linear demotes below the distant box",
			params:      func() Params { return softParams(DecayLinear) },
			wantIndices: []int{0, 2, 1},
			wantScores:  []float64{0.9, 0.5, 0.8 * (1 - iou)},
		},
		{
			name: "gaussian",
			params: func() Params {
				p := softParams(DecayGaussian)
				p.Sigma = 0.5
				return p
			},
			wantIndices: []int{0, 2, 1},
			wantScores:  []float64{0.9, 0.5, 0.8 * math.Exp(-(iou*iou)/0.5)},
		},
		{
			name: "floor removes the decayed box",
			params: func() Params {
				p := softParams(DecayLinear)
				p.ScoreFloor = 0.3
				return p
			},
			wantIndices: []int{0, 2},
			wantScores:  []float64{0.9, 0.5},
		},
		{
			name:        "hard decay removes",
			params:      func() Params { return softParams(DecayHard) },
			wantIndices: []int{0, 2},
			wantScores:  []float64{0.9, 0.5},
		},
		{
			name: "linear below threshold leaves scores alone",
			params: func() Params {
				p := softParams(DecayLinear)
				p.Threshold = 0.7
				return p
			},
			wantIndices: []int{0, 1, 2},
			wantScores:  []float64{0.9, 0.8, 0.5},
		},
		{
			name: "max keep",
			params: func() Params {
				p := softParams(DecayLinear)
				p.MaxKeep = 2
				return p
			},
			wantIndices: []int{0, 2},
			wantScores:  []float64{0.9, 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(set, scores, tt.params(), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIndices, res.Indices)
			assert.Equal(t, tt.wantScores, res.Scores)
		})
	}
}

func TestSoftInitialFloor(t *testing.T) {
	set := mustDecode(t, boxes.EncodingXYXY, 0, 0, 1, 1, 5, 5, 6, 6)
	p := softParams(DecayLinear)
	p.ScoreFloor = 0.1

	res, err := Run(set, []float64{0.05, 0.5}, p, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, res.Indices)
}

func TestSoftHardDecayMatchesHardVariant(t *testing.T) {
	gen := fixtures.NewGenerator(5)
	set := gen.Boxes(300)
	scores := gen.Scores(300, 25)

	hard := DefaultParams()
	soft := softParams(DecayHard)
	soft.ScoreFloor = 0

	want, err := Run(set, scores, hard, nil)
	require.NoError(t, err)
	got, err := Run(set, scores, soft, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSoftKeepsAtLeastAsManyAsHard(t *testing.T) {
	gen := fixtures.NewGenerator(8)
	set := gen.Boxes(300)
	scores := gen.Scores(300, 0)

	hard, err := Run(set, scores, DefaultParams(), nil)
	require.NoError(t, err)

	p := softParams(DecayLinear)
	p.ScoreFloor = 0
	soft, err := Run(set, scores, p, nil)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, soft.Len(), hard.Len())
	for k := 1; k < soft.Len(); k++ {
		assert.LessOrEqual(t, soft.Scores[k], soft.Scores[k-1], "kept scores are non-increasing")
	}
}

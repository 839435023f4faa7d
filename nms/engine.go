package nms

import (
	"math"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-nms/boxes"
)

// Result is the outcome of one suppression run.
type Result struct {
	// Indices are the kept box indices in the order they were selected, which
	// is descending (decayed) score with ties by ascending index.
	Indices []int `json:"indices"`
	// Scores are the scores of the kept boxes at selection time: the input
	// scores for hard NMS, the decayed scores for Soft-NMS.
	Scores []float64 `json:"scores"`
}

// Len returns the number of kept boxes.
func (r Result) Len() int {
	return len(r.Indices)
}

// Run validates its inputs and suppresses set with the given Overlapper. A nil
// Overlapper selects the sequential reference implementation.
//
// Arguments:
//   - set: The canonical boxes. It is never modified.
//   - scores: One score per box. It is never modified.
//   - p: The suppression parameters.
//   - ov: Computes winner-vs-candidates overlaps, or nil.
//
// Returns:
//   - Result: The kept indices and their scores.
//   - error: An InvalidArgumentError for bad input, or an Overlapper failure.
//
// @example
// set, _ := boxes.Decode(boxes.EncodingXYXY, []float64{0, 0, 10, 10, 1, 1, 11, 11, 20, 20, 30, 30})
// result, _ := nms.Run(set, []float64{0.9, 0.8, 0.95}, nms.DefaultParams(), nil)
// fmt.Println(result.Indices) // [2 0]
func Run(set *boxes.Set, scores []float64, p Params, ov Overlapper) (Result, error) {
	if err := Validate(set, scores, p); err != nil {
		return Result{}, err
	}
	return Sweep(set, scores, p, ov)
}

// Sweep suppresses set without validating its inputs; callers that validated
// once at their own boundary (the dispatcher) use it for each partition.
func Sweep(set *boxes.Set, scores []float64, p Params, ov Overlapper) (Result, error) {
	p = p.withDefaults()
	if ov == nil {
		ov = NewSequential(set, p)
	}
	if set.Len() == 0 {
		return Result{Indices: []int{}, Scores: []float64{}}, nil
	}

	var index *spatialIndex
	if p.prune(set.Len()) {
		index = newSpatialIndex(set, p.Bias)
	}

	if p.Variant == VariantSoft {
		return softSweep(set.Len(), scores, p, ov, index)
	}
	return hardSweep(scores, p, ov, index)
}

// hardSweep is the greedy sweep: the highest ranked active box is kept and
// every active box overlapping it by more than the threshold is removed.
func hardSweep(scores []float64, p Params, ov Overlapper, index *spatialIndex) (Result, error) {
	n := len(scores)
	order := Rank(scores)
	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}

	res := Result{Indices: make([]int, 0, n), Scores: make([]float64, 0, n)}
	candidates := make([]int, 0, n)
	overlaps := make([]float64, n)

	for pos, winner := range order {
		if !active[winner] {
			continue
		}
		active[winner] = false
		res.Indices = append(res.Indices, winner)
		res.Scores = append(res.Scores, scores[winner])
		if p.MaxKeep > 0 && len(res.Indices) >= p.MaxKeep {
			break
		}

		candidates = candidates[:0]
		if index != nil {
			candidates = index.candidates(winner, active, candidates)
		} else {
			for _, j := range order[pos+1:] {
				if active[j] {
					candidates = append(candidates, j)
				}
			}
		}
		if len(candidates) == 0 {
			continue
		}

		if err := ov.Overlaps(winner, candidates, overlaps[:len(candidates)]); err != nil {
			return Result{}, errors.Wrapf(err, "computing overlaps for box %d", winner)
		}
		for k, j := range candidates {
			if overlaps[k] > p.Threshold {
				active[j] = false
			}
		}
	}

	return res, nil
}

// softSweep is Soft-NMS: instead of being removed, overlapping boxes have their
// score decayed and compete again; a box leaves once its score drops below the
// floor.
func softSweep(n int, scores []float64, p Params, ov Overlapper, index *spatialIndex) (Result, error) {
	current := make([]float64, n)
	copy(current, scores)

	active := make([]bool, n)
	for i := range active {
		active[i] = current[i] >= p.ScoreFloor
	}

	res := Result{Indices: make([]int, 0, n), Scores: make([]float64, 0, n)}
	candidates := make([]int, 0, n)
	overlaps := make([]float64, n)

	for {
		winner := -1
		for j := 0; j < n; j++ {
			if active[j] && (winner < 0 || outranks(current, j, winner)) {
				winner = j
			}
		}
		if winner < 0 {
			break
		}

		active[winner] = false
		res.Indices = append(res.Indices, winner)
		res.Scores = append(res.Scores, current[winner])
		if p.MaxKeep > 0 && len(res.Indices) >= p.MaxKeep {
			break
		}

		candidates = candidates[:0]
		if index != nil {
			candidates = index.candidates(winner, active, candidates)
		} else {
			for j := 0; j < n; j++ {
				if active[j] {
					candidates = append(candidates, j)
				}
			}
		}
		if len(candidates) == 0 {
			continue
		}

		if err := ov.Overlaps(winner, candidates, overlaps[:len(candidates)]); err != nil {
			return Result{}, errors.Wrapf(err, "computing overlaps for box %d", winner)
		}
		for k, j := range candidates {
			weight := decayWeight(p, overlaps[k])
			if weight == 1 {
				continue
			}
			decayed := current[j] * weight
			if weight == 0 || math.IsNaN(decayed) || decayed < p.ScoreFloor {
				active[j] = false
				continue
			}
			current[j] = decayed
		}
	}

	return res, nil
}

// decayWeight returns the factor applied to a score overlapping a winner by ov.
func decayWeight(p Params, ov float64) float64 {
	switch p.Decay {
	case DecayGaussian:
		if ov <= 0 {
			return 1
		}
		return math.Exp(-(ov * ov) / p.Sigma)
	case DecayHard:
		if ov > p.Threshold {
			return 0
		}
		return 1
	default:
		if ov > p.Threshold {
			return 1 - ov
		}
		return 1
	}
}

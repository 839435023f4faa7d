package nms

import (
	"github.com/nvr-ai/go-nms/boxes"
	"github.com/nvr-ai/go-nms/geometry"
)

// Overlapper computes the overlap of one winner against the candidates still
// in play during a sweep step. The decisions of a step only depend on the
// winner, so implementations are free to evaluate candidates in any order or
// in parallel. Execution backends differ only in their Overlapper.
type Overlapper interface {
	// Overlaps writes overlap(winner, candidates[k]) into dst[k].
	Overlaps(winner int, candidates []int, dst []float64) error
}

// OverlapperFunc adapts a function to the Overlapper interface.
type OverlapperFunc func(winner int, candidates []int, dst []float64) error

// Overlaps calls f.
func (f OverlapperFunc) Overlaps(winner int, candidates []int, dst []float64) error {
	return f(winner, candidates, dst)
}

// Sequential is the reference Overlapper: a plain loop over geometry.Row.
type Sequential struct {
	set       *boxes.Set
	criterion geometry.Criterion
	bias      float64
}

// NewSequential returns the reference Overlapper for set.
func NewSequential(set *boxes.Set, p Params) *Sequential {
	p = p.withDefaults()
	return &Sequential{set: set, criterion: p.Criterion, bias: p.Bias}
}

// Overlaps implements Overlapper.
func (s *Sequential) Overlaps(winner int, candidates []int, dst []float64) error {
	geometry.Row(s.set, winner, candidates, s.criterion, s.bias, dst)
	return nil
}

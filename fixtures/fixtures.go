// Package fixtures - deterministic synthetic detections for tests and benchmarks.
//
// Boxes are drawn in clusters the way a detector emits them: several
// overlapping proposals around every object, so suppression has real work to
// do. The same seed always yields the same scene.
package fixtures

import (
	"math"
	"math/rand"

	"github.com/nvr-ai/go-nms/boxes"
)

// Generator creates synthetic detection scenes.
type Generator struct {
	rng *rand.Rand

	// Width and Height bound the scene.
	Width, Height float64
	// Clusters is the number of objects proposals are drawn around.
	Clusters int
	// Jitter is the relative spread of proposals around an object.
	Jitter float64
	// MinSize and MaxSize bound object sizes.
	MinSize, MaxSize float64
}

// NewGenerator creates a generator for a 1920x1080 scene.
//
// Arguments:
//   - seed: Seeds the generator; equal seeds give equal scenes.
//
// Returns:
//   - A configured Generator instance.
//
// @example
// gen := fixtures.NewGenerator(42)
// scene := gen.Scene(1000, 4, 10)
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng:      rand.New(rand.NewSource(seed)),
		Width:    1920,
		Height:   1080,
		Clusters: 32,
		Jitter:   0.15,
		MinSize:  16,
		MaxSize:  256,
	}
}

// Boxes draws n axis-aligned boxes around Clusters objects.
func (g *Generator) Boxes(n int) *boxes.Set {
	objects := g.objects()
	out := make([]boxes.Box, n)
	for i := range out {
		o := objects[g.rng.Intn(len(objects))]
		w := o.W * (1 + g.Jitter*g.rng.NormFloat64())
		h := o.H * (1 + g.Jitter*g.rng.NormFloat64())
		cx := o.CX + o.W*g.Jitter*g.rng.NormFloat64()
		cy := o.CY + o.H*g.Jitter*g.rng.NormFloat64()
		w, h = math.Max(w, 1), math.Max(h, 1)
		out[i] = boxes.Box{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2}
	}
	return boxes.NewSet(out)
}

// RotatedBoxes draws n oriented boxes around Clusters objects.
func (g *Generator) RotatedBoxes(n int) *boxes.Set {
	objects := g.objects()
	out := make([]boxes.Rotated, n)
	for i := range out {
		o := objects[g.rng.Intn(len(objects))]
		out[i] = boxes.Rotated{
			CX:    o.CX + o.W*g.Jitter*g.rng.NormFloat64(),
			CY:    o.CY + o.H*g.Jitter*g.rng.NormFloat64(),
			W:     math.Max(o.W*(1+g.Jitter*g.rng.NormFloat64()), 1),
			H:     math.Max(o.H*(1+g.Jitter*g.rng.NormFloat64()), 1),
			Angle: o.Angle + 0.2*g.rng.NormFloat64(),
		}
	}
	set, err := boxes.NewRotatedSet(out)
	if err != nil {
		// Every component above is finite and sizes are at least 1.
		panic(err)
	}
	return set
}

// Scores draws n scores in (0, 1]. A positive levels quantizes them to that
// many distinct values, which produces ties.
func (g *Generator) Scores(n, levels int) []float64 {
	out := make([]float64, n)
	for i := range out {
		s := 1 - g.rng.Float64()
		if levels > 0 {
			s = math.Ceil(s*float64(levels)) / float64(levels)
		}
		out[i] = s
	}
	return out
}

// Labels draws n ids in [0, k).
func (g *Generator) Labels(n, k int) []int {
	out := make([]int, n)
	if k <= 1 {
		return out
	}
	for i := range out {
		out[i] = g.rng.Intn(k)
	}
	return out
}

// Scene is a batch of synthetic detections.
type Scene struct {
	Boxes   *boxes.Set
	Scores  []float64
	Classes []int
	Images  []int
}

// Scene draws n boxes with unquantized scores spread over the given number of
// images and classes.
func (g *Generator) Scene(n, images, classes int) Scene {
	return Scene{
		Boxes:   g.Boxes(n),
		Scores:  g.Scores(n, 0),
		Classes: g.Labels(n, classes),
		Images:  g.Labels(n, images),
	}
}

func (g *Generator) objects() []boxes.Rotated {
	k := max(g.Clusters, 1)
	out := make([]boxes.Rotated, k)
	for i := range out {
		w := g.MinSize + g.rng.Float64()*(g.MaxSize-g.MinSize)
		h := g.MinSize + g.rng.Float64()*(g.MaxSize-g.MinSize)
		out[i] = boxes.Rotated{
			CX:    w/2 + g.rng.Float64()*math.Max(g.Width-w, 0),
			CY:    h/2 + g.rng.Float64()*math.Max(g.Height-h, 0),
			W:     w,
			H:     h,
			Angle: g.rng.Float64() * math.Pi,
		}
	}
	return out
}

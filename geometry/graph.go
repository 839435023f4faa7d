package geometry

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-nms/boxes"
)

const (
	inXX1 = iota
	inYY1
	inXX2
	inYY2
	inBias
	numGraphInputs
)

var graphInputNames = [numGraphInputs]string{"xx1", "yy1", "xx2", "yy2", "bias"}

// GraphKernel evaluates one box against a chunk of candidates with a gorgonia
// expression graph:
//
//	inter = rectify(xx2-xx1+bias) ⊙ rectify(yy2-yy1+bias)
//
// The overlap corners and areas are gathered on the Go side. The graph only
// produces the intersection vector; the criterion ratio is taken with Ratio
// from the areas of the same chunk, so every criterion is bit-identical to the
// scalar path. A kernel is not safe for concurrent use.
type GraphKernel struct {
	size      int
	criterion Criterion
	graph     *G.ExprGraph
	vm        G.VM
	inputs    [numGraphInputs]*G.Node
	buffers   [numGraphInputs][]float64
	areas     []float64
	inter     []float64
	output    *G.Node
}

// NewGraphKernel compiles a kernel evaluating size candidates per run.
//
// Arguments:
//   - size: The chunk length; longer candidate lists are processed in chunks.
//   - c: The overlap criterion.
//
// Returns:
//   - *GraphKernel: The compiled kernel. Call Close when done.
//   - error: An error if the graph can not be built.
func NewGraphKernel(size int, c Criterion) (*GraphKernel, error) {
	if size <= 0 {
		return nil, errors.Errorf("graph kernel size must be positive, got %d", size)
	}

	k := &GraphKernel{
		size:      size,
		criterion: c,
		graph:     G.NewGraph(),
		areas:     make([]float64, size),
		inter:     make([]float64, size),
	}
	for i := range k.inputs {
		k.buffers[i] = make([]float64, size)
		k.inputs[i] = G.NewVector(k.graph, tensor.Float64, G.WithShape(size), G.WithName(graphInputNames[i]))
	}

	w, err := extent(k.inputs[inXX2], k.inputs[inXX1], k.inputs[inBias])
	if err != nil {
		return nil, errors.Wrap(err, "building width expression")
	}
	h, err := extent(k.inputs[inYY2], k.inputs[inYY1], k.inputs[inBias])
	if err != nil {
		return nil, errors.Wrap(err, "building height expression")
	}
	if k.output, err = G.HadamardProd(w, h); err != nil {
		return nil, errors.Wrap(err, "building intersection expression")
	}

	k.vm = G.NewTapeMachine(k.graph)
	return k, nil
}

// extent builds rectify(hi - lo + bias).
func extent(hi, lo, bias *G.Node) (*G.Node, error) {
	diff, err := G.Sub(hi, lo)
	if err != nil {
		return nil, err
	}
	shifted, err := G.Add(diff, bias)
	if err != nil {
		return nil, err
	}
	return G.Rectify(shifted)
}

// Size returns the number of candidates evaluated per run.
func (k *GraphKernel) Size() int {
	return k.size
}

// Compute writes the overlap of a with each candidate into dst.
//
// Arguments:
//   - a: The reference box.
//   - candidates: Boxes to compare with a.
//   - bias: Pixel offset.
//   - dst: Output, len(dst) >= len(candidates).
//
// Returns:
//   - error: An error if the graph fails to run.
func (k *GraphKernel) Compute(a boxes.Box, candidates []boxes.Box, bias float64, dst []float64) error {
	return k.compute(a, len(candidates), func(i int) boxes.Box { return candidates[i] }, bias, dst)
}

// ComputeIndexed writes the overlap of set.Boxes[winner] with each
// set.Boxes[candidates[i]] into dst[i]. Boxes are read straight from the set
// into the kernel buffers.
func (k *GraphKernel) ComputeIndexed(set *boxes.Set, winner int, candidates []int, bias float64, dst []float64) error {
	return k.compute(set.Boxes[winner], len(candidates), func(i int) boxes.Box { return set.Boxes[candidates[i]] }, bias, dst)
}

func (k *GraphKernel) compute(a boxes.Box, n int, at func(int) boxes.Box, bias float64, dst []float64) error {
	areaA := Area(a, bias)
	for start := 0; start < n; start += k.size {
		end := min(start+k.size, n)

		k.fill(a, start, end, at, bias)
		if err := k.run(); err != nil {
			return err
		}
		for i := 0; i < end-start; i++ {
			dst[start+i] = Ratio(k.criterion, k.inter[i], areaA, k.areas[i])
		}
	}
	return nil
}

// fill gathers overlap corners and candidate areas for at(start..end-1) into
// the buffers, zero-padding the tail of a short chunk.
func (k *GraphKernel) fill(a boxes.Box, start, end int, at func(int) boxes.Box, bias float64) {
	for i := 0; i < k.size; i++ {
		k.buffers[inBias][i] = bias
		if start+i >= end {
			k.buffers[inXX1][i], k.buffers[inYY1][i] = 0, 0
			k.buffers[inXX2][i], k.buffers[inYY2][i] = 0, 0
			k.areas[i] = 0
			continue
		}
		b := at(start + i)
		xx1, yy1, xx2, yy2 := overlapCorners(a, b)
		k.buffers[inXX1][i], k.buffers[inYY1][i] = xx1, yy1
		k.buffers[inXX2][i], k.buffers[inYY2][i] = xx2, yy2
		k.areas[i] = Area(b, bias)
	}
}

// run binds the buffers, executes the graph and copies the intersection
// vector out before the machine is reset.
func (k *GraphKernel) run() error {
	defer k.vm.Reset()

	for i, n := range k.inputs {
		value := tensor.New(tensor.WithShape(k.size), tensor.WithBacking(k.buffers[i]))
		if err := G.Let(n, value); err != nil {
			return errors.Wrapf(err, "binding %s", graphInputNames[i])
		}
	}
	if err := k.vm.RunAll(); err != nil {
		return errors.Wrap(err, "running overlap graph")
	}
	inter, err := nodeValues(k.output)
	if err != nil {
		return err
	}
	if len(inter) < k.size {
		return errors.Errorf("intersection holds %d values, expected %d", len(inter), k.size)
	}
	copy(k.inter, inter)
	return nil
}

// nodeValues reads a node's value as a float64 slice.
func nodeValues(n *G.Node) ([]float64, error) {
	v := n.Value()
	if v == nil {
		return nil, errors.Errorf("node %s has no value", n.Name())
	}
	switch data := v.Data().(type) {
	case []float64:
		return data, nil
	case float64:
		return []float64{data}, nil
	default:
		return nil, errors.Errorf("node %s holds %T, expected float64 data", n.Name(), data)
	}
}

// Close releases the kernel's virtual machine.
func (k *GraphKernel) Close() error {
	if k.vm == nil {
		return nil
	}
	err := k.vm.Close()
	k.vm = nil
	return err
}

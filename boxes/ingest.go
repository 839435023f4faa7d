package boxes

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-nms/common"
)

// FromFloat32 decodes detector output kept in single precision. Components are
// screened in float32 and widened to float64 before any geometry, so overlap
// round-off never depends on the input precision.
func FromFloat32(enc Encoding, data []float32) (*Set, error) {
	if err := enc.validate(); err != nil {
		return nil, err
	}
	stride := enc.Stride()
	wide := make([]float64, len(data))
	for k, v := range data {
		if math32.IsNaN(v) {
			return nil, common.NewInvalidBox(k/stride, "component %d is NaN", k%stride)
		}
		if math32.IsInf(v, 0) {
			return nil, common.NewInvalidBox(k/stride, "component %d is infinite", k%stride)
		}
		wide[k] = float64(v)
	}
	return Decode(enc, wide)
}

// FromTensor decodes an [N, stride] tensor of box components.
//
// Arguments:
//   - enc: The encoding of each row.
//   - t: A Float32 or Float64 dense tensor; views are materialized first.
//
// Returns:
//   - *Set: The canonical set.
//   - error: InvalidArgumentError on shape or dtype mismatch, InvalidBoxError
//     for a malformed box.
func FromTensor(enc Encoding, t *tensor.Dense) (*Set, error) {
	if err := enc.validate(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, common.NewInvalidArgument("boxes", "nil tensor")
	}

	shape := t.Shape()
	if len(shape) != 2 || shape[1] != enc.Stride() {
		return nil, common.NewInvalidArgument("boxes",
			"tensor shape %v does not match [N, %d] for encoding %q", shape, enc.Stride(), string(enc))
	}

	if t.IsMaterializable() {
		m, ok := t.Materialize().(*tensor.Dense)
		if !ok {
			return nil, errors.New("materialized tensor is not dense")
		}
		t = m
	}

	switch data := t.Data().(type) {
	case []float64:
		// Decode never writes into its input, so the backing array is safe to share.
		return Decode(enc, data)
	case []float32:
		return FromFloat32(enc, data)
	default:
		return nil, common.NewInvalidArgument("boxes", "unsupported tensor dtype %v", t.Dtype())
	}
}

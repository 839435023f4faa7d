package boxes

import (
	"github.com/nvr-ai/go-nms/common"
)

// Set is a canonicalized collection of boxes addressed by zero-based index.
//
// Boxes always holds one axis-aligned box per entry. For rotated collections
// Rotated holds the oriented boxes and Boxes their axis-aligned bounds, which
// spatial pruning uses as a conservative envelope.
type Set struct {
	Boxes   []Box
	Rotated []Rotated
}

// NewSet wraps already-canonical axis-aligned boxes. Corners are swapped where
// needed; the caller's slice is not modified.
func NewSet(bs []Box) *Set {
	out := make([]Box, len(bs))
	for i, b := range bs {
		out[i] = b.canon()
	}
	return &Set{Boxes: out}
}

// NewRotatedSet wraps oriented boxes, normalizing angles and deriving bounds.
//
// Returns:
//   - *Set: The canonical set.
//   - error: An InvalidBoxError on a negative size or non-finite component.
func NewRotatedSet(rs []Rotated) (*Set, error) {
	out := &Set{
		Boxes:   make([]Box, len(rs)),
		Rotated: make([]Rotated, len(rs)),
	}
	for i, r := range rs {
		decoded, err := decodeRotated(i, []float64{r.CX, r.CY, r.W, r.H, r.Angle})
		if err != nil {
			return nil, err
		}
		out.Rotated[i] = decoded
		out.Boxes[i] = decoded.Bounds()
	}
	return out, nil
}

// Len returns the number of boxes in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Boxes)
}

// IsRotated reports whether the set holds oriented boxes.
func (s *Set) IsRotated() bool {
	return s != nil && s.Rotated != nil
}

// Take returns a new set holding the boxes at indices, in that order.
func (s *Set) Take(indices []int) *Set {
	out := &Set{Boxes: make([]Box, len(indices))}
	if s.IsRotated() {
		out.Rotated = make([]Rotated, len(indices))
	}
	for k, i := range indices {
		out.Boxes[k] = s.Boxes[i]
		if out.Rotated != nil {
			out.Rotated[k] = s.Rotated[i]
		}
	}
	return out
}

// MaxWidth returns the largest box width in the set, or 0 for an empty set.
func (s *Set) MaxWidth() float64 {
	var w float64
	for _, b := range s.Boxes {
		if bw := b.Width(); bw > w {
			w = bw
		}
	}
	return w
}

// Decode converts a flat row-major slice of box components into a canonical
// set. The slice length must be a multiple of the encoding's stride.
//
// Arguments:
//   - enc: The encoding of data.
//   - data: len(data)/enc.Stride() boxes, one after another.
//
// Returns:
//   - *Set: The canonical set.
//   - error: InvalidArgumentError for an unknown encoding or ragged data,
//     InvalidBoxError for a malformed box.
func Decode(enc Encoding, data []float64) (*Set, error) {
	if err := enc.validate(); err != nil {
		return nil, err
	}
	stride := enc.Stride()
	if len(data)%stride != 0 {
		return nil, common.NewInvalidArgument("boxes",
			"length %d is not a multiple of %d for encoding %q", len(data), stride, string(enc))
	}

	n := len(data) / stride
	set := &Set{Boxes: make([]Box, n)}
	if enc.IsRotated() {
		set.Rotated = make([]Rotated, n)
	}

	for i := 0; i < n; i++ {
		row := data[i*stride : (i+1)*stride]
		if enc.IsRotated() {
			r, err := decodeRotated(i, row)
			if err != nil {
				return nil, err
			}
			set.Rotated[i] = r
			set.Boxes[i] = r.Bounds()
			continue
		}
		b, err := decodeAxis(enc, i, row)
		if err != nil {
			return nil, err
		}
		set.Boxes[i] = b
	}

	return set, nil
}

// FromRows is Decode for a slice of per-box rows.
func FromRows(enc Encoding, rows [][]float64) (*Set, error) {
	if err := enc.validate(); err != nil {
		return nil, err
	}
	stride := enc.Stride()
	flat := make([]float64, 0, len(rows)*stride)
	for i, row := range rows {
		if len(row) != stride {
			return nil, common.NewInvalidArgument("boxes",
				"row %d has %d components, encoding %q needs %d", i, len(row), string(enc), stride)
		}
		flat = append(flat, row...)
	}
	return Decode(enc, flat)
}

// Encode writes the set out as a flat row-major slice in enc. Rotated sets can
// only be encoded as EncodingRotated; axis-aligned sets encode into any
// encoding (angle 0 for EncodingRotated).
func (s *Set) Encode(enc Encoding) ([]float64, error) {
	if err := enc.validate(); err != nil {
		return nil, err
	}
	if s.IsRotated() && !enc.IsRotated() {
		return nil, common.NewInvalidArgument("encoding",
			"rotated boxes can not be encoded as %q", string(enc))
	}

	stride := enc.Stride()
	out := make([]float64, s.Len()*stride)
	for i := 0; i < s.Len(); i++ {
		dst := out[i*stride : (i+1)*stride]
		if s.IsRotated() {
			r := s.Rotated[i]
			dst[0], dst[1], dst[2], dst[3], dst[4] = r.CX, r.CY, r.W, r.H, r.Angle
			continue
		}
		encodeAxis(enc, s.Boxes[i], dst)
	}
	return out, nil
}

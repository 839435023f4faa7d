package boxes

import (
	"fmt"
	"math"

	"github.com/nvr-ai/go-nms/common"
)

// Box is an axis-aligned box in canonical corner form. Once produced by this
// package, X2 >= X1 and Y2 >= Y1 hold.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// Width returns X2 - X1.
func (b Box) Width() float64 {
	return b.X2 - b.X1
}

// Height returns Y2 - Y1.
func (b Box) Height() float64 {
	return b.Y2 - b.Y1
}

// Center returns the center point of the box.
func (b Box) Center() (x, y float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// IsDegenerate reports whether the box has zero width or height.
func (b Box) IsDegenerate() bool {
	return b.X2 <= b.X1 || b.Y2 <= b.Y1
}

func (b Box) String() string {
	return fmt.Sprintf("(%g, %g)-(%g, %g)", b.X1, b.Y1, b.X2, b.Y2)
}

// canon swaps corners so that X1 <= X2 and Y1 <= Y2.
func (b Box) canon() Box {
	if b.X2 < b.X1 {
		b.X1, b.X2 = b.X2, b.X1
	}
	if b.Y2 < b.Y1 {
		b.Y1, b.Y2 = b.Y2, b.Y1
	}
	return b
}

// decodeAxis converts one row in an axis-aligned encoding into a canonical box.
func decodeAxis(enc Encoding, index int, row []float64) (Box, error) {
	if err := checkFinite(index, row); err != nil {
		return Box{}, err
	}

	switch enc {
	case EncodingXYXY:
		return Box{X1: row[0], Y1: row[1], X2: row[2], Y2: row[3]}.canon(), nil
	case EncodingXYWH:
		if err := checkSize(index, row[2], row[3]); err != nil {
			return Box{}, err
		}
		return Box{X1: row[0], Y1: row[1], X2: row[0] + row[2], Y2: row[1] + row[3]}, nil
	case EncodingCXCYWH:
		if err := checkSize(index, row[2], row[3]); err != nil {
			return Box{}, err
		}
		hw, hh := row[2]/2, row[3]/2
		return Box{X1: row[0] - hw, Y1: row[1] - hh, X2: row[0] + hw, Y2: row[1] + hh}, nil
	default:
		return Box{}, common.NewInvalidArgument("encoding", "%q is not an axis-aligned encoding", string(enc))
	}
}

// encodeAxis writes b into dst using enc. dst must hold enc.Stride() values.
func encodeAxis(enc Encoding, b Box, dst []float64) {
	switch enc {
	case EncodingXYXY:
		dst[0], dst[1], dst[2], dst[3] = b.X1, b.Y1, b.X2, b.Y2
	case EncodingXYWH:
		dst[0], dst[1], dst[2], dst[3] = b.X1, b.Y1, b.Width(), b.Height()
	case EncodingCXCYWH:
		cx, cy := b.Center()
		dst[0], dst[1], dst[2], dst[3] = cx, cy, b.Width(), b.Height()
	case EncodingRotated:
		cx, cy := b.Center()
		dst[0], dst[1], dst[2], dst[3], dst[4] = cx, cy, b.Width(), b.Height(), 0
	}
}

func checkFinite(index int, row []float64) error {
	for k, v := range row {
		if math.IsNaN(v) {
			return common.NewInvalidBox(index, "component %d is NaN", k)
		}
		if math.IsInf(v, 0) {
			return common.NewInvalidBox(index, "component %d is infinite", k)
		}
	}
	return nil
}

func checkSize(index int, w, h float64) error {
	if w < 0 {
		return common.NewInvalidBox(index, "negative width %g", w)
	}
	if h < 0 {
		return common.NewInvalidBox(index, "negative height %g", h)
	}
	return nil
}

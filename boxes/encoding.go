// Package boxes - canonical box representation and conversions between box
// encodings.
//
// Every collection is canonicalized into corner-corner float64 boxes
// (x1 <= x2, y1 <= y2) before any geometry runs. Rotated boxes additionally
// keep their center/size/angle form so polygon geometry can be applied.
package boxes

import (
	"strings"

	"github.com/nvr-ai/go-nms/common"
)

// Encoding names the layout of the numbers describing a single box.
type Encoding string

const (
	// EncodingXYXY is corner-corner: x1, y1, x2, y2.
	EncodingXYXY Encoding = "xyxy"
	// EncodingXYWH is corner-size: x, y, w, h with (x, y) the top-left corner.
	EncodingXYWH Encoding = "xywh"
	// EncodingCXCYWH is center-size: cx, cy, w, h.
	EncodingCXCYWH Encoding = "cxywh"
	// EncodingRotated is an oriented box: cx, cy, w, h, angle (radians).
	EncodingRotated Encoding = "cxywha"
)

// aliases maps alternate names onto the canonical tags.
var aliases = map[string]Encoding{
	"xyxy":   EncodingXYXY,
	"tlbr":   EncodingXYXY,
	"ltrb":   EncodingXYXY,
	"xywh":   EncodingXYWH,
	"cxywh":  EncodingCXCYWH,
	"cxcywh": EncodingCXCYWH,
	"cxywha": EncodingRotated,
	"rbox":   EncodingRotated,
}

// ParseEncoding resolves an encoding tag, accepting the common aliases
// ("tlbr", "ltrb" for corners; "rbox" for rotated).
//
// Arguments:
//   - tag: The encoding name, case-insensitive.
//
// Returns:
//   - Encoding: The canonical encoding.
//   - error: An InvalidArgumentError if the tag is unknown.
func ParseEncoding(tag string) (Encoding, error) {
	enc, ok := aliases[strings.ToLower(strings.TrimSpace(tag))]
	if !ok {
		return "", common.NewInvalidArgument("encoding", "unsupported encoding tag %q", tag)
	}
	return enc, nil
}

// Stride returns how many numbers describe one box in this encoding, or 0
// for an unknown encoding.
func (e Encoding) Stride() int {
	switch e {
	case EncodingXYXY, EncodingXYWH, EncodingCXCYWH:
		return 4
	case EncodingRotated:
		return 5
	default:
		return 0
	}
}

// IsRotated reports whether the encoding carries an angle.
func (e Encoding) IsRotated() bool {
	return e == EncodingRotated
}

// IsSizeBased reports whether the encoding carries width and height directly,
// in which case negative values are rejected instead of canonicalized.
func (e Encoding) IsSizeBased() bool {
	return e == EncodingXYWH || e == EncodingCXCYWH || e == EncodingRotated
}

func (e Encoding) validate() error {
	if e.Stride() == 0 {
		return common.NewInvalidArgument("encoding", "unsupported encoding tag %q", string(e))
	}
	return nil
}

package main

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/nvr-ai/go-nms/boxes"
	"github.com/nvr-ai/go-nms/common"
	"github.com/nvr-ai/go-nms/detections"
	"github.com/nvr-ai/go-nms/nms"
	"github.com/nvr-ai/go-nms/providers"
	"github.com/nvr-ai/go-nms/util"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// document is the JSON input of the command.
type document struct {
	Encoding string      `json:"encoding"`
	Boxes    [][]float64 `json:"boxes"`
	Scores   []float64   `json:"scores,omitempty"`
	Classes  []int       `json:"classes,omitempty"`
	Images   []int       `json:"images,omitempty"`
	// Labels names class ids for text output.
	Labels []string `json:"labels,omitempty"`
}

// keptBox is one surviving detection in the JSON output.
type keptBox struct {
	Index int       `json:"index"`
	Score float64   `json:"score"`
	Class *int      `json:"class,omitempty"`
	Image *int      `json:"image,omitempty"`
	Box   []float64 `json:"box"`
}

// report is the JSON output of the command.
type report struct {
	Backend providers.ProviderBackend `json:"backend"`
	Kept    []keptBox                 `json:"kept"`
}

func readDocument(r io.Reader) (document, detections.Detections, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return document{}, detections.Detections{}, errors.Wrap(err, "decoding detection document")
	}
	return decodeDocument(doc)
}

// readFrames merges the frame-<n>.json documents of dir into one batch whose
// image ids are the frame numbers. Documents without scores contribute unit
// scores.
func readFrames(dir string) (document, detections.Detections, error) {
	files, err := util.LoadDirectoryFrameFiles(dir)
	if err != nil {
		return document{}, detections.Detections{}, err
	}

	var merged document
	var withClasses, decided bool
	for k, f := range files {
		var doc document
		if err := json.Unmarshal(f.Data, &doc); err != nil {
			return document{}, detections.Detections{}, errors.Wrapf(err, "decoding %s", f.Path)
		}
		if k == 0 {
			merged.Encoding = doc.Encoding
		} else if doc.Encoding != merged.Encoding {
			return document{}, detections.Detections{}, common.NewInvalidArgument("encoding",
				"%s uses %q, earlier frames use %q", f.Path, doc.Encoding, merged.Encoding)
		}
		if len(doc.Boxes) > 0 {
			if !decided {
				withClasses, decided = doc.Classes != nil, true
			} else if withClasses != (doc.Classes != nil) {
				return document{}, detections.Detections{}, common.NewInvalidArgument("classes",
					"%s must carry class ids exactly when the other frames do", f.Path)
			}
		}

		if doc.Scores != nil && len(doc.Scores) != len(doc.Boxes) ||
			doc.Classes != nil && len(doc.Classes) != len(doc.Boxes) {
			return document{}, detections.Detections{}, common.NewInvalidArgument("boxes",
				"%s has %d boxes, %d scores and %d class ids", f.Path, len(doc.Boxes), len(doc.Scores), len(doc.Classes))
		}

		merged.Boxes = append(merged.Boxes, doc.Boxes...)
		if doc.Scores == nil {
			doc.Scores = lo.Times(len(doc.Boxes), func(int) float64 { return 1 })
		}
		merged.Scores = append(merged.Scores, doc.Scores...)
		merged.Classes = append(merged.Classes, doc.Classes...)
		merged.Images = append(merged.Images, lo.Times(len(doc.Boxes), func(int) int { return f.Frame })...)
		if len(merged.Labels) == 0 {
			merged.Labels = doc.Labels
		}
	}
	return decodeDocument(merged)
}

func decodeDocument(doc document) (document, detections.Detections, error) {
	tag := doc.Encoding
	if tag == "" {
		tag = string(boxes.EncodingXYXY)
	}
	enc, err := boxes.ParseEncoding(tag)
	if err != nil {
		return document{}, detections.Detections{}, err
	}
	set, err := boxes.FromRows(enc, doc.Boxes)
	if err != nil {
		return document{}, detections.Detections{}, err
	}
	doc.Encoding = string(enc)

	return doc, detections.Detections{
		Boxes:   set,
		Scores:  doc.Scores,
		Classes: doc.Classes,
		Images:  doc.Images,
	}, nil
}

func buildReport(
	backend providers.ProviderBackend,
	doc document,
	dets detections.Detections,
	res nms.Result,
) (report, error) {
	kept := dets.Take(res.Indices)
	flat, err := kept.Boxes.Encode(boxes.Encoding(doc.Encoding))
	if err != nil {
		return report{}, err
	}
	stride := boxes.Encoding(doc.Encoding).Stride()

	out := report{Backend: backend, Kept: make([]keptBox, len(res.Indices))}
	for k, i := range res.Indices {
		out.Kept[k] = keptBox{
			Index: i,
			Score: res.Scores[k],
			Box:   flat[k*stride : (k+1)*stride],
		}
		if kept.Classes != nil {
			out.Kept[k].Class = &kept.Classes[k]
		}
		if kept.Images != nil {
			out.Kept[k].Image = &kept.Images[k]
		}
	}
	return out, nil
}

// boundingBoxes lists the kept boxes as labeled records for text output.
// Rotated boxes are shown by their axis-aligned bounds.
func boundingBoxes(doc document, r report, dets detections.Detections) []common.BoundingBox {
	out := make([]common.BoundingBox, len(r.Kept))
	for k, kb := range r.Kept {
		b := dets.Boxes.Boxes[kb.Index]
		out[k] = common.BoundingBox{
			Confidence: kb.Score,
			X1:         b.X1,
			Y1:         b.Y1,
			X2:         b.X2,
			Y2:         b.Y2,
		}
		if kb.Class != nil && *kb.Class >= 0 && *kb.Class < len(doc.Labels) {
			out[k].Label = doc.Labels[*kb.Class]
		}
	}
	return out
}

// Package nms - greedy non-maximum suppression over canonical box sets.
//
// Boxes are ranked by score (descending, ties by ascending index) and swept
// greedily: each surviving winner suppresses, or for Soft-NMS demotes, the
// remaining boxes that overlap it by more than the threshold. The comparison is
// strict, so a box whose overlap equals the threshold survives.
package nms

import (
	"math"

	"go.uber.org/multierr"

	"github.com/nvr-ai/go-nms/boxes"
	"github.com/nvr-ai/go-nms/common"
	"github.com/nvr-ai/go-nms/geometry"
)

// Variant selects hard removal or soft score decay.
type Variant string

const (
	// VariantHard removes every box overlapping a winner by more than the threshold.
	VariantHard Variant = "hard"
	// VariantSoft decays the scores of overlapping boxes instead of removing them.
	VariantSoft Variant = "soft"
)

// Decay is the Soft-NMS score decay function.
type Decay string

const (
	// DecayLinear multiplies by (1 - overlap) when overlap exceeds the threshold.
	DecayLinear Decay = "linear"
	// DecayGaussian multiplies by exp(-overlap²/sigma) for every overlapping box.
	DecayGaussian Decay = "gaussian"
	// DecayHard multiplies by 0 when overlap exceeds the threshold.
	DecayHard Decay = "hard"
)

// Pruning controls the sorted-axis candidate pruning of the sweep.
type Pruning string

const (
	// PruningAuto prunes when a set has at least PruneMinSize boxes.
	PruningAuto Pruning = "auto"
	// PruningAlways always prunes.
	PruningAlways Pruning = "always"
	// PruningNever compares every winner with every remaining box.
	PruningNever Pruning = "never"
)

// Params holds the parameters of one suppression run.
type Params struct {
	// Threshold is the overlap above which a box is suppressed (strictly greater).
	Threshold float64 `json:"threshold" yaml:"threshold"`
	// MaxKeep caps the number of kept boxes; 0 means no cap.
	MaxKeep int `json:"maxKeep" yaml:"maxKeep"`
	// Criterion is the overlap measure.
	Criterion geometry.Criterion `json:"criterion" yaml:"criterion"`
	// Bias is the pixel offset added to widths and heights (axis-aligned only).
	Bias float64 `json:"bias" yaml:"bias"`
	// Variant selects hard or soft suppression.
	Variant Variant `json:"variant" yaml:"variant"`
	// Decay is the Soft-NMS decay function.
	Decay Decay `json:"decay" yaml:"decay"`
	// Sigma is the gaussian decay width.
	Sigma float64 `json:"sigma" yaml:"sigma"`
	// ScoreFloor removes a box once its (decayed) score drops below it. Soft only.
	ScoreFloor float64 `json:"scoreFloor" yaml:"scoreFloor"`
	// Pruning controls candidate pruning.
	Pruning Pruning `json:"pruning" yaml:"pruning"`
	// PruneMinSize is the set size at which PruningAuto starts pruning.
	PruneMinSize int `json:"pruneMinSize" yaml:"pruneMinSize"`
}

// DefaultParams returns hard IoU suppression at 0.5 with automatic pruning.
//
// @example
// params := nms.DefaultParams()
// params.Threshold = 0.45
// result, err := nms.Run(set, scores, params, nil)
func DefaultParams() Params {
	return Params{
		Threshold:    0.5,
		Criterion:    geometry.CriterionIoU,
		Variant:      VariantHard,
		Decay:        DecayLinear,
		Sigma:        0.5,
		ScoreFloor:   0.001,
		Pruning:      PruningAuto,
		PruneMinSize: 512,
	}
}

// withDefaults fills zero-valued enum fields.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Criterion == "" {
		p.Criterion = d.Criterion
	}
	if p.Variant == "" {
		p.Variant = d.Variant
	}
	if p.Decay == "" {
		p.Decay = d.Decay
	}
	if p.Pruning == "" {
		p.Pruning = d.Pruning
	}
	if p.PruneMinSize <= 0 {
		p.PruneMinSize = d.PruneMinSize
	}
	return p
}

// Validate checks params against a box set and its scores. All structural
// problems are reported before any suppression work starts.
//
// Arguments:
//   - set: The canonical boxes.
//   - scores: One score per box.
//   - p: The parameters.
//
// Returns:
//   - error: The parameter problems combined with multierr, or an
//     InvalidArgumentError for the scores, or nil.
func Validate(set *boxes.Set, scores []float64, p Params) error {
	p = p.withDefaults()

	if err := p.validate(set.IsRotated()); err != nil {
		return err
	}
	if len(scores) != set.Len() {
		return common.NewInvalidArgument("scores", "got %d scores for %d boxes", len(scores), set.Len())
	}
	for i, s := range scores {
		if math.IsNaN(s) {
			return common.NewInvalidArgument("scores", "score %d is NaN", i)
		}
	}
	return nil
}

// validate checks every field and returns all problems combined with multierr.
func (p Params) validate(rotated bool) error {
	var errs error

	if _, err := geometry.ParseCriterion(string(p.Criterion)); err != nil {
		errs = multierr.Append(errs, err)
	}
	if math.IsNaN(p.Threshold) || math.IsInf(p.Threshold, 0) || p.Threshold < 0 {
		errs = multierr.Append(errs, common.NewInvalidArgument("threshold", "%g is not a valid threshold", p.Threshold))
	} else if p.Criterion.IsRatio() && p.Threshold > 1 {
		errs = multierr.Append(errs, common.NewInvalidArgument("threshold", "%g is outside [0, 1]", p.Threshold))
	}
	if p.MaxKeep < 0 {
		errs = multierr.Append(errs, common.NewInvalidArgument("maxKeep", "must not be negative, got %d", p.MaxKeep))
	}
	if math.IsNaN(p.Bias) || math.IsInf(p.Bias, 0) || p.Bias < 0 {
		errs = multierr.Append(errs, common.NewInvalidArgument("bias", "%g is not a valid pixel offset", p.Bias))
	} else if rotated && p.Bias != 0 {
		errs = multierr.Append(errs, common.NewInvalidArgument("bias", "pixel offset is not defined for rotated boxes"))
	}

	switch p.Variant {
	case VariantHard:
	case VariantSoft:
		switch p.Decay {
		case DecayLinear, DecayHard:
		case DecayGaussian:
			if !(p.Sigma > 0) || math.IsInf(p.Sigma, 0) {
				errs = multierr.Append(errs,
					common.NewInvalidArgument("sigma", "gaussian decay needs a positive sigma, got %g", p.Sigma))
			}
		default:
			errs = multierr.Append(errs, common.NewInvalidArgument("decay", "unsupported decay %q", p.Decay))
		}
		if math.IsNaN(p.ScoreFloor) {
			errs = multierr.Append(errs, common.NewInvalidArgument("scoreFloor", "is NaN"))
		}
	default:
		errs = multierr.Append(errs, common.NewInvalidArgument("variant", "unsupported variant %q", p.Variant))
	}

	switch p.Pruning {
	case PruningAuto, PruningAlways, PruningNever:
	default:
		errs = multierr.Append(errs, common.NewInvalidArgument("pruning", "unsupported pruning mode %q", p.Pruning))
	}
	return errs
}

// prune reports whether a set of n boxes is swept with candidate pruning.
func (p Params) prune(n int) bool {
	switch p.Pruning {
	case PruningAlways:
		return true
	case PruningNever:
		return false
	default:
		return n >= p.PruneMinSize
	}
}

// ValidateParams checks params on their own, without a box set, and reports
// every invalid field. Validate runs the same checks plus the ones that need
// the set and scores.
func ValidateParams(p Params, rotated bool) error {
	return p.withDefaults().validate(rotated)
}

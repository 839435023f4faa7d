// Package detections - caller-facing suppression of detector output.
//
// Detections bundles the boxes of one batch with their scores, class ids and
// image ids. A Suppressor turns a Config into a dispatcher and runs
// suppression over Detections, returning either the kept indices or the kept
// detections themselves.
package detections

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-nms/boxes"
	"github.com/nvr-ai/go-nms/common"
	"github.com/nvr-ai/go-nms/dispatch"
	"github.com/nvr-ai/go-nms/nms"
	"github.com/nvr-ai/go-nms/providers"
)

// Detections is a batch of detected boxes.
type Detections struct {
	// Boxes are the canonical boxes.
	Boxes *boxes.Set
	// Scores holds one confidence per box; nil means every box scores 1.
	Scores []float64
	// Classes holds one class id per box, or nil.
	Classes []int
	// Images holds one image id per box, or nil.
	Images []int
}

// Len returns the number of detections.
func (d Detections) Len() int {
	return d.Boxes.Len()
}

// scoresOrDefault returns Scores, or unit scores when none were given.
func (d Detections) scoresOrDefault() []float64 {
	if d.Scores != nil {
		return d.Scores
	}
	return lo.Times(d.Len(), func(int) float64 { return 1 })
}

// Take returns the detections at indices, in that order.
func (d Detections) Take(indices []int) Detections {
	pick := func(src []int) []int {
		if src == nil {
			return nil
		}
		return lo.Map(indices, func(i int, _ int) int { return src[i] })
	}

	out := Detections{
		Boxes:   d.Boxes.Take(indices),
		Classes: pick(d.Classes),
		Images:  pick(d.Images),
	}
	if d.Scores != nil {
		out.Scores = lo.Map(indices, func(i int, _ int) float64 { return d.Scores[i] })
	}
	return out
}

// Suppressor runs a configured suppression pipeline. It is safe for
// concurrent use.
type Suppressor struct {
	cfg        Config
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
}

// NewSuppressor validates cfg and resolves its execution backend.
//
// Arguments:
//   - cfg: The pipeline configuration.
//   - logger: The logger; nil discards log output.
//
// Returns:
//   - *Suppressor: The suppressor.
//   - error: The configuration errors, or an InvalidArgumentError when no
//     backend can serve.
func NewSuppressor(cfg Config, logger *zap.Logger) (*Suppressor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := providers.DefaultRegistry(logger)
	registry.Configure(cfg.Providers)

	d, err := dispatch.New(registry, dispatch.Options{Backend: cfg.Backend, Workers: cfg.Workers}, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("suppressor ready",
		zap.String("backend", string(d.Backend())),
		zap.Float64("threshold", cfg.Threshold),
		zap.String("variant", string(cfg.Params().Variant)),
	)

	return &Suppressor{cfg: cfg, dispatcher: d, logger: logger}, nil
}

// Backend returns the resolved execution backend.
func (s *Suppressor) Backend() providers.ProviderBackend {
	return s.dispatcher.Backend()
}

// NonMaxSuppression returns the indices of the detections that survive
// suppression, with their (for soft suppression, decayed) scores.
//
// Arguments:
//   - ctx: Cancels the run.
//   - d: The detections.
//
// Returns:
//   - nms.Result: Kept indices into d, ordered by the configured order.
//   - error: An InvalidArgumentError for bad input.
func (s *Suppressor) NonMaxSuppression(ctx context.Context, d Detections) (nms.Result, error) {
	var keys []dispatch.GroupKey
	if s.cfg.PerClass || s.cfg.PerImage {
		var images, classes []int
		if s.cfg.PerImage {
			images = d.Images
		}
		if s.cfg.PerClass {
			classes = d.Classes
		}
		var err error
		if keys, err = dispatch.GroupKeys(d.Len(), images, classes); err != nil {
			return nms.Result{}, err
		}
	}
	if d.Scores != nil && len(d.Scores) != d.Len() {
		return nms.Result{}, common.NewInvalidArgument("scores", "got %d scores for %d boxes", len(d.Scores), d.Len())
	}

	return dispatch.Run(ctx, s.dispatcher, dispatch.Batch[dispatch.GroupKey]{
		Boxes:    d.Boxes,
		Scores:   d.scoresOrDefault(),
		Keys:     keys,
		Params:   s.cfg.Params(),
		Order:    s.cfg.Order,
		MaxTotal: s.cfg.MaxTotal,
	})
}

// NonMaxSuppress returns the detections that survive suppression, in the
// configured order. For soft suppression the kept scores are the decayed ones.
func (s *Suppressor) NonMaxSuppress(ctx context.Context, d Detections) (Detections, error) {
	res, err := s.NonMaxSuppression(ctx, d)
	if err != nil {
		return Detections{}, err
	}
	kept := d.Take(res.Indices)
	kept.Scores = res.Scores
	return kept, nil
}

// NonMaxSuppression is a one-shot Suppressor.NonMaxSuppression for cfg.
//
// @example
// res, err := dets.NonMaxSuppression(ctx, detections.DefaultConfig())
func (d Detections) NonMaxSuppression(ctx context.Context, cfg Config) (nms.Result, error) {
	s, err := NewSuppressor(cfg, nil)
	if err != nil {
		return nms.Result{}, err
	}
	return s.NonMaxSuppression(ctx, d)
}

// NonMaxSuppress is a one-shot Suppressor.NonMaxSuppress for cfg.
func (d Detections) NonMaxSuppress(ctx context.Context, cfg Config) (Detections, error) {
	s, err := NewSuppressor(cfg, nil)
	if err != nil {
		return Detections{}, err
	}
	return s.NonMaxSuppress(ctx, d)
}

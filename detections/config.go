package detections

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-nms/common"
	"github.com/nvr-ai/go-nms/dispatch"
	"github.com/nvr-ai/go-nms/geometry"
	"github.com/nvr-ai/go-nms/nms"
	"github.com/nvr-ai/go-nms/providers"
)

// Config represents the configuration of a suppression pipeline.
//
// The same structure is read from YAML files and JSON documents; zero values
// of the enum fields mean their defaults.
type Config struct {
	// Threshold is the overlap above which a box is suppressed.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// MaxKeep caps the kept boxes of each partition; 0 means no cap.
	MaxKeep int `json:"maxKeep" yaml:"maxKeep"`

	// MaxTotal caps the kept boxes of the whole batch; 0 means no cap.
	MaxTotal int `json:"maxTotal" yaml:"maxTotal"`

	// PerClass suppresses each class independently.
	PerClass bool `json:"perClass" yaml:"perClass"`

	// PerImage suppresses each image independently.
	PerImage bool `json:"perImage" yaml:"perImage"`

	// Criterion is the overlap measure: iou, iomin or intersection.
	Criterion geometry.Criterion `json:"criterion" yaml:"criterion"`

	// Bias is the pixel offset added to box extents.
	Bias float64 `json:"bias" yaml:"bias"`

	// Variant selects hard or soft suppression.
	Variant nms.Variant `json:"variant" yaml:"variant"`

	// Decay, Sigma and ScoreFloor configure soft suppression.
	Decay      nms.Decay `json:"decay" yaml:"decay"`
	Sigma      float64   `json:"sigma" yaml:"sigma"`
	ScoreFloor float64   `json:"scoreFloor" yaml:"scoreFloor"`

	// Pruning and PruneMinSize configure candidate pruning.
	Pruning      nms.Pruning `json:"pruning" yaml:"pruning"`
	PruneMinSize int         `json:"pruneMinSize" yaml:"pruneMinSize"`

	// Order is the merge order of batched results.
	Order dispatch.Order `json:"order" yaml:"order"`

	// Backend is the preferred execution backend.
	Backend providers.ProviderBackend `json:"backend" yaml:"backend"`

	// Workers bounds concurrently suppressed partitions; 0 means GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`

	// Providers overrides backend priorities and enablement.
	Providers []providers.ExecutionProviderConfig `json:"providers,omitempty" yaml:"providers,omitempty"`
}

// DefaultConfig returns hard IoU suppression at 0.5 per class, automatic
// backend selection and score-ordered output.
//
// @example
// cfg := detections.DefaultConfig()
// cfg.Threshold = 0.45
func DefaultConfig() Config {
	p := nms.DefaultParams()
	return Config{
		Threshold:    p.Threshold,
		PerClass:     true,
		Criterion:    p.Criterion,
		Variant:      p.Variant,
		Decay:        p.Decay,
		Sigma:        p.Sigma,
		ScoreFloor:   p.ScoreFloor,
		Pruning:      p.Pruning,
		PruneMinSize: p.PruneMinSize,
		Order:        dispatch.OrderScore,
		Backend:      providers.AutoProviderBackend,
	}
}

// LoadConfig reads a YAML configuration file over DefaultConfig.
//
// Arguments:
//   - path: The file to read.
//
// Returns:
//   - Config: The validated configuration.
//   - error: A read or parse error, or the validation errors.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Params returns the per-partition suppression parameters.
func (c Config) Params() nms.Params {
	return nms.Params{
		Threshold:    c.Threshold,
		MaxKeep:      c.MaxKeep,
		Criterion:    c.Criterion,
		Bias:         c.Bias,
		Variant:      c.Variant,
		Decay:        c.Decay,
		Sigma:        c.Sigma,
		ScoreFloor:   c.ScoreFloor,
		Pruning:      c.Pruning,
		PruneMinSize: c.PruneMinSize,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs error

	errs = multierr.Append(errs, nms.ValidateParams(c.Params(), false))
	if _, err := dispatch.ParseOrder(string(c.Order)); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := providers.ParseProviderBackend(string(c.Backend)); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.MaxTotal < 0 {
		errs = multierr.Append(errs, common.NewInvalidArgument("maxTotal", "must not be negative, got %d", c.MaxTotal))
	}
	if c.Workers < 0 {
		errs = multierr.Append(errs, common.NewInvalidArgument("workers", "must not be negative, got %d", c.Workers))
	}
	for i, p := range c.Providers {
		if _, err := providers.ParseProviderBackend(string(p.Backend)); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "providers[%d]", i))
		}
	}

	return errs
}

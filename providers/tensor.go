package providers

import (
	"context"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-nms/boxes"
	"github.com/nvr-ai/go-nms/common"
	"github.com/nvr-ai/go-nms/geometry"
	"github.com/nvr-ai/go-nms/nms"
)

// TensorOptions contains arguments for the tensor provider.
type TensorOptions struct {
	// ChunkSize is the vector length of the compiled graph. Sets smaller than
	// the chunk compile a graph of their own size.
	ChunkSize int `json:"chunkSize" yaml:"chunkSize"`
}

// isProviderOptions is a marker function to ensure the options are valid.
func (TensorOptions) isProviderOptions() {}

// TensorProvider evaluates overlap rows with a gorgonia graph kernel. It only
// serves axis-aligned sets.
type TensorProvider struct {
	options TensorOptions
}

// NewTensorProvider creates a new tensor provider.
func NewTensorProvider(args TensorOptions) *TensorProvider {
	if args.ChunkSize <= 0 {
		args.ChunkSize = 1024
	}
	return &TensorProvider{options: args}
}

// Backend returns the backend of the tensor provider.
func (p *TensorProvider) Backend() ProviderBackend {
	return TensorProviderBackend
}

// Options returns the options of the tensor provider.
func (p *TensorProvider) Options() ProviderOptions {
	return p.options
}

// Supports rejects rotated sets, which have no vectorized kernel.
func (p *TensorProvider) Supports(set *boxes.Set, _ nms.Params) error {
	if set.IsRotated() {
		return common.NewBackendUnavailable(string(TensorProviderBackend), "rotated boxes are not supported")
	}
	return nil
}

// Suppress runs the sweep with overlaps computed by a graph kernel.
func (p *TensorProvider) Suppress(
	ctx context.Context,
	set *boxes.Set,
	scores []float64,
	params nms.Params,
) (nms.Result, error) {
	if err := ctx.Err(); err != nil {
		return nms.Result{}, err
	}
	if err := p.Supports(set, params); err != nil {
		return nms.Result{}, err
	}
	if set.Len() == 0 {
		return nms.Sweep(set, scores, params, nil)
	}

	criterion := params.Criterion
	if criterion == "" {
		criterion = geometry.CriterionIoU
	}
	kernel, err := geometry.NewGraphKernel(min(p.options.ChunkSize, set.Len()), criterion)
	if err != nil {
		return nms.Result{}, common.NewBackendUnavailable(string(TensorProviderBackend), "%v", err)
	}
	defer kernel.Close()

	ov := nms.OverlapperFunc(func(winner int, candidates []int, dst []float64) error {
		return kernel.ComputeIndexed(set, winner, candidates, params.Bias, dst)
	})

	res, err := nms.Sweep(set, scores, params, ov)
	if err != nil {
		return nms.Result{}, errors.Wrap(err, "tensor sweep")
	}
	return res, nil
}

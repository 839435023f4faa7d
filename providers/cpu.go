package providers

import (
	"context"

	"github.com/nvr-ai/go-nms/boxes"
	"github.com/nvr-ai/go-nms/nms"
)

// CPUOptions contains arguments for the CPU provider.
type CPUOptions struct{}

// isProviderOptions is a marker function to ensure the options are valid.
func (CPUOptions) isProviderOptions() {}

// CPUProvider is the sequential reference provider.
type CPUProvider struct {
	options CPUOptions
}

// NewCPUProvider creates a new CPU provider.
func NewCPUProvider(args CPUOptions) *CPUProvider {
	return &CPUProvider{options: args}
}

// Backend returns the backend of the CPU provider.
func (p *CPUProvider) Backend() ProviderBackend {
	return CPUProviderBackend
}

// Options returns the options of the CPU provider.
func (p *CPUProvider) Options() ProviderOptions {
	return p.options
}

// Supports always returns nil: the CPU provider serves every request.
func (p *CPUProvider) Supports(*boxes.Set, nms.Params) error {
	return nil
}

// Suppress runs the reference sweep.
func (p *CPUProvider) Suppress(
	ctx context.Context,
	set *boxes.Set,
	scores []float64,
	params nms.Params,
) (nms.Result, error) {
	if err := ctx.Err(); err != nil {
		return nms.Result{}, err
	}
	return nms.Sweep(set, scores, params, nms.NewSequential(set, params))
}

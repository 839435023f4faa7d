// Package providers - execution backends for non-maximum suppression.
//
// Every provider runs the same greedy sweep from package nms and differs only
// in how a step's winner-vs-candidates overlaps are computed. The CPU provider
// is the reference and the universal fallback; accelerated providers must
// reproduce its kept indices exactly.
package providers

import (
	"context"
	"strings"

	"github.com/nvr-ai/go-nms/boxes"
	"github.com/nvr-ai/go-nms/common"
	"github.com/nvr-ai/go-nms/nms"
)

// ProviderBackend names an execution backend.
type ProviderBackend string

const (
	// AutoProviderBackend selects the highest priority available backend.
	AutoProviderBackend ProviderBackend = "auto"
	// CPUProviderBackend is the sequential reference implementation.
	CPUProviderBackend ProviderBackend = "cpu"
	// ParallelProviderBackend fans each step's overlap row out to worker goroutines.
	ParallelProviderBackend ProviderBackend = "parallel"
	// TensorProviderBackend evaluates overlap rows with a gorgonia expression graph.
	TensorProviderBackend ProviderBackend = "tensor"
	// GPUProviderBackend is reserved for a device kernel registered at runtime.
	GPUProviderBackend ProviderBackend = "gpu"
)

// ParseProviderBackend resolves a backend name; the empty string means auto.
func ParseProviderBackend(name string) (ProviderBackend, error) {
	switch b := ProviderBackend(strings.ToLower(strings.TrimSpace(name))); b {
	case "":
		return AutoProviderBackend, nil
	case AutoProviderBackend, CPUProviderBackend, ParallelProviderBackend, TensorProviderBackend, GPUProviderBackend:
		return b, nil
	default:
		return "", common.NewInvalidArgument("backend", "unsupported backend %q", name)
	}
}

// ProviderOptions is a marker interface for provider-specific config.
type ProviderOptions interface {
	isProviderOptions()
}

// ExecutionProvider represents the contract that all execution providers must implement.
type ExecutionProvider interface {
	// Backend returns the backend name of the provider.
	Backend() ProviderBackend
	// Options returns the provider's configuration.
	Options() ProviderOptions
	// Supports returns a BackendUnavailableError when the provider can not
	// serve a request for set with params, and nil otherwise.
	Supports(set *boxes.Set, params nms.Params) error
	// Suppress runs suppression on inputs already checked with nms.Validate.
	Suppress(ctx context.Context, set *boxes.Set, scores []float64, params nms.Params) (nms.Result, error)
}

// NewProvider creates a new provider based on the options type.
//
// Arguments:
//   - options: The options for the provider.
//
// Returns:
//   - ExecutionProvider: The new provider.
//   - error: An InvalidArgumentError for unknown options.
func NewProvider(options ProviderOptions) (ExecutionProvider, error) {
	switch opts := options.(type) {
	case CPUOptions:
		return NewCPUProvider(opts), nil
	case ParallelOptions:
		return NewParallelProvider(opts), nil
	case TensorOptions:
		return NewTensorProvider(opts), nil
	default:
		return nil, common.NewInvalidArgument("options", "unsupported provider options type: %T", opts)
	}
}

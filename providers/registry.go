package providers

import (
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/nvr-ai/go-nms/boxes"
	"github.com/nvr-ai/go-nms/common"
	"github.com/nvr-ai/go-nms/nms"
)

// ExecutionProviderConfig overrides the priority and enablement of a registered
// backend.
type ExecutionProviderConfig struct {
	// Backend specifies which execution provider is configured.
	Backend ProviderBackend `json:"backend" yaml:"backend"`

	// Priority determines the order in which providers are tried (higher = first).
	Priority int `json:"priority" yaml:"priority"`

	// Enabled toggles whether this provider should be used.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

type registration struct {
	provider ExecutionProvider
	priority int
	enabled  bool
}

// Registry holds the execution providers a process can select from. It is
// safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[ProviderBackend]*registration
	logger  *zap.Logger
}

// NewRegistry returns an empty registry. A nil logger discards log output.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{entries: map[ProviderBackend]*registration{}, logger: logger}
}

// DefaultRegistry returns a registry with the backends compiled into this
// module: cpu, parallel and tensor. No gpu provider is registered; a process
// with a device kernel adds one with Register.
//
// Auto selection prefers parallel on multi-core machines, then cpu. The tensor
// backend is opt-in by name: it agrees exactly with cpu but pays graph
// overhead on every step.
func DefaultRegistry(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(NewCPUProvider(CPUOptions{}), 10, true)
	r.Register(NewTensorProvider(TensorOptions{}), 0, true)

	parallel := 5
	if runtime.GOMAXPROCS(0) > 1 {
		parallel = 20
	}
	r.Register(NewParallelProvider(ParallelOptions{}), parallel, true)
	return r
}

// Register adds or replaces the provider for p.Backend().
func (r *Registry) Register(p ExecutionProvider, priority int, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[p.Backend()] = &registration{provider: p, priority: priority, enabled: enabled}
}

// Configure applies priority and enablement overrides. Backend names are
// matched case-insensitively; configs naming a backend that is not registered
// are ignored.
func (r *Registry) Configure(configs []ExecutionProviderConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range configs {
		b, err := ParseProviderBackend(string(c.Backend))
		if err != nil {
			continue
		}
		if e, ok := r.entries[b]; ok {
			e.priority = c.Priority
			e.enabled = c.Enabled
		}
	}
}

// Backends lists the enabled backends, highest priority first.
func (r *Registry) Backends() []ProviderBackend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderBackend, 0, len(r.entries))
	for b, e := range r.entries {
		if e.enabled {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := r.entries[out[i]].priority, r.entries[out[j]].priority
		if pi != pj {
			return pi > pj
		}
		return out[i] < out[j]
	})
	return out
}

// Get returns the provider registered for backend.
//
// Returns:
//   - ExecutionProvider: The provider.
//   - error: A BackendUnavailableError when it is missing or disabled.
func (r *Registry) Get(backend ProviderBackend) (ExecutionProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[backend]
	switch {
	case !ok:
		return nil, common.NewBackendUnavailable(string(backend), "not registered")
	case !e.enabled:
		return nil, common.NewBackendUnavailable(string(backend), "disabled")
	default:
		return e.provider, nil
	}
}

// Resolve selects the provider for a backend preference. The name is matched
// case-insensitively. Auto picks the highest priority enabled backend. A named
// backend that is unavailable falls back to cpu with a warning.
//
// Arguments:
//   - pref: The requested backend.
//
// Returns:
//   - ExecutionProvider: The selected provider.
//   - error: An InvalidArgumentError for an unknown name or when no backend,
//     cpu included, can serve.
func (r *Registry) Resolve(pref ProviderBackend) (ExecutionProvider, error) {
	pref, err := ParseProviderBackend(string(pref))
	if err != nil {
		return nil, err
	}
	if pref == AutoProviderBackend {
		for _, b := range r.Backends() {
			if p, err := r.Get(b); err == nil {
				return p, nil
			}
		}
		return nil, common.NewInvalidArgument("backend", "no execution backend is enabled")
	}

	p, err := r.Get(pref)
	if err == nil {
		return p, nil
	}
	return r.fallback(pref, err)
}

// ForRequest returns p when it supports the request and the cpu provider
// otherwise. The fallback is logged.
func (r *Registry) ForRequest(p ExecutionProvider, set *boxes.Set, params nms.Params) (ExecutionProvider, error) {
	err := p.Supports(set, params)
	if err == nil {
		return p, nil
	}
	return r.fallback(p.Backend(), err)
}

func (r *Registry) fallback(from ProviderBackend, cause error) (ExecutionProvider, error) {
	cpu, err := r.Get(CPUProviderBackend)
	if err != nil {
		return nil, common.NewInvalidArgument("backend",
			"backend %q is unavailable (%v) and the cpu fallback is disabled", from, cause)
	}
	r.logger.Warn("execution backend unavailable, falling back to cpu",
		zap.String("backend", string(from)),
		zap.Error(cause),
	)
	return cpu, nil
}

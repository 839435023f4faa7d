package benchmark

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-nms/nms"
	"github.com/nvr-ai/go-nms/providers"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Scenario describes one synthetic suppression workload.
type Scenario struct {
	Name       string                    `json:"name"        yaml:"name"`
	Backend    providers.ProviderBackend `json:"backend"     yaml:"backend"`
	Boxes      int                       `json:"boxes"       yaml:"boxes"`
	Images     int                       `json:"images"      yaml:"images"`
	Classes    int                       `json:"classes"     yaml:"classes"`
	Rotated    bool                      `json:"rotated"     yaml:"rotated"`
	Params     nms.Params                `json:"params"      yaml:"params"`
	Iterations int                       `json:"iterations"  yaml:"iterations"`
	WarmupRuns int                       `json:"warmup_runs" yaml:"warmupRuns"`
	Seed       int64                     `json:"seed"        yaml:"seed"`
}

// ScenarioBuilder helps build test scenarios with fluent API
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a new scenario builder
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:       name,
			Backend:    providers.AutoProviderBackend,
			Boxes:      1000,
			Images:     1,
			Classes:    1,
			Params:     nms.DefaultParams(),
			Iterations: 100,
			WarmupRuns: 10,
			Seed:       42,
		},
	}
}

// WithBackend sets the execution backend
func (sb *ScenarioBuilder) WithBackend(backend providers.ProviderBackend) *ScenarioBuilder {
	sb.scenario.Backend = backend
	return sb
}

// WithBoxes sets the number of boxes per batch
func (sb *ScenarioBuilder) WithBoxes(n int) *ScenarioBuilder {
	sb.scenario.Boxes = n
	return sb
}

// WithGroups spreads the boxes over images and classes
func (sb *ScenarioBuilder) WithGroups(images, classes int) *ScenarioBuilder {
	sb.scenario.Images = images
	sb.scenario.Classes = classes
	return sb
}

// WithRotated switches to oriented boxes
func (sb *ScenarioBuilder) WithRotated(rotated bool) *ScenarioBuilder {
	sb.scenario.Rotated = rotated
	return sb
}

// WithParams sets the suppression parameters
func (sb *ScenarioBuilder) WithParams(params nms.Params) *ScenarioBuilder {
	sb.scenario.Params = params
	return sb
}

// WithIterations sets the number of test iterations
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of warmup runs
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// WithSeed sets the fixture seed
func (sb *ScenarioBuilder) WithSeed(seed int64) *ScenarioBuilder {
	sb.scenario.Seed = seed
	return sb
}

// Build returns the configured test scenario
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// ScenarioSet represents a collection of related test scenarios
type ScenarioSet struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Scenarios   []Scenario `json:"scenarios"`
}

// PredefinedScenarios contains common benchmark scenario sets
type PredefinedScenarios struct{}

// GetComprehensiveScenarios returns every combination of backend, size,
// variant and box kind.
func (ps *PredefinedScenarios) GetComprehensiveScenarios(backends []providers.ProviderBackend) *ScenarioSet {
	scenarios := make([]Scenario, 0)

	soft := nms.DefaultParams()
	soft.Variant = nms.VariantSoft
	soft.Decay = nms.DecayGaussian

	variants := map[nms.Variant]nms.Params{
		nms.VariantHard: nms.DefaultParams(),
		nms.VariantSoft: soft,
	}

	for _, backend := range backends {
		for _, n := range []int{100, 1000, 10000} {
			for _, variant := range []nms.Variant{nms.VariantHard, nms.VariantSoft} {
				for _, rotated := range []bool{false, true} {
					kind := "axis"
					if rotated {
						kind = "rotated"
					}
					scenario := NewScenarioBuilder(fmt.Sprintf("%s_%d_%s_%s", backend, n, variant, kind)).
						WithBackend(backend).
						WithBoxes(n).
						WithGroups(4, 10).
						WithRotated(rotated).
						WithParams(variants[variant]).
						WithIterations(50).
						WithWarmupRuns(5).
						Build()

					scenarios = append(scenarios, scenario)
				}
			}
		}
	}

	return &ScenarioSet{
		Name:        "Comprehensive Performance Test",
		Description: "Tests all combinations of backends, batch sizes, variants and box kinds",
		Scenarios:   scenarios,
	}
}

// GetQuickScenarios returns a smaller set for quick testing
func (ps *PredefinedScenarios) GetQuickScenarios(backends []providers.ProviderBackend) *ScenarioSet {
	scenarios := make([]Scenario, 0)

	for _, backend := range backends {
		for _, n := range []int{200, 2000} {
			scenario := NewScenarioBuilder(fmt.Sprintf("%s_%d", backend, n)).
				WithBackend(backend).
				WithBoxes(n).
				WithGroups(2, 5).
				WithIterations(10).
				WithWarmupRuns(2).
				Build()

			scenarios = append(scenarios, scenario)
		}
	}

	return &ScenarioSet{
		Name:        "Quick Performance Test",
		Description: "Two batch sizes per backend with hard suppression",
		Scenarios:   scenarios,
	}
}

// GetScalingScenarios returns one backend over growing single-partition batches,
// with and without candidate pruning.
func (ps *PredefinedScenarios) GetScalingScenarios(backend providers.ProviderBackend) *ScenarioSet {
	scenarios := make([]Scenario, 0)

	for _, n := range []int{500, 2000, 8000, 32000} {
		for _, pruning := range []nms.Pruning{nms.PruningNever, nms.PruningAlways} {
			params := nms.DefaultParams()
			params.Pruning = pruning
			scenario := NewScenarioBuilder(fmt.Sprintf("%s_%d_prune_%s", backend, n, pruning)).
				WithBackend(backend).
				WithBoxes(n).
				WithParams(params).
				WithIterations(10).
				WithWarmupRuns(1).
				Build()

			scenarios = append(scenarios, scenario)
		}
	}

	return &ScenarioSet{
		Name:        "Scaling Test",
		Description: fmt.Sprintf("Batch size scaling on %s with and without pruning", backend),
		Scenarios:   scenarios,
	}
}

// SaveScenarioSet saves a scenario set to a JSON file
func SaveScenarioSet(scenarioSet *ScenarioSet, filename string) error {
	data, err := json.MarshalIndent(scenarioSet, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal scenario set")
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write scenario file")
	}

	return nil
}

// LoadScenarioSet loads a scenario set from a JSON file
func LoadScenarioSet(filename string) (*ScenarioSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scenario file")
	}

	var scenarioSet ScenarioSet
	if err := json.Unmarshal(data, &scenarioSet); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal scenario set")
	}

	return &scenarioSet, nil
}

// Config represents the overall benchmark configuration
type Config struct {
	OutputDir      string                      `json:"output_dir"      yaml:"outputDir"`
	Backends       []providers.ProviderBackend `json:"backends"        yaml:"backends"`
	Workers        int                         `json:"workers"         yaml:"workers"`
	TimeoutSeconds int                         `json:"timeout_seconds" yaml:"timeoutSeconds"`
}

// DefaultConfig returns a default benchmark configuration
func DefaultConfig() *Config {
	return &Config{
		OutputDir: "./benchmark_results",
		Backends: []providers.ProviderBackend{
			providers.CPUProviderBackend,
			providers.ParallelProviderBackend,
			providers.TensorProviderBackend,
		},
		TimeoutSeconds: 3600, // 1 hour
	}
}

// SaveConfig saves the benchmark configuration to a YAML file
func (c *Config) SaveConfig(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// LoadConfig loads benchmark configuration from a YAML file
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	return config, nil
}

package benchmark

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nvr-ai/go-nms/dispatch"
	"github.com/nvr-ai/go-nms/fixtures"
	"github.com/nvr-ai/go-nms/nms"
	"github.com/nvr-ai/go-nms/providers"
)

func TestNewSuite(t *testing.T) {
	outputDir := t.TempDir()
	suite := NewSuite(NewSuiteArgs{OutputPath: outputDir})

	assert.NotNil(t, suite)
	assert.NotNil(t, suite.registry)
	assert.Equal(t, outputDir, suite.outputDir)
	assert.Empty(t, suite.scenarios)
	assert.Empty(t, suite.results)
}

func TestScenarioBuilder(t *testing.T) {
	params := nms.DefaultParams()
	params.Threshold = 0.3

	scenario := NewScenarioBuilder("test_scenario").
		WithBackend(providers.ParallelProviderBackend).
		WithBoxes(250).
		WithGroups(2, 3).
		WithRotated(true).
		WithParams(params).
		WithIterations(50).
		WithWarmupRuns(5).
		WithSeed(9).
		Build()

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, providers.ParallelProviderBackend, scenario.Backend)
	assert.Equal(t, 250, scenario.Boxes)
	assert.Equal(t, 2, scenario.Images)
	assert.Equal(t, 3, scenario.Classes)
	assert.True(t, scenario.Rotated)
	assert.Equal(t, 0.3, scenario.Params.Threshold)
	assert.Equal(t, 50, scenario.Iterations)
	assert.Equal(t, 5, scenario.WarmupRuns)
	assert.Equal(t, int64(9), scenario.Seed)

	defaults := NewScenarioBuilder("defaults").Build()
	assert.Equal(t, providers.AutoProviderBackend, defaults.Backend)
	assert.Equal(t, nms.DefaultParams(), defaults.Params)
}

func TestAddScenario(t *testing.T) {
	suite := NewSuite(NewSuiteArgs{OutputPath: t.TempDir()})
	scenario := NewScenarioBuilder("test").WithBoxes(10).Build()

	suite.AddScenario(scenario)

	assert.Len(t, suite.scenarios, 1)
	assert.Equal(t, scenario, suite.scenarios[0])
}

func TestPredefinedScenarios(t *testing.T) {
	predefined := &PredefinedScenarios{}
	backends := []providers.ProviderBackend{providers.CPUProviderBackend, providers.TensorProviderBackend}

	quick := predefined.GetQuickScenarios(backends)
	assert.Equal(t, "Quick Performance Test", quick.Name)
	assert.Len(t, quick.Scenarios, 4)
	assert.Equal(t, "cpu_200", quick.Scenarios[0].Name)

	comprehensive := predefined.GetComprehensiveScenarios(backends)
	assert.Equal(t, "Comprehensive Performance Test", comprehensive.Name)
	assert.Len(t, comprehensive.Scenarios, 2*3*2*2)
	names := map[string]bool{}
	for _, s := range comprehensive.Scenarios {
		assert.False(t, names[s.Name], "duplicate scenario %s", s.Name)
		names[s.Name] = true
		if s.Params.Variant == nms.VariantSoft {
			assert.Equal(t, nms.DecayGaussian, s.Params.Decay)
		}
	}

	scaling := predefined.GetScalingScenarios(providers.ParallelProviderBackend)
	assert.Contains(t, scaling.Description, "parallel")
	assert.Len(t, scaling.Scenarios, 8)
}

func TestRunScenario(t *testing.T) {
	tests := []struct {
		name     string
		scenario Scenario
		want     providers.ProviderBackend
	}{
		{
			name: "parallel grouped",
			scenario: NewScenarioBuilder("parallel").
				WithBackend(providers.ParallelProviderBackend).
				WithBoxes(300).
				WithGroups(2, 3).
				WithIterations(3).
				WithWarmupRuns(1).
				Build(),
			want: providers.ParallelProviderBackend,
		},
		{
			name: "tensor rotated falls back",
			scenario: NewScenarioBuilder("tensor_rotated").
				WithBackend(providers.TensorProviderBackend).
				WithBoxes(120).
				WithRotated(true).
				WithIterations(2).
				WithWarmupRuns(0).
				Build(),
			want: providers.TensorProviderBackend,
		},
		{
			name: "gpu resolves to cpu",
			scenario: NewScenarioBuilder("gpu").
				WithBackend(providers.GPUProviderBackend).
				WithBoxes(100).
				WithIterations(2).
				Build(),
			want: providers.CPUProviderBackend,
		},
	}

	suite := NewSuite(NewSuiteArgs{OutputPath: t.TempDir(), Workers: 2})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics, err := suite.RunScenario(context.Background(), tt.scenario)
			require.NoError(t, err)

			assert.Equal(t, tt.want, metrics.Backend)
			assert.True(t, metrics.AgreesWithCPU)
			assert.Zero(t, metrics.ErrorRate)
			assert.Positive(t, metrics.KeptCount)
			assert.Positive(t, metrics.TotalDuration)
			assert.Positive(t, metrics.CPUStats.GOMAXPROCS)
		})
	}

	_, err := suite.RunScenario(context.Background(), NewScenarioBuilder("none").WithIterations(0).Build())
	assert.Error(t, err)
}

func TestRunAllScenarios(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "results")
	core, logs := observer.New(zapcore.InfoLevel)
	suite := NewSuite(NewSuiteArgs{OutputPath: outputDir, Logger: zap.New(core)})

	suite.AddScenario(NewScenarioBuilder("cpu_small").WithBackend(providers.CPUProviderBackend).
		WithBoxes(50).WithIterations(2).WithWarmupRuns(0).Build())
	suite.AddScenario(NewScenarioBuilder("broken").WithIterations(0).Build())
	suite.AddScenario(NewScenarioBuilder("tensor_small").WithBackend(providers.TensorProviderBackend).
		WithBoxes(50).WithIterations(2).WithWarmupRuns(0).Build())

	require.NoError(t, suite.RunAllScenarios(context.Background()))
	assert.Len(t, suite.GetResults(), 2)
	assert.Equal(t, 1, logs.FilterMessage("scenario failed").Len())

	jsonFiles, err := filepath.Glob(filepath.Join(outputDir, "benchmark_results_*.json"))
	require.NoError(t, err)
	require.Len(t, jsonFiles, 1)

	data, err := os.ReadFile(jsonFiles[0])
	require.NoError(t, err)
	var saved []PerformanceMetrics
	require.NoError(t, json.Unmarshal(data, &saved))
	require.Len(t, saved, 2)
	assert.Equal(t, "cpu_small", saved[0].Scenario.Name)

	csvFiles, err := filepath.Glob(filepath.Join(outputDir, "benchmark_summary_*.csv"))
	require.NoError(t, err)
	require.Len(t, csvFiles, 1)

	f, err := os.Open(csvFiles[0])
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, summaryHeader, records[0])
	assert.Equal(t, "tensor", records[2][1])
	assert.Equal(t, "true", records[2][9])
}

func TestRunAllScenariosCancelled(t *testing.T) {
	suite := NewSuite(NewSuiteArgs{OutputPath: t.TempDir()})
	suite.AddScenario(NewScenarioBuilder("cpu").WithBoxes(10).WithIterations(1).Build())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, suite.RunAllScenarios(ctx), context.Canceled)
}

func TestScenarioSetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.json")
	set := (&PredefinedScenarios{}).GetQuickScenarios([]providers.ProviderBackend{providers.CPUProviderBackend})

	require.NoError(t, SaveScenarioSet(set, path))
	loaded, err := LoadScenarioSet(path)
	require.NoError(t, err)
	assert.Equal(t, set, loaded)

	_, err = LoadScenarioSet(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestBenchmarkConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, "./benchmark_results", config.OutputDir)
	assert.Equal(t, 3600, config.TimeoutSeconds)
	assert.Len(t, config.Backends, 3)

	path := filepath.Join(t.TempDir(), "benchmark.yaml")
	config.Workers = 3
	require.NoError(t, config.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config, loaded)
}

// Benchmarks for the backends themselves, on one clustered scene.
func BenchmarkBackends(b *testing.B) {
	scene := fixtures.NewGenerator(42).Scene(2000, 1, 8)
	keys, err := dispatch.GroupKeys(scene.Boxes.Len(), nil, scene.Classes)
	require.NoError(b, err)

	for _, backend := range []providers.ProviderBackend{
		providers.CPUProviderBackend,
		providers.ParallelProviderBackend,
		providers.TensorProviderBackend,
	} {
		d, err := dispatch.New(nil, dispatch.Options{Backend: backend}, nil)
		require.NoError(b, err)
		batch := dispatch.Batch[dispatch.GroupKey]{
			Boxes:  scene.Boxes,
			Scores: scene.Scores,
			Keys:   keys,
			Params: nms.DefaultParams(),
		}

		b.Run(string(backend), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := dispatch.Run(context.Background(), d, batch); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkScenarioCreation(b *testing.B) {
	predefined := &PredefinedScenarios{}
	backends := []providers.ProviderBackend{providers.CPUProviderBackend}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = predefined.GetComprehensiveScenarios(backends)
	}
}

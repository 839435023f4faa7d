package benchmark

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-nms/boxes"
	"github.com/nvr-ai/go-nms/dispatch"
	"github.com/nvr-ai/go-nms/fixtures"
	"github.com/nvr-ai/go-nms/nms"
	"github.com/nvr-ai/go-nms/profiler"
	"github.com/nvr-ai/go-nms/providers"
)

// Suite manages and executes benchmark scenarios
type Suite struct {
	registry  *providers.Registry
	workers   int
	outputDir string
	logger    *zap.Logger
	mu        sync.RWMutex
	scenarios []Scenario
	results   []PerformanceMetrics
}

// NewSuiteArgs represents the arguments for creating a new benchmark suite.
type NewSuiteArgs struct {
	// Registry holds the backends under test; nil uses providers.DefaultRegistry.
	Registry *providers.Registry
	// Workers bounds concurrently suppressed partitions.
	Workers int `json:"workers" yaml:"workers"`
	// OutputPath is the directory SaveResults writes to.
	OutputPath string `json:"outputPath" yaml:"outputPath"`
	// Logger receives progress; nil discards it.
	Logger *zap.Logger
}

// NewSuite creates a new benchmark suite.
//
// Arguments:
//   - args: The arguments for creating a new benchmark suite.
//
// Returns:
//   - *Suite: The benchmark suite.
func NewSuite(args NewSuiteArgs) *Suite {
	logger := args.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := args.Registry
	if registry == nil {
		registry = providers.DefaultRegistry(logger)
	}
	return &Suite{
		registry:  registry,
		workers:   args.Workers,
		outputDir: args.OutputPath,
		logger:    logger,
		scenarios: make([]Scenario, 0),
		results:   make([]PerformanceMetrics, 0),
	}
}

// AddScenario adds a test scenario to the benchmark suite
func (bs *Suite) AddScenario(scenario Scenario) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.scenarios = append(bs.scenarios, scenario)
}

// workload is the generated input of one scenario.
type workload struct {
	batch dispatch.Batch[dispatch.GroupKey]
}

func newWorkload(s Scenario) (workload, error) {
	gen := fixtures.NewGenerator(s.Seed)

	var set *boxes.Set
	if s.Rotated {
		set = gen.RotatedBoxes(s.Boxes)
	} else {
		set = gen.Boxes(s.Boxes)
	}
	scores := gen.Scores(s.Boxes, 0)

	var keys []dispatch.GroupKey
	if s.Images > 1 || s.Classes > 1 {
		var err error
		keys, err = dispatch.GroupKeys(s.Boxes, gen.Labels(s.Boxes, s.Images), gen.Labels(s.Boxes, s.Classes))
		if err != nil {
			return workload{}, err
		}
	}

	return workload{batch: dispatch.Batch[dispatch.GroupKey]{
		Boxes:  set,
		Scores: scores,
		Keys:   keys,
		Params: s.Params,
	}}, nil
}

// RunScenario executes a single benchmark scenario and checks the backend's
// result against the cpu reference on the same workload.
func (bs *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if scenario.Iterations <= 0 {
		return nil, errors.Errorf("scenario %s needs at least one iteration", scenario.Name)
	}

	w, err := newWorkload(scenario)
	if err != nil {
		return nil, errors.Wrapf(err, "generating workload for %s", scenario.Name)
	}

	d, err := dispatch.New(bs.registry, dispatch.Options{Backend: scenario.Backend, Workers: bs.workers}, bs.logger)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving backend for %s", scenario.Name)
	}
	reference, err := dispatch.New(bs.registry, dispatch.Options{Backend: providers.CPUProviderBackend, Workers: bs.workers}, bs.logger)
	if err != nil {
		return nil, errors.Wrap(err, "resolving cpu reference")
	}

	want, err := dispatch.Run(ctx, reference, w.batch)
	if err != nil {
		return nil, errors.Wrapf(err, "reference run for %s", scenario.Name)
	}

	metrics := &PerformanceMetrics{
		Scenario:  scenario,
		Timestamp: time.Now(),
		Backend:   d.Backend(),
	}

	// Warmup runs
	for i := 0; i < scenario.WarmupRuns; i++ {
		if _, err := dispatch.Run(ctx, d, w.batch); err != nil {
			return nil, errors.Wrapf(err, "warmup for %s", scenario.Name)
		}
	}

	// Capture initial memory stats
	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	prof := profiler.New()
	failures := 0
	agrees := true
	var got nms.Result

	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		done := prof.StartOperation("suppress")
		got, err = dispatch.Run(ctx, d, w.batch)
		done()
		if err != nil {
			failures++
			continue
		}
		agrees = agrees && sameResult(got, want)
	}

	// Capture final memory stats
	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	stats := prof.Snapshot().Operations["suppress"]
	metrics.TotalDuration = stats.Total
	metrics.MeanDuration = stats.Mean
	metrics.P95Duration = stats.P95
	if stats.Total > 0 {
		metrics.BoxesPerSecond = float64(stats.Count) * float64(scenario.Boxes) / stats.Total.Seconds()
	}
	metrics.KeptCount = got.Len()
	metrics.AgreesWithCPU = agrees && failures < scenario.Iterations
	metrics.ErrorRate = float64(failures) / float64(scenario.Iterations)

	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
		HeapSysBytes:    endMem.HeapSys,
	}

	metrics.CPUStats = CPUMetrics{
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}

	return metrics, nil
}

func sameResult(a, b nms.Result) bool {
	return slices.Equal(a.Indices, b.Indices) && slices.Equal(a.Scores, b.Scores)
}

// RunAllScenarios executes all configured benchmark scenarios
func (bs *Suite) RunAllScenarios(ctx context.Context) error {
	bs.mu.Lock()
	scenarios := make([]Scenario, len(bs.scenarios))
	copy(scenarios, bs.scenarios)
	bs.mu.Unlock()

	for _, scenario := range scenarios {
		metrics, err := bs.RunScenario(ctx, scenario)
		if err != nil {
			bs.logger.Error("scenario failed", zap.String("scenario", scenario.Name), zap.Error(err))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		bs.mu.Lock()
		bs.results = append(bs.results, *metrics)
		bs.mu.Unlock()

		if !metrics.AgreesWithCPU {
			bs.logger.Warn("backend disagrees with cpu reference",
				zap.String("scenario", scenario.Name),
				zap.String("backend", string(metrics.Backend)),
			)
		}
		bs.logger.Info("scenario completed",
			zap.String("scenario", scenario.Name),
			zap.String("backend", string(metrics.Backend)),
			zap.Duration("mean", metrics.MeanDuration),
			zap.Float64("boxesPerSecond", metrics.BoxesPerSecond),
		)
	}

	return bs.SaveResults()
}

// SaveResults persists benchmark results to filesystem
func (bs *Suite) SaveResults() error {
	results := bs.GetResults()

	// Ensure output directory exists
	if err := os.MkdirAll(bs.outputDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	// Save detailed results as JSON
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal results")
	}

	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write results file")
	}

	// Save summary CSV
	summaryFile := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := bs.saveSummaryCSV(summaryFile, results); err != nil {
		return errors.Wrap(err, "failed to save summary CSV")
	}

	bs.logger.Info("results saved", zap.String("results", resultsFile), zap.String("summary", summaryFile))

	return nil
}

var summaryHeader = []string{
	"Scenario", "Backend", "Boxes", "Variant", "Rotated",
	"Mean_ms", "P95_ms", "Boxes_per_s", "Kept", "Agrees", "Error_Rate",
}

func (bs *Suite) saveSummaryCSV(filename string, results []PerformanceMetrics) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(summaryHeader); err != nil {
		return err
	}
	for _, result := range results {
		record := []string{
			result.Scenario.Name,
			string(result.Backend),
			strconv.Itoa(result.Scenario.Boxes),
			string(result.Scenario.Params.Variant),
			strconv.FormatBool(result.Scenario.Rotated),
			strconv.FormatFloat(float64(result.MeanDuration.Nanoseconds())/1e6, 'f', 3, 64),
			strconv.FormatFloat(float64(result.P95Duration.Nanoseconds())/1e6, 'f', 3, 64),
			strconv.FormatFloat(result.BoxesPerSecond, 'f', 0, 64),
			strconv.Itoa(result.KeptCount),
			strconv.FormatBool(result.AgreesWithCPU),
			strconv.FormatFloat(result.ErrorRate, 'f', 4, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// GetResults returns all benchmark results
func (bs *Suite) GetResults() []PerformanceMetrics {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	results := make([]PerformanceMetrics, len(bs.results))
	copy(results, bs.results)
	return results
}

// Package main is the benchmark command.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-nms/benchmark"
	"github.com/nvr-ai/go-nms/providers"
)

const (
	// Flags.
	flagConfig        = "config"
	flagScenarios     = "scenarios"
	flagOutput        = "output"
	flagBackends      = "backend"
	flagWorkers       = "workers"
	flagQuick         = "quick"
	flagComprehensive = "comprehensive"
	flagScaling       = "scaling"
	flagTimeout       = "timeout"
	flagDebug         = "debug"
)

func main() {
	app := &cli.App{
		Name:  "benchmark",
		Usage: "measure non-maximum suppression throughput per execution backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load benchmark configuration from YAML `FILE`",
			},
			&cli.StringFlag{
				Name:  flagScenarios,
				Usage: "load scenarios from JSON `FILE` instead of the predefined sets",
			},
			&cli.StringFlag{
				Name:  flagOutput,
				Value: "./benchmark_results",
				Usage: "output directory for results",
			},
			&cli.StringSliceFlag{
				Name:  flagBackends,
				Usage: "backends to benchmark (cpu, parallel, tensor, gpu)",
			},
			&cli.IntFlag{
				Name:  flagWorkers,
				Usage: "partitions suppressed concurrently, 0 for GOMAXPROCS",
			},
			&cli.BoolFlag{
				Name:  flagQuick,
				Usage: "run quick benchmark scenarios",
			},
			&cli.BoolFlag{
				Name:  flagComprehensive,
				Usage: "run comprehensive benchmark scenarios",
			},
			&cli.BoolFlag{
				Name:  flagScaling,
				Usage: "run batch size scaling scenarios on each backend",
			},
			&cli.DurationFlag{
				Name:  flagTimeout,
				Value: 30 * time.Minute,
				Usage: "benchmark timeout duration",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	logger, err := newLogger(c.Bool(flagDebug))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	config := benchmark.DefaultConfig()
	if path := c.String(flagConfig); path != "" {
		if config, err = benchmark.LoadConfig(path); err != nil {
			return err
		}
	}
	if c.IsSet(flagOutput) || config.OutputDir == "" {
		config.OutputDir = c.String(flagOutput)
	}
	if c.IsSet(flagWorkers) {
		config.Workers = c.Int(flagWorkers)
	}
	if names := c.StringSlice(flagBackends); len(names) > 0 {
		config.Backends = config.Backends[:0]
		for _, name := range names {
			b, err := providers.ParseProviderBackend(name)
			if err != nil {
				return err
			}
			config.Backends = append(config.Backends, b)
		}
	}

	suite := benchmark.NewSuite(benchmark.NewSuiteArgs{
		Workers:    config.Workers,
		OutputPath: config.OutputDir,
		Logger:     logger,
	})

	count, err := addScenarios(c, suite, config)
	if err != nil {
		return err
	}
	logger.Info("scenarios loaded", zap.Int("count", count))

	timeout := c.Duration(flagTimeout)
	if !c.IsSet(flagTimeout) && config.TimeoutSeconds > 0 {
		timeout = time.Duration(config.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(c.Context, timeout)
	defer cancel()

	start := time.Now()
	if err := suite.RunAllScenarios(ctx); err != nil {
		return errors.Wrap(err, "benchmark execution failed")
	}

	results := suite.GetResults()
	fmt.Printf("\n=== BENCHMARK RESULTS SUMMARY ===\n")
	fmt.Printf("Total scenarios: %d (%v)\n", len(results), time.Since(start).Round(time.Millisecond))
	fmt.Printf("Results saved to: %s\n", config.OutputDir)

	var best benchmark.PerformanceMetrics
	for _, result := range results {
		if result.BoxesPerSecond > best.BoxesPerSecond {
			best = result
		}
		agreement := "ok"
		if !result.AgreesWithCPU {
			agreement = "MISMATCH"
		}
		fmt.Printf("  %-40s %-9s %10.0f boxes/s  mean %-12v %s\n",
			result.Scenario.Name,
			result.Backend,
			result.BoxesPerSecond,
			result.MeanDuration,
			agreement)
	}
	if best.Scenario.Name != "" {
		fmt.Printf("\nBest performing scenario: %s (%.0f boxes/s)\n", best.Scenario.Name, best.BoxesPerSecond)
	}
	return nil
}

func addScenarios(c *cli.Context, suite *benchmark.Suite, config *benchmark.Config) (int, error) {
	if path := c.String(flagScenarios); path != "" {
		set, err := benchmark.LoadScenarioSet(path)
		if err != nil {
			return 0, err
		}
		for _, s := range set.Scenarios {
			suite.AddScenario(s)
		}
		return len(set.Scenarios), nil
	}

	predefined := &benchmark.PredefinedScenarios{}
	var sets []*benchmark.ScenarioSet
	if c.Bool(flagQuick) {
		sets = append(sets, predefined.GetQuickScenarios(config.Backends))
	}
	if c.Bool(flagComprehensive) {
		sets = append(sets, predefined.GetComprehensiveScenarios(config.Backends))
	}
	if c.Bool(flagScaling) {
		for _, b := range config.Backends {
			sets = append(sets, predefined.GetScalingScenarios(b))
		}
	}
	// If no specific scenarios requested, use quick by default
	if len(sets) == 0 {
		sets = append(sets, predefined.GetQuickScenarios(config.Backends))
	}

	count := 0
	for _, set := range sets {
		for _, s := range set.Scenarios {
			suite.AddScenario(s)
		}
		count += len(set.Scenarios)
	}
	return count, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

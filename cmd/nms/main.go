// Package main is the suppression command: it reads a JSON detection document
// and prints the detections that survive non-maximum suppression.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-nms/detections"
	"github.com/nvr-ai/go-nms/nms"
	"github.com/nvr-ai/go-nms/providers"
)

const (
	// Flags.
	flagInput     = "input"
	flagDir       = "dir"
	flagConfig    = "config"
	flagThreshold = "threshold"
	flagBackend   = "backend"
	flagVariant   = "variant"
	flagPerClass  = "per-class"
	flagText      = "text"
	flagDebug     = "debug"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "nms",
		Usage:     "suppress overlapping detections",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagInput,
				Aliases: []string{"i"},
				Usage:   "read the detection document from `FILE` instead of stdin",
			},
			&cli.StringFlag{
				Name:  flagDir,
				Usage: "suppress every frame-<n>.json document in `DIR` as one batch, one image per frame",
			},
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load suppression configuration from YAML `FILE`",
			},
			&cli.Float64Flag{
				Name:  flagThreshold,
				Usage: "overlap threshold, overrides the configuration",
			},
			&cli.StringFlag{
				Name:  flagBackend,
				Usage: "execution backend (auto, cpu, parallel, tensor, gpu)",
			},
			&cli.StringFlag{
				Name:  flagVariant,
				Usage: "suppression variant (hard, soft)",
			},
			&cli.BoolFlag{
				Name:  flagPerClass,
				Value: true,
				Usage: "suppress each class independently",
			},
			&cli.BoolFlag{
				Name:  flagText,
				Usage: "print one line per kept box instead of JSON",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	logger := zap.NewNop()
	if c.Bool(flagDebug) {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	doc, dets, err := readInput(c)
	if err != nil {
		return err
	}
	if c.IsSet(flagDir) {
		cfg.PerImage = true
	}

	suppressor, err := detections.NewSuppressor(cfg, logger)
	if err != nil {
		return err
	}
	res, err := suppressor.NonMaxSuppression(c.Context, dets)
	if err != nil {
		return err
	}

	out, err := buildReport(suppressor.Backend(), doc, dets, res)
	if err != nil {
		return err
	}

	if c.Bool(flagText) {
		for _, b := range boundingBoxes(doc, out, dets) {
			fmt.Fprintln(c.App.Writer, b.String())
		}
		return nil
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readInput(c *cli.Context) (document, detections.Detections, error) {
	if dir := c.String(flagDir); dir != "" {
		return readFrames(dir)
	}

	var in io.Reader = os.Stdin
	if path := c.String(flagInput); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return document{}, detections.Detections{}, err
		}
		defer f.Close()
		in = f
	}
	return readDocument(in)
}

func loadConfig(c *cli.Context) (detections.Config, error) {
	cfg := detections.DefaultConfig()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = detections.LoadConfig(path); err != nil {
			return detections.Config{}, err
		}
	}
	if c.IsSet(flagThreshold) {
		cfg.Threshold = c.Float64(flagThreshold)
	}
	if c.IsSet(flagBackend) {
		b, err := providers.ParseProviderBackend(c.String(flagBackend))
		if err != nil {
			return detections.Config{}, err
		}
		cfg.Backend = b
	}
	if c.IsSet(flagVariant) {
		cfg.Variant = nms.Variant(c.String(flagVariant))
	}
	if c.IsSet(flagPerClass) {
		cfg.PerClass = c.Bool(flagPerClass)
	}
	return cfg, cfg.Validate()
}

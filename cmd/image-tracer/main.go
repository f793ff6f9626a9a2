package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	imagetracer "github.com/menta2k/image-tracer"
	"github.com/menta2k/image-tracer/internal/config"
	"github.com/menta2k/image-tracer/internal/utils"
	"github.com/menta2k/image-tracer/pkg/binarize"
	"github.com/menta2k/image-tracer/pkg/engine"
	"github.com/menta2k/image-tracer/pkg/llamacpp"
	"github.com/menta2k/image-tracer/pkg/ollama"
	"github.com/menta2k/image-tracer/pkg/processing"
	"github.com/menta2k/image-tracer/pkg/types"
)

func main() {
	var in, outDir, configPath string
	var primary, potracePath, url, model string
	var threshold, turdSize, maxDim int
	var tolerance, strokeWidth float64
	var invert, debug bool
	var color, fill, dbgext string

	flag.StringVar(&in, "in", "", "input image path, directory or URL (jpg/png/gif/bmp/webp)")
	flag.StringVar(&outDir, "out", "", "output directory (default from config)")
	flag.StringVar(&configPath, "config", "", "config file (.json, .toml or .yaml)")

	flag.StringVar(&primary, "engine", "", "primary engine: potrace, ollama, llamacpp or none")
	flag.StringVar(&potracePath, "potrace", "", "potrace executable")
	flag.StringVar(&url, "url", "", "vision server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")
	flag.StringVar(&model, "model", "", "vision model name")

	flag.IntVar(&threshold, "threshold", -1, "luminance cutoff 0-255")
	flag.IntVar(&turdSize, "turdsize", -1, "noise floor, walks shorter than 3x this are dropped")
	flag.Float64Var(&tolerance, "tolerance", -1, "simplification tolerance")
	flag.BoolVar(&invert, "invert", false, "trace light regions on a dark background")
	flag.StringVar(&color, "color", "", "stroke colour")
	flag.StringVar(&fill, "fill", "", "fill colour")
	flag.Float64Var(&strokeWidth, "stroke-width", -1, "stroke width")
	flag.IntVar(&maxDim, "maxdim", -1, "downscale inputs so no side exceeds this (0=original)")

	flag.BoolVar(&debug, "debug", false, "debug logging and binarized mask output")
	flag.StringVar(&dbgext, "dbgext", "", "debug mask format: png|jpg|webp")

	flag.Parse()

	logger := initLogger(debug)

	if in == "" {
		logger.Fatalf("usage: %s -in input.png|dir|URL [-out outdir] [-config file] [-engine potrace|ollama|llamacpp|none]", filepath.Base(os.Args[0]))
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			logger.Fatal(err)
		}
		cfg = loaded
	} else if path := config.GetConfigPath(); utils.FileExists(path) {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			logger.Fatal(err)
		}
		cfg = loaded
	}

	// Command line flags override the config file
	if outDir != "" {
		cfg.Output.OutputDir = outDir
	}
	if primary != "" {
		cfg.Engine.Primary = primary
	}
	if potracePath != "" {
		cfg.Engine.PotracePath = potracePath
	}
	if url != "" {
		cfg.Engine.URL = url
	}
	if model != "" {
		cfg.Engine.Model = model
	}
	if threshold >= 0 {
		cfg.Trace.Threshold = threshold
	}
	if turdSize >= 0 {
		cfg.Trace.TurdSize = turdSize
	}
	if tolerance >= 0 {
		cfg.Trace.OptTolerance = tolerance
	}
	if invert {
		cfg.Trace.BlackOnWhite = false
	}
	if color != "" {
		cfg.Trace.Color = color
	}
	if fill != "" {
		cfg.Trace.FillColor = fill
	}
	if strokeWidth >= 0 {
		cfg.Trace.StrokeWidth = strokeWidth
	}
	if maxDim >= 0 {
		cfg.Input.MaxDimension = maxDim
	}
	if dbgext != "" {
		cfg.Output.DebugFormat = dbgext
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	settings, err := cfg.Settings()
	if err != nil {
		logger.Fatal(err)
	}

	primaryEngine, err := newPrimary(cfg, logger)
	if err != nil {
		logger.Fatalf("failed to create %s engine: %v", cfg.Engine.Primary, err)
	}

	tracer := imagetracer.NewWithOptions(imagetracer.Options{
		Primary:      primaryEngine,
		Schedule:     cfg.Schedule,
		Logger:       logger,
		MaxDimension: cfg.Input.MaxDimension,
	})

	inputs := []string{in}
	if utils.DirExists(in) {
		inputs, err = utils.ListImageFiles(in, cfg.Input.SupportedFormats)
		if err != nil {
			logger.Fatal(err)
		}
		if len(inputs) == 0 {
			logger.Fatalf("no images found in %s", in)
		}
	}

	if err := utils.EnsureDir(cfg.Output.OutputDir); err != nil {
		logger.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	failed := 0
	for _, input := range inputs {
		if err := traceOne(ctx, tracer, cfg, settings, input, debug, logger); err != nil {
			logger.WithFields(logrus.Fields{
				"input": input,
				"error": err,
			}).Error("trace failed")
			failed++
		}
	}

	logger.WithFields(logrus.Fields{
		"images": len(inputs),
		"failed": failed,
	}).Info("done")

	if failed > 0 {
		os.Exit(1)
	}
}

func traceOne(ctx context.Context, tracer *imagetracer.ImageTracer, cfg *config.Config, settings types.Settings, input string, debug bool, logger *logrus.Logger) error {
	start := time.Now()

	img, err := tracer.LoadImage(input)
	if err != nil {
		return err
	}

	doc, err := tracer.TraceImage(ctx, img, settings)
	if err != nil {
		return err
	}

	outPath := utils.GenerateOutputFilename(sourceName(input), cfg.Output.OutputDir, cfg.Output.Prefix, cfg.Output.Suffix, "svg")
	if err := tracer.SaveSVG(doc, outPath); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"input":    input,
		"output":   outPath,
		"size":     utils.FormatFileSize(int64(len(doc))),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("wrote svg")

	if debug {
		if err := writeMask(ctx, cfg, settings, img, input); err != nil {
			logger.WithError(err).Warn("debug mask save failed")
		}
	}
	return nil
}

// writeMask saves the binarized image next to the svg
func writeMask(ctx context.Context, cfg *config.Config, settings types.Settings, img image.Image, input string) error {
	processor := processing.NewProcessor()
	pixels := processor.ToPixelBuffer(processor.FitImage(img, cfg.Input.MaxDimension))

	grid, err := binarize.Binarize(ctx, pixels, settings.Threshold, settings.BlackOnWhite, binarize.Options{
		BatchRows: cfg.Schedule.BinarizeRows,
	})
	if err != nil {
		return err
	}

	ext := strings.ToLower(cfg.Output.DebugFormat)
	path := utils.GenerateOutputFilename(sourceName(input), cfg.Output.OutputDir, cfg.Output.Prefix, cfg.Output.Suffix+"_mask", ext)
	return processor.SaveImage(grid.Image(), path, ext, cfg.Output.DebugQuality, false)
}

func sourceName(input string) string {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		name := input[strings.LastIndex(input, "/")+1:]
		if i := strings.IndexAny(name, "?#"); i >= 0 {
			name = name[:i]
		}
		if name == "" {
			name = "download"
		}
		return name
	}
	return input
}

func newPrimary(cfg *config.Config, logger *logrus.Logger) (engine.Engine, error) {
	switch cfg.Engine.Primary {
	case config.EnginePotrace:
		return engine.NewPotrace(cfg.Engine.PotracePath, cfg.Timeout(), cfg.Schedule, logger), nil
	case config.EngineOllama:
		c, err := ollama.NewClient(cfg.Engine.URL)
		if err != nil {
			return nil, err
		}
		return engine.NewVision(c, cfg.Engine.Model, cfg.Schedule, logger), nil
	case config.EngineLlamaCpp:
		c, err := llamacpp.NewClient(cfg.Engine.URL)
		if err != nil {
			return nil, err
		}
		return engine.NewVision(c, cfg.Engine.Model, cfg.Schedule, logger), nil
	case config.EngineNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine.Primary)
	}
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}

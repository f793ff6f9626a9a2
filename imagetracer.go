// Package imagetracer converts raster images into SVG outlines.
//
// A trace first tries a primary engine (by default the potrace executable, or a
// vision model served by Ollama or llama.cpp). When the primary engine is missing,
// fails, or returns a document without paths, the built-in contour pipeline takes
// over:
//
//  1. Binarize (pkg/binarize): threshold the average gray level, transparency as paper
//  2. Contours (pkg/contour): marching squares boundary walks over 2x2 cells
//  3. Simplify (pkg/simplify): Douglas-Peucker reduction of each contour
//  4. Serialize (pkg/svg): one <path> with an M/L/Z subpath per contour
//
// Basic usage:
//
//	tracer := imagetracer.New()
//
//	img, err := tracer.LoadImage("logo.png")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	doc, err := tracer.TraceImage(context.Background(), img, types.DefaultSettings())
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(doc)
//
// Long stages yield to the Go scheduler every few rows (see pkg/schedule), and a
// cancelled context stops a trace at the next yield point. Hard caps on walk length
// and contour count bound the work done for pathological images.
package imagetracer

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/image-tracer/pkg/engine"
	"github.com/menta2k/image-tracer/pkg/processing"
	"github.com/menta2k/image-tracer/pkg/schedule"
	"github.com/menta2k/image-tracer/pkg/tracer"
	"github.com/menta2k/image-tracer/pkg/types"
)

// Version of the image tracer library
const Version = "1.0.0"

// Options configures an ImageTracer
type Options struct {
	// Primary is tried before the contour fallback; nil traces with the fallback only
	Primary engine.Engine
	// Schedule sets the yield intervals; zero values use the defaults
	Schedule schedule.Config
	// Logger receives debug output; nil discards it
	Logger logrus.FieldLogger
	// MaxDimension downscales larger images before tracing; 0 keeps the original size
	MaxDimension int
}

// ImageTracer provides a high-level interface for loading and tracing images
type ImageTracer struct {
	processor    *processing.Processor
	tracer       *tracer.Tracer
	maxDimension int
}

// New creates an ImageTracer that uses potrace from PATH with the contour fallback
func New() *ImageTracer {
	return NewWithOptions(Options{
		Primary: engine.NewPotrace(engine.DefaultPotracePath, 0, schedule.DefaultConfig(), nil),
	})
}

// NewWithOptions creates an ImageTracer with custom options
func NewWithOptions(opts Options) *ImageTracer {
	return &ImageTracer{
		processor:    processing.NewProcessor(),
		tracer:       tracer.NewWithEngine(opts.Primary, opts.Schedule, opts.Logger),
		maxDimension: opts.MaxDimension,
	}
}

// LoadImage loads an image from a file path or an http(s) URL
func (it *ImageTracer) LoadImage(source string) (image.Image, error) {
	return it.processor.LoadImageSmart(source)
}

// TraceImage traces an image into an SVG document
func (it *ImageTracer) TraceImage(ctx context.Context, img image.Image, settings types.Settings) (string, error) {
	img = it.processor.FitImage(img, it.maxDimension)
	return it.tracer.TraceImage(ctx, img, settings)
}

// TracePixels traces a raw RGBA buffer into an SVG document
func (it *ImageTracer) TracePixels(ctx context.Context, pixels *types.PixelBuffer, settings types.Settings) (string, error) {
	return it.tracer.Trace(ctx, pixels, settings)
}

// SaveSVG writes an SVG document to path, creating parent directories
func (it *ImageTracer) SaveSVG(doc, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("failed to write svg: %w", err)
	}
	return nil
}

// TraceFile is a convenience function that loads, traces and saves an image
func (it *ImageTracer) TraceFile(ctx context.Context, inputPath, outputPath string, settings types.Settings) error {
	img, err := it.LoadImage(inputPath)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}

	doc, err := it.TraceImage(ctx, img, settings)
	if err != nil {
		return fmt.Errorf("tracing failed: %w", err)
	}

	return it.SaveSVG(doc, outputPath)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

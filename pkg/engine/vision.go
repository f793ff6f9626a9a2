package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/image-tracer/pkg/binarize"
	"github.com/menta2k/image-tracer/pkg/client"
	"github.com/menta2k/image-tracer/pkg/processing"
	"github.com/menta2k/image-tracer/pkg/schedule"
	"github.com/menta2k/image-tracer/pkg/types"
)

// DefaultPrompt asks a vision model to vectorize a black and white mask
const DefaultPrompt = `You are a raster-to-vector tracer.

The image is a black and white mask of %d x %d pixels. Trace the outline of every
black region.

Return SVG only:
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d"><path d="..."/></svg>

HARD RULES
- Coordinates are pixels with the origin at the top-left.
- Use one or more <path> elements with M, L, C and Z commands only.
- Every outline must be closed with Z.
- No markdown, no code fences, no comments, no prose.`

// Vision asks a vision language model to trace the thresholded image
type Vision struct {
	client    client.VisionClient
	processor *processing.Processor
	model     string
	prompt    string
	schedule  schedule.Config
	logger    logrus.FieldLogger
}

// NewVision creates a vision engine using model on the given client
func NewVision(c client.VisionClient, model string, cfg schedule.Config, logger logrus.FieldLogger) *Vision {
	return &Vision{
		client:    c,
		processor: processing.NewProcessor(),
		model:     model,
		prompt:    DefaultPrompt,
		schedule:  cfg,
		logger:    orDiscard(logger),
	}
}

// SetPrompt replaces the prompt template. It receives width, height, width, height.
func (v *Vision) SetPrompt(prompt string) {
	v.prompt = prompt
}

// Name implements Engine
func (v *Vision) Name() string {
	return "vision:" + v.model
}

// Trace implements Engine
func (v *Vision) Trace(ctx context.Context, pixels *types.PixelBuffer, settings types.Settings) (string, error) {
	grid, err := binarize.Binarize(ctx, pixels, settings.Threshold, settings.BlackOnWhite, binarize.Options{
		BatchRows: v.schedule.BinarizeRows,
	})
	if err != nil {
		return "", err
	}

	imgB64, err := v.processor.PrepareImageForModel(grid.Image(), "png", 0, 0)
	if err != nil {
		return "", fmt.Errorf("failed to encode mask: %w", err)
	}

	prompt := v.prompt
	if strings.Contains(prompt, "%d") {
		prompt = fmt.Sprintf(prompt, pixels.Width, pixels.Height, pixels.Width, pixels.Height)
	}

	v.logger.WithFields(logrus.Fields{
		"model": v.model,
		"bytes": len(imgB64),
	}).Debug("sending mask to vision model")

	doc, err := v.client.TraceImage(ctx, v.model, prompt, imgB64)
	if err != nil {
		return "", fmt.Errorf("vision trace failed: %w", err)
	}
	if strings.TrimSpace(doc) == "" {
		return "", ErrEmptyOutput
	}
	return doc, nil
}

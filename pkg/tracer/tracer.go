package tracer

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/image-tracer/pkg/engine"
	"github.com/menta2k/image-tracer/pkg/processing"
	"github.com/menta2k/image-tracer/pkg/schedule"
	"github.com/menta2k/image-tracer/pkg/svg"
	"github.com/menta2k/image-tracer/pkg/types"
)

// Tracer tries a primary engine and falls back to the contour pipeline when the
// primary fails or returns a document without paths
type Tracer struct {
	primary   engine.Engine
	fallback  *engine.Fallback
	processor *processing.Processor
	logger    logrus.FieldLogger
}

// New creates a fallback-only tracer
func New() *Tracer {
	return NewWithEngine(nil, schedule.DefaultConfig(), nil)
}

// NewWithEngine creates a tracer with primary as the first choice. A nil primary
// traces with the fallback only; a nil logger discards output.
func NewWithEngine(primary engine.Engine, cfg schedule.Config, logger logrus.FieldLogger) *Tracer {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Tracer{
		primary:   primary,
		fallback:  engine.NewFallbackWithConfig(cfg, nil, logger),
		processor: processing.NewProcessor(),
		logger:    logger,
	}
}

// Primary returns the configured primary engine, nil when tracing fallback-only
func (t *Tracer) Primary() engine.Engine {
	return t.primary
}

// Trace converts pixels into an SVG document. It only fails on invalid input or
// when the fallback itself fails (for example on context cancellation).
func (t *Tracer) Trace(ctx context.Context, pixels *types.PixelBuffer, settings types.Settings) (string, error) {
	if err := pixels.Validate(); err != nil {
		return "", err
	}
	if err := settings.Validate(); err != nil {
		return "", err
	}

	log := t.logger.WithFields(logrus.Fields{
		"width":  pixels.Width,
		"height": pixels.Height,
	})

	if t.primary != nil {
		doc, paths, err := t.tryPrimary(ctx, pixels, settings)
		if err == nil {
			log.WithFields(logrus.Fields{
				"engine": t.primary.Name(),
				"paths":  paths,
			}).Debug("primary engine succeeded")
			return doc, nil
		}
		log.WithFields(logrus.Fields{
			"engine": t.primary.Name(),
			"error":  err,
		}).Debug("primary engine failed, using fallback")
	}

	doc, err := t.fallback.Trace(ctx, pixels, settings)
	if err != nil {
		return "", fmt.Errorf("fallback trace failed: %w", err)
	}
	log.WithField("engine", t.fallback.Name()).Debug("fallback engine succeeded")
	return doc, nil
}

// tryPrimary runs the primary engine and re-styles its document
func (t *Tracer) tryPrimary(ctx context.Context, pixels *types.PixelBuffer, settings types.Settings) (doc string, paths int, err error) {
	defer func() {
		// a panicking engine counts as a failed primary
		if r := recover(); r != nil {
			doc, paths, err = "", 0, fmt.Errorf("primary engine panicked: %v", r)
		}
	}()

	raw, err := t.primary.Trace(ctx, pixels, settings)
	if err != nil {
		return "", 0, err
	}
	return svg.Restyle(raw, pixels.Width, pixels.Height, settings.Style())
}

// TraceImage converts img to a pixel buffer and traces it
func (t *Tracer) TraceImage(ctx context.Context, img image.Image, settings types.Settings) (string, error) {
	return t.Trace(ctx, t.processor.ToPixelBuffer(img), settings)
}

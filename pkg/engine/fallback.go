package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/image-tracer/pkg/binarize"
	"github.com/menta2k/image-tracer/pkg/contour"
	"github.com/menta2k/image-tracer/pkg/schedule"
	"github.com/menta2k/image-tracer/pkg/simplify"
	"github.com/menta2k/image-tracer/pkg/svg"
	"github.com/menta2k/image-tracer/pkg/types"
)

// Fallback is the built-in tracer: binarize, follow contours, simplify, serialize
type Fallback struct {
	schedule schedule.Config
	yield    schedule.Yielder
	logger   logrus.FieldLogger
}

// NewFallback creates a fallback engine with the default yield intervals
func NewFallback() *Fallback {
	return NewFallbackWithConfig(schedule.DefaultConfig(), nil, nil)
}

// NewFallbackWithConfig creates a fallback engine. A nil yielder uses schedule.Default,
// a nil logger discards output.
func NewFallbackWithConfig(cfg schedule.Config, yield schedule.Yielder, logger logrus.FieldLogger) *Fallback {
	return &Fallback{
		schedule: cfg,
		yield:    yield,
		logger:   orDiscard(logger),
	}
}

// Name implements Engine
func (f *Fallback) Name() string {
	return "contour"
}

// Trace implements Engine
func (f *Fallback) Trace(ctx context.Context, pixels *types.PixelBuffer, settings types.Settings) (string, error) {
	grid, err := binarize.Binarize(ctx, pixels, settings.Threshold, settings.BlackOnWhite, binarize.Options{
		BatchRows: f.schedule.BinarizeRows,
		Yield:     f.yield,
	})
	if err != nil {
		return "", err
	}

	contours, err := contour.Find(ctx, grid, settings.TurdSize, contour.Options{
		BatchRows: f.schedule.ScanRows,
		Yield:     f.yield,
	})
	if err != nil {
		return "", fmt.Errorf("contour extraction failed: %w", err)
	}

	simplified := simplify.Contours(contours, simplify.Epsilon(settings.OptTolerance))

	f.logger.WithFields(logrus.Fields{
		"width":      pixels.Width,
		"height":     pixels.Height,
		"foreground": grid.Count(),
		"contours":   len(simplified),
	}).Debug("contour trace complete")

	return svg.Serialize(simplified, pixels.Width, pixels.Height, settings.Style()), nil
}

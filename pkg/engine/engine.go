// Package engine holds the interchangeable tracing engines.
//
// An Engine turns a pixel buffer into an SVG document. The orchestrator in
// pkg/tracer tries a primary engine (the potrace executable or a vision model) and
// falls back to the built-in contour pipeline implemented by Fallback.
package engine

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/image-tracer/pkg/types"
)

// ErrEmptyOutput is returned when an external engine produced no document
var ErrEmptyOutput = errors.New("engine produced no output")

// Engine traces a bitmap into an SVG document
type Engine interface {
	Name() string
	Trace(ctx context.Context, pixels *types.PixelBuffer, settings types.Settings) (string, error)
}

func orDiscard(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger != nil {
		return logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

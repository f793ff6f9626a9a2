// Package schedule provides the cooperative yield points used by the trace stages.
//
// A trace runs on the caller's goroutine. Long stages hand control back to the Go
// scheduler every few rows so that other work sharing the thread keeps making
// progress. A yield is a zero-delay continuation, never a sleep.
package schedule

import (
	"context"
	"runtime"
)

const (
	// DefaultBinarizeRows is how many rows the binarizer processes between yields
	DefaultBinarizeRows = 50

	// DefaultScanRows is how many rows the contour scan covers between yields
	DefaultScanRows = 100
)

// Yielder suspends the current trace and resumes it. A non-nil error aborts the trace.
type Yielder interface {
	Yield(ctx context.Context) error
}

// YieldFunc adapts a function to the Yielder interface
type YieldFunc func(ctx context.Context) error

// Yield calls f(ctx)
func (f YieldFunc) Yield(ctx context.Context) error {
	return f(ctx)
}

// Gosched yields to the Go scheduler and then reports whether ctx was cancelled
type Gosched struct{}

// Yield implements Yielder
func (Gosched) Yield(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}

// Default is the process-wide yielder used when a stage is given none
var Default Yielder = Gosched{}

// Config holds the yield intervals of the trace stages
type Config struct {
	BinarizeRows int `json:"binarize_rows" toml:"binarize_rows" yaml:"binarize_rows"`
	ScanRows     int `json:"scan_rows" toml:"scan_rows" yaml:"scan_rows"`
}

// DefaultConfig returns the default yield intervals
func DefaultConfig() Config {
	return Config{
		BinarizeRows: DefaultBinarizeRows,
		ScanRows:     DefaultScanRows,
	}
}

// Every returns n if positive, otherwise fallback
func Every(n, fallback int) int {
	if n > 0 {
		return n
	}
	return fallback
}

// Or returns y if non-nil, otherwise Default
func Or(y Yielder) Yielder {
	if y != nil {
		return y
	}
	return Default
}

package types

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidBuffer is returned for pixel buffers whose length does not match their dimensions
	ErrInvalidBuffer = errors.New("invalid pixel buffer")

	// ErrInvalidSettings is returned when trace settings are out of range
	ErrInvalidSettings = errors.New("invalid trace settings")
)

// PixelBuffer is a non-premultiplied RGBA bitmap, row-major with the origin at the top-left.
// The tracer borrows it for the duration of a call and never writes to it.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []byte
}

// NewPixelBuffer allocates a zeroed (fully transparent) buffer
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}
}

// Validate checks that Pix holds exactly Width*Height RGBA quadruplets
func (b *PixelBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidBuffer)
	}
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrInvalidBuffer, b.Width, b.Height)
	}
	if want := b.Width * b.Height * 4; len(b.Pix) != want {
		return fmt.Errorf("%w: %dx%d needs %d bytes, got %d", ErrInvalidBuffer, b.Width, b.Height, want, len(b.Pix))
	}
	return nil
}

// RGBA returns the four channels of pixel (x, y)
func (b *PixelBuffer) RGBA(x, y int) (r, g, bl, a uint8) {
	i := (y*b.Width + x) * 4
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// SetRGBA writes pixel (x, y)
func (b *PixelBuffer) SetRGBA(x, y int, r, g, bl, a uint8) {
	i := (y*b.Width + x) * 4
	b.Pix[i] = r
	b.Pix[i+1] = g
	b.Pix[i+2] = bl
	b.Pix[i+3] = a
}

// Point is a position in pixel space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Contour is a closed outline; the last point connects back to the first
type Contour []Point

// Valid reports whether the contour has enough points to enclose an area
func (c Contour) Valid() bool {
	return len(c) >= 3
}

// TurnPolicy decides how the primary tracer resolves ambiguous turns
type TurnPolicy int

// Supported turn policies.
const (
	TurnBlack TurnPolicy = iota
	TurnWhite
	TurnLeft
	TurnRight
	TurnMinority
	TurnMajority
	TurnRandom
)

var turnPolicyNames = []string{"black", "white", "left", "right", "minority", "majority", "random"}

func (p TurnPolicy) String() string {
	if p < 0 || int(p) >= len(turnPolicyNames) {
		return fmt.Sprintf("TurnPolicy(%d)", int(p))
	}
	return turnPolicyNames[p]
}

// ParseTurnPolicy converts a policy name (case-insensitive) to a TurnPolicy
func ParseTurnPolicy(s string) (TurnPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range turnPolicyNames {
		if s == name {
			return TurnPolicy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown turn policy: %q", s)
}

// Settings controls a single trace. The engine never modifies it.
type Settings struct {
	// Threshold is the luminance cutoff (0-255)
	Threshold uint8
	// TurdSize is the noise floor: walks shorter than TurdSize*3 points are dropped
	TurdSize int
	// AlphaMax is the corner threshold forwarded to the primary tracer
	AlphaMax float64
	// OptCurve enables curve optimization in the primary tracer
	OptCurve bool
	// OptTolerance is the simplification tolerance
	OptTolerance float64
	TurnPolicy   TurnPolicy
	// BlackOnWhite treats dark pixels as foreground and transparency as paper
	BlackOnWhite bool
	Color        string
	FillColor    string
	StrokeWidth  float64
}

// DefaultSettings returns potrace-style defaults
func DefaultSettings() Settings {
	return Settings{
		Threshold:    128,
		TurdSize:     2,
		AlphaMax:     1.0,
		OptCurve:     true,
		OptTolerance: 0.2,
		TurnPolicy:   TurnMinority,
		BlackOnWhite: true,
		Color:        "#000000",
		FillColor:    "none",
		StrokeWidth:  1,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks the numeric ranges and makes sure colours can be embedded in an attribute
func (s Settings) Validate() error {
	if s.TurdSize < 0 {
		return fmt.Errorf("%w: turd size must be >= 0, got %d", ErrInvalidSettings, s.TurdSize)
	}
	if !finite(s.OptTolerance) || s.OptTolerance < 0 {
		return fmt.Errorf("%w: tolerance must be a finite value >= 0, got %g", ErrInvalidSettings, s.OptTolerance)
	}
	if !finite(s.AlphaMax) || s.AlphaMax < 0 {
		return fmt.Errorf("%w: alpha max must be a finite value >= 0, got %g", ErrInvalidSettings, s.AlphaMax)
	}
	if !finite(s.StrokeWidth) || s.StrokeWidth < 0 {
		return fmt.Errorf("%w: stroke width must be a finite value >= 0, got %g", ErrInvalidSettings, s.StrokeWidth)
	}
	if s.TurnPolicy < TurnBlack || s.TurnPolicy > TurnRandom {
		return fmt.Errorf("%w: unknown turn policy %d", ErrInvalidSettings, int(s.TurnPolicy))
	}
	for name, c := range map[string]string{"color": s.Color, "fill color": s.FillColor} {
		if strings.ContainsAny(c, `<>&"`) {
			return fmt.Errorf("%w: %s %q contains markup characters", ErrInvalidSettings, name, c)
		}
	}
	return nil
}

// Style returns the presentation attributes applied to output paths
func (s Settings) Style() Style {
	return Style{
		Fill:        s.FillColor,
		Stroke:      s.Color,
		StrokeWidth: s.StrokeWidth,
	}
}

// Style holds the SVG presentation attributes of traced paths
type Style struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
}

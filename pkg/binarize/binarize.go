package binarize

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/menta2k/image-tracer/pkg/schedule"
	"github.com/menta2k/image-tracer/pkg/types"
)

// AlphaCutoff is the alpha value below which a pixel counts as transparent
const AlphaCutoff = 128

// Grid is a foreground/background classification of an image, one cell per pixel
type Grid struct {
	Width  int
	Height int
	cells  []bool
}

// NewGrid allocates an all-background grid
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		cells:  make([]bool, width*height),
	}
}

// At reports whether (x, y) is foreground. Coordinates outside the grid are background.
func (g *Grid) At(x, y int) bool {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return false
	}
	return g.cells[y*g.Width+x]
}

// Set marks (x, y) as foreground or background
func (g *Grid) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return
	}
	g.cells[y*g.Width+x] = v
}

// Count returns the number of foreground cells
func (g *Grid) Count() int {
	n := 0
	for _, v := range g.cells {
		if v {
			n++
		}
	}
	return n
}

// Image renders the grid as black foreground on a white background
func (g *Grid) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			c := color.Gray{Y: 255}
			if g.cells[y*g.Width+x] {
				c.Y = 0
			}
			img.SetGray(x, y, c)
		}
	}
	return img
}

// Options controls how often Binarize yields
type Options struct {
	// BatchRows is the number of rows processed between yields
	BatchRows int
	Yield     schedule.Yielder
}

// Binarize classifies every pixel of pixels as foreground or background.
//
// The gray level is the plain average (R+G+B)/3. Pixels with alpha below
// AlphaCutoff are foreground only when blackOnWhite is false. Opaque pixels are
// foreground when darker than threshold (blackOnWhite) or at least as bright as
// threshold (otherwise).
func Binarize(ctx context.Context, pixels *types.PixelBuffer, threshold uint8, blackOnWhite bool, opts Options) (*Grid, error) {
	if err := pixels.Validate(); err != nil {
		return nil, err
	}

	batch := schedule.Every(opts.BatchRows, schedule.DefaultBinarizeRows)
	yield := schedule.Or(opts.Yield)

	// (R+G+B)/3 < t  <=>  R+G+B < 3t for integer t
	cut := 3 * int(threshold)

	grid := NewGrid(pixels.Width, pixels.Height)
	for y := 0; y < pixels.Height; y++ {
		if y > 0 && y%batch == 0 {
			if err := yield.Yield(ctx); err != nil {
				return nil, fmt.Errorf("binarize interrupted at row %d: %w", y, err)
			}
		}
		row := pixels.Pix[y*pixels.Width*4 : (y+1)*pixels.Width*4]
		for x := 0; x < pixels.Width; x++ {
			p := row[x*4 : x*4+4]
			var fg bool
			if p[3] < AlphaCutoff {
				fg = !blackOnWhite
			} else {
				sum := int(p[0]) + int(p[1]) + int(p[2])
				if blackOnWhite {
					fg = sum < cut
				} else {
					fg = sum >= cut
				}
			}
			grid.cells[y*pixels.Width+x] = fg
		}
	}
	return grid, nil
}

package contour

import (
	"context"
	"fmt"

	"github.com/menta2k/image-tracer/pkg/binarize"
	"github.com/menta2k/image-tracer/pkg/schedule"
	"github.com/menta2k/image-tracer/pkg/types"
)

const (
	// MaxWalkSteps caps a single boundary walk (further capped by the image area)
	MaxWalkSteps = 5000

	// MaxContours stops the scan once this many contours were accepted
	MaxContours = 500

	// ScanYieldRows is the default number of scanned rows between yields
	ScanYieldRows = schedule.DefaultScanRows

	// MinContourPoints is the smallest walk that can form a closed outline
	MinContourPoints = 3
)

// Walk directions
const (
	right = 0 // +x
	down  = 1 // +y
	left  = 2 // -x
	up    = 3 // -y

	keep = -1 // uniform or saddle cell: continue in the current direction
)

var (
	stepX = [4]int{1, 0, -1, 0}
	stepY = [4]int{0, 1, 0, -1}
)

// directions maps a cell code (TL=8, TR=4, BR=2, BL=1) to the next step.
// Saddles (5 and 10) are not disambiguated.
var directions = [16]int{
	keep,  // 0
	left,  // 1  BL
	down,  // 2  BR
	left,  // 3  BR BL
	right, // 4  TR
	keep,  // 5  TR BL
	down,  // 6  TR BR
	left,  // 7  TR BR BL
	up,    // 8  TL
	up,    // 9  TL BL
	keep,  // 10 TL BR
	up,    // 11 TL BR BL
	right, // 12 TL TR
	right, // 13 TL TR BL
	down,  // 14 TL TR BR
	keep,  // 15
}

// Options controls how often Find yields
type Options struct {
	// BatchRows is the number of scanned rows between yields
	BatchRows int
	Yield     schedule.Yielder
}

// CellCode returns the 4-bit marching squares code of the 2x2 cell whose top-left pixel is (x, y)
func CellCode(g *binarize.Grid, x, y int) int {
	code := 0
	if g.At(x, y) {
		code |= 8
	}
	if g.At(x+1, y) {
		code |= 4
	}
	if g.At(x+1, y+1) {
		code |= 2
	}
	if g.At(x, y+1) {
		code |= 1
	}
	return code
}

// Find extracts the boundaries of the foreground regions of g.
//
// Cells are scanned in row-major order. Each unvisited edge cell starts a walk that
// follows the boundary until it returns to its start, leaves the grid or hits the
// step cap. Walks with fewer than minSize*3 points are dropped as speckle. At most
// MaxContours contours are returned; the rest of the image is not scanned.
func Find(ctx context.Context, g *binarize.Grid, minSize int, opts Options) ([]types.Contour, error) {
	cols, rows := g.Width-1, g.Height-1
	if cols <= 0 || rows <= 0 {
		return nil, nil
	}

	batch := schedule.Every(opts.BatchRows, ScanYieldRows)
	yield := schedule.Or(opts.Yield)

	minPoints := max(minSize*3, MinContourPoints)
	maxSteps := min(g.Width*g.Height, MaxWalkSteps)

	visited := make([]bool, cols*rows)
	var contours []types.Contour

	for y := 0; y < rows; y++ {
		if y > 0 && y%batch == 0 {
			if err := yield.Yield(ctx); err != nil {
				return nil, fmt.Errorf("contour scan interrupted at row %d: %w", y, err)
			}
		}
		for x := 0; x < cols; x++ {
			if visited[y*cols+x] {
				continue
			}
			code := CellCode(g, x, y)
			if code == 0 || code == 15 {
				continue
			}
			c := walk(g, visited, x, y, maxSteps)
			if len(c) < minPoints {
				continue
			}
			contours = append(contours, c)
			if len(contours) >= MaxContours {
				return contours, nil
			}
		}
	}
	return contours, nil
}

// walk follows the boundary starting at cell (sx, sy), marking every cell it passes
func walk(g *binarize.Grid, visited []bool, sx, sy, maxSteps int) types.Contour {
	cols, rows := g.Width-1, g.Height-1
	var points types.Contour

	x, y, dir := sx, sy, right
	for steps := 0; steps < maxSteps; steps++ {
		visited[y*cols+x] = true
		points = append(points, types.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})

		if d := directions[CellCode(g, x, y)]; d != keep {
			dir = d
		}
		x += stepX[dir]
		y += stepY[dir]

		if x < 0 || x >= cols || y < 0 || y >= rows {
			break
		}
		if x == sx && y == sy {
			break
		}
	}
	return points
}

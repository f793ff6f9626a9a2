package simplify

import (
	"math"

	"github.com/menta2k/image-tracer/pkg/types"
)

// ToleranceScale converts the user facing tolerance into the Douglas-Peucker epsilon
const ToleranceScale = 2

// Epsilon returns the simplification distance for a tolerance setting
func Epsilon(tolerance float64) float64 {
	return tolerance * ToleranceScale
}

// DouglasPeucker reduces points to the subset whose polyline stays within epsilon of the input.
// Inputs of two points or fewer are returned unchanged.
func DouglasPeucker(points []types.Point, epsilon float64) []types.Point {
	if len(points) <= 2 {
		return points
	}

	first, last := points[0], points[len(points)-1]
	index, maxDist := 0, 0.0
	for i := 1; i < len(points)-1; i++ {
		d := SegmentDistance(points[i], first, last)
		if d > maxDist {
			index, maxDist = i, d
		}
	}

	if maxDist > epsilon {
		left := DouglasPeucker(points[:index+1], epsilon)
		right := DouglasPeucker(points[index:], epsilon)

		out := make([]types.Point, 0, len(left)+len(right)-1)
		out = append(out, left[:len(left)-1]...)
		return append(out, right...)
	}
	return []types.Point{first, last}
}

// Contours simplifies every contour with the same epsilon
func Contours(contours []types.Contour, epsilon float64) []types.Contour {
	out := make([]types.Contour, 0, len(contours))
	for _, c := range contours {
		out = append(out, DouglasPeucker(c, epsilon))
	}
	return out
}

// SegmentDistance returns the distance from p to the segment a-b.
// A zero length segment degenerates to the distance between p and a.
func SegmentDistance(p, a, b types.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}

	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

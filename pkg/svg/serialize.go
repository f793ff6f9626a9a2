// Package svg writes traced contours as SVG and re-styles SVG documents produced by
// external tracers.
//
// Colour values are written verbatim. Callers validate them (see types.Settings.Validate).
package svg

import (
	"errors"
	"strconv"
	"strings"

	"github.com/menta2k/image-tracer/pkg/types"
)

const xmlns = "http://www.w3.org/2000/svg"

var (
	// ErrNoPaths is returned when a document contains no path element
	ErrNoPaths = errors.New("svg document has no path elements")

	// ErrNoDocument is returned when no svg root element can be found
	ErrNoDocument = errors.New("no svg document found")
)

// Serialize renders contours as a single path inside an svg root sized width x height
func Serialize(contours []types.Contour, width, height int, style types.Style) string {
	w, h := strconv.Itoa(width), strconv.Itoa(height)

	var b strings.Builder
	b.WriteString(`<svg xmlns="` + xmlns + `" width="` + w + `" height="` + h + `" viewBox="0 0 ` + w + ` ` + h + `">`)
	b.WriteString(`<path d="`)
	b.WriteString(PathData(contours))
	b.WriteString(`"`)
	writeStyle(&b, style)
	b.WriteString(` fill-rule="evenodd"/></svg>`)
	return b.String()
}

// PathData returns the d attribute for contours: "M x y L x y ... Z" per contour,
// coordinates rounded to one decimal
func PathData(contours []types.Contour) string {
	var buf []byte
	for _, c := range contours {
		if len(c) == 0 {
			continue
		}
		if len(buf) > 0 {
			buf = append(buf, ' ')
		}
		for i, p := range c {
			if i == 0 {
				buf = append(buf, "M "...)
			} else {
				buf = append(buf, " L "...)
			}
			buf = strconv.AppendFloat(buf, p.X, 'f', 1, 64)
			buf = append(buf, ' ')
			buf = strconv.AppendFloat(buf, p.Y, 'f', 1, 64)
		}
		buf = append(buf, " Z"...)
	}
	return string(buf)
}

func writeStyle(b *strings.Builder, style types.Style) {
	b.WriteString(` fill="` + style.Fill + `"`)
	b.WriteString(` stroke="` + style.Stroke + `"`)
	b.WriteString(` stroke-width="` + formatNumber(style.StrokeWidth) + `"`)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

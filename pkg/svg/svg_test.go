package svg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-tracer/pkg/types"
)

var testStyle = types.Style{Fill: "none", Stroke: "#000000", StrokeWidth: 1}

func TestSerialize(t *testing.T) {
	contours := []types.Contour{
		{{X: 4.5, Y: 4.5}, {X: 4.5, Y: 14.5}, {X: 14.5, Y: 14.5}, {X: 14.5, Y: 4.5}},
	}

	got := Serialize(contours, 20, 20, testStyle)
	want := `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20" viewBox="0 0 20 20">` +
		`<path d="M 4.5 4.5 L 4.5 14.5 L 14.5 14.5 L 14.5 4.5 Z" fill="none" stroke="#000000" stroke-width="1" fill-rule="evenodd"/></svg>`
	assert.Equal(t, want, got)
}

func TestSerializeEmpty(t *testing.T) {
	got := Serialize(nil, 5, 3, types.Style{Fill: "red", Stroke: "blue", StrokeWidth: 2.5})
	assert.Contains(t, got, `viewBox="0 0 5 3"`)
	assert.Contains(t, got, `<path d="" fill="red" stroke="blue" stroke-width="2.5" fill-rule="evenodd"/>`)

	n, err := CountPaths(got)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPathData(t *testing.T) {
	contours := []types.Contour{
		{{X: 0.5, Y: 0.5}, {X: 1.26, Y: 2}, {X: 3.04, Y: 0.96}},
		{},
		{{X: 10, Y: 10}, {X: 11, Y: 10}, {X: 11, Y: 11}},
	}
	assert.Equal(t, "M 0.5 0.5 L 1.3 2.0 L 3.0 1.0 Z M 10.0 10.0 L 11.0 10.0 L 11.0 11.0 Z", PathData(contours))
	assert.Equal(t, "", PathData(nil))
}

const potraceDoc = `<?xml version="1.0" standalone="no"?>
<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 20010904//EN"
 "http://www.w3.org/TR/2001/REC-SVG-20010904/DTD/svg10.dtd">
<svg version="1.0" xmlns="http://www.w3.org/2000/svg"
 width="20.000000pt" height="20.000000pt" viewBox="0 0 20.000000 20.000000"
 preserveAspectRatio="xMidYMid meet">
<g transform="translate(0.000000,20.000000) scale(0.100000,-0.100000)"
fill="#000000" stroke="none">
<path d="M50 100 l0 -50 100 0 100 0 0 50 z" fill="#000000"/>
<path style="fill:red" d="M0 0 l10 0 z"></path>
</g>
</svg>`

func TestRestyle(t *testing.T) {
	style := types.Style{Fill: "#ff0000", Stroke: "#00ff00", StrokeWidth: 3}

	got, paths, err := Restyle(potraceDoc, 20, 20, style)
	require.NoError(t, err)
	assert.Equal(t, 2, paths)

	// root sized in pixels
	assert.Contains(t, got, `width="20" height="20" viewBox="0 0 20 20"`)
	assert.NotContains(t, got, "20.000000pt")
	assert.Contains(t, got, `preserveAspectRatio="xMidYMid meet"`)

	// caller style on every path, original path style dropped
	assert.Equal(t, 2, strings.Count(got, `fill="#ff0000" stroke="#00ff00" stroke-width="3"`))
	assert.NotContains(t, got, "fill:red")
	assert.Contains(t, got, `d="M50 100 l0 -50 100 0 100 0 0 50 z"`)

	// group attributes and prolog are untouched
	assert.Contains(t, got, `transform="translate(0.000000,20.000000) scale(0.100000,-0.100000)"`)
	assert.True(t, strings.HasPrefix(got, `<?xml`))
	assert.True(t, strings.HasSuffix(got, "</svg>"))

	n, err := CountPaths(got)
	require.NoError(t, err)
	assert.Equal(t, paths, n)
}

func TestRestyleStrokeIgnoresGroupScale(t *testing.T) {
	doc := `<svg xmlns="http://www.w3.org/2000/svg" width="20pt" height="20pt" viewBox="0 0 20 20">` +
		`<g transform="translate(0.000000,20.000000) scale(0.100000,-0.100000)">` +
		`<path d="M50 50 l100 0 0 100 -100 0z" vector-effect="none"/>` +
		`<path d="M10 10 l10 0 z"/></g></svg>`

	got, paths, err := Restyle(doc, 20, 20, types.Style{Fill: "none", Stroke: "#000", StrokeWidth: 1})
	require.NoError(t, err)
	require.Equal(t, 2, paths)

	// the requested width must not shrink with the 0.1 group scale
	assert.Equal(t, 2, strings.Count(got, `stroke-width="1" vector-effect="non-scaling-stroke"`))
	assert.NotContains(t, got, `vector-effect="none"`)
	assert.Contains(t, got, `scale(0.100000,-0.100000)`)

	// Serialize output has no transform and stays byte-exact
	assert.NotContains(t, Serialize(nil, 2, 2, testStyle), "vector-effect")
}

func TestRestyleNoPaths(t *testing.T) {
	doc := `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><g></g></svg>`
	_, paths, err := Restyle(doc, 10, 10, testStyle)
	assert.ErrorIs(t, err, ErrNoPaths)
	assert.Zero(t, paths)
}

func TestRestyleNoDocument(t *testing.T) {
	_, _, err := Restyle("just some text", 10, 10, testStyle)
	assert.ErrorIs(t, err, ErrNoDocument)

	_, _, err = Restyle("", 10, 10, testStyle)
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestRestyleOwnOutput(t *testing.T) {
	contours := []types.Contour{{{X: 1.5, Y: 1.5}, {X: 1.5, Y: 3.5}, {X: 3.5, Y: 3.5}}}
	doc := Serialize(contours, 6, 6, testStyle)

	got, paths, err := Restyle(doc, 6, 6, testStyle)
	require.NoError(t, err)
	assert.Equal(t, 1, paths)
	assert.Contains(t, got, `d="M 1.5 1.5 L 1.5 3.5 L 3.5 3.5 Z"`)
	assert.Contains(t, got, `fill-rule="evenodd"`)
	assert.Equal(t, 1, strings.Count(got, `stroke-width=`))
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "bare document",
			raw:  `<svg viewBox="0 0 1 1"><path d="M0 0"/></svg>`,
			want: `<svg viewBox="0 0 1 1"><path d="M0 0"/></svg>`,
		},
		{
			name: "markdown fence",
			raw:  "```svg\n<svg><path d=\"M0 0\"/></svg>\n```",
			want: `<svg><path d="M0 0"/></svg>`,
		},
		{
			name: "surrounding prose",
			raw:  "Here is the tracing:\n<svg><g><svg></svg></g></svg>\nHope this helps!",
			want: `<svg><g><svg></svg></g></svg>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Extract("I cannot trace this image.")
	assert.ErrorIs(t, err, ErrNoDocument)

	_, err = Extract("</svg> <svg")
	assert.ErrorIs(t, err, ErrNoDocument)
}

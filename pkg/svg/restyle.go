package svg

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"

	"github.com/menta2k/image-tracer/pkg/types"
)

// presentation attributes replaced on every path
var pathStyleAttrs = map[string]bool{
	"fill":          true,
	"stroke":        true,
	"stroke-width":  true,
	"style":         true,
	"vector-effect": true,
}

// root attributes replaced with the pixel dimensions
var rootSizeAttrs = map[string]bool{
	"width":   true,
	"height":  true,
	"viewbox": true,
}

// Restyle rewrites a document produced by an external tracer: every path gets the
// given style with a non-scaling stroke, and the root svg element gets pixel
// width/height and a matching viewBox. It returns the rewritten document and the number of path elements.
// A document without paths yields ErrNoPaths.
func Restyle(doc string, width, height int, style types.Style) (string, int, error) {
	l := xml.NewLexer(parse.NewInputString(doc))

	var b strings.Builder
	b.Grow(len(doc) + 128)

	var (
		tag      string
		inRoot   bool
		seenRoot bool
		paths    int
	)
	for {
		tt, data := l.Next()
		switch tt {
		case xml.ErrorToken:
			if err := l.Err(); err != io.EOF {
				return "", 0, fmt.Errorf("failed to parse svg document: %w", err)
			}
			if !seenRoot {
				return "", 0, ErrNoDocument
			}
			if paths == 0 {
				return "", 0, ErrNoPaths
			}
			return b.String(), paths, nil

		case xml.StartTagToken:
			name := l.Text()
			tag = localName(name)
			switch tag {
			case "path":
				paths++
			case "svg":
				if !seenRoot {
					seenRoot, inRoot = true, true
				}
			}
			b.WriteByte('<')
			b.Write(name)

		case xml.AttributeToken:
			name := strings.ToLower(string(l.Text()))
			if tag == "path" && pathStyleAttrs[name] {
				continue
			}
			if inRoot && rootSizeAttrs[name] {
				continue
			}
			b.WriteByte(' ')
			b.Write(l.Text())
			b.WriteByte('=')
			b.Write(quoted(l.AttrVal()))

		case xml.StartTagCloseToken, xml.StartTagCloseVoidToken:
			if tag == "path" {
				writeStyle(&b, style)
				// stroke width in root units, whatever transform the engine wrapped the path in
				b.WriteString(` vector-effect="non-scaling-stroke"`)
			}
			if inRoot {
				w, h := strconv.Itoa(width), strconv.Itoa(height)
				b.WriteString(` width="` + w + `" height="` + h + `" viewBox="0 0 ` + w + ` ` + h + `"`)
				inRoot = false
			}
			b.Write(data)
			tag = ""

		default:
			b.Write(data)
		}
	}
}

// CountPaths returns the number of path elements in doc
func CountPaths(doc string) (int, error) {
	l := xml.NewLexer(parse.NewInputString(doc))
	n := 0
	for {
		tt, _ := l.Next()
		switch tt {
		case xml.ErrorToken:
			if err := l.Err(); err != io.EOF {
				return n, err
			}
			return n, nil
		case xml.StartTagToken:
			if localName(l.Text()) == "path" {
				n++
			}
		}
	}
}

func localName(name []byte) string {
	if i := bytes.IndexByte(name, ':'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(string(name))
}

func quoted(val []byte) []byte {
	if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') && val[len(val)-1] == val[0] {
		return val
	}
	out := make([]byte, 0, len(val)+2)
	out = append(out, '"')
	out = append(out, bytes.ReplaceAll(val, []byte{'"'}, []byte("&quot;"))...)
	return append(out, '"')
}

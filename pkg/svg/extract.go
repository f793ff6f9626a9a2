package svg

import "strings"

// Extract returns the outermost <svg>...</svg> element of raw, ignoring any
// surrounding prose or markdown fences a language model may add
func Extract(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}

	start := strings.Index(raw, "<svg")
	end := strings.LastIndex(raw, "</svg>")
	if start < 0 || end < start {
		return "", ErrNoDocument
	}
	return raw[start : end+len("</svg>")], nil
}

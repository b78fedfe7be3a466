// Package chunker truncates long memory bodies to a display-length
// excerpt for CLI rendering (the `recall.body_max_chars` config knob).
package chunker

import "strings"

// Excerpt truncates text to at most maxChars bytes, preferring a
// paragraph boundary, then a word boundary, over a mid-word cut, and
// appends "…" to a truncated result. maxChars <= 0 disables truncation.
func Excerpt(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	cut := text[:maxChars]

	if i := strings.LastIndex(cut, "\n\n"); i > 0 {
		cut = cut[:i]
	} else if i := strings.LastIndexAny(cut, " \n\t"); i > 0 {
		cut = cut[:i]
	}

	cut = strings.TrimSpace(cut)
	if cut == "" {
		cut = strings.TrimSpace(text[:maxChars])
	}
	return cut + "…"
}

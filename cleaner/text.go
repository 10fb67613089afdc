// Package cleaner normalizes extracted text and renders markup.
package cleaner

import (
	"strings"
	"unicode/utf8"
)

// CleanText collapses every run of whitespace (including newlines and
// full-width spaces) into a single space and trims the ends. Applying it
// twice gives the same result as applying it once.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanLines normalizes each line like CleanText but keeps line breaks,
// dropping blank lines. Used for markdown output where structure matters.
func CleanLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if cleaned := CleanText(line); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return strings.Join(out, "\n")
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

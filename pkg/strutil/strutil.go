// Package strutil has small string helpers shared by the extractors.
package strutil

import "unicode/utf8"

// Truncate cuts s to at most maxLen runes with no suffix. The extractors
// report captured text verbatim, so no ellipsis is added.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

// FirstNonEmpty returns the first non-empty value, or "".
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

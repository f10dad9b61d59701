// Package utils provides shared utilities for text, math, and logging.
package utils

import "strings"

// Truncate returns s cut to maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

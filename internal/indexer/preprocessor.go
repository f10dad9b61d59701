package indexer

import (
	"strings"
	"unicode"
)

// Preprocess trims text and collapses every run of whitespace, newlines included, to one space.
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

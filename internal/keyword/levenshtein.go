package keyword

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SubstringDistance returns the minimum number of single-character edits needed to turn
// pattern into some substring of text (Sellers' variant of Levenshtein: the match may
// start and end anywhere in text).
func SubstringDistance(pattern, text string) int {
	p := []rune(pattern)
	s := []rune(text)
	if len(p) == 0 {
		return 0
	}
	if len(s) == 0 {
		return len(p)
	}

	// Row i holds the cost of matching p[:i] ending at each text position.
	// The first row is all zeros so a match may begin anywhere.
	prev := make([]int, len(s)+1)
	curr := make([]int, len(s)+1)
	for i := 1; i <= len(p); i++ {
		curr[0] = i
		for j := 1; j <= len(s); j++ {
			cost := 0
			if p[i-1] != s[j-1] {
				cost = 1
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	best := prev[0]
	for _, d := range prev[1:] {
		if d < best {
			best = d
		}
	}
	return best
}

// NormalizedDistance is SubstringDistance divided by the pattern length, in [0,1].
func NormalizedDistance(pattern, text string) float64 {
	n := len([]rune(pattern))
	if n == 0 {
		return 1
	}
	return float64(SubstringDistance(pattern, text)) / float64(n)
}

func min3(a, b, c int) int {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}

// Normalize lowercases s, strips accents, turns punctuation into spaces and
// collapses runs of whitespace. Safe for concurrent use.
func Normalize(s string) string {
	// A chained Transformer carries buffers, so each call gets its own.
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripper, s); err == nil {
		s = stripped
	}
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Package safety tags incoming messages as crisis, depression, greeting, meta-question
// or none, so that sensitive or off-topic messages never reach retrieval or the LLM.
package safety

import (
	"regexp"
	"strings"

	"github.com/hyperjump/faqbot/internal/models"
)

var crisisKeywords = []string{
	"suicide",
	"kill myself",
	"want to die",
	"don't want to live",
	"dont want to live",
	"do not want to live",
	"i don't want to live",
	"i dont want to live",
	"i do not want to live",
	"no point living",
	"no point in living",
	"life is meaningless",
	"self harm",
	"hurt myself",
	"end my life",
	"end it all",
	"end my suffering",
	"take my life",
	"cut myself",
	"overdose",
	"dying wish",
	"wanting to die",
	"should be dead",
	"better off dead",
	"deserve to die",
	"burden to everyone",
	"everyone would be better off",
	"can't take it anymore",
	"can't handle this",
	"hopeless",
	"worthless",
	"no one cares",
	"nobody loves me",
	"i'm a burden",
}

var depressionKeywords = []string{
	"depressed",
	"depression",
	"sad",
	"feeling low",
	"feeling down",
	"lonely",
	"alone",
	"isolated",
	"anxious",
	"anxiety",
	"stressed",
	"stress",
	"overwhelmed",
	"tired of everything",
	"exhausted",
	"no energy",
	"unmotivated",
	"lost interest",
	"empty",
	"numb",
	"struggling",
	"having a hard time",
	"difficult time",
	"need help",
	"mental health",
	"emotional",
	"crying",
	"can't focus",
	"can't sleep",
	"insomnia",
	"worried",
	"fear",
	"scared",
	"panic",
}

// Patterns run on the lowercased message with typographic apostrophes folded to '.
// Each tolerates the contraction being written with or without the apostrophe.
var crisisPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:i\s+)?do(?:n'?t|\s*not)\s+want\s+to\s+live\b`),
	regexp.MustCompile(`\b(?:i\s+)?want\s+to\s+die\b`),
	regexp.MustCompile(`\bkill\s+myself\b`),
	regexp.MustCompile(`\bself[-\s]?harm\b`),
	regexp.MustCompile(`\bhurt\s+myself\b`),
	regexp.MustCompile(`\bend\s+(?:my\s+life|it\s+all|my\s+suffering)\b`),
	regexp.MustCompile(`\bbetter\s+off\s+dead\b`),
	regexp.MustCompile(`\bcan'?t\s+take\s+it\s+anymore\b`),
}

var (
	greetingPattern = regexp.MustCompile(`(?i)^(hi|hello|hey|greetings|good morning|good evening)\b`)
	metaPattern     = regexp.MustCompile(`(what\s+is\s+(your\s+)?(context|content)|content\s+provided|what\s+content\s+is\s+provided|what\s+was\s+provided|information\s+provided|show\s+(the\s+)?(context|content)|prompt|instructions|rules)`)
)

var apostrophes = strings.NewReplacer("'", "", "’", "", "‘", "")

var foldApostrophes = strings.NewReplacer("’", "'", "‘", "'")

// Classifier assigns exactly one Classification per message, by priority
// crisis > depression > greeting > meta > none.
type Classifier struct {
	crisis     []string
	depression []string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithExtraCrisisKeywords adds phrases to the built-in crisis list.
func WithExtraCrisisKeywords(keywords ...string) Option {
	return func(c *Classifier) { c.crisis = append(c.crisis, normalizeAll(keywords)...) }
}

// WithExtraDepressionKeywords adds phrases to the built-in depression list.
func WithExtraDepressionKeywords(keywords ...string) Option {
	return func(c *Classifier) { c.depression = append(c.depression, normalizeAll(keywords)...) }
}

// NewClassifier returns a classifier with the built-in keyword lists.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		crisis:     normalizeAll(crisisKeywords),
		depression: normalizeAll(depressionKeywords),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Normalize lowercases s and removes apostrophe variants.
func Normalize(s string) string {
	return apostrophes.Replace(strings.ToLower(s))
}

func normalizeAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		n := strings.TrimSpace(Normalize(k))
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Classify tags message.
func (c *Classifier) Classify(message string) models.Classification {
	lower := strings.ToLower(message)
	normalized := apostrophes.Replace(lower)

	if c.IsCrisis(message) {
		return models.ClassCrisis
	}
	if containsAny(normalized, c.depression) {
		return models.ClassDepression
	}
	if greetingPattern.MatchString(strings.TrimSpace(message)) {
		return models.ClassGreeting
	}
	if metaPattern.MatchString(lower) {
		return models.ClassMeta
	}
	return models.ClassNone
}

// IsCrisis reports whether message matches a crisis keyword or pattern.
func (c *Classifier) IsCrisis(message string) bool {
	lower := foldApostrophes.Replace(strings.ToLower(message))
	if containsAny(apostrophes.Replace(lower), c.crisis) {
		return true
	}
	for _, re := range crisisPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

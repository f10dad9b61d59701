package embedding

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
// Returned slices have exactly maxTokens elements.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// maxWordRunes is the longest word WordPiece tries to split before giving up with [UNK].
const maxWordRunes = 200

// WordPieceTokenizer is an uncased BERT WordPiece tokenizer driven by a vocab.txt file.
type WordPieceTokenizer struct {
	vocab map[string]int64
	padID int64
	unkID int64
	clsID int64
	sepID int64
}

// LoadWordPieceTokenizer reads a vocab.txt file where line N is the token with ID N.
func LoadWordPieceTokenizer(path string) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()
	t, err := NewWordPieceTokenizer(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// NewWordPieceTokenizer reads a vocabulary, one token per line, from r.
func NewWordPieceTokenizer(r io.Reader) (*WordPieceTokenizer, error) {
	vocab := make(map[string]int64, 32000)
	scanner := bufio.NewScanner(r)
	var id int64
	for scanner.Scan() {
		vocab[scanner.Text()] = id
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read error: %w", err)
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("vocab: empty")
	}

	t := &WordPieceTokenizer{vocab: vocab}
	specials := []struct {
		name string
		dest *int64
	}{
		{"[PAD]", &t.padID},
		{"[UNK]", &t.unkID},
		{"[CLS]", &t.clsID},
		{"[SEP]", &t.sepID},
	}
	for _, s := range specials {
		id, ok := vocab[s.name]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special token %s", s.name)
		}
		*s.dest = id
	}
	return t, nil
}

// Tokenize converts text into [CLS] tokens... [SEP] followed by padding, truncated to maxTokens.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = 2
	}
	tokens := t.Tokens(text)
	if len(tokens) > maxTokens-2 {
		tokens = tokens[:maxTokens-2]
	}

	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)
	for i := range inputIDs {
		inputIDs[i] = t.padID
	}

	inputIDs[0] = t.clsID
	attentionMask[0] = 1
	for i, tok := range tokens {
		inputIDs[i+1] = t.lookup(tok)
		attentionMask[i+1] = 1
	}
	inputIDs[len(tokens)+1] = t.sepID
	attentionMask[len(tokens)+1] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// Tokens returns the WordPiece tokens of text without special tokens.
func (t *WordPieceTokenizer) Tokens(text string) []string {
	var out []string
	for _, word := range basicTokenize(text) {
		out = append(out, t.wordpiece(word)...)
	}
	return out
}

func (t *WordPieceTokenizer) lookup(token string) int64 {
	if id, ok := t.vocab[token]; ok {
		return id
	}
	return t.unkID
}

// wordpiece greedily splits word into the longest vocabulary prefixes, marking
// continuation pieces with "##".
func (t *WordPieceTokenizer) wordpiece(word string) []string {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []string{"[UNK]"}
	}
	var pieces []string
	for start := 0; start < len(runes); {
		end := len(runes)
		found := ""
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if _, ok := t.vocab[sub]; ok {
				found = sub
				break
			}
			end--
		}
		if found == "" {
			return []string{"[UNK]"}
		}
		pieces = append(pieces, found)
		start = end
	}
	return pieces
}

// basicTokenize cleans, lowercases, strips accents and splits on whitespace and punctuation.
func basicTokenize(text string) []string {
	text = strings.ToLower(cleanText(text))
	text = stripAccents(text)
	var tokens []string
	for _, word := range strings.Fields(text) {
		tokens = append(tokens, splitOnPunctuation(word)...)
	}
	return tokens
}

// cleanText removes control characters and turns all whitespace into spaces.
func cleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == 0 || r == unicode.ReplacementChar || isControl(r) {
			continue
		}
		if unicode.IsSpace(r) {
			b.WriteRune(' ')
		} else if isCJK(r) {
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripAccents removes combining marks after NFD normalization.
func stripAccents(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(text) {
		if unicode.In(r, unicode.Mn) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitOnPunctuation splits word at each punctuation rune, keeping the punctuation as its own token.
func splitOnPunctuation(word string) []string {
	var tokens []string
	var current strings.Builder
	for _, r := range word {
		if isPunctuation(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			tokens = append(tokens, string(r))
			continue
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

// isPunctuation treats all non-alphanumeric ASCII symbols as punctuation, as BERT does.
func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0xF900 && r <= 0xFAFF)
}

// Package corpus loads the precomputed FAQ table that backs both search indices.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/hyperjump/faqbot/internal/models"
	"github.com/hyperjump/faqbot/internal/vector"
	"go.uber.org/zap"
)

// ErrEmpty is returned when the corpus file holds no entries.
var ErrEmpty = errors.New("corpus is empty")

// Record is the on-disk shape of one FAQ entry.
type Record struct {
	ID        int       `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Embedding []float32 `json:"embedding"`
}

// Corpus is the immutable, in-memory FAQ table.
type Corpus struct {
	entries    []*models.FAQEntry
	dimensions int
}

// Load reads the flat JSON file at path. Any read or decode failure is returned
// so the caller can refuse to start.
func Load(path string, logger *zap.Logger) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}
	c, err := New(records, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// New builds a corpus from decoded records. Records are copied, never modified.
// Entries with a missing, zero or wrongly sized embedding stay searchable by keyword
// but get Norm 0 so the vector index skips them.
func New(records []Record, logger *zap.Logger) (*Corpus, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	dims := dominantDimension(records)
	entries := make([]*models.FAQEntry, 0, len(records))
	seen := make(map[int]struct{}, len(records))
	for i, r := range records {
		id := r.ID
		if id == 0 {
			id = i + 1
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate faq id %d", id)
		}
		seen[id] = struct{}{}

		e := &models.FAQEntry{ID: id, Question: r.Question, Answer: r.Answer}
		switch {
		case len(r.Embedding) == 0:
			logger.Warn("faq entry has no embedding; vector search disabled for it", zap.Int("id", id))
		case len(r.Embedding) != dims:
			logger.Warn("faq entry embedding has wrong dimension; vector search disabled for it",
				zap.Int("id", id), zap.Int("dimensions", len(r.Embedding)), zap.Int("expected", dims))
		default:
			e.Embedding = append([]float32(nil), r.Embedding...)
			e.Norm = vector.L2Norm(e.Embedding)
			if e.Norm == 0 {
				logger.Warn("faq entry embedding has zero norm; vector search disabled for it", zap.Int("id", id))
			}
		}
		entries = append(entries, e)
	}
	return &Corpus{entries: entries, dimensions: dims}, nil
}

// dominantDimension returns the most common non-zero embedding length.
func dominantDimension(records []Record) int {
	counts := make(map[int]int)
	best, bestCount := 0, 0
	for _, r := range records {
		n := len(r.Embedding)
		if n == 0 {
			continue
		}
		counts[n]++
		if counts[n] > bestCount || (counts[n] == bestCount && n < best) {
			best, bestCount = n, counts[n]
		}
	}
	return best
}

// Entries returns the entries in file order. Callers must not modify them.
func (c *Corpus) Entries() []*models.FAQEntry {
	return c.entries
}

// Dimensions returns the embedding dimension shared by the vector-searchable entries.
func (c *Corpus) Dimensions() int {
	return c.dimensions
}

// Len returns the number of entries.
func (c *Corpus) Len() int {
	return len(c.entries)
}

// Get returns the entry with the given id.
func (c *Corpus) Get(id int) (*models.FAQEntry, bool) {
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

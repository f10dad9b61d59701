package keyword

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/faqbot/internal/models"
)

// BleveIndex implements KeywordIndex with an in-memory Bleve index for candidate
// retrieval and substring edit distance for scoring.
type BleveIndex struct {
	index   bleve.Index
	entries map[string]*models.FAQEntry
	// normalized question and answer text per entry id
	texts map[string][2]string
	opts  Options
}

// NewBleveIndex indexes entries into a memory-only Bleve index.
func NewBleveIndex(entries []*models.FAQEntry, opts Options) (*BleveIndex, error) {
	if opts.Threshold <= 0 {
		opts.Threshold = 0.3
	}
	if opts.Candidates <= 0 {
		opts.Candidates = 50
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (no stemming) keeps fuzzy terms comparable to the indexed ones.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("question", textFieldMapping)
	docMapping.AddFieldMappingsAt("answer", textFieldMapping)
	im.AddDocumentMapping("faq", docMapping)
	im.DefaultType = "faq"
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}

	b := &BleveIndex{
		index:   index,
		entries: make(map[string]*models.FAQEntry, len(entries)),
		texts:   make(map[string][2]string, len(entries)),
		opts:    opts,
	}
	batch := index.NewBatch()
	for _, e := range entries {
		id := strconv.Itoa(e.ID)
		if err := batch.Index(id, map[string]interface{}{
			"question": e.Question,
			"answer":   e.Answer,
		}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("index faq %d: %w", e.ID, err)
		}
		b.entries[id] = e
		b.texts[id] = [2]string{Normalize(e.Question), Normalize(e.Answer)}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("index batch: %w", err)
	}
	return b, nil
}

// Search returns up to limit entries whose question or answer approximately contains
// the query, ordered by ascending distance (ties by entry id).
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error) {
	normalized := Normalize(query)
	if normalized == "" || limit <= 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequest(b.buildFuzzyQuery(normalized))
	req.Size = b.opts.Candidates
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]*KeywordResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		e, ok := b.entries[hit.ID]
		if !ok {
			continue
		}
		texts := b.texts[hit.ID]
		d := NormalizedDistance(normalized, texts[0])
		if ad := NormalizedDistance(normalized, texts[1]); ad < d {
			d = ad
		}
		if d > b.opts.Threshold {
			continue
		}
		out = append(out, &KeywordResult{Entry: e, Distance: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Entry.ID < out[j].Entry.ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" {
			terms = append(terms, w)
		}
	}
	return terms
}

// fuzzinessFor allows one edit in short terms and two in longer ones.
func fuzzinessFor(term string) int {
	if utf8.RuneCountInString(term) <= 4 {
		return 1
	}
	return 2
}

// buildFuzzyQuery creates a disjunction of a match query and per-term fuzzy queries
// over both fields, so any matching or misspelled term makes an entry a candidate.
func (b *BleveIndex) buildFuzzyQuery(queryStr string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	queries := make([]blevequery.Query, 0, 2*(len(terms)+1))
	for _, field := range []string{"question", "answer"} {
		mq := bleve.NewMatchQuery(queryStr)
		mq.SetField(field)
		queries = append(queries, mq)
		for _, term := range terms {
			if utf8.RuneCountInString(term) < 3 {
				continue
			}
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(fuzzinessFor(term))
			fq.SetField(field)
			queries = append(queries, fq)
		}
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// DocCount returns the number of indexed entries.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

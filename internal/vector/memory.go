package vector

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyperjump/faqbot/internal/models"
)

// MemoryIndex is an immutable brute-force cosine index. FAQ corpora are small,
// so a linear scan over precomputed norms is exact and fast enough.
type MemoryIndex struct {
	dimensions int
	entries    []*models.FAQEntry
}

// NewMemoryIndex builds an index over entries whose embedding has the given dimension
// and a non-zero norm. Other entries are left out.
func NewMemoryIndex(entries []*models.FAQEntry, dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	kept := make([]*models.FAQEntry, 0, len(entries))
	for _, e := range entries {
		if e.Norm == 0 || len(e.Embedding) != dimensions {
			continue
		}
		kept = append(kept, e)
	}
	return &MemoryIndex{dimensions: dimensions, entries: kept}, nil
}

// Search returns up to k entries with cosine similarity >= threshold, best first.
// Ties are broken by ascending entry id. A zero query vector matches nothing.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int, threshold float64) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	qNorm := L2Norm(query)
	if k <= 0 || qNorm == 0 || len(m.entries) == 0 {
		return nil, nil
	}
	results := make([]*VectorResult, 0, len(m.entries))
	for _, e := range m.entries {
		score, ok := Cosine(query, e.Embedding, qNorm, e.Norm)
		if !ok || score < threshold {
			continue
		}
		results = append(results, &VectorResult{Entry: e, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.ID < results[j].Entry.ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Size returns the number of searchable entries.
func (m *MemoryIndex) Size() int {
	return len(m.entries)
}

// Dimensions returns the embedding dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Package search provides hybrid (semantic + keyword) FAQ retrieval and result fusion.
package search

import (
	"sort"

	"github.com/hyperjump/faqbot/internal/keyword"
	"github.com/hyperjump/faqbot/internal/models"
	"github.com/hyperjump/faqbot/internal/vector"
)

// Merge combines vector and keyword hits into one ranked list. Entries found by both
// searches keep their higher score. The result is sorted by score descending, ties by
// ascending entry id, and truncated to k.
//
// Cosine and keyword scores live on different scales; max-merge compares them as-is.
func Merge(vectorHits []*vector.VectorResult, keywordHits []*keyword.KeywordResult, k int) []*models.ScoredCandidate {
	byID := make(map[int]*models.ScoredCandidate, len(vectorHits)+len(keywordHits))
	add := func(e *models.FAQEntry, score float64, source string) {
		if cur, ok := byID[e.ID]; ok {
			if score > cur.Score {
				cur.Score = score
				cur.Source = source
			}
			return
		}
		byID[e.ID] = &models.ScoredCandidate{Entry: e, Score: score, Source: source}
	}
	for _, r := range vectorHits {
		add(r.Entry, r.Score, models.SourceVector)
	}
	for _, r := range keywordHits {
		add(r.Entry, r.Score(), models.SourceKeyword)
	}

	merged := make([]*models.ScoredCandidate, 0, len(byID))
	for _, c := range byID {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Entry.ID < merged[j].Entry.ID
	})
	if k >= 0 && len(merged) > k {
		merged = merged[:k]
	}
	return merged
}

// Accept reports whether the best merged candidate is confident enough to answer from.
func Accept(merged []*models.ScoredCandidate, threshold float64) bool {
	return len(merged) > 0 && merged[0].Score >= threshold
}

// Suggestions returns the first n candidates as client suggestions.
func Suggestions(merged []*models.ScoredCandidate, n int) []models.Suggestion {
	if n > len(merged) {
		n = len(merged)
	}
	if n <= 0 {
		return nil
	}
	out := make([]models.Suggestion, n)
	for i := 0; i < n; i++ {
		out[i] = merged[i].Entry.Suggestion()
	}
	return out
}

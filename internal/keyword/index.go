// Package keyword provides typo-tolerant keyword search over FAQ questions and answers.
package keyword

import (
	"context"

	"github.com/hyperjump/faqbot/internal/models"
)

// KeywordIndex defines approximate string search over the FAQ corpus.
type KeywordIndex interface {
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)
	Close() error
}

// KeywordResult is a single keyword hit. Distance is in [0,1]; 0 is an exact match.
type KeywordResult struct {
	Entry    *models.FAQEntry
	Distance float64
}

// Score converts the distance into a similarity in [0,1].
func (r *KeywordResult) Score() float64 {
	return Score(r.Distance)
}

// Score maps a raw distance to 1 - distance, clamped to [0,1].
func Score(distance float64) float64 {
	s := 1 - distance
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// Options tunes keyword search.
type Options struct {
	// Threshold drops hits whose distance exceeds it.
	Threshold float64
	// Candidates caps how many bleve hits are rescored.
	Candidates int
}

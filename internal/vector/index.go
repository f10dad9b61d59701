// Package vector provides the in-memory cosine-similarity index over FAQ question embeddings.
package vector

import (
	"context"

	"github.com/hyperjump/faqbot/internal/models"
)

// VectorIndex defines similarity search over FAQ embeddings.
type VectorIndex interface {
	Search(ctx context.Context, query []float32, k int, threshold float64) ([]*VectorResult, error)
	Size() int
	Dimensions() int
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	Entry *models.FAQEntry
	Score float64 // cosine similarity in [-1,1]
}

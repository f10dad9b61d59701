package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/faqbot/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and local development. It returns a
// fixed-dimension vector derived from the text hash so that the same text always gets the
// same embedding.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic unit-length embedding based on the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h%100003)*float64(i+1))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}

// HashString returns a deterministic non-negative hash of s.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	if h < 0 { // math.MinInt
		h = 0
	}
	return h
}

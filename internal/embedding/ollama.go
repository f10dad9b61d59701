package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaEmbedder gets embeddings from an Ollama server.
type OllamaEmbedder struct {
	embedder   *embeddings.EmbedderImpl
	dimensions int
}

// NewOllamaEmbedder connects to serverURL and embeds with model. dimensions is the expected
// vector length; responses of another length are rejected.
func NewOllamaEmbedder(serverURL, model string, dimensions int) (*OllamaEmbedder, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: %w", err)
	}
	return &OllamaEmbedder{embedder: embedder, dimensions: dimensions}, nil
}

// Embed returns the embedding for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if e.dimensions > 0 && len(emb) != e.dimensions {
		return nil, fmt.Errorf("ollama embed: got %d dimensions, want %d", len(emb), e.dimensions)
	}
	return emb, nil
}

// EmbedBatch embeds texts in one request.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	return embs, nil
}

func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OllamaEmbedder) Close() error {
	return nil
}

package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/faqbot/internal/config"
	"github.com/hyperjump/faqbot/internal/embedding"
	"github.com/hyperjump/faqbot/internal/keyword"
	"github.com/hyperjump/faqbot/internal/models"
	"github.com/hyperjump/faqbot/internal/vector"
	"go.uber.org/zap"
)

// Engine runs hybrid (keyword + semantic) FAQ search.
type Engine struct {
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	config       *config.SearchConfig
	logger       *zap.Logger
}

// Result is the outcome of one hybrid search.
type Result struct {
	Candidates  []*models.ScoredCandidate
	Accepted    bool
	TopScore    float64
	VectorHits  int
	KeywordHits int
	Took        time.Duration
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	cfg *config.SearchConfig,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		config:       cfg,
		logger:       logger,
	}
}

// Search embeds text once, runs vector and keyword search concurrently, merges the hits
// and applies the acceptance gate.
func (e *Engine) Search(ctx context.Context, text string) (*Result, error) {
	startTime := time.Now()

	var (
		keywordResults  []*keyword.KeywordResult
		semanticResults []*vector.VectorResult
		errChan         = make(chan error, 2)
		wg              sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		results, err := e.keywordIndex.Search(ctx, text, e.config.KeywordTopK)
		if err != nil {
			errChan <- fmt.Errorf("keyword search failed: %w", err)
			return
		}
		keywordResults = results
	}()

	go func() {
		defer wg.Done()
		queryEmbedding, err := e.embedder.Embed(ctx, text)
		if err != nil {
			errChan <- fmt.Errorf("embedding failed: %w", err)
			return
		}
		results, err := e.vectorIndex.Search(ctx, queryEmbedding, e.config.TopK, e.config.VectorThreshold)
		if err != nil {
			errChan <- fmt.Errorf("vector search failed: %w", err)
			return
		}
		semanticResults = results
	}()

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	merged := Merge(semanticResults, keywordResults, e.config.TopK)
	res := &Result{
		Candidates:  merged,
		Accepted:    Accept(merged, e.config.AcceptThreshold),
		VectorHits:  len(semanticResults),
		KeywordHits: len(keywordResults),
		Took:        time.Since(startTime),
	}
	if len(merged) > 0 {
		res.TopScore = merged[0].Score
	}
	e.logger.Debug("hybrid search",
		zap.Int("vector_hits", res.VectorHits),
		zap.Int("keyword_hits", res.KeywordHits),
		zap.Float64("top_score", res.TopScore),
		zap.Bool("accepted", res.Accepted),
		zap.Duration("took", res.Took),
	)
	return res, nil
}

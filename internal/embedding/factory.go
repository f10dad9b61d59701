package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/faqbot/internal/config"
)

// NewFactory returns the Factory for cfg.Provider. For onnx the vocabulary is loaded here, once,
// and shared read-only by every worker; the model session itself is built per worker.
func NewFactory(cfg config.EmbeddingConfig, logger *zap.Logger) (Factory, error) {
	switch cfg.Provider {
	case config.EmbeddingONNX:
		tokenizer, err := LoadWordPieceTokenizer(cfg.VocabPath)
		if err != nil {
			return nil, err
		}
		opts := ONNXOptions{
			ModelPath:         cfg.ModelPath,
			SharedLibraryPath: cfg.SharedLibraryPath,
			OutputName:        cfg.OutputName,
			Dimensions:        cfg.Dimensions,
			MaxTokens:         cfg.MaxTokens,
		}
		return func(context.Context) (Embedder, error) {
			logger.Info("loading embedding model", zap.String("model", cfg.ModelPath))
			return NewONNXEmbedder(opts, tokenizer)
		}, nil
	case config.EmbeddingOllama:
		return func(context.Context) (Embedder, error) {
			return NewOllamaEmbedder(cfg.OllamaURL, cfg.OllamaModel, cfg.Dimensions)
		}, nil
	case config.EmbeddingMock:
		return func(context.Context) (Embedder, error) {
			return NewMockEmbedder(cfg.Dimensions), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// NewGateway builds the embedding path used by the server: an LRU cache in front of a Pool
// whose workers use the configured backend. observer may be nil.
func NewGateway(cfg config.EmbeddingConfig, logger *zap.Logger, observer PoolObserver) (Embedder, error) {
	factory, err := NewFactory(cfg, logger)
	if err != nil {
		return nil, err
	}
	pool := NewPool(factory, PoolOptions{
		MinWorkers:  cfg.MinWorkers,
		MaxWorkers:  cfg.MaxWorkers,
		IdleTimeout: cfg.IdleTimeout,
		Dimensions:  cfg.Dimensions,
		Logger:      logger,
		Observer:    observer,
	})
	if cfg.CacheSize <= 0 {
		return pool, nil
	}
	return NewCachedEmbedder(pool, cfg.CacheSize), nil
}

// Package indexer builds the precomputed FAQ corpus: it reads question and answer pairs from a
// source file, embeds every question and writes the flat JSON file the server loads.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/faqbot/internal/corpus"
	"github.com/hyperjump/faqbot/internal/embedding"
	"github.com/hyperjump/faqbot/internal/extract"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoPairs is returned when a source file holds no usable question and answer pair.
var ErrNoPairs = errors.New("no FAQ pairs found")

// Indexer turns FAQ source files into corpus records.
type Indexer struct {
	embedder    embedding.Embedder
	extractor   *extract.Extractor
	concurrency int
	logger      *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for progress and skipped entries.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithConcurrency sets how many questions are embedded at once. Values below 1 mean 1.
func WithConcurrency(n int) IndexerOption {
	return func(idx *Indexer) { idx.concurrency = n }
}

// NewIndexer creates an indexer. extractor may be nil, in which case a default one is used.
func NewIndexer(embedder embedding.Embedder, extractor *extract.Extractor, opts ...IndexerOption) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		embedder:    embedder,
		extractor:   extractor,
		concurrency: 1,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.concurrency < 1 {
		idx.concurrency = 1
	}
	return idx
}

// ReadPairs reads pairs from path, choosing the parser by extension: .json arrays,
// spreadsheets by column, anything else as a document with Q:/A: markers.
func (idx *Indexer) ReadPairs(path string) ([]Pair, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return ParseJSON(data)
	case extract.IsSpreadsheet(ext):
		sheets, err := idx.extractor.ExtractSheets(path)
		if err != nil {
			return nil, err
		}
		return ParseSheets(sheets), nil
	default:
		text, err := idx.extractor.Extract(path)
		if err != nil {
			return nil, err
		}
		return ParseText(text), nil
	}
}

// Build reads the pairs in path and embeds each question. Pairs missing a question or an
// answer are skipped. Records get ids 1..n in source order.
func (idx *Indexer) Build(ctx context.Context, path string) ([]corpus.Record, error) {
	pairs, err := idx.ReadPairs(path)
	if err != nil {
		return nil, err
	}
	return idx.BuildPairs(ctx, pairs)
}

// BuildPairs embeds the questions of pairs and returns the corpus records.
func (idx *Indexer) BuildPairs(ctx context.Context, pairs []Pair) ([]corpus.Record, error) {
	records := make([]corpus.Record, 0, len(pairs))
	for i, p := range pairs {
		q := Preprocess(p.Question)
		a := strings.TrimSpace(p.Answer)
		if q == "" || a == "" {
			idx.logger.Warn("skipping incomplete FAQ pair", zap.Int("position", i+1), zap.String("question", q))
			continue
		}
		records = append(records, corpus.Record{ID: len(records) + 1, Question: q, Answer: a})
	}
	if len(records) == 0 {
		return nil, ErrNoPairs
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)
	for i := range records {
		i := i
		g.Go(func() error {
			vec, err := idx.embedder.Embed(gctx, records[i].Question)
			if err != nil {
				return fmt.Errorf("embed question %d: %w", records[i].ID, err)
			}
			records[i].Embedding = vec
			idx.logger.Debug("embedded question", zap.Int("id", records[i].ID))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	idx.logger.Info("corpus built", zap.Int("entries", len(records)), zap.Int("skipped", len(pairs)-len(records)))
	return records, nil
}

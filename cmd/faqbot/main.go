// Package main is the faqbot CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/faqbot/internal/chat"
	"github.com/hyperjump/faqbot/internal/cli"
	"github.com/hyperjump/faqbot/internal/config"
	"github.com/hyperjump/faqbot/internal/corpus"
	"github.com/hyperjump/faqbot/internal/embedding"
	"github.com/hyperjump/faqbot/internal/extract"
	"github.com/hyperjump/faqbot/internal/indexer"
	"github.com/hyperjump/faqbot/internal/keyword"
	"github.com/hyperjump/faqbot/internal/llm"
	"github.com/hyperjump/faqbot/internal/observability"
	"github.com/hyperjump/faqbot/internal/prompt"
	"github.com/hyperjump/faqbot/internal/safety"
	"github.com/hyperjump/faqbot/internal/search"
	"github.com/hyperjump/faqbot/internal/server"
	"github.com/hyperjump/faqbot/internal/vector"
	"github.com/hyperjump/faqbot/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/faqbot/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	var err error
	switch command := os.Args[1]; command {
	case "server":
		err = runServer(os.Args[2:])
	case "embed":
		err = runEmbed(os.Args[2:])
	case "ask":
		err = runAsk(os.Args[2:], os.Stdout)
	case "classify":
		err = runClassify(os.Args[2:], os.Stdout)
	case "version", "--version", "-v":
		fmt.Printf("faqbot version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	components, err := initializeComponents(cfg, logger, prometheus.NewRegistry())
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	go func() {
		if err := components.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return components.Server.Stop(ctx)
}

// Components holds initialized services.
type Components struct {
	Corpus       *corpus.Corpus
	Embedder     embedding.Embedder
	KeywordIndex *keyword.BleveIndex
	Engine       *search.Engine
	Chat         *chat.Service
	Metrics      *observability.Metrics
	Server       *server.Server
}

// Close releases the embedding workers and the keyword index.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

// initializeComponents loads the corpus and wires every service behind the HTTP server.
// The corpus is read once here and never reloaded.
func initializeComponents(cfg *config.Config, logger *zap.Logger, reg *prometheus.Registry) (*Components, error) {
	metrics := observability.NewMetrics(reg)

	faqs, err := corpus.Load(cfg.Corpus.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus %s: %w", cfg.Corpus.Path, err)
	}
	if faqs.Dimensions() != cfg.Embedding.Dimensions {
		return nil, fmt.Errorf("corpus embeddings have %d dimensions, embedding.dimensions is %d",
			faqs.Dimensions(), cfg.Embedding.Dimensions)
	}
	logger.Info("corpus loaded", zap.Int("entries", faqs.Len()), zap.Int("dimensions", faqs.Dimensions()))

	vectorIndex, err := vector.NewMemoryIndex(faqs.Entries(), faqs.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	keywordIndex, err := keyword.NewBleveIndex(faqs.Entries(), keyword.Options{
		Threshold:  cfg.Search.KeywordThreshold,
		Candidates: cfg.Search.KeywordCandidates,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	embedder, err := embedding.NewGateway(cfg.Embedding, logger, metrics)
	if err != nil {
		_ = keywordIndex.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	components := &Components{
		Corpus:       faqs,
		Embedder:     embedder,
		KeywordIndex: keywordIndex,
		Engine:       search.NewEngine(embedder, vectorIndex, keywordIndex, &cfg.Search, logger),
		Metrics:      metrics,
	}

	responses := safety.NewResponses(safety.Contact{
		Organization:    cfg.Chat.Organization,
		Institute:       cfg.Chat.Institute,
		Email:           cfg.Chat.ContactEmail,
		EmergencyNumber: cfg.Chat.EmergencyNumber,
	})
	svc, err := chat.NewService(chat.Deps{
		Classifier: newClassifier(cfg),
		Responses:  responses,
		Searcher:   components.Engine,
		Prompts:    prompt.NewBuilder(cfg.Chat.Organization, responses.NoAnswer()),
		LLM:        llm.NewClient(cfg.LLM, nil, logger),
		Config:     cfg.Chat,
		Observer:   metrics,
		Logger:     logger,
	})
	if err != nil {
		components.Close()
		return nil, fmt.Errorf("failed to initialize chat service: %w", err)
	}
	components.Chat = svc

	info := server.Info{Entries: faqs.Len(), Dimensions: faqs.Dimensions()}
	if pool := poolOf(embedder); pool != nil {
		info.PoolStats = pool.Stats
	}
	components.Server = server.NewServer(svc, info, metrics, cfg, logger)
	return components, nil
}

func newClassifier(cfg *config.Config) *safety.Classifier {
	return safety.NewClassifier(
		safety.WithExtraCrisisKeywords(cfg.Safety.ExtraCrisisKeywords...),
		safety.WithExtraDepressionKeywords(cfg.Safety.ExtraDepressionKeywords...),
	)
}

// poolOf returns the worker pool behind e, looking through the cache layer.
func poolOf(e embedding.Embedder) *embedding.Pool {
	switch v := e.(type) {
	case *embedding.Pool:
		return v
	case *embedding.CachedEmbedder:
		return poolOf(v.Embedder)
	}
	return nil
}

func runEmbed(args []string) error {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (embedding backend)")
	input := fs.String("input", "", "FAQ source: .json, .xlsx, .ods, .docx, .odt, .rtf, .pdf or text")
	output := fs.String("output", "", "output corpus file (default: corpus.path from config)")
	concurrency := fs.Int("concurrency", 0, "questions embedded at once (default: embedding.max_workers)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	if *input == "" && fs.NArg() > 0 {
		*input = fs.Arg(0)
	}
	if *input == "" {
		fs.Usage()
		return errors.New("an -input file is required")
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	out := *output
	if out == "" {
		out = cfg.Corpus.Path
	}
	n, err := buildCorpus(context.Background(), cfg, *input, out, *concurrency, logger)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d FAQ entries to %s\n", n, out)
	return nil
}

// buildCorpus embeds every question in input through a fresh worker pool and writes
// the corpus file to output. It returns the number of entries written.
func buildCorpus(ctx context.Context, cfg *config.Config, input, output string, concurrency int, logger *zap.Logger) (int, error) {
	embCfg := cfg.Embedding
	embCfg.CacheSize = 0
	embedder, err := embedding.NewGateway(embCfg, logger, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	defer embedder.Close()

	if concurrency <= 0 {
		concurrency = embCfg.MaxWorkers
	}
	idx := indexer.NewIndexer(embedder, extract.NewExtractor(),
		indexer.WithLogger(logger),
		indexer.WithConcurrency(concurrency),
	)
	records, err := idx.Build(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("build corpus from %s: %w", input, err)
	}
	if err := indexer.WriteCorpus(output, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// argsReorder moves any flags (and their values) that appear after the message
// to the front of the slice so that flag.Parse() sees them.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildMessage joins all positional args with spaces so multi-word messages
// work the same with or without shell quoting.
func buildMessage(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func parseOutputFormat(s string) (cli.OutputFormat, error) {
	switch s {
	case "text":
		return cli.OutputText, nil
	case "json":
		return cli.OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

func runAsk(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:3000", "faqbot server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	timeout := fs.Duration("timeout", 2*time.Minute, "overall request timeout")
	_ = fs.Parse(argsReorder(args))

	message := buildMessage(fs.Args())
	if message == "" {
		fs.Usage()
		return errors.New("a message is required")
	}
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	return cli.Ask(ctx, nil, *serverURL, message, stdout, format)
}

func runClassify(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path (adds configured safety keywords)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(args))

	message := buildMessage(fs.Args())
	if message == "" {
		fs.Usage()
		return errors.New("a message is required")
	}
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	classifier := safety.NewClassifier()
	if *configPath != "" {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		classifier = newClassifier(cfg)
	}
	return cli.WriteClassification(stdout, message, classifier.Classify(message), format)
}

func printUsage() {
	fmt.Println(`faqbot - Counselling FAQ chatbot with hybrid retrieval and streamed answers

Usage:
  faqbot server [flags]             Start the HTTP server
  faqbot embed [flags] -input FILE  Build the FAQ corpus file with embeddings
  faqbot ask [flags] <message>      Ask a running server and stream the reply
  faqbot classify [flags] <message> Show the safety classification of a message
  faqbot version                    Show version
  faqbot help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/faqbot/config.yaml, or ./config.yaml)
  --debug            Enable debug logging

Embed Flags:
  --config string    Config file path (embedding backend and default output)
  --input string     FAQ source: .json, .xlsx, .ods, .docx, .odt, .rtf, .pdf or text with Q:/A: markers
  --output string    Output corpus file (default: corpus.path)
  --concurrency int  Questions embedded at once (default: embedding.max_workers)

Ask Flags:
  --server string    Server URL (default: http://localhost:3000)
  --output string    Output format: text or json (default: text)
  --timeout duration Overall request timeout (default: 2m)

Classify Flags:
  --config string    Config file path (adds configured safety keywords)
  --output string    Output format: text or json (default: text)

Environment:
  GROQ_API_KEY, GROQ_MODEL, EMERGENCY_NUMBER, FAQ_FILE, PORT override the config file.

Examples:
  faqbot embed -input faq.xlsx -output data/faqs_with_embeddings.json
  faqbot server
  faqbot ask "how do I book a counselling session?"
  faqbot ask --output json is it confidential
  faqbot classify "hello there"`)
}

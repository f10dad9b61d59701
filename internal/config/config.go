// Package config provides configuration loading and structs for the faqbot server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	LLM       LLMConfig       `yaml:"llm"`
	Chat      ChatConfig      `yaml:"chat"`
	Safety    SafetyConfig    `yaml:"safety"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// CorpusConfig points at the precomputed FAQ file.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig holds embedding backend and worker pool settings.
type EmbeddingConfig struct {
	// Provider is one of "onnx", "ollama" or "mock".
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	VocabPath  string `yaml:"vocab_path"`
	// SharedLibraryPath overrides the onnxruntime shared library location.
	SharedLibraryPath string `yaml:"shared_library_path"`
	// OutputName is the model output holding per-token hidden states.
	OutputName string `yaml:"output_name"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`

	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`

	MinWorkers  int           `yaml:"min_workers"`
	MaxWorkers  int           `yaml:"max_workers"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// SearchConfig holds hybrid retrieval settings.
type SearchConfig struct {
	TopK              int     `yaml:"top_k"`
	KeywordTopK       int     `yaml:"keyword_top_k"`
	KeywordCandidates int     `yaml:"keyword_candidates"`
	VectorThreshold   float64 `yaml:"vector_threshold"`
	KeywordThreshold  float64 `yaml:"keyword_threshold"`
	AcceptThreshold   float64 `yaml:"accept_threshold"`
}

// LLMConfig holds the upstream completion service settings.
type LLMConfig struct {
	// Provider is one of "groq", "ollama" or "none".
	Provider    string        `yaml:"provider"`
	URL         string        `yaml:"url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
}

// ChatConfig holds request pipeline settings and the organization details used in replies.
type ChatConfig struct {
	MaxMessageLength int    `yaml:"max_message_length"`
	Suggestions      int    `yaml:"suggestions"`
	Organization     string `yaml:"organization"`
	Institute        string `yaml:"institute"`
	ContactEmail     string `yaml:"contact_email"`
	EmergencyNumber  string `yaml:"emergency_number"`
}

// SafetyConfig extends the built-in keyword lists.
type SafetyConfig struct {
	ExtraCrisisKeywords     []string `yaml:"extra_crisis_keywords"`
	ExtraDepressionKeywords []string `yaml:"extra_depression_keywords"`
}

// RateLimitConfig holds per-client request limits for the chat routes.
type RateLimitConfig struct {
	Enabled  *bool         `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// EnabledOrDefault returns whether rate limiting is on; defaults to true when unset.
func (r *RateLimitConfig) EnabledOrDefault() bool {
	if r.Enabled != nil {
		return *r.Enabled
	}
	return true
}

// Load reads and parses the config file at path, expands paths, applies defaults and
// environment overrides. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Corpus.Path = expandPath(cfg.Corpus.Path, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.VocabPath = expandPath(cfg.Embedding.VocabPath, configDir)

	return &cfg, nil
}

// ApplyEnv overrides cfg with values from the environment. lookup is usually os.LookupEnv.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("GROQ_API_KEY"); ok && v != "" {
		cfg.LLM.APIKey = v
	}
	if v, ok := lookup("GROQ_MODEL"); ok && v != "" {
		cfg.LLM.Model = v
	}
	if v, ok := lookup("EMERGENCY_NUMBER"); ok && v != "" {
		cfg.Chat.EmergencyNumber = v
	}
	if v, ok := lookup("FAQ_FILE"); ok && v != "" {
		cfg.Corpus.Path = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case ProviderGroq:
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("llm.api_key (or GROQ_API_KEY) is required for the groq provider"))
		}
	case ProviderOllama, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("unknown llm.provider %q", c.LLM.Provider))
	}
	switch c.Embedding.Provider {
	case EmbeddingONNX, EmbeddingOllama, EmbeddingMock:
	default:
		errs = append(errs, fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider))
	}
	if c.Embedding.MinWorkers > c.Embedding.MaxWorkers {
		errs = append(errs, fmt.Errorf("embedding.min_workers (%d) exceeds max_workers (%d)",
			c.Embedding.MinWorkers, c.Embedding.MaxWorkers))
	}
	for name, v := range map[string]float64{
		"search.keyword_threshold": c.Search.KeywordThreshold,
		"search.accept_threshold":  c.Search.AcceptThreshold,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, v))
		}
	}
	if c.Search.VectorThreshold < -1 || c.Search.VectorThreshold > 1 {
		errs = append(errs, fmt.Errorf("search.vector_threshold must be within [-1,1], got %v", c.Search.VectorThreshold))
	}
	return errors.Join(errs...)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

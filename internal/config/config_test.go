package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GROQ_API_KEY", "GROQ_MODEL", "EMERGENCY_NUMBER", "FAQ_FILE", "PORT"} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
corpus:
  path: "faqs.json"
llm:
  provider: ollama
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Corpus.Path == "" {
		t.Error("corpus path should be set")
	}
	if cfg.LLM.URL != DefaultOllamaURL+"/api/generate" {
		t.Errorf("ollama url: got %s", cfg.LLM.URL)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
corpus:
  path: "./data/faqs_with_embeddings.json"
embedding:
  model_path: "./models/model.onnx"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "data", "faqs_with_embeddings.json")
	if cfg.Corpus.Path != want {
		t.Errorf("corpus path = %s, want %s", cfg.Corpus.Path, want)
	}
	if cfg.Embedding.ModelPath != filepath.Join(dir, "models", "model.onnx") {
		t.Errorf("model path = %s", cfg.Embedding.ModelPath)
	}
}

func TestLoad_envOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("GROQ_MODEL", "llama-3.1-8b-instant")
	t.Setenv("EMERGENCY_NUMBER", "112")
	t.Setenv("PORT", "4000")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "gsk-test" || cfg.LLM.Model != "llama-3.1-8b-instant" {
		t.Errorf("llm overrides not applied: %+v", cfg.LLM)
	}
	if cfg.Chat.EmergencyNumber != "112" {
		t.Errorf("emergency number: got %s", cfg.Chat.EmergencyNumber)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestApplyEnv_invalidPort(t *testing.T) {
	cfg := &Config{}
	lookup := func(k string) (string, bool) {
		if k == "PORT" {
			return "eighty", true
		}
		return "", false
	}
	if err := ApplyEnv(cfg, lookup); err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Port != 3000 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Search.TopK != 4 || cfg.Search.KeywordTopK != 3 {
		t.Errorf("top k defaults: got %d/%d", cfg.Search.TopK, cfg.Search.KeywordTopK)
	}
	if cfg.Search.VectorThreshold != 0.4 || cfg.Search.KeywordThreshold != 0.3 || cfg.Search.AcceptThreshold != 0.5 {
		t.Errorf("threshold defaults: %+v", cfg.Search)
	}
	if cfg.Embedding.MinWorkers != 1 || cfg.Embedding.MaxWorkers != 2 || cfg.Embedding.IdleTimeout != time.Minute {
		t.Errorf("pool defaults: %+v", cfg.Embedding)
	}
	if cfg.LLM.Provider != ProviderGroq || cfg.LLM.Model != DefaultGroqModel || cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("llm defaults: %+v", cfg.LLM)
	}
	if cfg.Chat.MaxMessageLength != 500 || cfg.Chat.Suggestions != 2 {
		t.Errorf("chat defaults: %+v", cfg.Chat)
	}
	if cfg.RateLimit.Requests != 30 || cfg.RateLimit.Window != time.Minute || !cfg.RateLimit.EnabledOrDefault() {
		t.Errorf("rate limit defaults: %+v", cfg.RateLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"groq without key", func(c *Config) {}, "GROQ_API_KEY"},
		{"groq with key", func(c *Config) { c.LLM.APIKey = "k" }, ""},
		{"no llm", func(c *Config) { c.LLM.Provider = ProviderNone }, ""},
		{"unknown llm", func(c *Config) { c.LLM.Provider = "bard" }, "unknown llm.provider"},
		{"unknown embedder", func(c *Config) {
			c.LLM.Provider = ProviderNone
			c.Embedding.Provider = "word2vec"
		}, "unknown embedding.provider"},
		{"min above max", func(c *Config) {
			c.LLM.Provider = ProviderNone
			c.Embedding.MinWorkers = 3
		}, "min_workers"},
		{"accept threshold out of range", func(c *Config) {
			c.LLM.Provider = ProviderNone
			c.Search.AcceptThreshold = 1.5
		}, "accept_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

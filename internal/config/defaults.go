package config

import "time"

// LLM providers.
const (
	ProviderGroq   = "groq"
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

// Embedding providers.
const (
	EmbeddingONNX   = "onnx"
	EmbeddingOllama = "ollama"
	EmbeddingMock   = "mock"
)

const (
	DefaultGroqURL   = "https://api.groq.com/openai/v1/chat/completions"
	DefaultGroqModel = "mixtral-8x7b-32768"
	DefaultOllamaURL = "http://localhost:11434"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.AllowedOrigins == nil {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "./data/faqs_with_embeddings.json"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = EmbeddingONNX
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "./models/bge-small-en-v1.5/model.onnx"
	}
	if cfg.Embedding.VocabPath == "" {
		cfg.Embedding.VocabPath = "./models/bge-small-en-v1.5/vocab.txt"
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "last_hidden_state"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 128
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.OllamaURL == "" {
		cfg.Embedding.OllamaURL = DefaultOllamaURL
	}
	if cfg.Embedding.OllamaModel == "" {
		cfg.Embedding.OllamaModel = "nomic-embed-text"
	}
	if cfg.Embedding.MinWorkers == 0 {
		cfg.Embedding.MinWorkers = 1
	}
	if cfg.Embedding.MaxWorkers == 0 {
		cfg.Embedding.MaxWorkers = 2
	}
	if cfg.Embedding.IdleTimeout == 0 {
		cfg.Embedding.IdleTimeout = 60 * time.Second
	}

	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 4
	}
	if cfg.Search.KeywordTopK == 0 {
		cfg.Search.KeywordTopK = 3
	}
	if cfg.Search.KeywordCandidates == 0 {
		cfg.Search.KeywordCandidates = 50
	}
	if cfg.Search.VectorThreshold == 0 {
		cfg.Search.VectorThreshold = 0.4
	}
	if cfg.Search.KeywordThreshold == 0 {
		cfg.Search.KeywordThreshold = 0.3
	}
	if cfg.Search.AcceptThreshold == 0 {
		cfg.Search.AcceptThreshold = 0.5
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderGroq
	}
	if cfg.LLM.URL == "" {
		switch cfg.LLM.Provider {
		case ProviderOllama:
			cfg.LLM.URL = DefaultOllamaURL + "/api/generate"
		default:
			cfg.LLM.URL = DefaultGroqURL
		}
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case ProviderOllama:
			cfg.LLM.Model = "llama3"
		default:
			cfg.LLM.Model = DefaultGroqModel
		}
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30 * time.Second
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1024
	}

	if cfg.Chat.MaxMessageLength == 0 {
		cfg.Chat.MaxMessageLength = 500
	}
	if cfg.Chat.Suggestions == 0 {
		cfg.Chat.Suggestions = 2
	}
	if cfg.Chat.Organization == "" {
		cfg.Chat.Organization = "IIT Gandhinagar Counselling Services"
	}
	if cfg.Chat.Institute == "" {
		cfg.Chat.Institute = "IIT Gandhinagar"
	}
	if cfg.Chat.ContactEmail == "" {
		cfg.Chat.ContactEmail = "cservices@iitgn.ac.in"
	}
	if cfg.Chat.EmergencyNumber == "" {
		cfg.Chat.EmergencyNumber = "+91-1800-XXXX-XXXX"
	}

	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 30
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = time.Minute
	}
}

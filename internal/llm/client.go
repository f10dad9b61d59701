// Package llm opens streaming completions against the upstream LLM service.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/faqbot/internal/config"
	"github.com/hyperjump/faqbot/internal/stream"
)

var (
	// ErrConnect is returned when the upstream cannot be reached or does not answer in time.
	ErrConnect = errors.New("failed to connect to LLM")
	// ErrTimeout is returned, together with ErrConnect, when response headers do not arrive
	// within the configured timeout.
	ErrTimeout = errors.New("LLM request timed out")
	// ErrDisabled is returned by Stream for the "none" provider.
	ErrDisabled = errors.New("LLM provider disabled")
)

const maxErrorBody = 512

// APIError is a non-2xx upstream response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("LLM returned status %d: %s", e.StatusCode, e.Body)
}

// Client streams completions from one configured provider.
type Client struct {
	cfg    config.LLMConfig
	http   *http.Client
	logger *zap.Logger
}

// NewClient returns a client for cfg. httpClient may be nil. Its Timeout must be zero:
// the connect phase is bounded by cfg.Timeout and the body by the caller's context.
func NewClient(cfg config.LLMConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// Provider returns the configured provider name.
func (c *Client) Provider() string {
	return c.cfg.Provider
}

// Enabled reports whether completions are requested at all.
func (c *Client) Enabled() bool {
	return c.cfg.Provider != config.ProviderNone
}

// Format returns the wire format of the provider's streamed body.
func (c *Client) Format() string {
	if c.cfg.Provider == config.ProviderOllama {
		return stream.FormatNDJSON
	}
	return stream.FormatSSE
}

// Stream sends the completion request and returns the streamed body once response headers
// arrive. The caller must Close the body. Reading the body stops when ctx is done.
func (c *Client) Stream(ctx context.Context, system, prompt string) (io.ReadCloser, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	payload, err := c.requestBody(system, prompt)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build LLM request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Provider == config.ProviderGroq {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		req.Header.Set("Accept", "text/event-stream")
	}

	var timedOut atomic.Bool
	timer := time.AfterFunc(c.cfg.Timeout, func() {
		timedOut.Store(true)
		cancel()
	})

	start := time.Now()
	resp, err := c.http.Do(req)
	stopped := timer.Stop()
	if err != nil {
		cancel()
		if timedOut.Load() {
			return nil, fmt.Errorf("%w: %w after %s", ErrConnect, ErrTimeout, c.cfg.Timeout)
		}
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	if !stopped {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %w after %s", ErrConnect, ErrTimeout, c.cfg.Timeout)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		cancel()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.logger.Debug("LLM stream opened",
		zap.String("provider", c.cfg.Provider),
		zap.String("model", c.cfg.Model),
		zap.Duration("ttfb", time.Since(start)))
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

func (c *Client) requestBody(system, prompt string) ([]byte, error) {
	var body any
	switch c.cfg.Provider {
	case config.ProviderGroq:
		temperature := c.cfg.Temperature
		if temperature == 0 {
			// go-openai omits a zero temperature.
			temperature = math.SmallestNonzeroFloat32
		}
		body = openai.ChatCompletionRequest{
			Model: c.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: temperature,
			MaxTokens:   c.cfg.MaxTokens,
			Stream:      true,
		}
	case config.ProviderOllama:
		body = generateRequest{
			Model:   c.cfg.Model,
			System:  system,
			Prompt:  prompt,
			Stream:  true,
			Options: generateOptions{Temperature: c.cfg.Temperature, NumPredict: c.cfg.MaxTokens},
		}
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", c.cfg.Provider)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode LLM request: %w", err)
	}
	return payload, nil
}

// generateRequest is the body of Ollama's /api/generate.
type generateRequest struct {
	Model   string          `json:"model"`
	System  string          `json:"system,omitempty"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

package stream

import (
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Upstream wire formats.
const (
	FormatSSE    = "sse"
	FormatNDJSON = "ndjson"
)

const (
	ssePrefix   = "data:"
	sseSentinel = "[DONE]"
)

// Decoder extracts the text chunk carried by one complete upstream line. An empty chunk with
// a nil error means the line carries nothing to forward; a non-nil error means the line was
// malformed and should be skipped.
type Decoder interface {
	Decode(line string) (string, error)
}

// NewDecoder returns the decoder for format.
func NewDecoder(format string) (Decoder, error) {
	switch format {
	case FormatSSE:
		return SSEDecoder{}, nil
	case FormatNDJSON:
		return NDJSONDecoder{}, nil
	default:
		return nil, fmt.Errorf("unknown stream format %q", format)
	}
}

// SSEDecoder reads OpenAI-compatible server-sent events: "data: {json}" lines terminated by a
// "data: [DONE]" sentinel. The chunk is choices[0].delta.content.
type SSEDecoder struct{}

func (SSEDecoder) Decode(line string) (string, error) {
	if !strings.HasPrefix(line, ssePrefix) {
		return "", nil
	}
	data := strings.TrimPrefix(line[len(ssePrefix):], " ")
	if data == "" || data == sseSentinel {
		return "", nil
	}
	var resp openai.ChatCompletionStreamResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		return "", fmt.Errorf("sse payload: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

// NDJSONDecoder reads Ollama-style streams where every line is a JSON object. The chunk is
// "response" (generate API) or "message.content" (chat API).
type NDJSONDecoder struct{}

type ndjsonLine struct {
	Response string `json:"response"`
	Message  *struct {
		Content string `json:"content"`
	} `json:"message"`
}

func (NDJSONDecoder) Decode(line string) (string, error) {
	if strings.TrimSpace(line) == "" {
		return "", nil
	}
	var l ndjsonLine
	if err := json.Unmarshal([]byte(line), &l); err != nil {
		return "", fmt.Errorf("ndjson line: %w", err)
	}
	if l.Response != "" {
		return l.Response, nil
	}
	if l.Message != nil {
		return l.Message.Content, nil
	}
	return "", nil
}

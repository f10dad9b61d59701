// Package cli renders faqbot replies for the command line.
package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hyperjump/faqbot/internal/models"
	"github.com/hyperjump/faqbot/pkg/utils"
)

// OutputFormat is the format for reply output.
type OutputFormat string

const (
	// OutputText streams chunks as human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON prints one JSON document once the stream is complete.
	OutputJSON OutputFormat = "json"
)

// maxLineSize bounds one NDJSON frame read from the server.
const maxLineSize = 1 << 20

// ErrStream is returned when the server ends a stream with an error frame
// or without a terminal frame.
var ErrStream = errors.New("stream ended with an error")

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Reply      string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Reply)
}

// Answer is the JSON output of Ask.
type Answer struct {
	Reply       string              `json:"reply"`
	Suggestions []models.Suggestion `json:"suggestions,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Ask posts message to the /chat route of the server at baseURL and renders the NDJSON
// stream to w. In text mode chunks are written as they arrive.
func Ask(ctx context.Context, client *http.Client, baseURL, message string, w io.Writer, format OutputFormat) error {
	if client == nil {
		client = http.DefaultClient
	}
	body, err := json.Marshal(models.ChatRequest{Message: message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post /chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return RenderStream(resp.Body, w, format)
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var reply models.ChatReply
	if err := json.Unmarshal(data, &reply); err != nil || reply.Reply == "" {
		reply.Reply = utils.Truncate(strings.TrimSpace(string(data)), 200)
	}
	return &StatusError{StatusCode: resp.StatusCode, Reply: reply.Reply}
}

// RenderStream reads NDJSON frames from r and writes them to w in the given format.
func RenderStream(r io.Reader, w io.Writer, format OutputFormat) error {
	var (
		answer Answer
		text   strings.Builder
		done   bool
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var frame models.StreamFrame
		if err := json.Unmarshal(line, &frame); err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}
		if frame.Chunk != "" {
			text.WriteString(frame.Chunk)
			if format != OutputJSON {
				fmt.Fprint(w, frame.Chunk)
			}
		}
		if frame.Done {
			answer.Suggestions = frame.Suggestions
			answer.Error = frame.Error
			done = true
			break
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	answer.Reply = text.String()
	if !done && answer.Error == "" {
		answer.Error = "stream closed before completion"
	}

	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(answer); err != nil {
			return err
		}
	} else {
		writeAnswerTail(w, &answer)
	}
	if answer.Error != "" {
		return fmt.Errorf("%w: %s", ErrStream, answer.Error)
	}
	return nil
}

func writeAnswerTail(w io.Writer, answer *Answer) {
	fmt.Fprintln(w)
	if answer.Error != "" {
		fmt.Fprintf(w, "\n[%s]\n", answer.Error)
	}
	if len(answer.Suggestions) == 0 {
		return
	}
	fmt.Fprintln(w, "\nRelated questions:")
	for _, s := range answer.Suggestions {
		fmt.Fprintf(w, "  - %s\n    %s\n", s.Question, utils.TruncateWords(s.Answer, 20))
	}
}

// WriteClassification writes the safety tag assigned to message.
func WriteClassification(w io.Writer, message string, class models.Classification, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Message        string                `json:"message"`
			Classification models.Classification `json:"classification"`
		}{message, class})
	}
	_, err := fmt.Fprintf(w, "%s\t%s\n", class, utils.Truncate(message, 60))
	return err
}

package stream

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/hyperjump/faqbot/internal/models"
)

// ErrFrameAfterDone is returned when a frame is written after the terminal frame.
var ErrFrameAfterDone = errors.New("frame written after done")

// FrameSink receives the frames of one response.
type FrameSink interface {
	WriteFrame(frame models.StreamFrame) error
}

// NDJSONWriter writes frames to an HTTP response, one JSON object per line, flushing after
// each frame. Headers are set on the first frame.
type NDJSONWriter struct {
	w       http.ResponseWriter
	enc     *json.Encoder
	mu      sync.Mutex
	started bool
	done    bool
}

// NewNDJSONWriter returns a sink writing to w.
func NewNDJSONWriter(w http.ResponseWriter) *NDJSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &NDJSONWriter{w: w, enc: enc}
}

func (n *NDJSONWriter) WriteFrame(frame models.StreamFrame) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.done {
		return ErrFrameAfterDone
	}
	if !n.started {
		h := n.w.Header()
		h.Set("Content-Type", "application/x-ndjson")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		n.w.WriteHeader(http.StatusOK)
		n.started = true
	}
	if frame.Done {
		n.done = true
	}
	if err := n.enc.Encode(frame); err != nil {
		return err
	}
	if f, ok := n.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// Started reports whether any frame has been written.
func (n *NDJSONWriter) Started() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.started
}

// Collector gathers frames into a single reply.
type Collector struct {
	text        strings.Builder
	frames      int
	done        bool
	suggestions []models.Suggestion
	err         string
}

func (c *Collector) WriteFrame(frame models.StreamFrame) error {
	if c.done {
		return ErrFrameAfterDone
	}
	c.frames++
	c.text.WriteString(frame.Chunk)
	if frame.Done {
		c.done = true
		c.suggestions = frame.Suggestions
		c.err = frame.Error
	}
	return nil
}

// Reply returns the accumulated text and suggestions.
func (c *Collector) Reply() models.ChatReply {
	return models.ChatReply{Reply: c.text.String(), Suggestions: c.suggestions}
}

// Done reports whether the terminal frame has been received.
func (c *Collector) Done() bool { return c.done }

// Err returns the error carried by the terminal frame, if any.
func (c *Collector) Err() string { return c.err }

// Frames returns the number of frames received.
func (c *Collector) Frames() int { return c.frames }

// WriteReply writes text as a complete response: one chunk frame and a done frame.
func WriteReply(sink FrameSink, text string) error {
	if err := sink.WriteFrame(models.ChunkFrame(text)); err != nil {
		return err
	}
	return sink.WriteFrame(models.DoneFrame(nil))
}

package models

// Candidate sources.
const (
	SourceVector  = "vector"
	SourceKeyword = "keyword"
)

// ScoredCandidate is a FAQ entry with a relevance score. Vector scores are cosine
// similarities in [-1,1]; keyword scores are 1 - distance in [0,1].
type ScoredCandidate struct {
	Entry  *FAQEntry `json:"entry"`
	Score  float64   `json:"score"`
	Source string    `json:"source"`
}

// Classification is the safety tag assigned to an incoming message.
type Classification string

const (
	ClassCrisis     Classification = "crisis"
	ClassDepression Classification = "depression"
	ClassGreeting   Classification = "greeting"
	ClassMeta       Classification = "meta"
	ClassNone       Classification = "none"
)

// Canned reports whether the classification short-circuits retrieval.
func (c Classification) Canned() bool {
	return c != ClassNone && c != ""
}

// StreamFrame is one newline-delimited JSON object sent to the client.
// Done is always serialized; exactly one frame per response has Done set.
type StreamFrame struct {
	Chunk       string       `json:"chunk,omitempty"`
	Done        bool         `json:"done"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// ChunkFrame returns a non-terminal frame carrying text.
func ChunkFrame(text string) StreamFrame {
	return StreamFrame{Chunk: text}
}

// DoneFrame returns the terminal frame of a successful response.
func DoneFrame(suggestions []Suggestion) StreamFrame {
	return StreamFrame{Done: true, Suggestions: suggestions}
}

// ErrorFrame returns the terminal frame of a response whose upstream failed mid-stream.
func ErrorFrame(message string) StreamFrame {
	return StreamFrame{Done: true, Error: message}
}

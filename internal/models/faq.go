// Package models defines core data structures for FAQ entries, ranked candidates and stream frames.
package models

// FAQEntry is one question/answer pair with its precomputed question embedding.
// Entries are built once at startup and never mutated afterwards.
type FAQEntry struct {
	ID        int       `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Embedding []float32 `json:"embedding,omitempty"`
	// Norm is the L2 norm of Embedding. Zero marks an entry the vector index must skip.
	Norm float64 `json:"-"`
}

// Suggestion returns the entry as a client-facing suggestion.
func (e *FAQEntry) Suggestion() Suggestion {
	return Suggestion{Question: e.Question, Answer: e.Answer}
}

// Suggestion is a related FAQ sent with the final stream frame.
type Suggestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

package models

import "unicode/utf8"

const (
	MsgMessageRequired = "Message is required."
	MsgMessageTooLong  = "Please keep your question brief."
)

// ChatRequest is the body of POST /chat and POST /api/faq-match.
type ChatRequest struct {
	Message string `json:"message"`
}

// Validate returns a corrective reply for the user when the message is missing or longer
// than maxLen characters, and an empty string when the message is acceptable.
func (r *ChatRequest) Validate(maxLen int) string {
	if r.Message == "" {
		return MsgMessageRequired
	}
	if maxLen > 0 && utf8.RuneCountInString(r.Message) > maxLen {
		return MsgMessageTooLong
	}
	return ""
}

// ChatReply is the non-streaming reply body; it is also the JSON error body for upstream failures.
type ChatReply struct {
	Reply          string         `json:"reply"`
	Classification Classification `json:"classification,omitempty"`
	Suggestions    []Suggestion   `json:"suggestions,omitempty"`
}

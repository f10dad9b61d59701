package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello..."},
		{"héllo wörld", 5, "héllo..."},
		{"x", 0, "x"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.s, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("one two three four", 2); got != "one two..." {
		t.Errorf("got %q", got)
	}
	if got := TruncateWords("one two", 5); got != "one two" {
		t.Errorf("got %q", got)
	}
}

package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faqs_with_embeddings.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `[
		{"id": 1, "question": "How do I book a session?", "answer": "Email us.", "embedding": [3, 4]},
		{"id": 2, "question": "Is it confidential?", "answer": "Yes.", "embedding": [0, 1]}
	]`)
	c, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 || c.Dimensions() != 2 {
		t.Fatalf("Len=%d Dimensions=%d", c.Len(), c.Dimensions())
	}
	e, ok := c.Get(1)
	if !ok {
		t.Fatal("entry 1 missing")
	}
	if e.Norm != 5 {
		t.Errorf("norm = %v, want 5", e.Norm)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_invalidJSON(t *testing.T) {
	if _, err := Load(writeFile(t, `{"not": "an array"}`), nil); err == nil {
		t.Fatal("expected error for invalid corpus")
	}
}

func TestNew_empty(t *testing.T) {
	if _, err := New(nil, nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestNew_assignsPositionalIDs(t *testing.T) {
	c, err := New([]Record{
		{Question: "a", Answer: "1", Embedding: []float32{1, 0}},
		{Question: "b", Answer: "2", Embedding: []float32{0, 1}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Entries()[0].ID != 1 || c.Entries()[1].ID != 2 {
		t.Errorf("ids = %d,%d", c.Entries()[0].ID, c.Entries()[1].ID)
	}
}

func TestNew_duplicateIDs(t *testing.T) {
	_, err := New([]Record{{ID: 1, Question: "a"}, {ID: 1, Question: "b"}}, nil)
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestNew_malformedEmbeddingsSkippedForVectorSearch(t *testing.T) {
	records := []Record{
		{ID: 1, Question: "ok", Embedding: []float32{1, 0, 0}},
		{ID: 2, Question: "ok too", Embedding: []float32{0, 1, 0}},
		{ID: 3, Question: "zero", Embedding: []float32{0, 0, 0}},
		{ID: 4, Question: "short", Embedding: []float32{1, 0}},
		{ID: 5, Question: "none"},
	}
	c, err := New(records, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Dimensions() != 3 {
		t.Errorf("Dimensions = %d, want 3", c.Dimensions())
	}
	for _, id := range []int{3, 4, 5} {
		e, _ := c.Get(id)
		if e.Norm != 0 {
			t.Errorf("entry %d: norm = %v, want 0", id, e.Norm)
		}
	}
	if c.Len() != 5 {
		t.Errorf("all entries stay keyword-searchable, Len = %d", c.Len())
	}
}

func TestNew_doesNotAliasInput(t *testing.T) {
	records := []Record{{ID: 1, Question: "q", Embedding: []float32{1, 0}}}
	c, err := New(records, nil)
	if err != nil {
		t.Fatal(err)
	}
	records[0].Embedding[0] = 42
	if e, _ := c.Get(1); e.Embedding[0] != 1 {
		t.Error("corpus entry shares memory with decoded record")
	}
}

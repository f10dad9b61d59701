package indexer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/faqbot/internal/extract"
)

// Pair is one question and answer read from a source file, before embedding.
type Pair struct {
	Question string
	Answer   string
}

// rawItem accepts the field spellings seen in hand-maintained FAQ files.
type rawItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Q        string `json:"q"`
	A        string `json:"a"`
	Title    string `json:"title"`
}

// ParseJSON reads an array of {question, answer} objects. {q, a} is accepted too, and
// title stands in for the question when both question and q are empty.
func ParseJSON(data []byte) ([]Pair, error) {
	var items []rawItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse FAQ JSON: %w", err)
	}
	pairs := make([]Pair, 0, len(items))
	for _, it := range items {
		pairs = append(pairs, Pair{
			Question: firstNonEmpty(it.Question, it.Q, it.Title),
			Answer:   firstNonEmpty(it.Answer, it.A),
		})
	}
	return pairs, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ParseSheets reads pairs from spreadsheet rows. When the first row of a sheet names a
// question and an answer column (case-insensitive) those columns are used and the row is
// skipped; otherwise columns A and B hold the pair and every row is data.
func ParseSheets(sheets []extract.Sheet) []Pair {
	var pairs []Pair
	for _, s := range sheets {
		if len(s.Rows) == 0 {
			continue
		}
		qCol, aCol, header := headerColumns(s.Rows[0])
		rows := s.Rows
		if header {
			rows = rows[1:]
		}
		for _, row := range rows {
			pairs = append(pairs, Pair{Question: cell(row, qCol), Answer: cell(row, aCol)})
		}
	}
	return pairs
}

func headerColumns(row []string) (qCol, aCol int, ok bool) {
	qCol, aCol = -1, -1
	for i, c := range row {
		switch strings.ToLower(strings.TrimSpace(c)) {
		case "question", "questions", "q":
			if qCol < 0 {
				qCol = i
			}
		case "answer", "answers", "a":
			if aCol < 0 {
				aCol = i
			}
		}
	}
	if qCol < 0 || aCol < 0 {
		return 0, 1, false
	}
	return qCol, aCol, true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

var markerRe = regexp.MustCompile(`(?i)^\s*(q|question|a|answer)\s*:\s*`)

// ParseText splits document text into pairs on lines starting with "Q:" / "A:" or
// "Question:" / "Answer:". Lines without a marker continue the current field. A question
// with no answer yields a pair with an empty answer.
func ParseText(text string) []Pair {
	var (
		pairs    []Pair
		cur      *Pair
		inAnswer bool
	)
	flush := func() {
		if cur != nil {
			pairs = append(pairs, *cur)
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		m := markerRe.FindStringSubmatch(line)
		if m == nil {
			if cur == nil || strings.TrimSpace(line) == "" {
				continue
			}
			if inAnswer {
				cur.Answer = joinLine(cur.Answer, line)
			} else {
				cur.Question = joinLine(cur.Question, line)
			}
			continue
		}
		rest := line[len(m[0]):]
		switch strings.ToLower(m[1]) {
		case "q", "question":
			flush()
			cur = &Pair{Question: rest}
			inAnswer = false
		default:
			if cur == nil {
				continue
			}
			if inAnswer {
				cur.Answer = joinLine(cur.Answer, rest)
			} else {
				cur.Answer = rest
				inAnswer = true
			}
		}
	}
	flush()
	return pairs
}

func joinLine(acc, line string) string {
	line = strings.TrimSpace(line)
	if acc == "" {
		return line
	}
	return acc + "\n" + line
}

package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF returns the text of every page, one visual row per line, so that
// "Q:" and "A:" markers at the start of a row survive extraction.
func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var b strings.Builder
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		for _, row := range rows {
			var line strings.Builder
			for _, word := range row.Content {
				line.WriteString(word.S)
			}
			if s := strings.TrimSpace(line.String()); s != "" {
				b.WriteString(s)
				b.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

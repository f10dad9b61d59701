package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

const contentTypesPath = "[Content_Types].xml"

const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

var (
	// wParagraph matches a <w:p> element with any attributes; <w:pPr> and friends are not matched.
	wParagraph = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*[^/])?>(.*?)</w:p>`)
	// wText matches <w:t>, <w:br/> and <w:tab/> in document order.
	wText = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>|<w:br\b[^>]*/>|<w:tab\b[^>]*/>`)

	partNameRe  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	ct, err := readZipEntry(zr, contentTypesPath)
	if err != nil {
		return ""
	}
	content := string(ct)
	if m := partNameRe.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	if m := partNameRe2.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	return ""
}

// extractDOCX returns the text of a .docx file with one paragraph per line. Runs inside a
// paragraph are concatenated as written; <w:br/> becomes a newline and <w:tab/> a space.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := readZipEntry(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}

	var lines []string
	for _, p := range wParagraph.FindAllStringSubmatch(string(docXML), -1) {
		var b strings.Builder
		for _, m := range wText.FindAllStringSubmatch(p[1], -1) {
			switch {
			case strings.HasPrefix(m[0], "<w:br"):
				b.WriteByte('\n')
			case strings.HasPrefix(m[0], "<w:tab"):
				b.WriteByte(' ')
			default:
				b.WriteString(html.UnescapeString(m[1]))
			}
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

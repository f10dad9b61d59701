// Package extract reads FAQ source files: text from documents, rows from spreadsheets.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/lu4p/cat"
)

// Sheet is one spreadsheet table. Rows keep their cell order; trailing empty cells are dropped.
type Sheet struct {
	Name string
	Rows [][]string
}

// Extractor extracts text and tables from FAQ source files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// IsSpreadsheet reports whether ext (with leading dot) is read with ExtractSheets.
func IsSpreadsheet(ext string) bool {
	switch strings.ToLower(ext) {
	case ".xlsx", ".ods":
		return true
	}
	return false
}

// Extract reads the file at path and returns its text, one paragraph or line per line.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		text, err := cat.FromBytes(content)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", ext, err)
		}
		return text, nil
	case ".xlsx", ".ods":
		sheets, err := e.ExtractSheetsBytes(content, ext)
		if err != nil {
			return "", err
		}
		return sheetsText(sheets), nil
	default:
		return extractPlain(content), nil
	}
}

// ExtractSheets reads the spreadsheet at path.
func (e *Extractor) ExtractSheets(path string) ([]Sheet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractSheetsBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractSheetsBytes returns the sheets of an .xlsx or .ods file.
func (e *Extractor) ExtractSheetsBytes(content []byte, ext string) ([]Sheet, error) {
	switch ext {
	case ".xlsx":
		return extractExcel(content)
	case ".ods":
		return extractODS(content)
	default:
		return nil, fmt.Errorf("not a spreadsheet: %q", ext)
	}
}

// extractPlain returns content as string; invalid UTF-8 is replaced with U+FFFD.
func extractPlain(content []byte) string {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�")
	}
	return string(content)
}

func sheetsText(sheets []Sheet) string {
	var b strings.Builder
	for _, s := range sheets {
		for _, row := range s.Rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String())
}

package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

// odsContentPath is the path to the main content inside an .ods zip (OpenDocument Spreadsheet).
const odsContentPath = "content.xml"

// maxRepeatedEmpty caps how many empty cells a table:number-columns-repeated attribute expands to.
const maxRepeatedEmpty = 64

var (
	odsTable     = regexp.MustCompile(`(?s)<table:table [^>]*?table:name="([^"]*)"[^>]*>(.*?)</table:table>`)
	odsRow       = regexp.MustCompile(`(?s)<table:table-row[^>]*?(?:/>|>(.*?)</table:table-row>)`)
	odsCell      = regexp.MustCompile(`(?s)<table:(?:covered-)?table-cell([^>]*?)(?:/>|>(.*?)</table:(?:covered-)?table-cell>)`)
	odsParagraph = regexp.MustCompile(`(?s)<text:p[^>]*?(?:/>|>(.*?)</text:p>)`)
	odsRepeated  = regexp.MustCompile(`table:number-columns-repeated="(\d+)"`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
)

// extractODS reads the tables of an .ods file. ODS is a ZIP containing content.xml; each
// table:table is a sheet, each table:table-row a row and each text:p inside a cell a line.
func extractODS(content []byte) ([]Sheet, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract ODS: not a zip: %w", err)
	}
	contentXML, err := readZipEntry(zr, odsContentPath)
	if err != nil {
		return nil, fmt.Errorf("extract ODS: %w", err)
	}

	var sheets []Sheet
	for _, t := range odsTable.FindAllStringSubmatch(string(contentXML), -1) {
		sheet := Sheet{Name: html.UnescapeString(t[1])}
		for _, r := range odsRow.FindAllStringSubmatch(t[2], -1) {
			row := odsCells(r[1])
			if len(row) > 0 {
				sheet.Rows = append(sheet.Rows, row)
			}
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

func odsCells(rowXML string) []string {
	var cells []string
	for _, c := range odsCell.FindAllStringSubmatch(rowXML, -1) {
		text := odsCellText(c[2])
		repeat := 1
		if m := odsRepeated.FindStringSubmatch(c[1]); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 1 {
				repeat = n
			}
		}
		if text == "" && repeat > maxRepeatedEmpty {
			repeat = maxRepeatedEmpty
		}
		for i := 0; i < repeat; i++ {
			cells = append(cells, text)
		}
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

func odsCellText(cellXML string) string {
	var lines []string
	for _, p := range odsParagraph.FindAllStringSubmatch(cellXML, -1) {
		lines = append(lines, strings.TrimSpace(html.UnescapeString(xmlTag.ReplaceAllString(p[1], ""))))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// readZipEntry returns the contents of the named file in zr.
func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%s not found", name)
}

package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("Q: Hello\nA: World"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Q: Hello\nA: World" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("hello\x80world"), ".md")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "hello�world" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract("/nonexistent/path/file.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestIsSpreadsheet(t *testing.T) {
	for ext, want := range map[string]bool{".xlsx": true, ".ODS": true, ".docx": false, ".json": false, "": false} {
		if got := IsSpreadsheet(ext); got != want {
			t.Errorf("IsSpreadsheet(%q) = %v, want %v", ext, got, want)
		}
	}
}

func excelFixture(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Question")
	f.SetCellValue("Sheet1", "B1", "Answer")
	f.SetCellValue("Sheet1", "A2", "How do I book a session?")
	f.SetCellValue("Sheet1", "B2", "Email the counselling office.")
	if _, err := f.NewSheet("Extra"); err != nil {
		t.Fatal(err)
	}
	f.SetCellValue("Extra", "A1", "Is it free?")
	f.SetCellValue("Extra", "B1", "Yes.")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return buf.Bytes()
}

func TestExtractSheetsBytes_excel(t *testing.T) {
	e := NewExtractor()
	sheets, err := e.ExtractSheetsBytes(excelFixture(t), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractSheetsBytes: %v", err)
	}
	want := []Sheet{
		{Name: "Sheet1", Rows: [][]string{
			{"Question", "Answer"},
			{"How do I book a session?", "Email the counselling office."},
		}},
		{Name: "Extra", Rows: [][]string{{"Is it free?", "Yes."}}},
	}
	if !reflect.DeepEqual(sheets, want) {
		t.Errorf("got %#v", sheets)
	}
}

func TestExtractBytes_excelAsText(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes(excelFixture(t), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "Question\tAnswer\nHow do I book a session?\tEmail the counselling office.\nIs it free?\tYes."
	if got != want {
		t.Errorf("got %q", got)
	}
}

func TestExtractSheets_excelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faqs.xlsx")
	if err := os.WriteFile(path, excelFixture(t), 0600); err != nil {
		t.Fatal(err)
	}
	sheets, err := NewExtractor().ExtractSheets(path)
	if err != nil {
		t.Fatalf("ExtractSheets: %v", err)
	}
	if len(sheets) != 2 || len(sheets[0].Rows) != 2 {
		t.Errorf("got %#v", sheets)
	}
}

func TestExtractSheetsBytes_notSpreadsheet(t *testing.T) {
	if _, err := NewExtractor().ExtractSheetsBytes([]byte("x"), ".txt"); err == nil {
		t.Error("expected error for non-spreadsheet extension")
	}
}

func zipWith(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const odsContent = `<office:document-content><office:body><office:spreadsheet>` +
	`<table:table table:name="FAQ" table:style-name="ta1">` +
	`<table:table-column table:number-columns-repeated="2"/>` +
	`<table:table-row><table:table-cell office:value-type="string"><text:p>Question</text:p></table:table-cell>` +
	`<table:table-cell office:value-type="string"><text:p>Answer</text:p></table:table-cell></table:table-row>` +
	`<table:table-row><table:table-cell office:value-type="string"><text:p>Where is the office?</text:p></table:table-cell>` +
	`<table:table-cell office:value-type="string"><text:p>Room 4, <text:span text:style-name="T1">Block A</text:span></text:p><text:p>Near the library &amp; gym.</text:p></table:table-cell>` +
	`<table:table-cell table:number-columns-repeated="1020"/></table:table-row>` +
	`<table:table-row><table:table-cell table:number-columns-repeated="2"/><table:table-cell><text:p>C</text:p></table:table-cell></table:table-row>` +
	`<table:table-row table:number-rows-repeated="1000"><table:table-cell table:number-columns-repeated="1024"/></table:table-row>` +
	`</table:table></office:spreadsheet></office:body></office:document-content>`

func TestExtractSheetsBytes_ods(t *testing.T) {
	content := zipWith(t, map[string]string{"content.xml": odsContent})
	sheets, err := NewExtractor().ExtractSheetsBytes(content, ".ods")
	if err != nil {
		t.Fatalf("ExtractSheetsBytes: %v", err)
	}
	want := []Sheet{{Name: "FAQ", Rows: [][]string{
		{"Question", "Answer"},
		{"Where is the office?", "Room 4, Block A\nNear the library & gym."},
		{"", "", "C"},
	}}}
	if !reflect.DeepEqual(sheets, want) {
		t.Errorf("got %#v", sheets)
	}
}

func TestExtractSheetsBytes_odsContentNotFound(t *testing.T) {
	content := zipWith(t, map[string]string{"other.xml": ""})
	if _, err := NewExtractor().ExtractSheetsBytes(content, ".ods"); err == nil {
		t.Error("expected error when content.xml missing")
	}
}

func TestExtractSheetsBytes_odsNotZip(t *testing.T) {
	if _, err := NewExtractor().ExtractSheetsBytes([]byte("not a zip"), ".ods"); err == nil {
		t.Error("expected error for invalid ods")
	}
}

func docxBody(body string) string {
	return `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`
}

func TestExtractBytes_docxParagraphs(t *testing.T) {
	body := `<w:p w:rsidR="00AB"><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Q: How do I </w:t></w:r><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">book</w:t></w:r><w:r><w:t>?</w:t></w:r></w:p>` +
		`<w:p/>` +
		`<w:p w:rsidR="00CD"/>` +
		`<w:p><w:r><w:t>A: Email us</w:t><w:br/><w:t>or</w:t><w:tab/><w:t>call &amp; ask.</w:t></w:r></w:p>`
	content := zipWith(t, map[string]string{"word/document.xml": docxBody(body)})
	got, err := NewExtractor().ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "Q: How do I book?\nA: Email us\nor call & ask."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_docxContentTypes(t *testing.T) {
	tests := []struct {
		name     string
		override string
	}{
		{"part name first", `<Override PartName="/word/document2.xml" ContentType="` + docxMainContentType + `"/>`},
		{"content type first", `<Override ContentType="` + docxMainContentType + `" PartName="/word/document2.xml"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := zipWith(t, map[string]string{
				contentTypesPath:     `<Types>` + tt.override + `</Types>`,
				"word/document2.xml": docxBody(`<w:p><w:r><w:t>From document2</w:t></w:r></w:p>`),
			})
			got, err := NewExtractor().ExtractBytes(content, ".docx")
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != "From document2" {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestExtractBytes_docxMissingDocument(t *testing.T) {
	content := zipWith(t, map[string]string{"docProps/core.xml": ""})
	if _, err := NewExtractor().ExtractBytes(content, ".docx"); err == nil {
		t.Error("expected error when document.xml missing")
	}
}

func TestExtractBytes_pdfInvalid(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("not a pdf"), ".pdf"); err == nil {
		t.Error("expected error for invalid pdf")
	}
}

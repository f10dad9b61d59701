package extract

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

func extractExcel(content []byte) ([]Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}
	return sheets, nil
}

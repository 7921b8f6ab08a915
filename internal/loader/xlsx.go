package loader

import (
	"fmt"
	"io"

	"github.com/SamVia/quizzz/internal/model"
	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads the first worksheet of an Excel workbook.
func ParseXLSX(source string, r io.Reader) ([]model.QuestionRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", source, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &SchemaError{Source: source, Reason: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q of %s: %w", sheets[0], source, err)
	}
	return build(source, rows)
}

package dataprocessing

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/xuri/excelize/v2"

	apperrors "vstupcli/internal/errors"
)

// Cell is one spreadsheet value. An empty cell is absent.
type Cell struct {
	Value   string
	Present bool
}

// RawRow is a data row aligned with the sheet headers
type RawRow struct {
	// Line is the 1-based row number in the sheet, for diagnostics
	Line  int
	Cells []Cell
}

// Cell returns the value at column index col
func (r RawRow) Cell(col int) (string, bool) {
	if col < 0 || col >= len(r.Cells) {
		return "", false
	}
	c := r.Cells[col]
	return c.Value, c.Present
}

// Sheet is the first worksheet of a workbook: the first row as headers and
// every following row as data
type Sheet struct {
	Name    string
	Headers []string
	Rows    []RawRow
}

// ParseFile opens the workbook at filePath and reads its first sheet
func ParseFile(filePath string) (*Sheet, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, apperrors.NewNotFoundError(filePath)
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to open workbook %s", filePath), err).
			WithContext(apperrors.ContextPath, filePath)
	}
	defer f.Close()

	sheet, err := ParseWorkbook(f)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, appErr.WithContext(apperrors.ContextPath, filePath)
		}
		return nil, err
	}
	return sheet, nil
}

// ParseWorkbook reads the first sheet of an open workbook. Raw cell values
// are used so numbers are not subject to display formatting.
func ParseWorkbook(f *excelize.File) (*Sheet, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError("workbook has no sheets", nil)
	}
	name := sheets[0]

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", name), err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("sheet %q has no header row", name), nil)
	}

	headers := rows[0]
	sheet := &Sheet{
		Name:    name,
		Headers: append([]string(nil), headers...),
		Rows:    make([]RawRow, 0, len(rows)-1),
	}

	for i, row := range rows[1:] {
		cells := make([]Cell, len(headers))
		for j := 0; j < len(headers) && j < len(row); j++ {
			if row[j] != "" {
				cells[j] = Cell{Value: row[j], Present: true}
			}
		}
		sheet.Rows = append(sheet.Rows, RawRow{Line: i + 2, Cells: cells})
	}

	slog.Default().Debug("Sheet parsed",
		slog.String("sheet", name),
		slog.Int("columns", len(headers)),
		slog.Int("rows", len(sheet.Rows)))

	return sheet, nil
}

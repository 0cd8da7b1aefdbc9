package testutil

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Header labels as they appear in the 2024 admission export
const (
	HeaderApplicant   = "ПІБ вступника"
	HeaderSpecialty   = "Спеціальність"
	HeaderFinancing   = "Форма фінансування"
	HeaderSex         = "Стать"
	HeaderComposite   = "Конкурсний бал"
	HeaderSubjectName = "Предмет НМТ"
	HeaderSubjectBal  = "Бал НМТ"
)

// AdmissionHeaders returns a header row with one subject pair
func AdmissionHeaders() []string {
	return []string{
		HeaderApplicant,
		HeaderSpecialty,
		HeaderFinancing,
		HeaderSex,
		HeaderComposite,
		HeaderSubjectName,
		HeaderSubjectBal,
	}
}

// WorkbookBuilder assembles an xlsx fixture. The first sheet holds the
// header row and data rows; extra sheets can be appended to check that
// only the first one is read.
type WorkbookBuilder struct {
	sheet   string
	headers []string
	rows    [][]any
	extra   map[string][][]any
	order   []string
}

// NewWorkbook starts a fixture with the given header row
func NewWorkbook(headers ...string) *WorkbookBuilder {
	return &WorkbookBuilder{
		sheet:   "Sheet1",
		headers: headers,
		extra:   make(map[string][][]any),
	}
}

// SheetName renames the first sheet
func (b *WorkbookBuilder) SheetName(name string) *WorkbookBuilder {
	b.sheet = name
	return b
}

// Row appends a data row. A nil cell is left empty in the workbook.
func (b *WorkbookBuilder) Row(cells ...any) *WorkbookBuilder {
	b.rows = append(b.rows, cells)
	return b
}

// ExtraSheet appends another sheet after the first one
func (b *WorkbookBuilder) ExtraSheet(name string, rows ...[]any) *WorkbookBuilder {
	if _, ok := b.extra[name]; !ok {
		b.order = append(b.order, name)
	}
	b.extra[name] = append(b.extra[name], rows...)
	return b
}

// Build returns the in-memory workbook; the caller closes it
func (b *WorkbookBuilder) Build(t *testing.T) *excelize.File {
	t.Helper()

	f := excelize.NewFile()
	if b.sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", b.sheet); err != nil {
			t.Fatalf("rename sheet: %v", err)
		}
	}

	header := make([]any, len(b.headers))
	for i, h := range b.headers {
		header[i] = h
	}
	writeRows(t, f, b.sheet, append([][]any{header}, b.rows...))

	for _, name := range b.order {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("add sheet %s: %v", name, err)
		}
		writeRows(t, f, name, b.extra[name])
	}
	return f
}

// Save writes the workbook to dir/name and returns its path
func (b *WorkbookBuilder) Save(t *testing.T, dir, name string) string {
	t.Helper()

	f := b.Build(t)
	defer f.Close()

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook %s: %v", path, err)
	}
	return path
}

func writeRows(t *testing.T, f *excelize.File, sheet string, rows [][]any) {
	t.Helper()

	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set %s!%s: %v", sheet, cell, err)
			}
		}
	}
}

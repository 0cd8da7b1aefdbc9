package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"vstupcli/internal/config"
	"vstupcli/internal/dataprocessing"
)

// renderSummary prints how the sheet was understood: the column for each
// role, the subject pairs and registrations, and the row accounting
func renderSummary(w io.Writer, result *dataprocessing.Result, paths *config.Paths) error {
	diag := result.Diagnostics
	if diag == nil {
		return nil
	}

	if roles := diag.Roles; roles != nil {
		t := newTable(w, "Columns")
		t.AppendHeader(table.Row{"Role", "#", "Header"})
		for _, r := range []struct {
			role string
			col  dataprocessing.Column
		}{
			{config.RoleCompositeScore, roles.CompositeScore},
			{config.RoleSpecialty, roles.Specialty},
			{config.RoleFinancing, roles.Financing},
			{config.RoleSex, roles.Sex},
		} {
			t.AppendRow(table.Row{r.role, r.col.Index + 1, r.col.Label})
		}
		for i, p := range roles.Pairs {
			t.AppendRow(table.Row{fmt.Sprintf("subject pair %d", i+1), p.Name.Index + 1, p.Name.Label + " / " + p.Score.Label})
		}
		t.Render()

		if len(roles.Subjects) > 0 {
			t = newTable(w, "Subjects")
			t.AppendHeader(table.Row{"Subject", "Key", "Name column", "Score column"})
			for _, b := range roles.Subjects {
				p := roles.PairOf(b)
				t.AppendRow(table.Row{b.Keyword, b.Key, p.Name.Label, p.Score.Label})
			}
			t.Render()
		}
	}

	t := newTable(w, "Rows")
	t.AppendHeader(table.Row{"Stage", "Count"})
	t.AppendRows([]table.Row{
		{"read", diag.RowsRead},
		{"dropped: missing key", diag.RowsDropped[dataprocessing.DropMissingKey]},
		{"dropped: missing score", diag.RowsDropped[dataprocessing.DropMissingScore]},
		{"sanitized", diag.RowsSanitized},
	})
	t.AppendFooter(table.Row{"groups", diag.GroupedRecords})
	t.Render()

	if len(diag.UnmatchedSubjects) > 0 {
		fmt.Fprintf(w, "Subjects not found: %s\n", strings.Join(diag.UnmatchedSubjects, ", "))
	}
	if len(diag.EmptySubjects) > 0 {
		fmt.Fprintf(w, "Subjects without scores: %s\n", strings.Join(diag.EmptySubjects, ", "))
	}
	for _, warning := range diag.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}

	if result.Report != nil {
		fmt.Fprintf(w, "Published %d grouped and %d subject records to %s\n",
			len(result.Report.Grouped), len(result.Report.Subjects), paths.OutputDir)
	}
	return nil
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	return t
}

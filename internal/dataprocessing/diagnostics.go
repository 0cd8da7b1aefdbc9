package dataprocessing

import (
	"fmt"
	"log/slog"
)

// Reasons a row is removed by the sanitizer
const (
	DropMissingKey   = "missing_key"
	DropMissingScore = "missing_score"
)

// Diagnostics records the decisions made during one run so callers can
// inspect them instead of parsing log output
type Diagnostics struct {
	Sheet   string
	Headers []string
	Roles   *RoleMap

	// Catalog subjects that matched no subject-name column
	UnmatchedSubjects []string
	// Registered subjects whose column had no row with a valid score
	EmptySubjects []string

	Warnings []string

	RowsRead      int
	RowsDropped   map[string]int
	RowsSanitized int

	GroupedRecords int
	SubjectRecords int
}

// NewDiagnostics returns empty diagnostics
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{RowsDropped: make(map[string]int)}
}

// Warn records a non-fatal problem
func (d *Diagnostics) Warn(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// LogValue implements slog.LogValuer
func (d *Diagnostics) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("sheet", d.Sheet),
		slog.Int("rows_read", d.RowsRead),
		slog.Int("rows_dropped_missing_key", d.RowsDropped[DropMissingKey]),
		slog.Int("rows_dropped_missing_score", d.RowsDropped[DropMissingScore]),
		slog.Int("rows_sanitized", d.RowsSanitized),
		slog.Int("grouped_records", d.GroupedRecords),
		slog.Int("subject_records", d.SubjectRecords),
		slog.Int("warnings", len(d.Warnings)),
	}
	if d.Roles != nil {
		attrs = append(attrs,
			slog.Int("subject_pairs", len(d.Roles.Pairs)),
			slog.Int("subjects_registered", len(d.Roles.Subjects)))
	}
	return slog.GroupValue(attrs...)
}

package dataprocessing

import (
	"math"
	"strconv"
	"strings"

	"vstupcli/pkg/contracts/domain"
)

// Record is a sanitized row: all key cells present and a numeric composite
// score. Scores holds the parsed value of every registered subject-score
// column that had one.
type Record struct {
	Line      int
	Key       domain.GroupKey
	Composite float64
	Scores    map[int]float64
	cells     []Cell
}

// Cell returns the raw value at column index col
func (r Record) Cell(col int) (string, bool) {
	return RawRow{Cells: r.cells}.Cell(col)
}

// Score returns the parsed subject score in column col
func (r Record) Score(col int) (float64, bool) {
	v, ok := r.Scores[col]
	return v, ok
}

// SanitizeStats counts rows seen and removed by Sanitize
type SanitizeStats struct {
	Read                int
	DroppedMissingKey   int
	DroppedMissingScore int
	Kept                int
}

// MissingValues is the set of cell texts read as absent. Matching is exact.
type MissingValues map[string]struct{}

// NewMissingValues builds the set from configured NA markers
func NewMissingValues(markers []string) MissingValues {
	m := make(MissingValues, len(markers))
	for _, s := range markers {
		m[s] = struct{}{}
	}
	return m
}

// cell returns the value at col unless it is absent or an NA marker
func (m MissingValues) cell(row RawRow, col int) (string, bool) {
	v, ok := row.Cell(col)
	if !ok {
		return "", false
	}
	if _, na := m[v]; na {
		return "", false
	}
	return v, true
}

// Sanitize drops rows with an absent key cell, coerces the composite score
// and every registered subject-score column to numbers, then drops rows whose
// composite score is missing. Unparsable subject scores are left missing.
// Cells matching missing count as absent. rows is not modified.
func Sanitize(rows []RawRow, roles *RoleMap, missing MissingValues) ([]Record, SanitizeStats) {
	stats := SanitizeStats{Read: len(rows)}
	keys := roles.KeyColumns()

	scoreCols := make([]int, 0, len(roles.Subjects))
	seen := make(map[int]bool)
	for _, b := range roles.Subjects {
		col := roles.PairOf(b).Score.Index
		if !seen[col] {
			seen[col] = true
			scoreCols = append(scoreCols, col)
		}
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		var vals [3]string
		complete := true
		for i, col := range keys {
			v, ok := missing.cell(row, col.Index)
			if !ok {
				complete = false
				break
			}
			vals[i] = v
		}
		if !complete {
			stats.DroppedMissingKey++
			continue
		}

		raw, _ := missing.cell(row, roles.CompositeScore.Index)
		composite, ok := ParseScore(raw)
		if !ok {
			stats.DroppedMissingScore++
			continue
		}

		rec := Record{
			Line:      row.Line,
			Key:       domain.GroupKey{Specialty: vals[0], Financing: vals[1], Sex: vals[2]},
			Composite: composite,
			Scores:    make(map[int]float64, len(scoreCols)),
			cells:     append([]Cell(nil), row.Cells...),
		}
		for _, col := range scoreCols {
			raw, _ := missing.cell(row, col)
			if v, ok := ParseScore(raw); ok {
				rec.Scores[col] = v
			}
		}
		records = append(records, rec)
	}

	stats.Kept = len(records)
	return records, stats
}

// ParseScore parses a cell as a finite number. Surrounding whitespace is
// ignored; anything else that does not parse counts as missing.
func ParseScore(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

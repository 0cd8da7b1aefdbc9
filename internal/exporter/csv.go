package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"vstupcli/pkg/contracts/domain"
)

// utf8BOM helps Excel recognise UTF-8 Cyrillic text
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// EncodeGroupedCSV renders grouped records as a CSV sheet with the same
// columns as the JSON document. The subject columns are taken from the first
// record; every record carries the same catalog.
func EncodeGroupedCSV(records []domain.GroupedRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	writer := csv.NewWriter(&buf)

	headers := []string{"specialty", "financing", "sex", "score", "count"}
	hasData := false
	if len(records) > 0 {
		hasData = records[0].IncludeHasData
		for _, s := range records[0].Subjects {
			headers = append(headers, s.Key)
			if hasData {
				headers = append(headers, s.Key+"_has_data")
			}
		}
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	for i, r := range records {
		row := []string{r.Specialty, r.Financing, r.Sex, formatScore(r.Score), strconv.Itoa(r.Count)}
		for _, s := range r.Subjects {
			row = append(row, formatScore(s.Score))
			if hasData {
				row = append(row, strconv.FormatBool(s.HasData))
			}
		}
		if len(row) != len(headers) {
			return nil, fmt.Errorf("record %d has %d columns, expected %d", i, len(row), len(headers))
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// formatScore writes the shortest representation that round-trips
func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Package exporter publishes admission reports.
//
// JSONExporter writes two documents into the output directory:
//
//	vstup_2024_grouped.json   one object per (specialty, financing, sex)
//	vstup_2024_subjects.json  one object per subject and group
//
// Both are encoded with two-space indentation and no HTML escaping, checked
// against the JSON Schemas embedded from schemas/, staged in temp files and
// renamed into place together. A CSV copy of the grouped records can be
// published alongside for spreadsheet users.
package exporter

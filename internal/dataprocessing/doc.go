// Package dataprocessing turns an admission spreadsheet into grouped score
// statistics.
//
// # Pipeline
//
//	Workbook → Sheet → Classifier → RoleMap → Sanitize → Records
//	         → Resolver (per subject) → Aggregate → AssembleReport
//
// The Classifier matches header text against keyword rules from
// config.RulesConfig to find the composite-score column, the grouping-key
// columns (specialty, financing, sex) and the subject name/score column
// pairs. Subjects are registered by scanning the cells of each name column
// for catalog keywords. Matching is case-insensitive via Unicode case
// folding.
//
// # Usage
//
//	p := dataprocessing.NewProcessor(dataprocessing.Options{Rules: cfg.Rules}, logger,
//	    dataprocessing.WithPublisher(jsonExporter))
//	records := p.Process(ctx, "data/vstup_2024.xlsx")
//	if len(records) == 0 {
//	    // failure, already logged
//	}
//
// Run returns the same report together with Diagnostics and the typed error.
//
// # Error Handling
//
// Run only ever returns AppErrors of type NOT_FOUND (missing workbook),
// SCHEMA (composite or key column not identified) or UNEXPECTED. Ragged or
// missing subject columns are warnings in Diagnostics, not errors.
package dataprocessing

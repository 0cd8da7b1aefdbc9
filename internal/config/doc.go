// Package config loads and validates the processor configuration.
//
// # Configuration Sources
//
// Values are layered in increasing order of precedence:
//
//	1. Default() values
//	2. A YAML file (explicit path, else vstup.yaml or configs/vstup.yaml)
//	3. VSTUP_* environment variables
//	4. Command line flags, applied by the caller
//
// # Environment Variables
//
// Keys follow the struct layout:
//
//	VSTUP_INPUT_PATH=data/vstup_2024.xlsx
//	VSTUP_OUTPUT_DIR=public/data
//	VSTUP_OUTPUT_INCLUDE_HAS_DATA=true
//	VSTUP_LOGGING_LEVEL=debug
//	VSTUP_TELEMETRY_TRACE_EXPORTER=stdout
//	VSTUP_RULES_FILE=configs/rules.yaml
//
// # Column Rules
//
// RulesConfig holds the keyword table used to recognise spreadsheet headers
// and subject names. It can be embedded under the "rules" key of the main
// file or kept in a separate file referenced by rules_file:
//
//	composite_score: ["конкурсний бал"]
//	sex: ["стать", "gender"]
//	subjects:
//	  - keyword: "фізика"
//	    key: physics
//	pairing: positional
//
// Sections omitted from a rules file keep their defaults.
//
// # Paths
//
// ResolvePaths turns the configured input file and output directory into
// absolute locations for the workbook and both JSON documents.
package config

package config

import "vstupcli/pkg/contracts"

// Application constants
const (
	// Application Info
	AppName    = "vstupcli"
	AppVersion = contracts.Version

	// EnvPrefix namespaces environment overrides: VSTUP_OUTPUT_DIR, VSTUP_LOGGING_LEVEL, ...
	EnvPrefix = "VSTUP"

	// File Paths (relative to the working directory)
	DefaultInputFile  = "data/vstup_2024.xlsx"
	DefaultOutputDir  = "data"
	DefaultLogFile    = "logs/vstup.log"
	GroupedFileName   = "vstup_2024_grouped.json"
	SubjectsFileName  = "vstup_2024_subjects.json"
	WorkbookExtension = ".xlsx"
	TempFilePattern   = ".vstup-*.tmp"
	DefaultDirPerm    = 0755
	DefaultFilePerm   = 0644

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogOutput = "console"

	// Telemetry
	DefaultTraceExporter = "none"
)

// Column roles reported in diagnostics and schema errors
const (
	RoleCompositeScore = "composite_score"
	RoleSpecialty      = "specialty"
	RoleFinancing      = "financing"
	RoleSex            = "sex"
)

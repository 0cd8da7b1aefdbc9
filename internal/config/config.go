package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// RulesFile points at a separate YAML rule table that replaces Rules
	RulesFile string      `yaml:"rules_file" split_words:"true"`
	Rules     RulesConfig `yaml:"rules" ignored:"true"`
}

// InputConfig describes the admission spreadsheet
type InputConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// OutputConfig describes where and how the JSON documents are published
type OutputConfig struct {
	Dir            string `yaml:"dir" validate:"required"`
	GroupedFile    string `yaml:"grouped_file" split_words:"true" validate:"required"`
	SubjectsFile   string `yaml:"subjects_file" split_words:"true" validate:"required,nefield=GroupedFile"`
	IncludeHasData bool   `yaml:"include_has_data" split_words:"true"`
	ValidateSchema bool   `yaml:"validate_schema" split_words:"true"`
	// CSVFile, when set, also publishes the grouped records as a CSV sheet
	// for spreadsheet users
	CSVFile string `yaml:"csv_file" split_words:"true" validate:"omitempty,nefield=GroupedFile,nefield=SubjectsFile"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" validate:"oneof=json text"`
	Output   string `yaml:"output" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" split_words:"true" validate:"required_unless=Output console"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	// TraceExporter is "none" or "stdout"
	TraceExporter string `yaml:"trace_exporter" split_words:"true" validate:"oneof=none stdout"`
	// MetricsTextfile, when set, receives the run metrics in Prometheus text
	// format after each run
	MetricsTextfile string `yaml:"metrics_textfile" split_words:"true"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("subject_key", validSubjectKey); err != nil {
		panic(err)
	}
	return v
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Path: DefaultInputFile,
		},
		Output: OutputConfig{
			Dir:            DefaultOutputDir,
			GroupedFile:    GroupedFileName,
			SubjectsFile:   SubjectsFileName,
			ValidateSchema: true,
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   DefaultLogOutput,
			FilePath: DefaultLogFile,
		},
		Telemetry: TelemetryConfig{
			TraceExporter: DefaultTraceExporter,
		},
		Rules: DefaultRules(),
	}
}

// Load builds the configuration from defaults, the YAML file at path (or the
// first well-known location when path is empty), and VSTUP_* environment
// variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	configFile := path
	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Only variables that are set override; no default tags are declared so
	// file values survive. Keys derive from field names (VSTUP_OUTPUT_DIR)
	// rather than envconfig tags, whose un-prefixed fallback would pick up
	// unrelated variables such as PATH.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if cfg.RulesFile != "" {
		rules, err := LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Rules.Pairing == PairingExplicit && len(c.Rules.ExplicitPairs) == 0 {
		return fmt.Errorf("config validation failed: pairing %q needs at least one explicit pair", PairingExplicit)
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"vstup.yaml",
		"configs/vstup.yaml",
	}

	for _, location := range locations {
		if FileExists(location) {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved file system locations for one run.
// This is the single source of truth for every path the processor touches.
type Paths struct {
	InputFile string
	OutputDir string

	// Well-known output documents inside OutputDir
	GroupedJSON  string
	SubjectsJSON string
	// GroupedCSV is empty unless a CSV copy was requested
	GroupedCSV string
}

// ResolvePaths turns the configured input file and output directory into
// absolute paths
func (c *Config) ResolvePaths() (*Paths, error) {
	input, err := filepath.Abs(c.Input.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input path %s: %w", c.Input.Path, err)
	}
	outDir, err := filepath.Abs(c.Output.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory %s: %w", c.Output.Dir, err)
	}

	paths := &Paths{
		InputFile:    input,
		OutputDir:    outDir,
		GroupedJSON:  filepath.Join(outDir, c.Output.GroupedFile),
		SubjectsJSON: filepath.Join(outDir, c.Output.SubjectsFile),
	}
	if c.Output.CSVFile != "" {
		paths.GroupedCSV = filepath.Join(outDir, c.Output.CSVFile)
	}
	return paths, nil
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Path resolution",
		slog.String("input_file", p.InputFile),
		slog.String("output_dir", p.OutputDir),
		slog.String("grouped_json", p.GroupedJSON),
		slog.String("subjects_json", p.SubjectsJSON),
		slog.String("grouped_csv", p.GroupedCSV))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

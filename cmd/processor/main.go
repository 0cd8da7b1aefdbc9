package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"vstupcli/internal/config"
	"vstupcli/internal/dataprocessing"
	"vstupcli/internal/exporter"
	"vstupcli/internal/infrastructure"
	"vstupcli/pkg/contracts"
)

// exitError carries a process exit code out of the command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// flags holds the command-line overrides. Only flags the user set replace
// configured values.
type flags struct {
	configFile      string
	rulesFile       string
	input           string
	output          string
	csvFile         string
	hasData         bool
	logLevel        string
	traceExporter   string
	metricsTextfile string
	summary         bool
}

// app wires one invocation; newLogger is swapped in tests
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	newLogger func(cfg config.LoggingConfig, console io.Writer) (*slog.Logger, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command and maps the outcome to an exit code
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{
		stdout: stdout,
		stderr: stderr,
		newLogger: func(cfg config.LoggingConfig, _ io.Writer) (*slog.Logger, error) {
			return infrastructure.InitializeLogger(cfg)
		},
	}
	return a.execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) int {
	cmd := a.rootCommand()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", exit.err)
		}
		return exit.code
	}
	// flag and argument errors
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	return 2
}

func (a *app) rootCommand() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "processor",
		Short: "Aggregate the admission-campaign spreadsheet into JSON statistics",
		Long: `processor reads the admission-campaign workbook, recognises its columns by
header keywords, and publishes mean composite and per-subject scores grouped
by specialty, financing form and sex:

  vstup_2024_grouped.json   one record per group with a field per subject
  vstup_2024_subjects.json  one record per subject and group

Configuration is read from vstup.yaml (or --config) and VSTUP_* environment
variables; flags override both.`,
		Version:       config.AppVersion,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, f)
		},
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetVersionTemplate(contracts.GetFullVersionString() + "\n")

	fs := cmd.Flags()
	fs.StringVarP(&f.configFile, "config", "c", "", "config file (default vstup.yaml or configs/vstup.yaml)")
	fs.StringVar(&f.rulesFile, "rules", "", "YAML rule table replacing the built-in column keywords")
	fs.StringVarP(&f.input, "in", "i", "", "input workbook (default "+config.DefaultInputFile+")")
	fs.StringVarP(&f.output, "out", "o", "", "output directory (default "+config.DefaultOutputDir+")")
	fs.StringVar(&f.csvFile, "csv", "", "also publish the grouped records as CSV under this file name")
	fs.BoolVar(&f.hasData, "has-data", false, "add a <subject>_has_data field next to every subject score")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.traceExporter, "trace", "", "trace exporter: none or stdout")
	fs.StringVar(&f.metricsTextfile, "metrics-textfile", "", "write run metrics in Prometheus text format to this file")
	fs.BoolVar(&f.summary, "summary", true, "print the column classification summary")

	return cmd
}

// loadConfig applies flag overrides on top of file and environment
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("rules") {
		rules, err := config.LoadRules(f.rulesFile)
		if err != nil {
			return nil, err
		}
		cfg.RulesFile = f.rulesFile
		cfg.Rules = rules
	}
	if changed("in") {
		cfg.Input.Path = f.input
	}
	if changed("out") {
		cfg.Output.Dir = f.output
	}
	if changed("csv") {
		cfg.Output.CSVFile = f.csvFile
	}
	if changed("has-data") {
		cfg.Output.IncludeHasData = f.hasData
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("trace") {
		cfg.Telemetry.TraceExporter = f.traceExporter
	}
	if changed("metrics-textfile") {
		cfg.Telemetry.MetricsTextfile = f.metricsTextfile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) run(cmd *cobra.Command, f *flags) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return &exitError{code: 1, err: err}
	}

	logger, err := a.newLogger(cfg.Logging, a.stderr)
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("failed to initialize logger: %w", err)}
	}
	defer infrastructure.CloseLogFile()

	paths, err := cfg.ResolvePaths()
	if err != nil {
		infrastructure.WithError(logger, err).Error("Failed to resolve paths")
		return &exitError{code: 1, err: err}
	}
	paths.LogPathResolution(logger)

	telemetry, err := infrastructure.InitializeOTel(cfg.Telemetry, logger, a.stderr)
	if err != nil {
		infrastructure.WithError(logger, err).Error("Failed to initialize telemetry")
		return &exitError{code: 1, err: err}
	}
	defer func() {
		if err := telemetry.Shutdown(context.Background()); err != nil {
			infrastructure.WithError(logger, err).Warn("Telemetry shutdown failed")
		}
	}()

	publisher := exporter.NewJSONExporter(paths, exporter.Options{ValidateSchema: cfg.Output.ValidateSchema}, logger)
	proc := dataprocessing.NewProcessor(
		dataprocessing.Options{Rules: cfg.Rules, IncludeHasData: cfg.Output.IncludeHasData},
		logger,
		dataprocessing.WithPublisher(publisher),
		dataprocessing.WithTracer(telemetry.Tracer),
		dataprocessing.WithMetrics(telemetry.Metrics),
	)

	ctx = infrastructure.EnsureRunID(ctx)
	logger.InfoContext(ctx, "Starting admission processing",
		slog.String("input", paths.InputFile),
		slog.String("output_dir", paths.OutputDir),
		slog.String("pairing", cfg.Rules.Pairing),
		slog.Bool("include_has_data", cfg.Output.IncludeHasData))

	result, runErr := proc.Run(ctx, paths.InputFile)
	if f.summary && result != nil {
		if err := renderSummary(a.stdout, result, paths); err != nil {
			infrastructure.WithError(logger, err).Warn("Failed to render summary")
		}
	}
	if runErr != nil {
		proc.LogFailure(ctx, runErr)
		return &exitError{code: 1, err: runErr}
	}
	if len(result.Report.Grouped) == 0 {
		logger.WarnContext(ctx, "No grouped records produced")
		return &exitError{code: 1, err: errors.New("no grouped records produced")}
	}
	return nil
}

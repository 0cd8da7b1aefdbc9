package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"vstupcli/internal/config"
	apperrors "vstupcli/internal/errors"
	"vstupcli/internal/infrastructure"
	"vstupcli/internal/validation"
	"vstupcli/pkg/contracts/domain"
)

// Publisher writes a finished report
type Publisher interface {
	Publish(ctx context.Context, report *domain.AdmissionReport) error
}

// Options configures a Processor
type Options struct {
	Rules          config.RulesConfig
	IncludeHasData bool
}

// Result is the outcome of a successful run
type Result struct {
	Report      *domain.AdmissionReport
	Diagnostics *Diagnostics
}

// Processor runs the admission pipeline: parse, classify, sanitize,
// resolve subjects, aggregate, assemble, publish. It holds no state between
// runs.
type Processor struct {
	opts      Options
	logger    *slog.Logger
	validator *validation.FileValidator
	publisher Publisher
	tracer    trace.Tracer
	metrics   *infrastructure.PipelineMetrics
}

// Option customises a Processor
type Option func(*Processor)

// WithPublisher makes Run publish the report after assembling it
func WithPublisher(pub Publisher) Option {
	return func(p *Processor) { p.publisher = pub }
}

// WithTracer records one span per pipeline stage
func WithTracer(t trace.Tracer) Option {
	return func(p *Processor) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithMetrics records run counters
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// NewProcessor creates a processor
func NewProcessor(opts Options, logger *slog.Logger, options ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		opts:      opts,
		logger:    infrastructure.WithComponent(logger, "processor"),
		validator: validation.NewFileValidator(logger),
		tracer:    noop.NewTracerProvider().Tracer(""),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Process runs the pipeline on the workbook at path and returns the grouped
// records. Every failure, including a panic, is logged and turned into an
// empty result; nothing is published in that case.
func (p *Processor) Process(ctx context.Context, path string) []domain.GroupedRecord {
	ctx = infrastructure.EnsureRunID(ctx)

	result, err := p.Run(ctx, path)
	if err != nil {
		p.LogFailure(ctx, err)
		return []domain.GroupedRecord{}
	}
	return result.Report.Grouped
}

// Run executes one pipeline pass. The returned error is always an AppError
// of type NOT_FOUND, SCHEMA or UNEXPECTED; a panic is recovered as
// UNEXPECTED with the stack attached. Diagnostics gathered before a failure
// are returned with it.
func (p *Processor) Run(ctx context.Context, path string) (result *Result, err error) {
	start := time.Now()
	ctx = infrastructure.EnsureRunID(ctx)
	ctx, span := p.tracer.Start(ctx, "dataprocessing.Run",
		trace.WithAttributes(attribute.String("input.path", path)))
	defer span.End()

	diag := NewDiagnostics()
	p.logger.InfoContext(ctx, "Processing started", slog.String("input", path))

	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewUnexpectedError("processing panicked", fmt.Errorf("%v", r)).
				WithContext(apperrors.ContextStack, string(debug.Stack()))
			p.metrics.RecordRun(ctx, time.Since(start), err)
			infrastructure.RecordError(ctx, err)
			result = &Result{Diagnostics: diag}
		}
	}()

	report, err := p.run(ctx, path, diag)
	if err != nil {
		err = boundaryError(err)
	}
	p.metrics.RecordRun(ctx, time.Since(start), err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		return &Result{Diagnostics: diag}, err
	}

	p.logger.InfoContext(ctx, "Processing completed",
		slog.Any("diagnostics", diag),
		slog.Duration("duration", time.Since(start)))
	return &Result{Report: report, Diagnostics: diag}, nil
}

func (p *Processor) run(ctx context.Context, path string, diag *Diagnostics) (*domain.AdmissionReport, error) {
	var (
		sheet   *Sheet
		roles   *RoleMap
		records []Record
		aggs    []SubjectAggregation
		grouped *Aggregation
		report  *domain.AdmissionReport
	)

	err := p.stage(ctx, "parse", func(ctx context.Context) error {
		if err := p.validator.ValidateInputFile(path); err != nil {
			return err
		}
		var err error
		sheet, err = ParseFile(path)
		if err != nil {
			return err
		}
		diag.Sheet = sheet.Name
		infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
			"sheet.name":    sheet.Name,
			"sheet.columns": len(sheet.Headers),
			"sheet.rows":    len(sheet.Rows),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, "classify", func(ctx context.Context) error {
		var err error
		roles, err = NewClassifier(p.opts.Rules, p.logger).Classify(sheet, diag)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, w := range diag.Warnings {
		p.logger.WarnContext(ctx, "Classification warning", slog.String("warning", w))
	}
	p.metrics.RecordSubjects(ctx, len(roles.Subjects))

	err = p.stage(ctx, "sanitize", func(ctx context.Context) error {
		var stats SanitizeStats
		records, stats = Sanitize(sheet.Rows, roles, NewMissingValues(p.opts.Rules.NAValues))
		diag.RowsRead = stats.Read
		diag.RowsDropped[DropMissingKey] = stats.DroppedMissingKey
		diag.RowsDropped[DropMissingScore] = stats.DroppedMissingScore
		diag.RowsSanitized = stats.Kept

		p.metrics.RecordRows(ctx, stats.Read)
		p.metrics.RecordDropped(ctx, DropMissingKey, stats.DroppedMissingKey)
		p.metrics.RecordDropped(ctx, DropMissingScore, stats.DroppedMissingScore)

		p.logger.InfoContext(ctx, "Rows sanitized",
			slog.Int("read", stats.Read),
			slog.Int("dropped_missing_key", stats.DroppedMissingKey),
			slog.Int("dropped_missing_score", stats.DroppedMissingScore),
			slog.Int("kept", stats.Kept))
		if stats.Kept == 0 {
			diag.Warn("no rows with complete keys and a numeric composite score")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, "aggregate", func(ctx context.Context) error {
		grouped = Aggregate(records, CompositeValue)

		resolver := NewResolver()
		for _, b := range roles.Subjects {
			matched := resolver.Resolve(records, roles, b)
			stats := Aggregate(matched, SubjectValue(roles.PairOf(b).Score.Index))
			if stats.Len() == 0 {
				diag.EmptySubjects = append(diag.EmptySubjects, b.Key)
				p.logger.DebugContext(ctx, "No data for subject", slog.String("subject", b.Keyword))
			}
			aggs = append(aggs, SubjectAggregation{Binding: b, Stats: stats})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, "assemble", func(ctx context.Context) error {
		report = AssembleReport(grouped, aggs, p.opts.Rules.Subjects, p.opts.IncludeHasData)
		diag.GroupedRecords = len(report.Grouped)
		diag.SubjectRecords = len(report.Subjects)
		p.metrics.RecordGroups(ctx, "grouped", len(report.Grouped))
		p.metrics.RecordGroups(ctx, "subject", len(report.Subjects))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if p.publisher != nil {
		err = p.stage(ctx, "publish", func(ctx context.Context) error {
			return p.publisher.Publish(ctx, report)
		})
		if err != nil {
			return nil, err
		}
	}

	return report, nil
}

// stage runs fn inside its own span. Cancellation is checked before the
// stage starts.
func (p *Processor) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "dataprocessing."+name)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return apperrors.NewUnexpectedError(fmt.Sprintf("run cancelled before %s", name), err)
	}
	if err := fn(ctx); err != nil {
		infrastructure.RecordError(ctx, err)
		return err
	}
	return nil
}

// boundaryError keeps NOT_FOUND and SCHEMA errors and wraps everything else
// as UNEXPECTED
func boundaryError(err error) error {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrTypeNotFound, apperrors.ErrTypeSchema, apperrors.ErrTypeUnexpected:
		return err
	}
	return apperrors.NewUnexpectedError("processing failed", err)
}

// LogFailure reports a run failure with the detail an operator needs
func (p *Processor) LogFailure(ctx context.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		infrastructure.WithError(p.logger, err).ErrorContext(ctx, "Processing failed")
		return
	}

	switch appErr.Type {
	case apperrors.ErrTypeNotFound:
		p.logger.ErrorContext(ctx, "Input workbook not found",
			slog.Any("path", appErr.Context[apperrors.ContextPath]))
	case apperrors.ErrTypeSchema:
		p.logger.ErrorContext(ctx, "Could not identify required columns",
			slog.Any(apperrors.ContextMissingRoles, appErr.Context[apperrors.ContextMissingRoles]),
			slog.Any(apperrors.ContextAvailableHeaders, appErr.Context[apperrors.ContextAvailableHeaders]))
	default:
		attrs := []any{slog.String("error", appErr.Error())}
		if stack, ok := appErr.Context[apperrors.ContextStack]; ok {
			attrs = append(attrs, slog.Any(apperrors.ContextStack, stack))
		}
		p.logger.ErrorContext(ctx, "Processing failed", attrs...)
	}
}

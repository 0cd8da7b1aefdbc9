package exporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"vstupcli/internal/config"
	apperrors "vstupcli/internal/errors"
	"vstupcli/internal/files"
	"vstupcli/internal/infrastructure"
	"vstupcli/internal/validation"
	"vstupcli/pkg/contracts/domain"
)

// Options controls what JSONExporter publishes
type Options struct {
	// ValidateSchema checks each document against its embedded schema
	// before anything is written
	ValidateSchema bool
}

// JSONExporter publishes an admission report as the grouped document, the
// subjects document when any subject was detected, and optionally a CSV
// copy of the grouped records. All documents are encoded and validated in
// memory first, then committed together.
type JSONExporter struct {
	paths     *config.Paths
	opts      Options
	validator *validation.FileValidator
	logger    *slog.Logger
}

// NewJSONExporter creates an exporter writing to paths
func NewJSONExporter(paths *config.Paths, opts Options, logger *slog.Logger) *JSONExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONExporter{
		paths:     paths,
		opts:      opts,
		validator: validation.NewFileValidator(logger),
		logger:    infrastructure.WithComponent(logger, "exporter"),
	}
}

type output struct {
	path string
	data []byte
}

// Publish implements the processor's Publisher. When no subject was
// detected the subjects document is not written; an existing one is left
// as it is.
func (e *JSONExporter) Publish(ctx context.Context, report *domain.AdmissionReport) error {
	if report == nil {
		return apperrors.NewUnexpectedError("nothing to publish", nil)
	}
	if err := e.validator.ValidateOutputDirectory(e.paths.OutputDir); err != nil {
		return err
	}

	outputs, err := e.render(report)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperrors.NewUnexpectedError("publish cancelled", err)
	}

	m := files.NewManager(e.paths, e.logger)
	if !report.SubjectsDetected && m.FileExists(e.paths.SubjectsJSON) {
		e.logger.WarnContext(ctx, "Subjects document from an earlier run left in place",
			slog.String("path", e.paths.SubjectsJSON))
	}
	for _, o := range outputs {
		if err := m.WriteAtomic(o.path, o.data); err != nil {
			m.Rollback()
			return apperrors.NewStorageError("failed to stage output", err).
				WithContext(apperrors.ContextPath, o.path)
		}
	}
	published := m.Pending()
	if err := m.Commit(); err != nil {
		return apperrors.NewStorageError("failed to publish output", err)
	}

	e.logger.InfoContext(ctx, "Report published",
		slog.Any("files", published),
		slog.Int("grouped_records", len(report.Grouped)),
		slog.Int("subject_records", len(report.Subjects)),
		slog.Bool("subjects_published", report.SubjectsDetected),
		slog.String("output_dir", e.paths.OutputDir))
	return nil
}

func (e *JSONExporter) render(report *domain.AdmissionReport) ([]output, error) {
	grouped, err := e.encode(DocumentGrouped, report.Grouped)
	if err != nil {
		return nil, err
	}
	outputs := []output{{path: e.paths.GroupedJSON, data: grouped}}

	if report.SubjectsDetected {
		subjects, err := e.encode(DocumentSubjects, report.Subjects)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, output{path: e.paths.SubjectsJSON, data: subjects})
	} else {
		e.logger.Info("No subjects detected; subjects document not written",
			slog.String("path", e.paths.SubjectsJSON))
	}

	if e.paths.GroupedCSV != "" {
		data, err := EncodeGroupedCSV(report.Grouped)
		if err != nil {
			return nil, apperrors.NewUnexpectedError("failed to encode grouped CSV", err)
		}
		outputs = append(outputs, output{path: e.paths.GroupedCSV, data: data})
	}
	return outputs, nil
}

func (e *JSONExporter) encode(doc Document, v any) ([]byte, error) {
	data, err := EncodeJSON(v)
	if err != nil {
		return nil, apperrors.NewUnexpectedError(fmt.Sprintf("failed to encode %s document", doc), err)
	}
	if e.opts.ValidateSchema {
		if err := ValidateDocument(doc, data); err != nil {
			if appErr, ok := apperrors.AsAppError(err); ok {
				e.logger.Error("Output failed schema validation",
					slog.String("document", string(doc)),
					slog.Any(ContextViolations, appErr.Context[ContextViolations]))
			}
			return nil, err
		}
	}
	return data, nil
}

// EncodeJSON renders v with two-space indentation and without HTML
// escaping, so Cyrillic text and symbols appear literally
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

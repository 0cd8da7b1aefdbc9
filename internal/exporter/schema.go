package exporter

import (
	"embed"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	apperrors "vstupcli/internal/errors"
)

// Document names the published JSON documents
type Document string

const (
	DocumentGrouped  Document = "grouped"
	DocumentSubjects Document = "subjects"
)

// ContextViolations is the AppError context key listing schema violations
const ContextViolations = "violations"

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemas    map[Document]*gojsonschema.Schema
	schemaErr  error
)

func loadSchemas() (map[Document]*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schemas = make(map[Document]*gojsonschema.Schema)
		for _, doc := range []Document{DocumentGrouped, DocumentSubjects} {
			data, err := schemaFS.ReadFile(fmt.Sprintf("schemas/%s.schema.json", doc))
			if err != nil {
				schemaErr = fmt.Errorf("failed to read %s schema: %w", doc, err)
				return
			}
			s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
			if err != nil {
				schemaErr = fmt.Errorf("failed to compile %s schema: %w", doc, err)
				return
			}
			schemas[doc] = s
		}
	})
	return schemas, schemaErr
}

// ValidateDocument checks encoded JSON against the embedded schema for doc.
// Violations are returned as a VALIDATION AppError listing each field.
func ValidateDocument(doc Document, data []byte) error {
	all, err := loadSchemas()
	if err != nil {
		return apperrors.NewUnexpectedError("schema unavailable", err)
	}
	schema, ok := all[doc]
	if !ok {
		return apperrors.NewUnexpectedError(fmt.Sprintf("no schema for document %q", doc), nil)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return apperrors.NewParsingError(fmt.Sprintf("%s document is not valid JSON", doc), err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		violations = append(violations, fmt.Sprintf("%s: %s", field, desc.Description()))
	}
	return apperrors.NewAppValidationError(
		fmt.Sprintf("%s document does not match its schema (%d violations)", doc, len(violations)), nil).
		WithContext(ContextViolations, violations)
}

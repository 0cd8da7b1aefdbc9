package dataprocessing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"vstupcli/internal/config"
	apperrors "vstupcli/internal/errors"
	"vstupcli/internal/shared/testutil"
	"vstupcli/pkg/contracts/domain"
)

type recordingPublisher struct {
	reports []*domain.AdmissionReport
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, report *domain.AdmissionReport) error {
	p.reports = append(p.reports, report)
	return p.err
}

type panickingPublisher struct{}

func (panickingPublisher) Publish(context.Context, *domain.AdmissionReport) error {
	panic("disk on fire")
}

func defaultOptions() Options {
	return Options{Rules: config.DefaultRules()}
}

// scenarioWorkbook holds two physics applicants in one group
func scenarioWorkbook(t *testing.T) string {
	return testutil.NewWorkbook(testutil.AdmissionHeaders()...).
		Row("Іваненко", "CS", "budget", "M", 185.5, "Фізика", 170).
		Row("Петренко", "CS", "budget", "M", 190.0, "Фізика", 180).
		Save(t, t.TempDir(), "vstup.xlsx")
}

func TestProcessor_Run(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	pub := &recordingPublisher{}
	p := NewProcessor(defaultOptions(), logger, WithPublisher(pub))

	result, err := p.Run(context.Background(), scenarioWorkbook(t))
	require.NoError(t, err)

	report := result.Report
	require.Len(t, report.Grouped, 1)
	g := report.Grouped[0]
	assert.Equal(t, domain.GroupKey{Specialty: "CS", Financing: "budget", Sex: "M"}, g.Key())
	assert.Equal(t, 187.75, g.Score)
	assert.Equal(t, 2, g.Count)

	phys, ok := g.Subject("physics")
	require.True(t, ok)
	assert.Equal(t, 175.0, phys.Score)
	assert.True(t, phys.HasData)
	for _, key := range []string{"biology", "foreign_language", "ukrainian_language", "chemistry", "mathematics", "history", "geography"} {
		s, ok := g.Subject(key)
		require.True(t, ok, key)
		assert.Zero(t, s.Score, key)
	}

	assert.True(t, report.SubjectsDetected)
	assert.True(t, logs.ContainsAttr("component", "processor"))
	assert.Equal(t, []domain.SubjectRecord{
		{Subject: "фізика", Specialty: "CS", Financing: "budget", Sex: "M", Score: 175.0, Count: 2},
	}, report.Subjects)

	require.Len(t, pub.reports, 1)
	assert.Same(t, report, pub.reports[0])

	diag := result.Diagnostics
	assert.Equal(t, "Sheet1", diag.Sheet)
	assert.Equal(t, 2, diag.RowsRead)
	assert.Equal(t, 2, diag.RowsSanitized)
	assert.Equal(t, 0, diag.RowsDropped[DropMissingKey])
	assert.Equal(t, 1, diag.GroupedRecords)
	assert.Equal(t, 1, diag.SubjectRecords)
	assert.Empty(t, diag.EmptySubjects)
	assert.Len(t, diag.UnmatchedSubjects, 7)
	assert.Empty(t, diag.Warnings)

	assert.True(t, logs.ContainsMessage("Processing completed"))
	testutil.AssertNoErrors(t, logs)
}

func TestProcessor_Process(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	p := NewProcessor(defaultOptions(), logger)

	records := p.Process(context.Background(), scenarioWorkbook(t))

	require.Len(t, records, 1)
	assert.Equal(t, 187.75, records[0].Score)
}

func TestProcessor_Idempotent(t *testing.T) {
	path := testutil.NewWorkbook(testutil.AdmissionHeaders()...).
		Row("A", "Право", "contract", "F", 160, "Історія України", 150).
		Row("B", "CS", "budget", "M", 185.5, "Фізика", 170).
		Row("C", "CS", "budget", "F", 170.25, "Математика", 160).
		Row("D", "CS", "budget", "M", 190, "Фізика", 180).
		Row("E", "Право", "contract", "F", 171, "Історія України", nil).
		Save(t, t.TempDir(), "vstup.xlsx")

	p := NewProcessor(defaultOptions(), nil)

	first, err := p.Run(context.Background(), path)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, first.Report, second.Report)
}

func TestProcessor_Invariants(t *testing.T) {
	path := testutil.NewWorkbook(testutil.AdmissionHeaders()...).
		Row("A", "Право", "contract", "F", 160, "Історія України", 150).
		Row("B", "CS", "budget", "M", 185.5, "Фізика", 170).
		Row("C", "CS", "budget", "F", 170.25, "Математика", 160).
		Row("D", "CS", nil, "M", 190, "Фізика", 180).
		Row("E", "Право", "contract", "F", "n/a", "Історія України", 140).
		Row("F", "Право", "contract", "F", 171, "Історія України", "abs").
		Save(t, t.TempDir(), "vstup.xlsx")

	result, err := NewProcessor(defaultOptions(), nil).Run(context.Background(), path)
	require.NoError(t, err)
	report, diag := result.Report, result.Diagnostics

	t.Run("count conservation", func(t *testing.T) {
		assert.Equal(t, 6, diag.RowsRead)
		assert.Equal(t, 1, diag.RowsDropped[DropMissingKey])
		assert.Equal(t, 1, diag.RowsDropped[DropMissingScore])
		assert.Equal(t, diag.RowsSanitized, report.TotalCount())
	})

	t.Run("completeness", func(t *testing.T) {
		keys := config.DefaultRules().SubjectKeys()
		for _, g := range report.Grouped {
			require.Len(t, g.Subjects, len(keys))
			for i, s := range g.Subjects {
				assert.Equal(t, keys[i], s.Key)
			}
		}
	})

	t.Run("subject records match a group", func(t *testing.T) {
		groups := make(map[domain.GroupKey]int)
		for _, g := range report.Grouped {
			groups[g.Key()] = g.Count
		}
		for _, s := range report.Subjects {
			count, ok := groups[s.Key()]
			require.True(t, ok, s.Key().String())
			assert.LessOrEqual(t, s.Count, count)
		}
	})

	t.Run("sorted keys", func(t *testing.T) {
		for i := 1; i < len(report.Grouped); i++ {
			assert.True(t, report.Grouped[i-1].Key().Less(report.Grouped[i].Key()))
		}
	})

	t.Run("missing subject score", func(t *testing.T) {
		law := domain.GroupKey{Specialty: "Право", Financing: "contract", Sex: "F"}
		for _, s := range report.Subjects {
			if s.Key() == law {
				assert.Equal(t, "історія", s.Subject)
				assert.Equal(t, 1, s.Count)
				assert.Equal(t, 150.0, s.Score)
			}
		}
	})
}

func TestProcessor_SchemaFailure(t *testing.T) {
	path := testutil.NewWorkbook(testutil.HeaderSpecialty, testutil.HeaderFinancing, testutil.HeaderComposite).
		Row("CS", "budget", 185.5).
		Save(t, t.TempDir(), "vstup.xlsx")

	logger, logs := testutil.NewTestLogger(t)
	pub := &recordingPublisher{}
	p := NewProcessor(defaultOptions(), logger, WithPublisher(pub))

	result, err := p.Run(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeSchema, apperrors.TypeOf(err))
	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, []string{config.RoleSex}, appErr.Context[apperrors.ContextMissingRoles])
	assert.Nil(t, result.Report)
	assert.NotNil(t, result.Diagnostics)

	records := p.Process(context.Background(), path)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Empty(t, pub.reports, "nothing is published on failure")
	assert.True(t, logs.ContainsAttr(apperrors.ContextMissingRoles, []string{config.RoleSex}))
}

func TestProcessor_NAKeyCellsAreDropped(t *testing.T) {
	path := testutil.NewWorkbook(testutil.AdmissionHeaders()...).
		Row("Іваненко", "CS", "budget", "M", 185.5, "Фізика", 170).
		Row("Петренко", "CS", "budget", "#N/A", 190, "Фізика", 180).
		Row("Сидоренко", "CS", "N/A", "F", 170, "Фізика", 160).
		Save(t, t.TempDir(), "vstup.xlsx")

	result, err := NewProcessor(defaultOptions(), nil, WithPublisher(&recordingPublisher{})).Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Diagnostics.RowsDropped[DropMissingKey])
	assert.Equal(t, 1, result.Diagnostics.RowsSanitized)
	require.Len(t, result.Report.Grouped, 1)
	assert.Equal(t, domain.GroupKey{Specialty: "CS", Financing: "budget", Sex: "M"}, result.Report.Grouped[0].Key())
	assert.Equal(t, 1, result.Report.Grouped[0].Count)
}

func TestProcessor_NotFound(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	p := NewProcessor(defaultOptions(), logger)
	path := filepath.Join(t.TempDir(), "missing.xlsx")

	_, err := p.Run(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeNotFound, apperrors.TypeOf(err))

	records := p.Process(context.Background(), path)
	assert.Empty(t, records)
	assert.True(t, logs.ContainsMessage("Input workbook not found"))
}

func TestProcessor_UnexpectedErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) (string, *Processor, context.Context)
	}{
		{
			name: "wrong extension",
			setup: func(t *testing.T) (string, *Processor, context.Context) {
				src := testutil.NewWorkbook(testutil.AdmissionHeaders()...).Save(t, t.TempDir(), "vstup.xlsx")
				path := strings.TrimSuffix(src, ".xlsx") + ".csv"
				require.NoError(t, os.Rename(src, path))
				return path, NewProcessor(defaultOptions(), nil), context.Background()
			},
		},
		{
			name: "publisher fails",
			setup: func(t *testing.T) (string, *Processor, context.Context) {
				pub := &recordingPublisher{err: apperrors.NewStorageError("disk full", errors.New("ENOSPC"))}
				return scenarioWorkbook(t), NewProcessor(defaultOptions(), nil, WithPublisher(pub)), context.Background()
			},
		},
		{
			name: "cancelled",
			setup: func(t *testing.T) (string, *Processor, context.Context) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return scenarioWorkbook(t), NewProcessor(defaultOptions(), nil), ctx
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, p, ctx := tt.setup(t)

			_, err := p.Run(ctx, path)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrTypeUnexpected, apperrors.TypeOf(err))
		})
	}
}

func TestProcessor_PanicRecovery(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	p := NewProcessor(defaultOptions(), logger, WithPublisher(panickingPublisher{}))

	var records []domain.GroupedRecord
	require.NotPanics(t, func() {
		records = p.Process(context.Background(), scenarioWorkbook(t))
	})

	assert.NotNil(t, records)
	assert.Empty(t, records)

	rec, ok := logs.FindMessage("Processing failed")
	require.True(t, ok)
	assert.Contains(t, rec.Attrs, apperrors.ContextStack)
	assert.Contains(t, rec.Attrs["error"], "disk on fire")

	result, err := p.Run(context.Background(), scenarioWorkbook(t))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeUnexpected, apperrors.TypeOf(err))
	appErr, _ := apperrors.AsAppError(err)
	assert.Contains(t, appErr.Context, apperrors.ContextStack)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Diagnostics.RowsSanitized, "diagnostics survive the panic")
}

func TestProcessor_EmptySheet(t *testing.T) {
	path := testutil.NewWorkbook(testutil.AdmissionHeaders()...).
		Row("A", nil, "budget", "M", 180).
		Save(t, t.TempDir(), "vstup.xlsx")

	pub := &recordingPublisher{}
	result, err := NewProcessor(defaultOptions(), nil, WithPublisher(pub)).Run(context.Background(), path)
	require.NoError(t, err)

	assert.Empty(t, result.Report.Grouped)
	assert.Contains(t, result.Diagnostics.Warnings, "no rows with complete keys and a numeric composite score")
	require.Len(t, pub.reports, 1, "an empty report is still published")
}

func TestProcessor_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	p := NewProcessor(defaultOptions(), nil,
		WithTracer(tp.Tracer("test")),
		WithPublisher(&recordingPublisher{}))

	_, err := p.Run(context.Background(), scenarioWorkbook(t))
	require.NoError(t, err)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"dataprocessing.parse",
		"dataprocessing.classify",
		"dataprocessing.sanitize",
		"dataprocessing.aggregate",
		"dataprocessing.assemble",
		"dataprocessing.publish",
		"dataprocessing.Run",
	}, names)
}

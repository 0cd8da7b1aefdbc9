package dataprocessing

import (
	"vstupcli/internal/config"
	"vstupcli/pkg/contracts/domain"
)

// SubjectAggregation is the per-group statistic of one registered subject
type SubjectAggregation struct {
	Binding SubjectBinding
	Stats   *Aggregation
}

// AssembleReport merges the composite aggregation with the subject
// aggregations.
//
// Every composite group yields one grouped record carrying a field for each
// catalog subject; a subject without a statistic for that exact key gets 0.
// Subject records are emitted per registered subject, in registration order,
// for the groups present in its aggregation only.
func AssembleReport(composite *Aggregation, subjects []SubjectAggregation, catalog []config.SubjectRule, includeHasData bool) *domain.AdmissionReport {
	byKey := make(map[string]*Aggregation, len(subjects))
	for _, s := range subjects {
		byKey[s.Binding.Key] = s.Stats
	}

	report := &domain.AdmissionReport{
		Grouped:          make([]domain.GroupedRecord, 0, composite.Len()),
		Subjects:         []domain.SubjectRecord{},
		SubjectsDetected: len(subjects) > 0,
	}

	for _, key := range composite.Keys() {
		stat, _ := composite.Get(key)
		rec := domain.GroupedRecord{
			Specialty:      key.Specialty,
			Financing:      key.Financing,
			Sex:            key.Sex,
			Score:          stat.Mean,
			Count:          stat.Count,
			Subjects:       make([]domain.SubjectScore, 0, len(catalog)),
			IncludeHasData: includeHasData,
		}
		for _, rule := range catalog {
			field := domain.SubjectScore{Key: rule.Key}
			if s, ok := byKey[rule.Key].Get(key); ok {
				field.Score = s.Mean
				field.HasData = true
			}
			rec.Subjects = append(rec.Subjects, field)
		}
		report.Grouped = append(report.Grouped, rec)
	}

	for _, s := range subjects {
		for _, key := range s.Stats.Keys() {
			stat, _ := s.Stats.Get(key)
			report.Subjects = append(report.Subjects, domain.SubjectRecord{
				Subject:   s.Binding.Keyword,
				Specialty: key.Specialty,
				Financing: key.Financing,
				Sex:       key.Sex,
				Score:     stat.Mean,
				Count:     stat.Count,
			})
		}
	}

	return report
}

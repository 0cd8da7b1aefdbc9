package dataprocessing

import (
	"strings"
)

// Resolver selects, for a registered subject, the sanitized records whose
// subject-name cell mentions the subject
type Resolver struct {
	m *matcher
}

// NewResolver creates a resolver
func NewResolver() *Resolver {
	return &Resolver{m: newMatcher()}
}

// Resolve returns the records whose cell in the subject's name column
// contains the keyword, case-insensitively, in input order. A cell naming
// several subjects matches each of them.
func (r *Resolver) Resolve(records []Record, roles *RoleMap, b SubjectBinding) []Record {
	keyword := r.m.fold(strings.TrimSpace(b.Keyword))
	if keyword == "" {
		return nil
	}
	col := roles.PairOf(b).Name.Index

	var matched []Record
	for _, rec := range records {
		v, ok := rec.Cell(col)
		if ok && strings.Contains(r.m.fold(v), keyword) {
			matched = append(matched, rec)
		}
	}
	return matched
}

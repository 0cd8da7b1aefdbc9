package dataprocessing

import (
	"log/slog"
	"strings"

	"vstupcli/internal/config"
	apperrors "vstupcli/internal/errors"
	"vstupcli/internal/infrastructure"
)

// Column identifies a sheet column by position and header label
type Column struct {
	Index int
	Label string
}

// SubjectPair is a subject-name column and the score column read with it
type SubjectPair struct {
	Name  Column
	Score Column
}

// SubjectBinding ties a catalog subject to the pair it was found in
type SubjectBinding struct {
	Keyword string
	Key     string
	// Pair indexes RoleMap.Pairs
	Pair int
}

// RoleMap is the resolved assignment of columns to roles
type RoleMap struct {
	CompositeScore Column
	Specialty      Column
	Financing      Column
	Sex            Column

	NameColumns  []Column
	ScoreColumns []Column
	Pairs        []SubjectPair
	// Subjects in registration order
	Subjects []SubjectBinding
}

// KeyColumns returns the grouping-key columns in key order
func (m *RoleMap) KeyColumns() [3]Column {
	return [3]Column{m.Specialty, m.Financing, m.Sex}
}

// PairOf returns the column pair a subject is bound to
func (m *RoleMap) PairOf(b SubjectBinding) SubjectPair {
	return m.Pairs[b.Pair]
}

// Binding returns the registration for the subject with output key key
func (m *RoleMap) Binding(key string) (SubjectBinding, bool) {
	for _, b := range m.Subjects {
		if b.Key == key {
			return b, true
		}
	}
	return SubjectBinding{}, false
}

type foldedSubject struct {
	config.SubjectRule
	folded string
}

type keyRule struct {
	role   string
	tokens []string
}

// Classifier resolves column roles from header text and registers subjects
// from subject-name cell values. Rules are folded once at construction.
type Classifier struct {
	rules  config.RulesConfig
	m      *matcher
	logger *slog.Logger

	composite    []string
	subjectName  []string
	subjectScore []string
	exam         []string
	keys         []keyRule
	subjects     []foldedSubject
}

// NewClassifier creates a classifier for rules
func NewClassifier(rules config.RulesConfig, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	m := newMatcher()
	c := &Classifier{
		rules:        rules,
		m:            m,
		logger:       infrastructure.WithComponent(logger, "classifier"),
		composite:    m.foldAll(rules.CompositeScore),
		subjectName:  m.foldAll(rules.SubjectName),
		subjectScore: m.foldAll(rules.SubjectScore),
		exam:         m.foldAll(rules.ExamTokens),
		keys: []keyRule{
			{role: config.RoleSpecialty, tokens: m.foldAll(rules.Specialty)},
			{role: config.RoleFinancing, tokens: m.foldAll(rules.Financing)},
			{role: config.RoleSex, tokens: m.foldAll(rules.Sex)},
		},
	}
	for _, s := range rules.Subjects {
		c.subjects = append(c.subjects, foldedSubject{SubjectRule: s, folded: m.fold(strings.TrimSpace(s.Keyword))})
	}
	return c
}

// Classify resolves the role map for sheet and registers its subjects
func (c *Classifier) Classify(sheet *Sheet, diag *Diagnostics) (*RoleMap, error) {
	roles, err := c.ClassifyHeaders(sheet.Headers, diag)
	if err != nil {
		return nil, err
	}
	c.RegisterSubjects(roles, sheet.Rows, diag)
	return roles, nil
}

// ClassifyHeaders resolves the composite-score column, the grouping-key
// columns and the subject column pairs. A missing composite or key column
// is a SCHEMA error listing every unresolved role and all headers.
func (c *Classifier) ClassifyHeaders(headers []string, diag *Diagnostics) (*RoleMap, error) {
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = c.m.fold(h)
	}

	composite := -1
	for i, f := range folded {
		if containsAny(f, c.composite) {
			composite = i
			break
		}
	}

	// each header goes to the first role whose tokens it contains; each
	// role keeps the first header it gets
	keyIdx := map[string]int{config.RoleSpecialty: -1, config.RoleFinancing: -1, config.RoleSex: -1}
	for i, f := range folded {
		for _, k := range c.keys {
			if containsAny(f, k.tokens) {
				if keyIdx[k.role] < 0 {
					keyIdx[k.role] = i
				}
				break
			}
		}
	}

	var missing []string
	if composite < 0 {
		missing = append(missing, config.RoleCompositeScore)
	}
	for _, k := range c.keys {
		if keyIdx[k.role] < 0 {
			missing = append(missing, k.role)
		}
	}
	if len(missing) > 0 {
		c.logger.Error("Could not identify required columns",
			slog.Any("missing_roles", missing),
			slog.Any("available_headers", headers))
		return nil, apperrors.NewSchemaError(missing, headers)
	}

	column := func(i int) Column { return Column{Index: i, Label: headers[i]} }
	roles := &RoleMap{
		CompositeScore: column(composite),
		Specialty:      column(keyIdx[config.RoleSpecialty]),
		Financing:      column(keyIdx[config.RoleFinancing]),
		Sex:            column(keyIdx[config.RoleSex]),
	}

	for i, f := range folded {
		if !containsAny(f, c.exam) {
			continue
		}
		if containsAny(f, c.subjectName) {
			roles.NameColumns = append(roles.NameColumns, column(i))
		} else if containsAny(f, c.subjectScore) && i != composite {
			roles.ScoreColumns = append(roles.ScoreColumns, column(i))
		}
	}

	switch c.rules.Pairing {
	case config.PairingAdjacent:
		roles.Pairs = pairAdjacent(roles.NameColumns, roles.ScoreColumns, diag)
	case config.PairingExplicit:
		roles.Pairs = c.pairExplicit(headers, folded, diag)
	default:
		roles.Pairs = pairPositional(roles.NameColumns, roles.ScoreColumns, diag)
	}

	if diag != nil {
		diag.Headers = append([]string(nil), headers...)
		diag.Roles = roles
	}

	c.logger.Info("Column roles resolved",
		slog.String("composite_score", roles.CompositeScore.Label),
		slog.String("specialty", roles.Specialty.Label),
		slog.String("financing", roles.Financing.Label),
		slog.String("sex", roles.Sex.Label),
		slog.Int("name_columns", len(roles.NameColumns)),
		slog.Int("score_columns", len(roles.ScoreColumns)),
		slog.Int("pairs", len(roles.Pairs)),
		slog.String("pairing", c.rules.Pairing))

	return roles, nil
}

// pairPositional pairs the i-th name column with the i-th score column
func pairPositional(names, scores []Column, diag *Diagnostics) []SubjectPair {
	n := min(len(names), len(scores))
	if len(names) != len(scores) {
		warn(diag, "found %d subject-name columns and %d subject-score columns; only the first %d are paired",
			len(names), len(scores), n)
	}
	pairs := make([]SubjectPair, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, SubjectPair{Name: names[i], Score: scores[i]})
	}
	return pairs
}

// pairAdjacent pairs each name column with the first score column to its
// right that comes before the next name column
func pairAdjacent(names, scores []Column, diag *Diagnostics) []SubjectPair {
	var pairs []SubjectPair
	used := make(map[int]bool)

	for i, name := range names {
		bound := -1
		if i+1 < len(names) {
			bound = names[i+1].Index
		}
		found := false
		for _, score := range scores {
			if score.Index <= name.Index || (bound >= 0 && score.Index >= bound) {
				continue
			}
			pairs = append(pairs, SubjectPair{Name: name, Score: score})
			used[score.Index] = true
			found = true
			break
		}
		if !found {
			warn(diag, "subject-name column %q has no adjacent score column", name.Label)
		}
	}

	for _, score := range scores {
		if !used[score.Index] {
			warn(diag, "subject-score column %q is not paired with a name column", score.Label)
		}
	}
	return pairs
}

// pairExplicit looks up the configured header labels
func (c *Classifier) pairExplicit(headers, folded []string, diag *Diagnostics) []SubjectPair {
	find := func(label string) (Column, bool) {
		want := c.m.fold(strings.TrimSpace(label))
		for i, f := range folded {
			if strings.TrimSpace(f) == want {
				return Column{Index: i, Label: headers[i]}, true
			}
		}
		return Column{}, false
	}

	var pairs []SubjectPair
	for _, p := range c.rules.ExplicitPairs {
		name, okName := find(p.Name)
		score, okScore := find(p.Score)
		if !okName || !okScore {
			warn(diag, "explicit pair %q/%q not found in headers", p.Name, p.Score)
			continue
		}
		pairs = append(pairs, SubjectPair{Name: name, Score: score})
	}
	return pairs
}

// RegisterSubjects binds catalog subjects to column pairs. Pairs are visited
// in order and subjects in catalog order; a subject is bound to the first
// pair whose name column has a cell containing its keyword.
func (c *Classifier) RegisterSubjects(roles *RoleMap, rows []RawRow, diag *Diagnostics) {
	roles.Subjects = nil
	registered := make(map[string]int)

	for pi, pair := range roles.Pairs {
		values := c.distinctFolded(rows, pair.Name.Index)

		for _, s := range c.subjects {
			if s.folded == "" || !anyContains(values, s.folded) {
				continue
			}
			if first, ok := registered[s.Key]; ok {
				if first != pi {
					warn(diag, "subject %q also appears in column %q; keeping column %q",
						s.Keyword, pair.Name.Label, roles.Pairs[first].Name.Label)
				}
				continue
			}
			registered[s.Key] = pi
			roles.Subjects = append(roles.Subjects, SubjectBinding{Keyword: s.Keyword, Key: s.Key, Pair: pi})
			c.logger.Debug("Subject registered",
				slog.String("subject", s.Keyword),
				slog.String("name_column", pair.Name.Label),
				slog.String("score_column", pair.Score.Label))
		}
	}

	if len(roles.Pairs) == 0 {
		warn(diag, "no subject column pairs found; subject fields will be zero")
	}

	if diag != nil {
		diag.UnmatchedSubjects = nil
		for _, s := range c.subjects {
			if _, ok := registered[s.Key]; !ok {
				diag.UnmatchedSubjects = append(diag.UnmatchedSubjects, s.Key)
			}
		}
	}

	c.logger.Info("Subjects registered",
		slog.Int("registered", len(roles.Subjects)),
		slog.Int("catalog", len(c.subjects)))
}

func (c *Classifier) distinctFolded(rows []RawRow, col int) []string {
	seen := make(map[string]bool)
	var values []string
	for _, row := range rows {
		v, ok := row.Cell(col)
		if !ok {
			continue
		}
		f := c.m.fold(v)
		if !seen[f] {
			seen[f] = true
			values = append(values, f)
		}
	}
	return values
}

func anyContains(values []string, token string) bool {
	for _, v := range values {
		if strings.Contains(v, token) {
			return true
		}
	}
	return false
}

func warn(diag *Diagnostics, format string, args ...any) {
	if diag != nil {
		diag.Warn(format, args...)
	}
}

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

// Pairing strategies for subject-name and subject-score columns
const (
	// PairingPositional pairs the i-th name column with the i-th score column
	PairingPositional = "positional"
	// PairingAdjacent pairs each name column with the nearest score column to
	// its right that appears before the next name column
	PairingAdjacent = "adjacent"
	// PairingExplicit uses the header labels listed in ExplicitPairs
	PairingExplicit = "explicit"
)

// Keys that a subject rule may not use: the fixed fields of the output
// records, and the suffix reserved for the has-data flags
const (
	reservedSubjectKeys = "specialty financing sex score count subject"
	HasDataSuffix       = "_has_data"
)

// DefaultNAValues are the cell texts read as missing, matching the markers
// common spreadsheet and dataframe tools write for absent values
var DefaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// SubjectRule maps a subject keyword, as it appears in subject-name cells, to
// the stable key used in the output documents.
type SubjectRule struct {
	Keyword string `yaml:"keyword" validate:"required"`
	Key     string `yaml:"key" validate:"required,subject_key"`
}

// ColumnPair names a subject-name header and its subject-score header
type ColumnPair struct {
	Name  string `yaml:"name" validate:"required"`
	Score string `yaml:"score" validate:"required"`
}

// RulesConfig is the keyword table used to recognise spreadsheet columns.
// Every token is matched case-insensitively as a substring of the header.
type RulesConfig struct {
	CompositeScore []string `yaml:"composite_score" validate:"min=1,dive,required"`

	SubjectName  []string `yaml:"subject_name" validate:"min=1,dive,required"`
	SubjectScore []string `yaml:"subject_score" validate:"min=1,dive,required"`
	ExamTokens   []string `yaml:"exam_tokens" validate:"min=1,dive,required"`

	// Key roles, evaluated in this order: a header claimed by specialty is
	// never considered for financing or sex.
	Specialty []string `yaml:"specialty" validate:"min=1,dive,required"`
	Financing []string `yaml:"financing" validate:"min=1,dive,required"`
	Sex       []string `yaml:"sex" validate:"min=1,dive,required"`

	Subjects []SubjectRule `yaml:"subjects" validate:"min=1,unique=Key,dive"`

	Pairing       string       `yaml:"pairing" validate:"oneof=positional adjacent explicit"`
	ExplicitPairs []ColumnPair `yaml:"explicit_pairs" validate:"required_if=Pairing explicit,dive"`

	// NAValues are exact cell texts treated as absent in key and score
	// columns, e.g. "#N/A" from formula-driven exports
	NAValues []string `yaml:"na_values"`
}

// DefaultRules returns the rule table for the 2024 admission campaign exports
func DefaultRules() RulesConfig {
	return RulesConfig{
		CompositeScore: []string{"конкурсний бал"},
		SubjectName:    []string{"предмет"},
		SubjectScore:   []string{"бал"},
		ExamTokens:     []string{"нмт", "зно", "вступний іспит"},
		Specialty:      []string{"спеціальність", "specialty"},
		Financing:      []string{"форма фінансування", "фінансування", "financing", "funding form"},
		Sex:            []string{"стать", "sex", "gender"},
		Subjects: []SubjectRule{
			{Keyword: "біологія", Key: "biology"},
			{Keyword: "фізика", Key: "physics"},
			{Keyword: "іноземна мова", Key: "foreign_language"},
			{Keyword: "українська мова", Key: "ukrainian_language"},
			{Keyword: "хімія", Key: "chemistry"},
			{Keyword: "математика", Key: "mathematics"},
			{Keyword: "історія", Key: "history"},
			{Keyword: "географія", Key: "geography"},
		},
		Pairing:  PairingPositional,
		NAValues: append([]string(nil), DefaultNAValues...),
	}
}

// validSubjectKey rejects output keys that would collide with a fixed record
// field or a has-data flag
func validSubjectKey(fl validator.FieldLevel) bool {
	key := fl.Field().String()
	if strings.HasSuffix(key, HasDataSuffix) {
		return false
	}
	for _, reserved := range strings.Fields(reservedSubjectKeys) {
		if key == reserved {
			return false
		}
	}
	return true
}

// SubjectKeys returns the output keys in catalog order
func (r RulesConfig) SubjectKeys() []string {
	keys := make([]string, len(r.Subjects))
	for i, s := range r.Subjects {
		keys[i] = s.Key
	}
	return keys
}

// LoadRules reads a YAML rule table. Sections missing from the file keep
// their default values; unknown keys are rejected.
func LoadRules(path string) (RulesConfig, error) {
	rules := DefaultRules()

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, &rules); err != nil {
		return rules, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	return rules, nil
}

package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// GroupKey identifies an aggregation group. Values are taken verbatim from the
// source cells; two visually distinct strings are two distinct groups.
type GroupKey struct {
	Specialty string
	Financing string
	Sex       string
}

// Less orders keys by specialty, then financing, then sex.
func (k GroupKey) Less(other GroupKey) bool {
	if k.Specialty != other.Specialty {
		return k.Specialty < other.Specialty
	}
	if k.Financing != other.Financing {
		return k.Financing < other.Financing
	}
	return k.Sex < other.Sex
}

// String renders the key for logs and diagnostics
func (k GroupKey) String() string {
	return fmt.Sprintf("%s / %s / %s", k.Specialty, k.Financing, k.Sex)
}

// SubjectScore is one per-subject field of a grouped record.
// Score is 0 when HasData is false.
type SubjectScore struct {
	Key     string  `json:"key"`
	Score   float64 `json:"score"`
	HasData bool    `json:"has_data"`
}

// GroupedRecord is one element of vstup_2024_grouped.json.
//
// The JSON form is flat: specialty, financing, sex, score, count followed by
// one numeric field per known subject in catalog order. When IncludeHasData is
// set, every subject field is followed by a "<key>_has_data" boolean.
type GroupedRecord struct {
	Specialty string
	Financing string
	Sex       string
	Score     float64
	Count     int
	Subjects  []SubjectScore

	IncludeHasData bool
}

// Key returns the grouping key of the record
func (r GroupedRecord) Key() GroupKey {
	return GroupKey{Specialty: r.Specialty, Financing: r.Financing, Sex: r.Sex}
}

// Subject returns the subject field with the given output key
func (r GroupedRecord) Subject(key string) (SubjectScore, bool) {
	for _, s := range r.Subjects {
		if s.Key == key {
			return s, true
		}
	}
	return SubjectScore{}, false
}

// MarshalJSON implements json.Marshaler with a stable field order
func (r GroupedRecord) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, any]()
	om.Set("specialty", r.Specialty)
	om.Set("financing", r.Financing)
	om.Set("sex", r.Sex)
	om.Set("score", decimal(r.Score))
	om.Set("count", r.Count)
	for _, s := range r.Subjects {
		om.Set(s.Key, decimal(s.Score))
		if r.IncludeHasData {
			om.Set(s.Key+"_has_data", s.HasData)
		}
	}
	return marshalOrdered(om)
}

// SubjectRecord is one element of vstup_2024_subjects.json. Subject is the
// keyword as configured, not the output key.
type SubjectRecord struct {
	Subject   string  `json:"subject"`
	Specialty string  `json:"specialty"`
	Financing string  `json:"financing"`
	Sex       string  `json:"sex"`
	Score     float64 `json:"score"`
	Count     int     `json:"count"`
}

// MarshalJSON keeps the score in decimal form
func (r SubjectRecord) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, any]()
	om.Set("subject", r.Subject)
	om.Set("specialty", r.Specialty)
	om.Set("financing", r.Financing)
	om.Set("sex", r.Sex)
	om.Set("score", decimal(r.Score))
	om.Set("count", r.Count)
	return marshalOrdered(om)
}

// Key returns the grouping key of the record
func (r SubjectRecord) Key() GroupKey {
	return GroupKey{Specialty: r.Specialty, Financing: r.Financing, Sex: r.Sex}
}

// AdmissionReport is the outcome of one processing run. SubjectsDetected is
// true when at least one subject was matched to a column pair; only then is
// the subjects document published, even if Subjects ends up empty.
type AdmissionReport struct {
	Grouped          []GroupedRecord
	Subjects         []SubjectRecord
	SubjectsDetected bool
}

// TotalCount sums the applicant counts over all grouped records
func (r *AdmissionReport) TotalCount() int {
	total := 0
	for _, g := range r.Grouped {
		total += g.Count
	}
	return total
}

// marshalOrdered encodes om as a JSON object in insertion order. Strings
// are not HTML-escaped, so the documents carry specialty names verbatim.
func marshalOrdered(om *orderedmap.OrderedMap[string, any]) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	// Encode terminates each value with a newline
	encode := func(v any) error {
		if err := enc.Encode(v); err != nil {
			return err
		}
		buf.Truncate(buf.Len() - 1)
		return nil
	}

	buf.WriteByte('{')
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		if err := encode(pair.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encode(pair.Value); err != nil {
			return nil, fmt.Errorf("field %s: %w", pair.Key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decimal is a float that always encodes with a fractional part (175.0,
// not 175) so consumers see a consistent numeric type
type decimal float64

func (d decimal) MarshalJSON() ([]byte, error) {
	f := float64(d)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("unsupported score value %v", f)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return []byte(s), nil
}

package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupedRecord_MarshalJSON(t *testing.T) {
	rec := GroupedRecord{
		Specialty: "Комп'ютерні науки",
		Financing: "Бюджет",
		Sex:       "Ч",
		Score:     187.75,
		Count:     2,
		Subjects: []SubjectScore{
			{Key: "biology"},
			{Key: "physics", Score: 175, HasData: true},
		},
	}

	t.Run("flat fields in order", func(t *testing.T) {
		data, err := json.Marshal(rec)
		require.NoError(t, err)
		assert.Equal(t,
			`{"specialty":"Комп'ютерні науки","financing":"Бюджет","sex":"Ч","score":187.75,"count":2,"biology":0.0,"physics":175.0}`,
			string(data))
	})

	t.Run("has_data fields", func(t *testing.T) {
		withFlags := rec
		withFlags.IncludeHasData = true

		data, err := json.Marshal(withFlags)
		require.NoError(t, err)
		assert.Equal(t,
			`{"specialty":"Комп'ютерні науки","financing":"Бюджет","sex":"Ч","score":187.75,"count":2,"biology":0.0,"biology_has_data":false,"physics":175.0,"physics_has_data":true}`,
			string(data))
	})

	t.Run("non-finite score", func(t *testing.T) {
		bad := rec
		bad.Score = math.NaN()
		_, err := json.Marshal(bad)
		assert.Error(t, err)
	})
}

func TestMarshalJSON_NoHTMLEscaping(t *testing.T) {
	rec := SubjectRecord{Subject: "фізика", Specialty: "A&B <C>", Financing: "budget", Sex: "M", Score: 1, Count: 1}

	data, err := rec.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"specialty":"A&B <C>"`)
}

func TestSubjectRecord_MarshalJSON(t *testing.T) {
	rec := SubjectRecord{Subject: "фізика", Specialty: "CS", Financing: "budget", Sex: "M", Score: 175, Count: 2}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"subject":"фізика","specialty":"CS","financing":"budget","sex":"M","score":175.0,"count":2}`, string(data))
	assert.Equal(t, GroupKey{Specialty: "CS", Financing: "budget", Sex: "M"}, rec.Key())
}

func TestDecimal_MarshalJSON(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{in: 0, want: "0.0"},
		{in: 175, want: "175.0"},
		{in: 187.75, want: "187.75"},
		{in: 0.333, want: "0.333"},
		{in: -2, want: "-2.0"},
		{in: 1e21, want: "1000000000000000000000.0"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			data, err := decimal(tt.in).MarshalJSON()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}

	_, err := decimal(math.Inf(1)).MarshalJSON()
	assert.Error(t, err)
}

func TestGroupKey(t *testing.T) {
	a := GroupKey{Specialty: "CS", Financing: "budget", Sex: "F"}
	b := GroupKey{Specialty: "CS", Financing: "budget", Sex: "M"}
	c := GroupKey{Specialty: "CS", Financing: "contract", Sex: "F"}
	d := GroupKey{Specialty: "Право", Financing: "budget", Sex: "F"}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.True(t, c.Less(d))
	assert.False(t, a.Less(a))
	assert.False(t, d.Less(a))
	assert.Equal(t, "CS / budget / F", a.String())
}

func TestAdmissionReport_TotalCount(t *testing.T) {
	report := &AdmissionReport{Grouped: []GroupedRecord{{Count: 2}, {Count: 3}}}
	assert.Equal(t, 5, report.TotalCount())
	assert.Equal(t, 0, (&AdmissionReport{}).TotalCount())
}

package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vstupcli/internal/shared/testutil"
)

func TestResolver_Resolve(t *testing.T) {
	sheet := newSheet(testutil.AdmissionHeaders(),
		[]string{"A", "CS", "budget", "M", "180", "Фізика", "170"},
		[]string{"B", "CS", "budget", "M", "181", "ФІЗИКА (поглиблена)", "171"},
		[]string{"C", "CS", "budget", "M", "182", "Математика", "172"},
		[]string{"D", "CS", "budget", "M", "183", "", "173"},
		[]string{"E", "CS", "budget", "M", "184", "фізика, математика", "174"},
	)
	roles := classify(t, sheet)
	records, _ := Sanitize(sheet.Rows, roles, nil)
	resolver := NewResolver()

	physics, ok := roles.Binding("physics")
	require.True(t, ok)
	lines := func(rs []Record) []int {
		var out []int
		for _, r := range rs {
			out = append(out, r.Line)
		}
		return out
	}

	assert.Equal(t, []int{2, 3, 6}, lines(resolver.Resolve(records, roles, physics)))

	math, ok := roles.Binding("mathematics")
	require.True(t, ok)
	assert.Equal(t, []int{4, 6}, lines(resolver.Resolve(records, roles, math)))
}

func TestResolver_NoMatch(t *testing.T) {
	sheet := newSheet(testutil.AdmissionHeaders(),
		[]string{"A", "CS", "budget", "M", "180", "Фізика", "170"},
	)
	roles := classify(t, sheet)
	records, _ := Sanitize(sheet.Rows, roles, nil)

	// a binding for a subject present in the catalog but not in this slice
	b := SubjectBinding{Keyword: "хімія", Key: "chemistry", Pair: 0}
	assert.Empty(t, NewResolver().Resolve(records, roles, b))

	blank := SubjectBinding{Keyword: "  ", Key: "blank", Pair: 0}
	assert.Empty(t, NewResolver().Resolve(records, roles, blank))
}

package dataprocessing

import (
	"math"
	"sort"

	"vstupcli/pkg/contracts/domain"
)

// GroupStat is the mean and count of one group. Count is always at least 1.
type GroupStat struct {
	Mean  float64
	Count int
}

// Aggregation maps grouping keys to statistics. Keys iterate in sorted order.
type Aggregation struct {
	stats map[domain.GroupKey]GroupStat
	keys  []domain.GroupKey
}

// ValueFunc extracts the value a record contributes, if any
type ValueFunc func(Record) (float64, bool)

// CompositeValue extracts the composite score
func CompositeValue(r Record) (float64, bool) {
	return r.Composite, true
}

// SubjectValue extracts the subject score in column col
func SubjectValue(col int) ValueFunc {
	return func(r Record) (float64, bool) {
		return r.Score(col)
	}
}

// Aggregate groups records by key and averages the values value yields.
// Records without a value do not count, so a group with no contributing
// record is absent rather than NaN.
func Aggregate(records []Record, value ValueFunc) *Aggregation {
	type acc struct {
		sum   float64
		count int
	}
	accs := make(map[domain.GroupKey]*acc)
	for _, r := range records {
		v, ok := value(r)
		if !ok {
			continue
		}
		a, exists := accs[r.Key]
		if !exists {
			a = &acc{}
			accs[r.Key] = a
		}
		a.sum += v
		a.count++
	}

	agg := &Aggregation{
		stats: make(map[domain.GroupKey]GroupStat, len(accs)),
		keys:  make([]domain.GroupKey, 0, len(accs)),
	}
	for k, a := range accs {
		agg.stats[k] = GroupStat{Mean: RoundScore(a.sum / float64(a.count)), Count: a.count}
		agg.keys = append(agg.keys, k)
	}
	sort.Slice(agg.keys, func(i, j int) bool { return agg.keys[i].Less(agg.keys[j]) })
	return agg
}

// Get returns the statistic for key
func (a *Aggregation) Get(key domain.GroupKey) (GroupStat, bool) {
	if a == nil {
		return GroupStat{}, false
	}
	s, ok := a.stats[key]
	return s, ok
}

// Keys returns the group keys in sorted order
func (a *Aggregation) Keys() []domain.GroupKey {
	if a == nil {
		return nil
	}
	return a.keys
}

// Len returns the number of groups
func (a *Aggregation) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// TotalCount sums the counts of all groups
func (a *Aggregation) TotalCount() int {
	total := 0
	for _, k := range a.Keys() {
		total += a.stats[k].Count
	}
	return total
}

// RoundScore rounds to 3 decimals, halves to even
func RoundScore(x float64) float64 {
	return math.RoundToEven(x*1000) / 1000
}

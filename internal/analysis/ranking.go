package analysis

import (
	"sort"

	"github.com/schoolhealth/schoolhealth/internal/school"
)

// Default list lengths for the ranked subsets.
const (
	DefaultPriorityCount   = 5
	DefaultSuccessfulCount = 3
)

// PrioritySchools returns up to n schools with the highest obesity rates,
// highest first. Schools with equal rates keep their input order.
func PrioritySchools(schools []school.School, n int) []school.School {
	return topN(schools, n, func(a, b school.School) bool {
		return a.ObesityRate > b.ObesityRate
	})
}

// SuccessfulSchools returns up to n schools with the lowest obesity rates,
// lowest first. Schools with equal rates keep their input order.
func SuccessfulSchools(schools []school.School, n int) []school.School {
	return topN(schools, n, func(a, b school.School) bool {
		return a.ObesityRate < b.ObesityRate
	})
}

// topN sorts a copy of schools with less and truncates it to n.
func topN(schools []school.School, n int, less func(a, b school.School) bool) []school.School {
	if n <= 0 {
		return []school.School{}
	}
	sorted := make([]school.School, len(schools))
	copy(sorted, schools)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

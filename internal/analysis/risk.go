package analysis

import "github.com/schoolhealth/schoolhealth/internal/school"

// RiskPartition maps every risk band to the schools in it. All four bands
// are always present; a band with no schools holds an empty slice.
type RiskPartition map[school.Risk][]school.School

// CategorizeByRisk partitions schools by RiskCategory, preserving input
// order within each band.
func CategorizeByRisk(schools []school.School) RiskPartition {
	p := make(RiskPartition, len(school.Risks))
	for _, r := range school.Risks {
		p[r] = []school.School{}
	}
	for _, s := range schools {
		r := s.RiskCategory()
		p[r] = append(p[r], s)
	}
	return p
}

// Count returns the number of schools in band r.
func (p RiskPartition) Count(r school.Risk) int {
	return len(p[r])
}

// Total returns the number of schools across all bands.
func (p RiskPartition) Total() int {
	var n int
	for _, list := range p {
		n += len(list)
	}
	return n
}

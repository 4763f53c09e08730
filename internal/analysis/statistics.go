package analysis

import (
	"gonum.org/v1/gonum/floats"

	"github.com/schoolhealth/schoolhealth/internal/school"
)

// Statistics is the county-wide summary of a school collection.
type Statistics struct {
	TotalSchools            int     `json:"total_schools"`
	TotalStudents           int     `json:"total_students"`
	AvgObesity              float64 `json:"avg_obesity"`
	AvgEconomicDisadvantage float64 `json:"avg_economic_disadvantage"`
	MinObesity              float64 `json:"min_obesity"`
	MaxObesity              float64 `json:"max_obesity"`

	// AboveAvgCount is the number of schools whose obesity rate is strictly
	// greater than AvgObesity.
	AboveAvgCount   int     `json:"above_avg_count"`
	AboveAvgPercent float64 `json:"above_avg_percent"`
}

// CountyStatistics summarises schools. It returns false when schools is
// empty; the zero Statistics must not be used in that case.
func CountyStatistics(schools []school.School) (Statistics, bool) {
	if len(schools) == 0 {
		return Statistics{}, false
	}

	obesity := make([]float64, len(schools))
	disadvantage := make([]float64, len(schools))
	var students int
	for i, s := range schools {
		obesity[i] = s.ObesityRate
		disadvantage[i] = s.EconomicDisadvantageRate
		students += s.StudentsTested
	}

	n := float64(len(schools))
	st := Statistics{
		TotalSchools:            len(schools),
		TotalStudents:           students,
		AvgObesity:              floats.Sum(obesity) / n,
		AvgEconomicDisadvantage: floats.Sum(disadvantage) / n,
		MinObesity:              floats.Min(obesity),
		MaxObesity:              floats.Max(obesity),
	}

	for _, rate := range obesity {
		if rate > st.AvgObesity {
			st.AboveAvgCount++
		}
	}
	st.AboveAvgPercent = float64(st.AboveAvgCount) / n * 100
	return st, true
}

package analysis

import "github.com/schoolhealth/schoolhealth/internal/school"

// Options controls the lengths of the ranked lists in a Result.
type Options struct {
	PriorityCount   int
	SuccessfulCount int
}

// DefaultOptions returns the list lengths used when none are configured.
func DefaultOptions() Options {
	return Options{
		PriorityCount:   DefaultPriorityCount,
		SuccessfulCount: DefaultSuccessfulCount,
	}
}

// Result bundles every aggregate derived from one school collection.
// Reports, the menu and the HTTP API all render from a Result so they show
// the same values.
type Result struct {
	Schools         []school.School
	Statistics      Statistics
	HasStatistics   bool
	Risk            RiskPartition
	Disparity       Disparity
	Priority        []school.School
	Successful      []school.School
	Recommendations Recommendations
}

// Analyze runs the full pipeline over schools. Recommendations are only
// generated when there is at least one school.
func Analyze(schools []school.School, opts Options) Result {
	stats, ok := CountyStatistics(schools)
	res := Result{
		Schools:       schools,
		Statistics:    stats,
		HasStatistics: ok,
		Risk:          CategorizeByRisk(schools),
		Disparity:     AnalyzeEconomicDisparity(schools),
		Priority:      PrioritySchools(schools, opts.PriorityCount),
		Successful:    SuccessfulSchools(schools, opts.SuccessfulCount),
	}
	if ok {
		res.Recommendations = GenerateRecommendations(stats, res.Risk, res.Disparity, res.Priority)
	}
	return res
}

// FindSchool returns the first school whose name contains query,
// case-insensitively.
func (r Result) FindSchool(query string) (school.School, bool) {
	return FindSchool(r.Schools, query)
}

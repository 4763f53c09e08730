package api

import (
	"github.com/schoolhealth/schoolhealth/internal/analysis"
	"github.com/schoolhealth/schoolhealth/internal/school"
)

// toSchool maps a school to its JSON representation, comparing it with the
// county mean of res.
func toSchool(res analysis.Result, s school.School) SchoolResponse {
	return SchoolResponse{
		Name:                      s.Name,
		ObesityRate:               s.ObesityRate,
		EconomicDisadvantageRate:  s.EconomicDisadvantageRate,
		StudentsTested:            s.StudentsTested,
		Year:                      s.Year,
		RiskCategory:              string(s.RiskCategory()),
		EstimatedObeseStudents:    s.ObeseStudents(),
		EconomicallyDisadvantaged: s.IsEconomicallyDisadvantaged(school.DefaultDisadvantageThreshold),
		Comparison:                s.CompareToCountyAverage(res.Statistics.AvgObesity),
	}
}

// toSchools never returns nil so empty lists encode as [].
func toSchools(res analysis.Result, schools []school.School) []SchoolResponse {
	out := make([]SchoolResponse, 0, len(schools))
	for _, s := range schools {
		out = append(out, toSchool(res, s))
	}
	return out
}

func toRiskBands(res analysis.Result) []RiskBand {
	out := make([]RiskBand, 0, len(school.Risks))
	for _, r := range school.Risks {
		members := res.Risk[r]
		out = append(out, RiskBand{
			Category: string(r),
			Range:    r.Range(),
			Count:    len(members),
			Schools:  toSchools(res, members),
		})
	}
	return out
}

func toDisparity(d analysis.Disparity) DisparityResponse {
	resp := DisparityResponse{
		Disparity: d,
		Strength:  string(d.Strength()),
	}
	if d.High.AvgObesity > d.Low.AvgObesity {
		resp.Difference = d.High.AvgObesity - d.Low.AvgObesity
	}
	return resp
}

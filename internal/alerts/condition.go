package alerts

import (
	"fmt"

	"github.com/Knetic/govaluate"

	"github.com/schoolhealth/schoolhealth/internal/analysis"
	"github.com/schoolhealth/schoolhealth/internal/school"
)

// Parameters exposes the aggregate figures of res to rule expressions.
// Every value is a float64 so rules can compare any of them with numeric
// literals.
//
//	avg_obesity > 35
//	critical_count > 0 && disparity_factor > 1.3
//	above_avg_pct >= 50
func Parameters(res analysis.Result) map[string]interface{} {
	st := res.Statistics
	return map[string]interface{}{
		"avg_obesity":               st.AvgObesity,
		"avg_economic_disadvantage": st.AvgEconomicDisadvantage,
		"min_obesity":               st.MinObesity,
		"max_obesity":               st.MaxObesity,
		"total_schools":             float64(st.TotalSchools),
		"total_students":            float64(st.TotalStudents),
		"above_avg_pct":             st.AboveAvgPercent,
		"low_count":                 float64(res.Risk.Count(school.RiskLow)),
		"moderate_count":            float64(res.Risk.Count(school.RiskModerate)),
		"high_count":                float64(res.Risk.Count(school.RiskHigh)),
		"critical_count":            float64(res.Risk.Count(school.RiskCritical)),
		"disparity_factor":          res.Disparity.Factor,
	}
}

// evalCondition evaluates expr against params. A result that is not a
// boolean is an error.
func evalCondition(expr *govaluate.EvaluableExpression, params map[string]interface{}) (bool, error) {
	out, err := expr.Evaluate(params)
	if err != nil {
		return false, err
	}
	fires, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q evaluated to %v, not a boolean", expr.String(), out)
	}
	return fires, nil
}

// referenced returns the values of the parameters expr mentions.
func referenced(expr *govaluate.EvaluableExpression, params map[string]interface{}) map[string]float64 {
	out := make(map[string]float64)
	for _, name := range expr.Vars() {
		if v, ok := params[name].(float64); ok {
			out[name] = v
		}
	}
	return out
}

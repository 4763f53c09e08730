package analysis

import "github.com/schoolhealth/schoolhealth/internal/school"

// Group is one sub-population of the disparity analysis.
type Group struct {
	Schools    []school.School `json:"-"`
	Count      int             `json:"count"`
	AvgObesity float64         `json:"avg_obesity"`
}

// Disparity compares obesity between high- and low-disadvantage schools.
type Disparity struct {
	High Group `json:"high_disadvantage"`
	Low  Group `json:"low_disadvantage"`

	// Factor is High.AvgObesity / Low.AvgObesity, or 0 when the low-group
	// mean is 0.
	Factor float64 `json:"disparity_factor"`
}

// AnalyzeEconomicDisparity splits schools at
// school.DefaultDisadvantageThreshold and compares the groups' mean
// obesity rates. An empty group has a mean of 0.
func AnalyzeEconomicDisparity(schools []school.School) Disparity {
	high := []school.School{}
	low := []school.School{}
	for _, s := range schools {
		if s.IsEconomicallyDisadvantaged(school.DefaultDisadvantageThreshold) {
			high = append(high, s)
		} else {
			low = append(low, s)
		}
	}

	d := Disparity{
		High: newGroup(high),
		Low:  newGroup(low),
	}
	if d.Low.AvgObesity > 0 {
		d.Factor = d.High.AvgObesity / d.Low.AvgObesity
	}
	return d
}

func newGroup(schools []school.School) Group {
	g := Group{Schools: schools, Count: len(schools)}
	if len(schools) == 0 {
		return g
	}
	var sum float64
	for _, s := range schools {
		sum += s.ObesityRate
	}
	g.AvgObesity = sum / float64(len(schools))
	return g
}

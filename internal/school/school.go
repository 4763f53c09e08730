package school

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultDisadvantageThreshold is the economic-disadvantage rate (percent)
// above which a school counts as economically disadvantaged.
const DefaultDisadvantageThreshold = 50.0

// Risk is an obesity risk band.
type Risk string

// Risk bands in ascending order of severity.
const (
	RiskLow      Risk = "Low"
	RiskModerate Risk = "Moderate"
	RiskHigh     Risk = "High"
	RiskCritical Risk = "Critical"
)

// Risks lists every band from least to most severe.
var Risks = []Risk{RiskLow, RiskModerate, RiskHigh, RiskCritical}

// Range describes the obesity rates covered by r, e.g. "30-35%".
func (r Risk) Range() string {
	switch r {
	case RiskLow:
		return "<30%"
	case RiskModerate:
		return "30-35%"
	case RiskHigh:
		return "35-40%"
	case RiskCritical:
		return ">40%"
	default:
		return ""
	}
}

// Band boundaries for RiskCategory.
const (
	ThresholdModerate = 30.0
	ThresholdHigh     = 35.0
	ThresholdCritical = 40.0
)

// Narrative thresholds for CompareToCountyAverage, in percentage points.
const (
	comparisonNotable     = 2.0
	comparisonSignificant = 5.0
)

// School holds one school's metrics for a single reporting year.
type School struct {
	Name string

	// ObesityRate is the percentage of tested students classified as
	// obese or overweight.
	ObesityRate float64

	// EconomicDisadvantageRate is the percentage of students qualifying as
	// economically disadvantaged.
	EconomicDisadvantageRate float64

	StudentsTested int
	Year           int
}

// ConversionError reports a numeric field that could not be parsed.
type ConversionError struct {
	Field string
	Value string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("school: invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// New builds a School from raw text fields. Surrounding whitespace is ignored.
func New(name, obesityRate, disadvantageRate, studentsTested, year string) (School, error) {
	s := School{Name: strings.TrimSpace(name)}

	var err error
	if s.ObesityRate, err = parseFloat("obesity_rate", obesityRate); err != nil {
		return School{}, err
	}
	if s.EconomicDisadvantageRate, err = parseFloat("economic_disadvantage_rate", disadvantageRate); err != nil {
		return School{}, err
	}
	if s.StudentsTested, err = parseInt("students_tested", studentsTested); err != nil {
		return School{}, err
	}
	if s.Year, err = parseInt("year", year); err != nil {
		return School{}, err
	}
	return s, nil
}

// ObeseStudents estimates the number of obese or overweight students,
// rounding half to even.
func (s School) ObeseStudents() int {
	return int(math.RoundToEven(s.ObesityRate / 100 * float64(s.StudentsTested)))
}

// RiskCategory returns the school's risk band.
func (s School) RiskCategory() Risk {
	switch {
	case s.ObesityRate < ThresholdModerate:
		return RiskLow
	case s.ObesityRate < ThresholdHigh:
		return RiskModerate
	case s.ObesityRate <= ThresholdCritical:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// IsEconomicallyDisadvantaged reports whether the disadvantage rate is
// strictly above threshold.
func (s School) IsEconomicallyDisadvantaged(threshold float64) bool {
	return s.EconomicDisadvantageRate > threshold
}

// CompareToCountyAverage describes the school's obesity rate relative to
// countyAvg, e.g. "40.0% (above county average of 35.0%)".
func (s School) CompareToCountyAverage(countyAvg float64) string {
	diff := s.ObesityRate - countyAvg

	var status string
	switch {
	case diff > comparisonSignificant:
		status = "significantly above"
	case diff > comparisonNotable:
		status = "above"
	case diff < -comparisonSignificant:
		status = "significantly below"
	case diff < -comparisonNotable:
		status = "below"
	default:
		status = "about the same as"
	}
	return fmt.Sprintf("%s%% (%s county average of %s%%)",
		FormatRate(s.ObesityRate), status, FormatRate(countyAvg))
}

func (s School) String() string {
	return fmt.Sprintf("%s: %s%% obesity (%s), %s%% economic disadvantage, %d students affected",
		s.Name, FormatRate(s.ObesityRate), s.RiskCategory(),
		FormatRate(s.EconomicDisadvantageRate), s.ObeseStudents())
}

// FormatRate renders v as the shortest decimal that round-trips, always with
// a fractional part: 40 -> "40.0", 35.5 -> "35.5". Magnitudes below 1e-4 or
// from 1e16 up switch to exponent form ("1e-05", "1.5e+16"), and the
// non-finite values print as "inf", "-inf" and "nan".
func FormatRate(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if v != 0 {
		sci := strconv.FormatFloat(v, 'e', -1, 64)
		exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
		if exp < -4 || exp >= 16 {
			return sci
		}
	}
	out := strconv.FormatFloat(v, 'f', -1, 64)
	if strings.Contains(out, ".") {
		return out
	}
	return out + ".0"
}

func parseFloat(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &ConversionError{Field: field, Value: raw, Err: err}
	}
	return v, nil
}

func parseInt(field, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ConversionError{Field: field, Value: raw, Err: err}
	}
	return v, nil
}

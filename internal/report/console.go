package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/schoolhealth/schoolhealth/internal/analysis"
	"github.com/schoolhealth/schoolhealth/internal/school"
)

const (
	// maxListedPerBand is the largest risk band whose members are listed
	// by name in the summary.
	maxListedPerBand = 5

	// summaryListCount is the length of the priority and successful lists
	// printed in the console summary.
	summaryListCount = 3

	// notableDisadvantage marks a successful school worth calling out.
	notableDisadvantage = 40.0

	rule = "============================================================"
)

// Console writes human-readable views of an analysis.Result to w.
type Console struct {
	w       io.Writer
	heading *color.Color
	good    *color.Color
	warn    *color.Color
	bad     *color.Color
}

// NewConsole returns a Console writing to w. When colored is false no ANSI
// escapes are emitted.
func NewConsole(w io.Writer, colored bool) *Console {
	c := &Console{
		w:       w,
		heading: color.New(color.FgCyan, color.Bold),
		good:    color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		bad:     color.New(color.FgRed, color.Bold),
	}
	for _, col := range []*color.Color{c.heading, c.good, c.warn, c.bad} {
		if colored {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

// Writer returns the underlying writer.
func (c *Console) Writer() io.Writer { return c.w }

// Heading prints a coloured section heading.
func (c *Console) Heading(title string) {
	c.heading.Fprintln(c.w, title) //nolint:errcheck
}

// Error prints a highlighted error line.
func (c *Console) Error(format string, args ...any) {
	c.bad.Fprintf(c.w, format+"\n", args...) //nolint:errcheck
}

// Notice prints a highlighted informational line.
func (c *Console) Notice(format string, args ...any) {
	c.good.Fprintf(c.w, format+"\n", args...) //nolint:errcheck
}

// Summary prints the full county analysis: statistics, risk breakdown,
// disparity, priority and successful schools, and recommendations.
func (c *Console) Summary(res analysis.Result) {
	c.Heading("SLO COUNTY CHILDHOOD OBESITY ANALYSIS")
	fmt.Fprintln(c.w)

	c.CountyStatistics(res)
	c.RiskCategories(res)

	d := res.Disparity
	c.Heading("ECONOMIC DISPARITY ANALYSIS:")
	fmt.Fprintf(c.w, "  High Economic Disadvantage (>50%%):\n")
	fmt.Fprintf(c.w, "    - Average Obesity Rate: %.1f%%\n", d.High.AvgObesity)
	fmt.Fprintf(c.w, "    - Schools: %d\n", d.High.Count)
	fmt.Fprintf(c.w, "  Low Economic Disadvantage (≤50%%):\n")
	fmt.Fprintf(c.w, "    - Average Obesity Rate: %.1f%%\n", d.Low.AvgObesity)
	fmt.Fprintf(c.w, "    - Schools: %d\n", d.Low.Count)
	fmt.Fprintf(c.w, "  Disparity Factor: %.2fx higher obesity in disadvantaged schools\n", d.Factor)
	fmt.Fprintln(c.w)

	c.Heading("TOP PRIORITY SCHOOLS FOR INTERVENTION:")
	table := c.newTable([]string{"#", "School", "Obesity", "Risk", "Econ. Disadv.", "Students Affected", "Comparison"})
	for i, s := range firstN(res.Priority, summaryListCount) {
		table.Append([]string{
			strconv.Itoa(i + 1),
			s.Name,
			school.FormatRate(s.ObesityRate) + "%",
			string(s.RiskCategory()),
			school.FormatRate(s.EconomicDisadvantageRate) + "%",
			"~" + strconv.Itoa(s.ObeseStudents()),
			s.CompareToCountyAverage(res.Statistics.AvgObesity),
		})
	}
	table.Render()
	fmt.Fprintln(c.w)

	c.Heading("SCHOOLS WITH SUCCESSFUL OUTCOMES:")
	for i, s := range firstN(res.Successful, summaryListCount) {
		fmt.Fprintf(c.w, "%d. %s (%s%% obesity, %s)\n",
			i+1, s.Name, school.FormatRate(s.ObesityRate), s.RiskCategory())
		if s.EconomicDisadvantageRate > notableDisadvantage {
			c.good.Fprintf(c.w, "   - Notable: Achieved low obesity despite %s%% economic disadvantage\n", //nolint:errcheck
				school.FormatRate(s.EconomicDisadvantageRate))
		}
	}
	fmt.Fprintln(c.w)

	c.Recommendations(res)
}

// CountyStatistics prints the county-wide statistics block.
func (c *Console) CountyStatistics(res analysis.Result) {
	st := res.Statistics
	c.Heading("COUNTY-WIDE STATISTICS:")
	fmt.Fprintf(c.w, "  Total Schools Analyzed: %d\n", st.TotalSchools)
	fmt.Fprintf(c.w, "  Total Students Tested: %d\n", st.TotalStudents)
	fmt.Fprintf(c.w, "  Average Obesity Rate: %.1f%%\n", st.AvgObesity)
	fmt.Fprintf(c.w, "  Range: %.1f%% - %.1f%%\n", st.MinObesity, st.MaxObesity)
	fmt.Fprintf(c.w, "  Schools Above County Average: %d (%.1f%%)\n", st.AboveAvgCount, st.AboveAvgPercent)
	fmt.Fprintf(c.w, "  Average Economic Disadvantage: %.1f%%\n", st.AvgEconomicDisadvantage)
	fmt.Fprintln(c.w)
}

// RiskCategories prints the number of schools per risk band, listing the
// members of small bands.
func (c *Console) RiskCategories(res analysis.Result) {
	c.Heading("RISK CATEGORY BREAKDOWN:")
	for _, r := range school.Risks {
		list := res.Risk[r]
		c.riskColor(r).Fprintf(c.w, "  %s: %d schools\n", r, len(list)) //nolint:errcheck
		if len(list) > 0 && len(list) <= maxListedPerBand {
			for _, s := range list {
				fmt.Fprintf(c.w, "    - %s (%s%%)\n", s.Name, school.FormatRate(s.ObesityRate))
			}
		}
	}
	fmt.Fprintln(c.w)
}

// Recommendations prints every recommendation with a check mark.
func (c *Console) Recommendations(res analysis.Result) {
	c.Heading("RECOMMENDATIONS:")
	for _, rec := range res.Recommendations {
		c.good.Fprint(c.w, "✓ ") //nolint:errcheck
		fmt.Fprintln(c.w, rec.Text)
	}
	fmt.Fprintln(c.w)
}

// AllSchools prints one row per school in input order.
func (c *Console) AllSchools(res analysis.Result) {
	c.Heading("ALL SCHOOLS SUMMARY:")
	table := c.newTable([]string{"School", "Obesity", "Risk", "Econ. Disadv.", "Students Tested", "Year"})
	for _, s := range res.Schools {
		table.Append([]string{
			s.Name,
			school.FormatRate(s.ObesityRate) + "%",
			string(s.RiskCategory()),
			school.FormatRate(s.EconomicDisadvantageRate) + "%",
			strconv.Itoa(s.StudentsTested),
			strconv.Itoa(s.Year),
		})
	}
	table.Render()
}

// SchoolReport prints the detailed report for the first school matching
// query. When nothing matches it lists the available schools and returns
// false.
func (c *Console) SchoolReport(res analysis.Result, query string) bool {
	s, ok := res.FindSchool(query)
	if !ok {
		c.Error("School '%s' not found in database.", strings.TrimSpace(query))
		fmt.Fprintln(c.w, "Available schools:")
		for _, s := range res.Schools {
			fmt.Fprintf(c.w, "  - %s\n", s.Name)
		}
		return false
	}

	disadvantaged := s.IsEconomicallyDisadvantaged(school.DefaultDisadvantageThreshold)
	risk := s.RiskCategory()

	fmt.Fprintln(c.w)
	c.Heading("DETAILED REPORT FOR: " + s.Name)
	fmt.Fprintln(c.w, strings.Repeat("-", 40))
	c.riskColor(risk).Fprintf(c.w, "Obesity Rate: %s%% (%s risk)\n", school.FormatRate(s.ObesityRate), risk) //nolint:errcheck
	fmt.Fprintf(c.w, "Economic Disadvantage Rate: %s%%\n", school.FormatRate(s.EconomicDisadvantageRate))
	fmt.Fprintf(c.w, "Students Tested: %d\n", s.StudentsTested)
	fmt.Fprintf(c.w, "Estimated Obese Students: %d\n", s.ObeseStudents())
	fmt.Fprintf(c.w, "Year: %d\n", s.Year)

	fmt.Fprintln(c.w)
	c.Heading("COMPARISON TO COUNTY AVERAGE:")
	fmt.Fprintf(c.w, "  %s\n", s.CompareToCountyAverage(res.Statistics.AvgObesity))
	status := "Low"
	if disadvantaged {
		status = "High"
	}
	fmt.Fprintf(c.w, "Economic Status: %s Disadvantage\n", status)

	fmt.Fprintln(c.w)
	c.Heading("ECONOMIC DISPARITY ANALYSIS:")
	group, label := res.Disparity.Low, "low-disadvantage"
	if disadvantaged {
		group, label = res.Disparity.High, "high-disadvantage"
	}
	position := "BELOW"
	if s.ObesityRate > group.AvgObesity {
		position = "ABOVE"
	}
	fmt.Fprintf(c.w, "  • This school's obesity rate is %s average for %s schools (%.1f%%)\n",
		position, label, group.AvgObesity)

	fmt.Fprintln(c.w)
	c.Heading("SCHOOL-SPECIFIC RECOMMENDATIONS:")
	for _, line := range SchoolRecommendations(s, res.Statistics.AvgObesity) {
		fmt.Fprintf(c.w, "  • %s\n", line)
	}
	return true
}

// SchoolRecommendations returns the action items for one school.
func SchoolRecommendations(s school.School, countyAvg float64) []string {
	var out []string
	if r := s.RiskCategory(); r == school.RiskHigh || r == school.RiskCritical {
		out = append(out,
			"Priority intervention needed for obesity reduction",
			"Implement targeted nutrition education programs",
			"Increase physical activity opportunities",
		)
	}
	if s.IsEconomicallyDisadvantaged(school.DefaultDisadvantageThreshold) {
		out = append(out,
			"Focus on economic barrier reduction strategies",
			"Provide access to affordable healthy food options",
			"Partner with community organizations for support",
		)
	}
	if s.ObesityRate < countyAvg {
		out = append(out,
			"Share successful strategies with other schools",
			"Continue current effective programs",
		)
	}
	return out
}

// EconomicRelationship prints the disparity findings and conclusions.
func (c *Console) EconomicRelationship(res analysis.Result) {
	d := res.Disparity

	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, rule)
	c.Heading("ECONOMIC DISADVANTAGE & OBESITY RELATIONSHIP")
	fmt.Fprintln(c.w, rule)

	fmt.Fprintln(c.w)
	c.Heading("KEY FINDINGS:")
	fmt.Fprintln(c.w, "• High Economic Disadvantage Schools (>50%):")
	fmt.Fprintf(c.w, "  - Average Obesity Rate: %.1f%%\n", d.High.AvgObesity)
	fmt.Fprintf(c.w, "  - Number of Schools: %d\n", d.High.Count)
	fmt.Fprintln(c.w, "• Low Economic Disadvantage Schools (≤50%):")
	fmt.Fprintf(c.w, "  - Average Obesity Rate: %.1f%%\n", d.Low.AvgObesity)
	fmt.Fprintf(c.w, "  - Number of Schools: %d\n", d.Low.Count)

	fmt.Fprintln(c.w)
	c.Heading("DISPARITY ANALYSIS:")
	fmt.Fprintf(c.w, "• Disparity Factor: %.2fx\n", d.Factor)
	switch d.Strength() {
	case analysis.RelationshipStrong:
		c.bad.Fprintln(c.w, "  - STRONG correlation: Economic disadvantage strongly linked to higher obesity") //nolint:errcheck
	case analysis.RelationshipModerate:
		c.warn.Fprintln(c.w, "  - MODERATE correlation: Clear relationship between poverty and obesity") //nolint:errcheck
	default:
		c.good.Fprintln(c.w, "  - WEAK correlation: Limited relationship observed") //nolint:errcheck
	}

	fmt.Fprintln(c.w)
	c.Heading("CONCLUSIONS:")
	if d.High.AvgObesity > d.Low.AvgObesity {
		fmt.Fprintf(c.w, "• Students in high-poverty schools have %.1f%% higher obesity rates\n",
			d.High.AvgObesity-d.Low.AvgObesity)
		fmt.Fprintln(c.w, "• Economic factors significantly impact childhood obesity")
		fmt.Fprintln(c.w, "• Targeted interventions in disadvantaged schools are crucial")
	} else {
		fmt.Fprintln(c.w, "• Limited economic disparity observed in obesity rates")
		fmt.Fprintln(c.w, "• Other factors may be more significant in this county")
	}
}

func (c *Console) newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(c.w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func (c *Console) riskColor(r school.Risk) *color.Color {
	switch r {
	case school.RiskCritical:
		return c.bad
	case school.RiskHigh, school.RiskModerate:
		return c.warn
	default:
		return c.good
	}
}

func firstN(schools []school.School, n int) []school.School {
	if len(schools) > n {
		return schools[:n]
	}
	return schools
}

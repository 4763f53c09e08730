package report

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/schoolhealth/schoolhealth/internal/analysis"
	"github.com/schoolhealth/schoolhealth/internal/school"
)

// WriteText writes the plain-text analysis report to w. generated is printed
// in the header; the report content is otherwise a pure function of res.
func WriteText(w io.Writer, res analysis.Result, generated time.Time) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) { fmt.Fprintf(bw, format, args...) }
	line := func(ch string, n int) { p("%s\n", strings.Repeat(ch, n)) }

	p("SAN LUIS OBISPO COUNTY CHILDHOOD OBESITY ANALYSIS REPORT\n")
	p("Generated: %s\n", generated.Format("2006-01-02 15:04:05"))
	line("=", 60)
	p("\n")

	st := res.Statistics
	p("COUNTY-WIDE STATISTICS:\n")
	line("-", 25)
	p("Total Schools Analyzed: %d\n", st.TotalSchools)
	p("Total Students Tested: %d\n", st.TotalStudents)
	p("Average Obesity Rate: %.1f%%\n", st.AvgObesity)
	p("Range: %.1f%% - %.1f%%\n", st.MinObesity, st.MaxObesity)
	p("Average Economic Disadvantage: %.1f%%\n\n", st.AvgEconomicDisadvantage)

	p("RISK CATEGORY BREAKDOWN:\n")
	line("-", 25)
	for _, r := range school.Risks {
		p("%s Risk (%s): %d schools\n", r, r.Range(), res.Risk.Count(r))
	}
	p("\n")

	p("HIGH-RISK SCHOOLS REQUIRING INTERVENTION:\n")
	line("-", 40)
	for i, s := range res.Priority {
		p("%d. %s - %s%% (%s)\n", i+1, s.Name, school.FormatRate(s.ObesityRate), s.RiskCategory())
		p("   - Economic Disadvantage: %s%%\n", school.FormatRate(s.EconomicDisadvantageRate))
		p("   - Estimated Obese Students: %d\n", s.ObeseStudents())
		p("   - Students Tested: %d\n\n", s.StudentsTested)
	}

	d := res.Disparity
	p("ECONOMIC DISPARITY FINDINGS:\n")
	line("-", 30)
	p("High Disadvantage Schools (>50%%): %d schools\n", d.High.Count)
	p("Average Obesity (High Disadvantage): %.1f%%\n", d.High.AvgObesity)
	p("Average Obesity (Low Disadvantage): %.1f%%\n", d.Low.AvgObesity)
	p("Disparity Factor: %.2fx\n\n", d.Factor)

	p("RECOMMENDATIONS:\n")
	line("-", 15)
	for _, rec := range res.Recommendations {
		p("%s:\n", analysis.Title(rec.Topic))
		p("  %s\n\n", rec.Text)
	}

	line("=", 60)
	p("END OF REPORT\n")

	return bw.Flush()
}

// WriteTextFile writes the report to path, replacing any existing file.
func WriteTextFile(path string, res analysis.Result, generated time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %q: %w", path, err)
	}
	if err := WriteText(f, res, generated); err != nil {
		f.Close()
		return fmt.Errorf("report: write %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: close %q: %w", path, err)
	}
	slog.Info("report: saved", "path", path)
	return nil
}

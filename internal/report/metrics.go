package report

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/schoolhealth/schoolhealth/internal/analysis"
	"github.com/schoolhealth/schoolhealth/internal/school"
)

const metricPrefix = "schoolhealth_"

// Families converts res into Prometheus gauge families. County-level
// gauges are omitted when res has no statistics.
func Families(res analysis.Result) []*dto.MetricFamily {
	var out []*dto.MetricFamily
	add := func(name, help string, metrics ...*dto.Metric) {
		out = append(out, &dto.MetricFamily{
			Name:   proto.String(metricPrefix + name),
			Help:   proto.String(help),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: metrics,
		})
	}

	if res.HasStatistics {
		st := res.Statistics
		add("schools_total", "Number of schools analysed.", gauge(float64(st.TotalSchools)))
		add("students_tested_total", "Students tested across all schools.", gauge(float64(st.TotalStudents)))
		add("obesity_rate_avg", "Unweighted mean obesity rate (percent).", gauge(st.AvgObesity))
		add("obesity_rate_min", "Lowest school obesity rate (percent).", gauge(st.MinObesity))
		add("obesity_rate_max", "Highest school obesity rate (percent).", gauge(st.MaxObesity))
		add("economic_disadvantage_rate_avg", "Unweighted mean economic disadvantage rate (percent).", gauge(st.AvgEconomicDisadvantage))
		add("schools_above_avg", "Schools whose obesity rate exceeds the county mean.", gauge(float64(st.AboveAvgCount)))
	}

	risk := make([]*dto.Metric, 0, len(school.Risks))
	for _, r := range school.Risks {
		risk = append(risk, gauge(float64(res.Risk.Count(r)), "category", string(r)))
	}
	add("risk_schools", "Schools per obesity risk category.", risk...)

	d := res.Disparity
	add("disparity_factor", "High-disadvantage mean obesity divided by low-disadvantage mean.", gauge(d.Factor))
	add("group_obesity_rate_avg", "Mean obesity rate per economic disadvantage group (percent).",
		gauge(d.High.AvgObesity, "group", "high"),
		gauge(d.Low.AvgObesity, "group", "low"),
	)

	if len(res.Schools) > 0 {
		per := make([]*dto.Metric, 0, len(res.Schools))
		// Names repeat across years and sometimes within one; index is the
		// record's position in the input and keeps every series distinct.
		for i, s := range res.Schools {
			per = append(per, gauge(s.ObesityRate,
				"index", strconv.Itoa(i),
				"school", s.Name,
				"year", strconv.Itoa(s.Year),
				"risk", string(s.RiskCategory()),
			))
		}
		add("school_obesity_rate", "Obesity rate per school (percent).", per...)
	}
	return out
}

// WriteMetrics writes res to w in Prometheus text exposition format.
func WriteMetrics(w io.Writer, res analysis.Result) error {
	for _, mf := range Families(res) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("report: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteMetricsFile writes the metrics exposition to path.
func WriteMetricsFile(path string, res analysis.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %q: %w", path, err)
	}
	if err := WriteMetrics(f, res); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: close %q: %w", path, err)
	}
	slog.Info("report: metrics saved", "path", path)
	return nil
}

// gauge builds one gauge sample; labels are name/value pairs.
func gauge(v float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	return m
}

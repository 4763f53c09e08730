package analysis

import (
	"fmt"
	"strings"

	"github.com/schoolhealth/schoolhealth/internal/school"
)

// Recommendation topics, in the order they are generated.
const (
	TopicCriticalIntervention = "critical_intervention"
	TopicEconomicDisparity    = "economic_disparity"
	TopicBestPractices        = "best_practices"
	TopicCountyWide           = "county_wide"
	TopicResourceAllocation   = "resource_allocation"
)

// Thresholds used by GenerateRecommendations.
const (
	strongDisparityFactor = 1.3
	countyConcerningAvg   = 35.0
	countyModerateAvg     = 30.0

	// resourceAllocationNames is how many priority schools are named.
	resourceAllocationNames = 3
)

// Recommendation is one narrative recommendation keyed by topic.
type Recommendation struct {
	Topic string `json:"topic"`
	Text  string `json:"text"`
}

// Recommendations is an ordered list of recommendations with unique topics.
type Recommendations []Recommendation

// Get returns the text for topic and whether it is present.
func (rs Recommendations) Get(topic string) (string, bool) {
	for _, r := range rs {
		if r.Topic == topic {
			return r.Text, true
		}
	}
	return "", false
}

// Title renders a topic key as a heading: "county_wide" -> "County Wide".
func Title(topic string) string {
	words := strings.Split(topic, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}

// GenerateRecommendations produces narrative recommendations from the
// aggregate results. best_practices and resource_allocation are omitted
// when there are no low-risk or priority schools respectively.
func GenerateRecommendations(stats Statistics, risk RiskPartition, disparity Disparity, priority []school.School) Recommendations {
	var out Recommendations
	add := func(topic, text string) {
		out = append(out, Recommendation{Topic: topic, Text: text})
	}

	if n := risk.Count(school.RiskCritical); n > 0 {
		add(TopicCriticalIntervention, fmt.Sprintf(
			"Immediate intervention needed for %d critical schools (>40%% obesity rate). "+
				"Focus on nutrition education and physical activity programs.", n))
	} else {
		add(TopicCriticalIntervention,
			"No schools in critical range. Maintain monitoring and prevention programs.")
	}

	if disparity.Factor > strongDisparityFactor {
		add(TopicEconomicDisparity, fmt.Sprintf(
			"Strong economic disparity detected (%.1fx higher obesity in "+
				"economically disadvantaged schools). Target resources to schools with "+
				">50%% economic disadvantage.", disparity.Factor))
	} else {
		add(TopicEconomicDisparity,
			"Moderate economic disparity. Continue equity-focused programs.")
	}

	if n := risk.Count(school.RiskLow); n > 0 {
		add(TopicBestPractices, fmt.Sprintf(
			"Study %d low-obesity schools for successful strategies. "+
				"Share best practices county-wide.", n))
	}

	avg := stats.AvgObesity
	switch {
	case avg > countyConcerningAvg:
		add(TopicCountyWide, fmt.Sprintf(
			"County average obesity rate (%.1f%%) is concerning. "+
				"Implement comprehensive county-wide health initiatives.", avg))
	case avg > countyModerateAvg:
		add(TopicCountyWide, fmt.Sprintf(
			"County average obesity rate (%.1f%%) is moderate. "+
				"Focus on prevention and maintaining positive trends.", avg))
	default:
		add(TopicCountyWide, fmt.Sprintf(
			"County average obesity rate (%.1f%%) is good. "+
				"Continue current successful programs.", avg))
	}

	if len(priority) > 0 {
		named := priority
		if len(named) > resourceAllocationNames {
			named = named[:resourceAllocationNames]
		}
		names := make([]string, len(named))
		for i, s := range named {
			names[i] = s.Name
		}
		add(TopicResourceAllocation, fmt.Sprintf(
			"Prioritize resources for: %s. "+
				"These schools have the highest obesity rates and need targeted support.",
			strings.Join(names, ", ")))
	}

	return out
}

package analysis

import (
	"strings"

	"github.com/schoolhealth/schoolhealth/internal/school"
)

// FindSchool returns the first school whose name contains query,
// ignoring case and surrounding whitespace. An empty query matches nothing.
func FindSchool(schools []school.School, query string) (school.School, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return school.School{}, false
	}
	for _, s := range schools {
		if strings.Contains(strings.ToLower(s.Name), q) {
			return s, true
		}
	}
	return school.School{}, false
}

// Relationship describes how strongly economic disadvantage tracks obesity.
type Relationship string

// Relationship strengths by disparity factor.
const (
	RelationshipStrong   Relationship = "STRONG"
	RelationshipModerate Relationship = "MODERATE"
	RelationshipWeak     Relationship = "WEAK"
)

// Strength classifies the disparity factor: >1.5 strong, >1.2 moderate,
// otherwise weak.
func (d Disparity) Strength() Relationship {
	switch {
	case d.Factor > 1.5:
		return RelationshipStrong
	case d.Factor > 1.2:
		return RelationshipModerate
	default:
		return RelationshipWeak
	}
}

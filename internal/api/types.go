package api

import (
	"github.com/schoolhealth/schoolhealth/internal/alerts"
	"github.com/schoolhealth/schoolhealth/internal/analysis"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status      string `json:"status"` // "ok" | "no_data"
	Version     uint64 `json:"version"`
	Source      string `json:"source,omitempty"`
	LoadedAt    string `json:"loaded_at,omitempty"` // RFC3339
	SchoolCount int    `json:"school_count"`
	AlertCount  int    `json:"alert_count"`
}

// SchoolResponse is one school with its derived fields.
type SchoolResponse struct {
	Name                      string   `json:"name"`
	ObesityRate               float64  `json:"obesity_rate"`
	EconomicDisadvantageRate  float64  `json:"economic_disadvantage_rate"`
	StudentsTested            int      `json:"students_tested"`
	Year                      int      `json:"year"`
	RiskCategory              string   `json:"risk_category"`
	EstimatedObeseStudents    int      `json:"estimated_obese_students"`
	EconomicallyDisadvantaged bool     `json:"economically_disadvantaged"`
	Comparison                string   `json:"comparison"`
	Recommendations           []string `json:"recommendations,omitempty"`
}

// RiskBand is one risk category with its members.
type RiskBand struct {
	Category string           `json:"category"`
	Range    string           `json:"range"`
	Count    int              `json:"count"`
	Schools  []SchoolResponse `json:"schools"`
}

// DisparityResponse is the payload for GET /api/v1/disparity.
type DisparityResponse struct {
	analysis.Disparity
	Strength   string  `json:"strength"`
	Difference float64 `json:"difference"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the data of
// every WebSocket broadcast.
type SnapshotResponse struct {
	Version         uint64                   `json:"version"`
	Source          string                   `json:"source"`
	LoadedAt        string                   `json:"loaded_at"` // RFC3339
	Statistics      analysis.Statistics      `json:"statistics"`
	Risk            []RiskBand               `json:"risk"`
	Disparity       DisparityResponse        `json:"disparity"`
	Priority        []SchoolResponse         `json:"priority"`
	Successful      []SchoolResponse         `json:"successful"`
	Recommendations analysis.Recommendations `json:"recommendations"`
	Alerts          []*alerts.Alert          `json:"alerts"`
	GeneratedAt     string                   `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

// Package api implements the HTTP REST API over the current county analysis.
//
// New(store, alerts) returns an http.Handler that serves:
//
//	GET /api/v1/health           — load status, data version and school count
//	GET /api/v1/statistics       — county-wide statistics
//	GET /api/v1/risk             — schools per risk band, Low → Critical
//	GET /api/v1/disparity        — high vs low economic disadvantage comparison
//	GET /api/v1/schools          — every school with derived fields
//	GET /api/v1/schools/{name}   — first school whose name contains {name}; 404 otherwise
//	GET /api/v1/priority?n=      — highest obesity rates first
//	GET /api/v1/successful?n=    — lowest obesity rates first
//	GET /api/v1/recommendations  — county recommendations
//	GET /api/v1/alerts           — firing and recently resolved alerts
//	GET /api/v1/snapshot         — everything above in one document
//	GET /metrics                 — Prometheus text exposition
//
// All endpoints return 405 for non-GET methods. Data endpoints return 503
// until an analysis has been stored. JSON types are defined in types.go.
// No external HTTP framework is used.
package api

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/common/expfmt"

	"github.com/schoolhealth/schoolhealth/internal/alerts"
	"github.com/schoolhealth/schoolhealth/internal/analysis"
	"github.com/schoolhealth/schoolhealth/internal/report"
	"github.com/schoolhealth/schoolhealth/internal/store"
)

// AlertSource lists the alerts to expose. *alerts.Engine satisfies it.
type AlertSource interface {
	Active() []*alerts.Alert
}

// Handler is the HTTP handler for all /api/v1/* endpoints and /metrics.
// It reads the current analysis from the store and returns JSON responses.
type Handler struct {
	store  *store.Store
	alerts AlertSource
	mux    *http.ServeMux
}

// New creates a Handler wired to the given store and registers all routes.
// al may be nil, in which case no alerts are reported.
func New(st *store.Store, al AlertSource) http.Handler {
	h := &Handler{store: st, alerts: al, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/statistics", h.withEntry(h.statistics))
	h.mux.HandleFunc("/api/v1/risk", h.withEntry(h.risk))
	h.mux.HandleFunc("/api/v1/disparity", h.withEntry(h.disparity))
	h.mux.HandleFunc("/api/v1/schools", h.withEntry(h.listSchools))
	h.mux.HandleFunc("/api/v1/schools/", h.withEntry(h.getSchool)) // subtree, extracts {name}
	h.mux.HandleFunc("/api/v1/priority", h.withEntry(h.priority))
	h.mux.HandleFunc("/api/v1/successful", h.withEntry(h.successful))
	h.mux.HandleFunc("/api/v1/recommendations", h.withEntry(h.recommendations))
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)
	h.mux.HandleFunc("/api/v1/snapshot", h.withEntry(h.snapshot))
	h.mux.HandleFunc("/metrics", h.withEntry(h.metrics))

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// entryHandler serves a request against the stored analysis.
type entryHandler func(w http.ResponseWriter, r *http.Request, e *store.Entry)

// withEntry rejects non-GET requests and answers 503 until an analysis with
// at least one school has been stored.
func (h *Handler) withEntry(next entryHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		e, ok := h.store.Get()
		if !ok || !e.Result.HasStatistics {
			jsonErr(w, http.StatusServiceUnavailable, "no school data loaded")
			return
		}
		next(w, r, e)
	}
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health. It answers 200 even before data is
// loaded so it can serve as a liveness probe.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := HealthResponse{Status: "no_data", AlertCount: len(h.activeAlerts())}
	if e, ok := h.store.Get(); ok {
		resp.Version = e.Version
		resp.Source = e.Source
		resp.LoadedAt = e.LoadedAt.UTC().Format(time.RFC3339)
		resp.SchoolCount = len(e.Result.Schools)
		if e.Result.HasStatistics {
			resp.Status = "ok"
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// statistics returns GET /api/v1/statistics.
func (h *Handler) statistics(w http.ResponseWriter, r *http.Request, e *store.Entry) {
	jsonResp(w, http.StatusOK, e.Result.Statistics)
}

// risk returns GET /api/v1/risk: one band per category, always all four.
func (h *Handler) risk(w http.ResponseWriter, r *http.Request, e *store.Entry) {
	jsonResp(w, http.StatusOK, toRiskBands(e.Result))
}

// disparity returns GET /api/v1/disparity.
func (h *Handler) disparity(w http.ResponseWriter, r *http.Request, e *store.Entry) {
	jsonResp(w, http.StatusOK, toDisparity(e.Result.Disparity))
}

// listSchools returns GET /api/v1/schools in input order.
func (h *Handler) listSchools(w http.ResponseWriter, r *http.Request, e *store.Entry) {
	jsonResp(w, http.StatusOK, toSchools(e.Result, e.Result.Schools))
}

// getSchool returns GET /api/v1/schools/{name}: the first school whose name
// contains {name}, ignoring case, with its action items.
func (h *Handler) getSchool(w http.ResponseWriter, r *http.Request, e *store.Entry) {
	query := strings.TrimPrefix(r.URL.Path, "/api/v1/schools/")
	if strings.TrimSpace(query) == "" {
		// Bare /api/v1/schools/ behaves like the list endpoint.
		h.listSchools(w, r, e)
		return
	}

	s, ok := e.Result.FindSchool(query)
	if !ok {
		jsonErr(w, http.StatusNotFound, "school not found")
		return
	}
	resp := toSchool(e.Result, s)
	resp.Recommendations = report.SchoolRecommendations(s, e.Result.Statistics.AvgObesity)
	jsonResp(w, http.StatusOK, resp)
}

// priority returns GET /api/v1/priority?n=: schools by descending obesity
// rate. Without n the configured list length is used.
func (h *Handler) priority(w http.ResponseWriter, r *http.Request, e *store.Entry) {
	list := e.Result.Priority
	if r.URL.Query().Has("n") {
		n, ok := parseCount(w, r)
		if !ok {
			return
		}
		list = analysis.PrioritySchools(e.Result.Schools, n)
	}
	jsonResp(w, http.StatusOK, toSchools(e.Result, list))
}

// successful returns GET /api/v1/successful?n=: schools by ascending
// obesity rate.
func (h *Handler) successful(w http.ResponseWriter, r *http.Request, e *store.Entry) {
	list := e.Result.Successful
	if r.URL.Query().Has("n") {
		n, ok := parseCount(w, r)
		if !ok {
			return
		}
		list = analysis.SuccessfulSchools(e.Result.Schools, n)
	}
	jsonResp(w, http.StatusOK, toSchools(e.Result, list))
}

// recommendations returns GET /api/v1/recommendations.
func (h *Handler) recommendations(w http.ResponseWriter, r *http.Request, e *store.Entry) {
	recs := e.Result.Recommendations
	if recs == nil {
		recs = analysis.Recommendations{}
	}
	jsonResp(w, http.StatusOK, recs)
}

// listAlerts returns GET /api/v1/alerts. It does not need school data.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.activeAlerts())
}

// snapshot returns GET /api/v1/snapshot: the full analysis in one document.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request, e *store.Entry) {
	jsonResp(w, http.StatusOK, buildSnapshot(e, h.activeAlerts()))
}

// metrics returns GET /metrics in Prometheus text exposition format.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request, e *store.Entry) {
	w.Header().Set("Content-Type", string(expfmt.FmtText))
	report.WriteMetrics(w, e.Result) //nolint:errcheck
}

// --- snapshot ---------------------------------------------------------------

// BuildSnapshot assembles the full snapshot from the store. It returns false
// when nothing usable has been stored yet.
func BuildSnapshot(st *store.Store, al AlertSource) (SnapshotResponse, bool) {
	e, ok := st.Get()
	if !ok || !e.Result.HasStatistics {
		return SnapshotResponse{}, false
	}
	var active []*alerts.Alert
	if al != nil {
		active = al.Active()
	}
	if active == nil {
		active = []*alerts.Alert{}
	}
	return buildSnapshot(e, active), true
}

func buildSnapshot(e *store.Entry, active []*alerts.Alert) SnapshotResponse {
	res := e.Result
	recs := res.Recommendations
	if recs == nil {
		recs = analysis.Recommendations{}
	}
	return SnapshotResponse{
		Version:         e.Version,
		Source:          e.Source,
		LoadedAt:        e.LoadedAt.UTC().Format(time.RFC3339),
		Statistics:      res.Statistics,
		Risk:            toRiskBands(res),
		Disparity:       toDisparity(res.Disparity),
		Priority:        toSchools(res, res.Priority),
		Successful:      toSchools(res, res.Successful),
		Recommendations: recs,
		Alerts:          active,
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
	}
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

func (h *Handler) activeAlerts() []*alerts.Alert {
	if h.alerts == nil {
		return []*alerts.Alert{}
	}
	out := h.alerts.Active()
	if out == nil {
		out = []*alerts.Alert{}
	}
	return out
}

// parseCount reads the n query parameter. On failure it writes a 400 and
// returns false.
func parseCount(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil || n < 0 {
		jsonErr(w, http.StatusBadRequest, "n must be a non-negative integer")
		return 0, false
	}
	return n, true
}

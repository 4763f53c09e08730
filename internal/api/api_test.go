package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/schoolhealth/schoolhealth/internal/alerts"
	"github.com/schoolhealth/schoolhealth/internal/analysis"
	"github.com/schoolhealth/schoolhealth/internal/api"
	"github.com/schoolhealth/schoolhealth/internal/school"
	"github.com/schoolhealth/schoolhealth/internal/store"
)

// --- test helpers -----------------------------------------------------------

func sch(name string, obesity, disadvantage float64) school.School {
	return school.School{Name: name, ObesityRate: obesity, EconomicDisadvantageRate: disadvantage, StudentsTested: 100, Year: 2024}
}

func county() analysis.Result {
	return analysis.Analyze([]school.School{
		sch("PACHECO", 38.0, 55.0),
		sch("BISHOP'S PEAK", 24.0, 20.0),
		sch("LOS RANCHOS", 31.0, 35.0),
		sch("HAWTHORNE", 44.0, 78.0),
		sch("C.L. SMITH", 28.0, 48.0),
	}, analysis.DefaultOptions())
}

func newStore(results ...analysis.Result) *store.Store {
	st := store.New()
	for _, r := range results {
		st.Put(r, "schools.txt")
	}
	return st
}

type staticAlerts []*alerts.Alert

func (s staticAlerts) Active() []*alerts.Alert { return s }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

var dataPaths = []string{
	"/api/v1/statistics",
	"/api/v1/risk",
	"/api/v1/disparity",
	"/api/v1/schools",
	"/api/v1/schools/pacheco",
	"/api/v1/priority",
	"/api/v1/successful",
	"/api/v1/recommendations",
	"/api/v1/snapshot",
	"/metrics",
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth_EmptyStore(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := get(t, h, "/api/v1/health")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.HealthResponse
	decode(t, rr, &resp)
	if resp.Status != "no_data" || resp.Version != 0 {
		t.Errorf("health: got %+v", resp)
	}
}

func TestHealth_Loaded(t *testing.T) {
	h := api.New(newStore(county(), county()), staticAlerts{{ID: "a1", State: alerts.StateFiring}})
	var resp api.HealthResponse
	decode(t, get(t, h, "/api/v1/health"), &resp)

	if resp.Status != "ok" || resp.Version != 2 || resp.SchoolCount != 5 || resp.AlertCount != 1 {
		t.Errorf("health: got %+v", resp)
	}
	if resp.Source != "schools.txt" || resp.LoadedAt == "" {
		t.Errorf("source/loaded_at: got %q / %q", resp.Source, resp.LoadedAt)
	}
}

// --- availability and methods -----------------------------------------------

func TestDataEndpoints_NoData(t *testing.T) {
	h := api.New(newStore(), nil)
	for _, path := range dataPaths {
		if rr := get(t, h, path); rr.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: got %d, want 503", path, rr.Code)
		}
	}
}

func TestDataEndpoints_EmptyResult(t *testing.T) {
	h := api.New(newStore(analysis.Analyze(nil, analysis.DefaultOptions())), nil)
	if rr := get(t, h, "/api/v1/statistics"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("statistics over empty result: got %d, want 503", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := api.New(newStore(county()), nil)
	paths := append([]string{"/api/v1/health", "/api/v1/alerts"}, dataPaths...)
	for _, path := range paths {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, nil))
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: got %d, want 405", path, rr.Code)
		}
	}
}

func TestContentTypeJSON(t *testing.T) {
	h := api.New(newStore(county()), nil)
	for _, path := range dataPaths {
		if path == "/metrics" {
			continue
		}
		rr := get(t, h, path)
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s Content-Type: got %q, want application/json", path, ct)
		}
	}
}

// --- data endpoints ---------------------------------------------------------

func TestStatistics(t *testing.T) {
	h := api.New(newStore(county()), nil)
	var resp map[string]interface{}
	decode(t, get(t, h, "/api/v1/statistics"), &resp)

	if resp["total_schools"].(float64) != 5 {
		t.Errorf("total_schools: got %v, want 5", resp["total_schools"])
	}
	if resp["total_students"].(float64) != 500 {
		t.Errorf("total_students: got %v, want 500", resp["total_students"])
	}
	if resp["avg_obesity"].(float64) != 33 {
		t.Errorf("avg_obesity: got %v, want 33", resp["avg_obesity"])
	}
	if resp["above_avg_count"].(float64) != 2 {
		t.Errorf("above_avg_count: got %v, want 2", resp["above_avg_count"])
	}
}

func TestRisk_AllBandsInOrder(t *testing.T) {
	h := api.New(newStore(county()), nil)
	var bands []api.RiskBand
	decode(t, get(t, h, "/api/v1/risk"), &bands)

	want := []struct {
		cat   string
		count int
	}{{"Low", 2}, {"Moderate", 1}, {"High", 1}, {"Critical", 1}}
	if len(bands) != len(want) {
		t.Fatalf("bands: got %d, want 4", len(bands))
	}
	for i, w := range want {
		if bands[i].Category != w.cat || bands[i].Count != w.count || len(bands[i].Schools) != w.count {
			t.Errorf("band %d: got %s/%d, want %s/%d", i, bands[i].Category, bands[i].Count, w.cat, w.count)
		}
	}
	if bands[3].Range != ">40%" {
		t.Errorf("critical range: got %q", bands[3].Range)
	}
}

func TestDisparity(t *testing.T) {
	h := api.New(newStore(county()), nil)
	var resp map[string]interface{}
	decode(t, get(t, h, "/api/v1/disparity"), &resp)

	high := resp["high_disadvantage"].(map[string]interface{})
	if high["count"].(float64) != 2 || high["avg_obesity"].(float64) != 41 {
		t.Errorf("high group: got %v", high)
	}
	if _, ok := high["Schools"]; ok {
		t.Error("group members should not be serialised")
	}
	if resp["strength"] != "MODERATE" {
		t.Errorf("strength: got %v, want MODERATE", resp["strength"])
	}
	if resp["difference"].(float64) <= 0 {
		t.Errorf("difference: got %v, want > 0", resp["difference"])
	}
}

func TestListSchools_InputOrder(t *testing.T) {
	h := api.New(newStore(county()), nil)
	var resp []api.SchoolResponse
	decode(t, get(t, h, "/api/v1/schools"), &resp)

	if len(resp) != 5 {
		t.Fatalf("schools: got %d, want 5", len(resp))
	}
	if resp[0].Name != "PACHECO" || resp[4].Name != "C.L. SMITH" {
		t.Errorf("order: got %s ... %s", resp[0].Name, resp[4].Name)
	}
	p := resp[0]
	if p.RiskCategory != "High" || p.EstimatedObeseStudents != 38 || !p.EconomicallyDisadvantaged {
		t.Errorf("PACHECO fields: %+v", p)
	}
	if p.Comparison != "38.0% (above county average of 33.0%)" {
		t.Errorf("comparison: got %q", p.Comparison)
	}
}

func TestGetSchool_Found(t *testing.T) {
	h := api.New(newStore(county()), nil)
	rr := get(t, h, "/api/v1/schools/hawth")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.SchoolResponse
	decode(t, rr, &resp)
	if resp.Name != "HAWTHORNE" || resp.RiskCategory != "Critical" {
		t.Errorf("school: got %+v", resp)
	}
	if len(resp.Recommendations) != 6 {
		t.Errorf("recommendations: got %v", resp.Recommendations)
	}
}

func TestGetSchool_EscapedName(t *testing.T) {
	h := api.New(newStore(county()), nil)
	rr := get(t, h, "/api/v1/schools/bishop%27s")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.SchoolResponse
	decode(t, rr, &resp)
	if resp.Name != "BISHOP'S PEAK" {
		t.Errorf("name: got %q", resp.Name)
	}
}

func TestGetSchool_NotFound(t *testing.T) {
	h := api.New(newStore(county()), nil)
	if rr := get(t, h, "/api/v1/schools/atascadero"); rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestGetSchool_BareListsAll(t *testing.T) {
	h := api.New(newStore(county()), nil)
	var resp []api.SchoolResponse
	decode(t, get(t, h, "/api/v1/schools/"), &resp)
	if len(resp) != 5 {
		t.Errorf("schools: got %d, want 5", len(resp))
	}
}

func TestPriority(t *testing.T) {
	h := api.New(newStore(county()), nil)
	tests := []struct {
		path      string
		wantCode  int
		wantNames []string
	}{
		{"/api/v1/priority", 200, []string{"HAWTHORNE", "PACHECO", "LOS RANCHOS", "C.L. SMITH", "BISHOP'S PEAK"}},
		{"/api/v1/priority?n=2", 200, []string{"HAWTHORNE", "PACHECO"}},
		{"/api/v1/priority?n=0", 200, []string{}},
		{"/api/v1/priority?n=99", 200, []string{"HAWTHORNE", "PACHECO", "LOS RANCHOS", "C.L. SMITH", "BISHOP'S PEAK"}},
		{"/api/v1/priority?n=-1", 400, nil},
		{"/api/v1/priority?n=abc", 400, nil},
		{"/api/v1/successful", 200, []string{"BISHOP'S PEAK", "C.L. SMITH", "LOS RANCHOS"}},
		{"/api/v1/successful?n=1", 200, []string{"BISHOP'S PEAK"}},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rr := get(t, h, tc.path)
			if rr.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d", rr.Code, tc.wantCode)
			}
			if tc.wantNames == nil {
				return
			}
			var resp []api.SchoolResponse
			decode(t, rr, &resp)
			if len(resp) != len(tc.wantNames) {
				t.Fatalf("len: got %d, want %d", len(resp), len(tc.wantNames))
			}
			for i, n := range tc.wantNames {
				if resp[i].Name != n {
					t.Errorf("[%d]: got %s, want %s", i, resp[i].Name, n)
				}
			}
		})
	}
}

func TestRecommendations(t *testing.T) {
	h := api.New(newStore(county()), nil)
	var resp []analysis.Recommendation
	decode(t, get(t, h, "/api/v1/recommendations"), &resp)

	if len(resp) != 5 {
		t.Fatalf("recommendations: got %d, want 5", len(resp))
	}
	if resp[0].Topic != analysis.TopicCriticalIntervention {
		t.Errorf("first topic: got %q", resp[0].Topic)
	}
}

// --- /api/v1/alerts ---------------------------------------------------------

func TestAlerts_NilSourceReturnsEmptyArray(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := get(t, h, "/api/v1/alerts")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("alerts: got %s, want []", body)
	}
}

func TestAlerts_FromSource(t *testing.T) {
	h := api.New(newStore(), staticAlerts{{ID: "a1", RuleName: "critical-schools", State: alerts.StateFiring}})
	var resp []map[string]interface{}
	decode(t, get(t, h, "/api/v1/alerts"), &resp)
	if len(resp) != 1 || resp[0]["rule_name"] != "critical-schools" {
		t.Errorf("alerts: got %v", resp)
	}
}

// --- /api/v1/snapshot and /metrics ------------------------------------------

func TestSnapshot(t *testing.T) {
	h := api.New(newStore(county()), nil)
	var resp api.SnapshotResponse
	decode(t, get(t, h, "/api/v1/snapshot"), &resp)

	if resp.Version != 1 || resp.Source != "schools.txt" {
		t.Errorf("version/source: got %d/%q", resp.Version, resp.Source)
	}
	if resp.GeneratedAt == "" || resp.LoadedAt == "" {
		t.Error("timestamps missing")
	}
	if resp.Statistics.TotalSchools != 5 || len(resp.Risk) != 4 {
		t.Errorf("statistics/risk: %+v / %d bands", resp.Statistics, len(resp.Risk))
	}
	if len(resp.Priority) != 5 || len(resp.Successful) != 3 {
		t.Errorf("priority/successful: %d/%d", len(resp.Priority), len(resp.Successful))
	}
	if resp.Alerts == nil {
		t.Error("alerts: got null, want []")
	}
}

func TestBuildSnapshot(t *testing.T) {
	if _, ok := api.BuildSnapshot(newStore(), nil); ok {
		t.Error("BuildSnapshot on empty store: got true")
	}
	snap, ok := api.BuildSnapshot(newStore(county()), nil)
	if !ok {
		t.Fatal("BuildSnapshot: got false")
	}
	if snap.Statistics.TotalSchools != 5 {
		t.Errorf("TotalSchools: got %d", snap.Statistics.TotalSchools)
	}
}

func TestMetrics(t *testing.T) {
	h := api.New(newStore(county()), nil)
	rr := get(t, h, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q", ct)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"schoolhealth_schools_total 5",
		`schoolhealth_risk_schools{category="Critical"} 1`,
		`schoolhealth_school_obesity_rate{index="3",school="HAWTHORNE",year="2024",risk="Critical"} 44`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q\n%s", want, body)
		}
	}
}

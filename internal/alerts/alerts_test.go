package alerts

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/schoolhealth/schoolhealth/internal/analysis"
	"github.com/schoolhealth/schoolhealth/internal/config"
	"github.com/schoolhealth/schoolhealth/internal/school"
)

func sch(name string, obesity, disadvantage float64) school.School {
	return school.School{Name: name, ObesityRate: obesity, EconomicDisadvantageRate: disadvantage, StudentsTested: 100, Year: 2024}
}

// critical has one Critical school and a disparity factor of 1.6.
func critical() analysis.Result {
	return analysis.Analyze([]school.School{
		sch("A", 48, 80),
		sch("B", 30, 20),
	}, analysis.DefaultOptions())
}

// healthy has no Critical school.
func healthy() analysis.Result {
	return analysis.Analyze([]school.School{
		sch("A", 25, 80),
		sch("B", 28, 20),
	}, analysis.DefaultOptions())
}

func newEngine(t *testing.T, cfg config.AlertsConfig) *Engine {
	t.Helper()
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func criticalRule() config.AlertsConfig {
	return config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "critical-schools", Condition: "critical_count > 0", Severity: "critical"},
	}}
}

func TestParameters(t *testing.T) {
	p := Parameters(critical())
	want := map[string]float64{
		"avg_obesity":      39,
		"min_obesity":      30,
		"max_obesity":      48,
		"total_schools":    2,
		"total_students":   200,
		"critical_count":   1,
		"moderate_count":   1,
		"low_count":        0,
		"disparity_factor": 1.6,
	}
	for k, v := range want {
		got, ok := p[k].(float64)
		if !ok {
			t.Errorf("%s: got %T, want float64", k, p[k])
			continue
		}
		if got < v-1e-9 || got > v+1e-9 {
			t.Errorf("%s: got %v, want %v", k, got, v)
		}
	}
	if len(p) != 12 {
		t.Errorf("parameter count: got %d, want 12", len(p))
	}
}

func TestNew_InvalidCondition(t *testing.T) {
	_, err := New(config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "bad", Condition: "avg_obesity >"},
	}})
	if err == nil {
		t.Fatal("expected error for malformed condition")
	}
}

func TestEvaluate_NoRules(t *testing.T) {
	e := newEngine(t, config.AlertsConfig{})
	if got := e.Evaluate(critical()); got != nil {
		t.Errorf("Evaluate with no rules: got %v, want nil", got)
	}
}

func TestEvaluate_FiresOncePerTransition(t *testing.T) {
	e := newEngine(t, criticalRule())

	fired := e.Evaluate(critical())
	if len(fired) != 1 {
		t.Fatalf("first evaluation: got %d alerts, want 1", len(fired))
	}
	a := fired[0]
	if a.State != StateFiring || a.RuleName != "critical-schools" || a.Severity != "critical" {
		t.Errorf("fired alert: %+v", a)
	}
	if a.ID == "" {
		t.Error("fired alert has empty ID")
	}
	if a.Values["critical_count"] != 1 {
		t.Errorf("Values: got %v, want critical_count=1", a.Values)
	}

	if again := e.Evaluate(critical()); len(again) != 0 {
		t.Errorf("second evaluation while still firing: got %d alerts, want 0", len(again))
	}

	resolved := e.Evaluate(healthy())
	if len(resolved) != 1 || resolved[0].State != StateResolved {
		t.Fatalf("resolve: got %+v", resolved)
	}
	if resolved[0].ID != a.ID {
		t.Errorf("resolved alert ID %q differs from fired %q", resolved[0].ID, a.ID)
	}
	if resolved[0].ResolvedAt == nil {
		t.Error("resolved alert has nil ResolvedAt")
	}

	if quiet := e.Evaluate(healthy()); len(quiet) != 0 {
		t.Errorf("evaluation while resolved: got %d alerts, want 0", len(quiet))
	}

	refired := e.Evaluate(critical())
	if len(refired) != 1 || refired[0].ID == a.ID {
		t.Errorf("re-fire should produce a new alert, got %+v", refired)
	}
}

func TestEvaluate_DefaultSeverity(t *testing.T) {
	e := newEngine(t, config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "disparity", Condition: "disparity_factor > 1.3 && avg_obesity > 30"},
	}})
	fired := e.Evaluate(critical())
	if len(fired) != 1 {
		t.Fatalf("got %d alerts, want 1", len(fired))
	}
	if fired[0].Severity != "warning" {
		t.Errorf("Severity: got %q, want warning", fired[0].Severity)
	}
	if len(fired[0].Values) != 2 {
		t.Errorf("Values: got %v, want disparity_factor and avg_obesity", fired[0].Values)
	}
}

func TestEvaluate_NonBooleanConditionSkipped(t *testing.T) {
	e := newEngine(t, config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "sum", Condition: "avg_obesity + 1"},
	}})
	if got := e.Evaluate(critical()); len(got) != 0 {
		t.Errorf("non-boolean rule fired: %+v", got)
	}
}

func TestActive(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	e := newEngine(t, config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "critical-schools", Condition: "critical_count > 0"},
		{Name: "many-schools", Condition: "total_schools >= 2"},
	}})
	e.now = func() time.Time { return now }

	e.Evaluate(critical())
	if got := e.Active(); len(got) != 2 {
		t.Fatalf("Active after firing: got %d, want 2", len(got))
	}

	now = base.Add(10 * time.Minute)
	e.Evaluate(healthy()) // resolves critical-schools, many-schools keeps firing

	got := e.Active()
	if len(got) != 2 {
		t.Fatalf("Active after resolve: got %d, want 2", len(got))
	}
	if got[0].RuleName != "critical-schools" || got[0].State != StateResolved {
		t.Errorf("newest first: got %s/%s", got[0].RuleName, got[0].State)
	}

	now = base.Add(2 * time.Hour)
	got = e.Active()
	if len(got) != 1 || got[0].RuleName != "many-schools" {
		t.Errorf("Active after resolve window: got %+v", got)
	}
}

// --- webhooks ---

type capture struct {
	mu     sync.Mutex
	bodies []map[string]interface{}
}

func (c *capture) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("webhook method: got %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type: got %q", ct)
		}
		data, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		if err := json.Unmarshal(data, &body); err != nil {
			t.Errorf("webhook body is not JSON: %v", err)
		}
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (c *capture) all() []map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]map[string]interface{}(nil), c.bodies...)
}

func TestWebhooks_DeliveredPerType(t *testing.T) {
	var slack, teams, generic capture
	slackSrv := httptest.NewServer(slack.handler(t))
	defer slackSrv.Close()
	teamsSrv := httptest.NewServer(teams.handler(t))
	defer teamsSrv.Close()
	httpSrv := httptest.NewServer(generic.handler(t))
	defer httpSrv.Close()

	t.Setenv("SLACK_URL", slackSrv.URL)
	t.Setenv("TEAMS_URL", teamsSrv.URL)
	t.Setenv("HOOK_URL", httpSrv.URL)

	cfg := criticalRule()
	cfg.Webhooks = []config.WebhookConfig{
		{Type: "slack", URLEnv: "SLACK_URL"},
		{Type: "teams", URLEnv: "TEAMS_URL"},
		{Type: "http", URLEnv: "HOOK_URL"},
		{Type: "http", URLEnv: "UNSET_HOOK_URL"},
	}
	e := newEngine(t, cfg)

	e.Evaluate(critical())
	e.Evaluate(healthy())
	e.Wait()

	s := slack.all()
	if len(s) != 2 {
		t.Fatalf("slack deliveries: got %d, want 2 (fire + resolve)", len(s))
	}
	if text, _ := s[0]["text"].(string); !strings.Contains(text, "[CRITICAL]") {
		t.Errorf("slack text: got %q", text)
	}

	tm := teams.all()
	if len(tm) != 2 {
		t.Fatalf("teams deliveries: got %d, want 2", len(tm))
	}
	if tm[0]["@type"] != "MessageCard" || tm[0]["themeColor"] != "FF4F6A" {
		t.Errorf("teams payload: %v", tm[0])
	}

	g := generic.all()
	if len(g) != 2 {
		t.Fatalf("http deliveries: got %d, want 2", len(g))
	}
	states := map[string]bool{}
	for _, b := range g {
		alert, _ := b["alert"].(map[string]interface{})
		st, _ := alert["state"].(string)
		states[st] = true
	}
	if !states[StateFiring] || !states[StateResolved] {
		t.Errorf("http states delivered: %v", states)
	}
}

func TestWebhook_ErrorStatusDoesNotBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	t.Setenv("HOOK_URL", srv.URL)

	cfg := criticalRule()
	cfg.Webhooks = []config.WebhookConfig{{Type: "http", URLEnv: "HOOK_URL"}}
	e := newEngine(t, cfg)

	if got := e.Evaluate(critical()); len(got) != 1 {
		t.Fatalf("got %d alerts, want 1", len(got))
	}
	e.Wait()

	if err := e.post(srv.URL, []byte(`{}`)); err == nil || !strings.Contains(err.Error(), "HTTP 500") {
		t.Errorf("post to failing hook: got %v, want HTTP 500 error", err)
	}
}

func TestSeverityLabel(t *testing.T) {
	tests := map[string]string{
		"critical": "[CRITICAL]",
		"warning":  "[WARNING]",
		"info":     "[INFO]",
		"":         "[INFO]",
	}
	for in, want := range tests {
		if got := severityLabel(in); got != want {
			t.Errorf("severityLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

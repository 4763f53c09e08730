package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/google/uuid"

	"github.com/schoolhealth/schoolhealth/internal/analysis"
	"github.com/schoolhealth/schoolhealth/internal/config"
)

const (
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string             `json:"id"`
	RuleName   string             `json:"rule_name"`
	Condition  string             `json:"condition"`
	Severity   string             `json:"severity"`
	Message    string             `json:"message"`
	Values     map[string]float64 `json:"values"`
	FiredAt    time.Time          `json:"fired_at"`
	ResolvedAt *time.Time         `json:"resolved_at,omitempty"`
	State      string             `json:"state"` // "firing" | "resolved"
}

type rule struct {
	config.AlertRule
	expr *govaluate.EvaluableExpression
}

// Engine evaluates alert rules against each analysis result and delivers
// webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []rule
	webhooks []config.WebhookConfig

	mu      sync.Mutex
	active  map[string]*Alert // key: rule name
	history []*Alert          // recently resolved alerts
	client  *http.Client
	now     func() time.Time

	inflight sync.WaitGroup
}

// New creates an Engine from the alert configuration. Conditions are
// compiled once here; an invalid condition is an error.
// An Engine with no rules is valid and Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) (*Engine, error) {
	e := &Engine{
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	for _, r := range cfg.Rules {
		expr, err := govaluate.NewEvaluableExpression(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("alerts: rule %q: %w", r.Name, err)
		}
		if r.Severity == "" {
			r.Severity = "warning"
		}
		e.rules = append(e.rules, rule{AlertRule: r, expr: expr})
	}
	return e, nil
}

// Evaluate tests every rule against res. A rule that starts firing produces
// a new alert; a firing rule whose condition no longer holds is resolved.
// Rules that stay in the same state produce nothing. Webhooks are delivered
// asynchronously; the returned slice holds copies of the transitions.
func (e *Engine) Evaluate(res analysis.Result) []*Alert {
	if len(e.rules) == 0 {
		return nil
	}

	params := Parameters(res)
	now := e.now()
	var changed []*Alert

	for _, r := range e.rules {
		fires, err := evalCondition(r.expr, params)
		if err != nil {
			slog.Error("alerts: evaluate rule", "rule", r.Name, "err", err)
			continue
		}

		e.mu.Lock()
		a, firing := e.active[r.Name]
		switch {
		case fires && !firing:
			a = &Alert{
				ID:        uuid.NewString(),
				RuleName:  r.Name,
				Condition: r.Condition,
				Severity:  r.Severity,
				Values:    referenced(r.expr, params),
				Message: fmt.Sprintf("[%s] %s fired: %s",
					r.Severity, r.Name, r.Condition),
				FiredAt: now,
				State:   StateFiring,
			}
			e.active[r.Name] = a
			cp := *a
			e.mu.Unlock()

			slog.Warn("alert fired", "rule", r.Name, "severity", r.Severity, "values", cp.Values)
			changed = append(changed, &cp)
			e.send(cp)

		case !fires && firing:
			resolved := now
			a.State = StateResolved
			a.ResolvedAt = &resolved
			a.Message = fmt.Sprintf("[%s] %s resolved", a.Severity, a.RuleName)
			delete(e.active, r.Name)

			e.history = append(e.history, a)
			if len(e.history) > maxHistoryLen {
				e.history = e.history[len(e.history)-maxHistoryLen:]
			}
			cp := *a
			e.mu.Unlock()

			slog.Info("alert resolved", "rule", r.Name)
			changed = append(changed, &cp)
			e.send(cp)

		default:
			e.mu.Unlock()
		}
	}
	return changed
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return latest(out[i]).After(latest(out[j]))
	})
	return out
}

// Wait blocks until every webhook delivery started so far has finished.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

func (e *Engine) send(a Alert) {
	if len(e.webhooks) == 0 {
		return
	}
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		e.deliver(&a)
	}()
}

func latest(a *Alert) time.Time {
	if a.ResolvedAt != nil {
		return *a.ResolvedAt
	}
	return a.FiredAt
}

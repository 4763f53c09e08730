package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
)

// deliver sends webhook notifications for a to all configured targets.
// Errors are logged but do not affect the caller.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = e.sendSlack(url, a)
		case "teams":
			err = e.sendTeams(url, a)
		case "http":
			err = e.sendHTTP(url, a)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"rule", a.RuleName,
				"err", err,
			)
		} else {
			slog.Debug("alerts: webhook delivered",
				"type", wh.Type,
				"rule", a.RuleName,
				"state", a.State,
			)
		}
	}
}

// sendSlack posts a message with one attachment field per referenced
// parameter.
func (e *Engine) sendSlack(url string, a *Alert) error {
	fields := make([]map[string]interface{}, 0, len(a.Values))
	for _, name := range valueNames(a) {
		fields = append(fields, map[string]interface{}{
			"title": name,
			"value": strconv.FormatFloat(a.Values[name], 'f', 2, 64),
			"short": true,
		})
	}
	body, _ := json.Marshal(map[string]interface{}{
		"text": fmt.Sprintf("*%s* %s", severityLabel(a.Severity), a.Message),
		"attachments": []map[string]interface{}{{
			"color":  "#" + severityColor(a.Severity),
			"fields": fields,
			"footer": a.Condition,
		}},
	})
	return e.post(url, body)
}

// sendTeams posts a MessageCard whose facts list the referenced parameters.
func (e *Engine) sendTeams(url string, a *Alert) error {
	facts := make([]map[string]string, 0, len(a.Values)+1)
	facts = append(facts, map[string]string{"name": "condition", "value": a.Condition})
	for _, name := range valueNames(a) {
		facts = append(facts, map[string]string{
			"name":  name,
			"value": strconv.FormatFloat(a.Values[name], 'f', 2, 64),
		})
	}
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity),
		"summary":    a.RuleName,
		"title":      fmt.Sprintf("County obesity alert: %s (%s)", a.RuleName, a.State),
		"text":       a.Message,
		"sections":   []map[string]interface{}{{"facts": facts}},
	}
	body, _ := json.Marshal(payload)
	return e.post(url, body)
}

// sendHTTP posts the alert itself.
func (e *Engine) sendHTTP(url string, a *Alert) error {
	body, _ := json.Marshal(map[string]interface{}{"alert": a})
	return e.post(url, body)
}

func valueNames(a *Alert) []string {
	names := make([]string, 0, len(a.Values))
	for name := range a.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "schoolhealth-alerts")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}

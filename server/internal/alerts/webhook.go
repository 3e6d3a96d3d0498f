package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Webhook event names carried in the generic http payload.
const (
	EventGateFailed = "gate_failed"
	EventGatePassed = "gate_passed"
)

const (
	teamsCardType     = "MessageCard"
	teamsCardContext  = "http://schema.org/extensions"
	passedThemeColour = "2EB67D"
)

// deliver notifies every configured target that a quality gate failed or
// passed again for a team. Delivery errors are logged only.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var body []byte
		switch wh.Type {
		case "slack":
			body = slackPayload(a)
		case "teams":
			body = teamsPayload(a)
		case "http":
			body = httpPayload(a)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err := e.post(url, body); err != nil {
			slog.Error("alerts: gate notification failed",
				"type", wh.Type, "rule", a.RuleName, "team", a.Team, "err", err)
			continue
		}
		slog.Debug("alerts: gate notification sent",
			"type", wh.Type, "rule", a.RuleName, "team", a.Team, "state", a.State)
	}
}

// headline is the one-line summary shared by the chat payloads.
func headline(a *Alert) string {
	if a.State == "resolved" {
		return fmt.Sprintf("Team %s passes quality gate %s again", a.Team, a.RuleName)
	}
	return fmt.Sprintf("Team %s fails quality gate %s: %s (value %.2f)",
		a.Team, a.RuleName, a.Condition, a.Value)
}

func slackPayload(a *Alert) []byte {
	prefix := ":white_check_mark:"
	if a.State != "resolved" {
		prefix = fmt.Sprintf("*[%s]*", strings.ToUpper(a.Severity))
	}
	body, _ := json.Marshal(map[string]string{"text": prefix + " " + headline(a)})
	return body
}

func teamsPayload(a *Alert) []byte {
	colour := passedThemeColour
	if a.State != "resolved" {
		colour = severityColour(a.Severity)
	}
	body, _ := json.Marshal(map[string]interface{}{
		"@type":      teamsCardType,
		"@context":   teamsCardContext,
		"themeColor": colour,
		"summary":    a.RuleName + " (" + a.Team + ")",
		"title":      headline(a),
		"sections": []map[string]interface{}{{
			"facts": []map[string]string{
				{"name": "Team", "value": a.Team},
				{"name": "Gate", "value": a.RuleName},
				{"name": "Condition", "value": a.Condition},
				{"name": "Value", "value": fmt.Sprintf("%.2f", a.Value)},
				{"name": "Severity", "value": a.Severity},
			},
		}},
	})
	return body
}

func httpPayload(a *Alert) []byte {
	event := EventGateFailed
	if a.State == "resolved" {
		event = EventGatePassed
	}
	body, _ := json.Marshal(map[string]interface{}{"event": event, "alert": a})
	return body
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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

func severityColour(s string) string {
	switch s {
	case "critical":
		return "E01E5A"
	case "warning":
		return "ECB22E"
	default:
		return "36C5F0"
	}
}

// Package stub provides a fast, deterministic model client for tests and
// keyless development runs.
package stub

import (
	"encoding/json"
	"strings"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// Client answers every prompt locally with fixed, schema-shaped payloads.
type Client struct{}

// New constructs a stub client.
func New() *Client { return &Client{} }

// ChatJSON returns a compact JSON string matching the schema hinted at by
// the prompt text.
func (c *Client) ChatJSON(_ domain.Context, systemPrompt, userPrompt string, _ int) (string, error) {
	prompt := systemPrompt + "\n" + userPrompt
	var payload map[string]any
	switch {
	case strings.Contains(prompt, "systemic_bias_detected"):
		payload = map[string]any{
			"systemic_bias_detected": false,
			"overall_risk":           "low",
			"audit_score":            12,
			"patterns_found":         []any{},
			"decisions_flagged":      []any{},
			"recommendations":        []string{"Keep structured scoring rubrics in use."},
			"requires_legal_review":  false,
			"legal_review_reason":    "",
		}
	case strings.Contains(prompt, "scoring_bias_risk"):
		payload = map[string]any{
			"scoring_bias_risk":     "low",
			"bias_warnings":         []any{},
			"suspicious_candidates": []any{},
			"recommendation":        "Scores look consistent with the weight profile.",
		}
	case strings.Contains(prompt, "overall_bias_risk"):
		payload = map[string]any{
			"overall_bias_risk": "low",
			"bias_score":        8,
			"flags":             []any{},
			"clean_summary":     "The content reads neutrally.",
			"compliance_risk":   "low",
			"compliance_note":   "No notable legal exposure.",
		}
	default:
		payload = map[string]any{
			"urgency":       "medium",
			"business_need": "Fill a critical engineering role this quarter.",
			"problem_type":  "hiring",
			"constraints":   []string{"budget cap"},
			"success_goals": []string{"hire within 60 days"},
			"hidden_risks":  []string{"attrition on the existing team"},
		}
	}
	b, _ := json.Marshal(payload)
	return string(b), nil
}

// Complete returns a fixed line-oriented decision response.
func (c *Client) Complete(_ domain.Context, _, _ string, _ int) (string, error) {
	return "DECISION: APPROVE\nCONFIDENCE: 0.82\nREASONING: Relevant experience matches the position requirements.\nRECOMMENDATION: Schedule a final onsite interview.", nil
}

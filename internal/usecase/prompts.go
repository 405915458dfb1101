package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// rawJSONSystem is prepended to every structured prompt. Haiku-class
// models still wrap JSON in fences occasionally; the response cleaner in
// the AI adapter handles the stragglers.
const rawJSONSystem = "Respond with raw JSON only. No markdown. No backticks. No code blocks."

func buildAnalyzePrompt(problem string) (system, user string) {
	user = fmt.Sprintf(`You are an HR decision analyst. Extract structured data from the input.
Return ONLY this JSON structure:
{
  "urgency": "low" or "medium" or "high",
  "business_need": "one sentence summary",
  "problem_type": "hiring" or "retention" or "performance" or "restructure",
  "constraints": ["list of constraints"],
  "success_goals": ["list of goals"],
  "hidden_risks": ["list of risks NOT mentioned but inferred"]
}

Input: %s`, problem)
	return rawJSONSystem, user
}

func buildDecisionPrompt(in domain.DecisionInput) (system, user string) {
	system = "You are an expert HR decision maker."
	user = fmt.Sprintf(`Evaluate this candidate and give a hiring decision.

Candidate: %s
Position: %s
Experience: %d years
Skills: %s
Notes: %s

Respond in this exact format:
DECISION: APPROVE or REJECT
CONFIDENCE: a number between 0 and 1
REASONING: one sentence explanation
RECOMMENDATION: one action to take next`,
		in.CandidateName, in.Position, in.ExperienceYears,
		strings.Join(in.Skills, ", "), in.Notes)
	return system, user
}

func buildBiasPrompt(content string) (system, user string) {
	user = fmt.Sprintf(`You are an HR bias detection expert. Analyse the content below for bias.

Return ONLY this JSON:
{
  "overall_bias_risk": "low" or "medium" or "high" or "critical",
  "bias_score": a number from 0 to 100,
  "flags": [
    {
      "type": "bias type name",
      "severity": "low" or "medium" or "high",
      "trigger_text": "the exact phrase that triggered this flag",
      "explanation": "why this is biased",
      "suggested_fix": "how to rewrite it"
    }
  ],
  "clean_summary": "one paragraph rewrite with bias removed",
  "compliance_risk": "low" or "medium" or "high",
  "compliance_note": "one sentence on legal exposure"
}

CONTENT TO ANALYSE:
%s`, content)
	return rawJSONSystem, user
}

// AuditPrompt builds the systemic-bias audit prompt for a decision batch.
// Exported because the queue worker handler owns the audit run.
func AuditPrompt(decisions []domain.Decision) (system, user string, err error) {
	b, err := json.MarshalIndent(decisions, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("op=usecase.AuditPrompt: %w", err)
	}
	user = fmt.Sprintf(`You are an HR audit specialist. Analyse this batch of hiring decisions for systemic bias patterns.

Return ONLY this JSON:
{
  "systemic_bias_detected": true or false,
  "overall_risk": "low" or "medium" or "high" or "critical",
  "audit_score": a number from 0 to 100,
  "patterns_found": [
    {
      "pattern": "description of the bias pattern",
      "affected_group": "which group is disadvantaged",
      "evidence": "which decisions show this pattern",
      "severity": "low" or "medium" or "high"
    }
  ],
  "decisions_flagged": ["list of candidate names that seem unfairly treated"],
  "recommendations": ["list of process changes to reduce bias"],
  "requires_legal_review": true or false,
  "legal_review_reason": "why legal review is needed or null"
}

DECISIONS TO AUDIT:
%s`, string(b))
	return rawJSONSystem, user, nil
}

func buildScoreAuditPrompt(ranking []domain.ScoredCandidate) (system, user string, err error) {
	b, err := json.MarshalIndent(ranking, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("op=usecase.buildScoreAuditPrompt: %w", err)
	}
	user = fmt.Sprintf(`You are a bias auditor. Review these candidate scores for scoring bias patterns.

Return ONLY this JSON:
{
  "scoring_bias_risk": "low" or "medium" or "high",
  "bias_warnings": ["list of specific warnings about the scores"],
  "suspicious_candidates": ["names of candidates whose scores look suspicious"],
  "recommendation": "one sentence on whether to trust this scoring or re-evaluate"
}

SCORES:
%s`, string(b))
	return rawJSONSystem, user, nil
}

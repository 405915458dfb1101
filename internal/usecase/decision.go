package usecase

import (
	"fmt"
	"strings"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// DecisionService asks the model for a hiring decision and persists the
// outcome so later audits can review the batch.
type DecisionService struct {
	AI        domain.AIClient
	Decisions domain.DecisionRepository
	MaxTokens int
}

// NewDecisionService constructs a DecisionService.
func NewDecisionService(ai domain.AIClient, repo domain.DecisionRepository, maxTokens int) DecisionService {
	return DecisionService{AI: ai, Decisions: repo, MaxTokens: maxTokens}
}

// Create evaluates the candidate, parses the line-oriented response, and
// stores the decision. The returned decision carries the stored ID.
func (s DecisionService) Create(ctx domain.Context, in domain.DecisionInput) (domain.Decision, error) {
	if strings.TrimSpace(in.CandidateName) == "" || strings.TrimSpace(in.Position) == "" {
		return domain.Decision{}, fmt.Errorf("%w: candidate_name and position required", domain.ErrInvalidArgument)
	}
	system, user := buildDecisionPrompt(in)
	text, err := s.AI.Complete(ctx, system, user, s.MaxTokens)
	if err != nil {
		return domain.Decision{}, err
	}
	d, err := parseDecisionText(text)
	if err != nil {
		return domain.Decision{}, err
	}
	d.CandidateName = in.CandidateName
	d.Position = in.Position

	// Decisions feed the audit trail; a decision the audits cannot see
	// must not be reported as stored.
	id, err := s.Decisions.Create(ctx, d)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("op=decision.store: %w", err)
	}
	d.ID = id
	return d, nil
}

// ListRecent returns the most recent persisted decisions.
func (s DecisionService) ListRecent(ctx domain.Context, limit int) ([]domain.Decision, error) {
	return s.Decisions.ListRecent(ctx, limit)
}

// parseDecisionText extracts the labeled lines from the model response.
// The DECISION line is mandatory; the rest default to empty strings.
func parseDecisionText(text string) (domain.Decision, error) {
	var d domain.Decision
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		switch {
		case strings.Contains(line, "DECISION:"):
			d.Verdict = afterLabel(line, "DECISION:")
		case strings.Contains(line, "CONFIDENCE:"):
			d.Confidence = afterLabel(line, "CONFIDENCE:")
		case strings.Contains(line, "REASONING:"):
			d.Reasoning = afterLabel(line, "REASONING:")
		case strings.Contains(line, "RECOMMENDATION:"):
			d.Recommendation = afterLabel(line, "RECOMMENDATION:")
		}
	}
	if d.Verdict == "" {
		return domain.Decision{}, fmt.Errorf("%w: response missing DECISION line", domain.ErrSchemaInvalid)
	}
	return d, nil
}

func afterLabel(line, label string) string {
	_, rest, _ := strings.Cut(line, label)
	return strings.TrimSpace(rest)
}

package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// BiasService submits HR text fragments for bias analysis.
type BiasService struct {
	AI        domain.AIClient
	MaxTokens int
}

// NewBiasService constructs a BiasService.
func NewBiasService(ai domain.AIClient, maxTokens int) BiasService {
	return BiasService{AI: ai, MaxTokens: maxTokens}
}

// Detect assembles the submitted fragments into one labeled document and
// asks the model for a bias report. At least one fragment must be set.
func (s BiasService) Detect(ctx domain.Context, in domain.BiasInput) (domain.BiasReport, error) {
	content := assembleBiasContent(in)
	if strings.TrimSpace(content) == "" {
		return domain.BiasReport{}, fmt.Errorf("%w: no content provided", domain.ErrInvalidArgument)
	}
	system, user := buildBiasPrompt(content)
	raw, err := s.AI.ChatJSON(ctx, system, user, s.MaxTokens)
	if err != nil {
		return domain.BiasReport{}, err
	}
	var out domain.BiasReport
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return domain.BiasReport{}, fmt.Errorf("%w: bias payload: %v", domain.ErrSchemaInvalid, err)
	}
	return out, nil
}

func assembleBiasContent(in domain.BiasInput) string {
	var b strings.Builder
	if in.JobDescription != "" {
		fmt.Fprintf(&b, "\n[JOB DESCRIPTION]\n%s", in.JobDescription)
	}
	if in.InterviewNotes != "" {
		fmt.Fprintf(&b, "\n[INTERVIEW NOTES]\n%s", in.InterviewNotes)
	}
	if in.DecisionReasoning != "" {
		fmt.Fprintf(&b, "\n[DECISION REASONING]\n%s", in.DecisionReasoning)
	}
	return b.String()
}

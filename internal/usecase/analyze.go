package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// AnalyzeService turns a free-form HR problem statement into a structured
// analysis via the model client.
type AnalyzeService struct {
	AI        domain.AIClient
	MaxTokens int
}

// NewAnalyzeService constructs an AnalyzeService.
func NewAnalyzeService(ai domain.AIClient, maxTokens int) AnalyzeService {
	return AnalyzeService{AI: ai, MaxTokens: maxTokens}
}

// Analyze submits the problem statement and decodes the structured result.
func (s AnalyzeService) Analyze(ctx domain.Context, problem string) (domain.ProblemAnalysis, error) {
	if strings.TrimSpace(problem) == "" {
		return domain.ProblemAnalysis{}, fmt.Errorf("%w: problem text required", domain.ErrInvalidArgument)
	}
	system, user := buildAnalyzePrompt(problem)
	raw, err := s.AI.ChatJSON(ctx, system, user, s.MaxTokens)
	if err != nil {
		return domain.ProblemAnalysis{}, err
	}
	var out domain.ProblemAnalysis
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return domain.ProblemAnalysis{}, fmt.Errorf("%w: analysis payload: %v", domain.ErrSchemaInvalid, err)
	}
	return out, nil
}

// Package usecase contains application business logic services.
package usecase

import (
	"encoding/json"
	"fmt"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
	"github.com/01382253386/ai-hr-decision-platform/internal/scoring"
)

// ScoreService wraps the scoring engine and, for the audited variant, a
// model client that reviews the scores for bias patterns.
type ScoreService struct {
	Engine      *scoring.Engine
	AI          domain.AIClient
	AuditTokens int
}

// NewScoreService constructs a ScoreService with its dependencies.
func NewScoreService(e *scoring.Engine, ai domain.AIClient, auditTokens int) ScoreService {
	return ScoreService{Engine: e, AI: ai, AuditTokens: auditTokens}
}

// Score ranks the candidates with the configured weight profiles.
func (s ScoreService) Score(ctx domain.Context, candidates []domain.CandidateRating, role domain.RoleType) (domain.ScoringResult, error) {
	return s.Engine.Score(ctx, candidates, role)
}

// ScoreAudited ranks the candidates, then asks the model for a second
// opinion on the scores. The audit is part of the contract of this
// operation, so a failed model call fails the whole request.
func (s ScoreService) ScoreAudited(ctx domain.Context, candidates []domain.CandidateRating, role domain.RoleType) (domain.ScoringResult, error) {
	res, err := s.Engine.Score(ctx, candidates, role)
	if err != nil {
		return domain.ScoringResult{}, err
	}

	system, user, err := buildScoreAuditPrompt(res.Ranking)
	if err != nil {
		return domain.ScoringResult{}, err
	}
	raw, err := s.AI.ChatJSON(ctx, system, user, s.AuditTokens)
	if err != nil {
		return domain.ScoringResult{}, err
	}
	var audit domain.ScoringBiasAudit
	if err := json.Unmarshal([]byte(raw), &audit); err != nil {
		return domain.ScoringResult{}, fmt.Errorf("%w: score audit payload: %v", domain.ErrSchemaInvalid, err)
	}
	res.BiasAudit = &audit
	return res, nil
}

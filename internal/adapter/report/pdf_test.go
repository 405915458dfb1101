package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/report"
	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

func fullInput() domain.ReportInput {
	return domain.ReportInput{
		ProblemText: "We are losing senior engineers faster than we can hire.",
		ProblemAnalysis: &domain.ProblemAnalysis{
			Urgency:      "high",
			BusinessNeed: "stabilize the backend team",
			ProblemType:  "retention",
			Constraints:  []string{"budget freeze until Q4"},
			SuccessGoals: []string{"attrition below 10%"},
			HiddenRisks:  []string{"institutional knowledge loss"},
		},
		ScoringResult: &domain.ScoringResult{
			RoleType: domain.RoleTechnical,
			WeightsUsed: domain.WeightProfile{
				SkillMatch: 0.40, CultureFit: 0.15, ExecutionSpeed: 0.20,
				CostEfficiency: 0.10, Adaptability: 0.15,
			},
			Ranking: []domain.ScoredCandidate{
				{Name: "Ada Lovelace", Score: 92, Confidence: "± 3", TopStrength: domain.AttrSkillMatch, TopRisk: domain.AttrCostEfficiency, RoleType: domain.RoleTechnical},
				{Name: "Ben Carter", Score: 60, Confidence: "± 15", TopStrength: domain.AttrSkillMatch, TopRisk: domain.AttrSkillMatch, RoleType: domain.RoleTechnical},
			},
			BiasAudit: &domain.ScoringBiasAudit{
				ScoringBiasRisk: "low",
				BiasWarnings:    []string{"single reviewer rated all candidates"},
				Recommendation:  "add a second reviewer",
			},
		},
		BiasReport: &domain.BiasReport{
			OverallBiasRisk: "medium",
			BiasScore:       55,
			Flags: []domain.BiasFlag{{
				Type:         "age bias",
				Severity:     "high",
				TriggerText:  "digital native",
				Explanation:  "proxy for younger candidates",
				SuggestedFix: "describe the required skill instead",
			}},
			CleanSummary:   "Looking for an engineer comfortable with modern web tooling.",
			ComplianceRisk: "medium",
			ComplianceNote: "age-coded language may expose the company to claims",
		},
		Decision: &domain.Decision{
			CandidateName:  "Ada Lovelace",
			Position:       "Backend Engineer",
			Verdict:        "APPROVE",
			Confidence:     "0.82",
			Reasoning:      "strong systems background",
			Recommendation: "proceed to offer",
		},
	}
}

func TestPDFRendererProducesPDF(t *testing.T) {
	r := report.NewPDFRenderer()
	r.Now = func() time.Time { return time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC) }

	out, err := r.Render(context.Background(), fullInput())
	require.NoError(t, err)
	require.NotEmpty(t, out)

	assert.Equal(t, "%PDF", string(out[:4]))
	assert.Equal(t, "application/pdf", mimetype.Detect(out).String())
}

func TestPDFRendererHandlesSparseInput(t *testing.T) {
	r := report.NewPDFRenderer()

	out, err := r.Render(context.Background(), domain.ReportInput{
		Decision: &domain.Decision{CandidateName: "Ben Carter", Verdict: "REJECT"},
	})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestPDFRendererDeterministicForFixedClock(t *testing.T) {
	r := report.NewPDFRenderer()
	r.Now = func() time.Time { return time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC) }

	a, err := r.Render(context.Background(), fullInput())
	require.NoError(t, err)
	b, err := r.Render(context.Background(), fullInput())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

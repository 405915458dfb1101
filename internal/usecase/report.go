package usecase

import (
	"fmt"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// ReportService renders decision-support PDF reports.
type ReportService struct {
	Renderer domain.ReportRenderer
}

// NewReportService constructs a ReportService.
func NewReportService(r domain.ReportRenderer) ReportService {
	return ReportService{Renderer: r}
}

// Generate renders the provided sections into PDF bytes. At least one
// section must be present.
func (s ReportService) Generate(ctx domain.Context, in domain.ReportInput) ([]byte, error) {
	if in.ProblemText == "" && in.ProblemAnalysis == nil && in.ScoringResult == nil &&
		in.BiasReport == nil && in.Decision == nil {
		return nil, fmt.Errorf("%w: nothing to report", domain.ErrInvalidArgument)
	}
	return s.Renderer.Render(ctx, in)
}

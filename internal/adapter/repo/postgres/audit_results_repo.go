package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// AuditResultRepo persists and loads audit reports. The variable-shaped
// report sections (patterns, flagged names, recommendations) live in JSONB
// columns.
type AuditResultRepo struct{ Pool PgxPool }

// NewAuditResultRepo constructs an AuditResultRepo with the given pool.
func NewAuditResultRepo(p PgxPool) *AuditResultRepo { return &AuditResultRepo{Pool: p} }

// Upsert inserts or updates a report by job_id.
func (r *AuditResultRepo) Upsert(ctx domain.Context, res domain.AuditReport) error {
	tracer := otel.Tracer("repo.audit_results")
	ctx, span := tracer.Start(ctx, "audit_results.Upsert")
	defer span.End()

	patterns, err := json.Marshal(res.PatternsFound)
	if err != nil {
		return fmt.Errorf("op=audit_result.upsert patterns: %w", err)
	}
	flagged, err := json.Marshal(res.DecisionsFlagged)
	if err != nil {
		return fmt.Errorf("op=audit_result.upsert flagged: %w", err)
	}
	recs, err := json.Marshal(res.Recommendations)
	if err != nil {
		return fmt.Errorf("op=audit_result.upsert recommendations: %w", err)
	}

	q := `INSERT INTO audit_results (job_id, systemic_bias_detected, overall_risk, audit_score, patterns_found, decisions_flagged, recommendations, requires_legal_review, legal_review_reason, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (job_id)
	DO UPDATE SET systemic_bias_detected=EXCLUDED.systemic_bias_detected, overall_risk=EXCLUDED.overall_risk, audit_score=EXCLUDED.audit_score, patterns_found=EXCLUDED.patterns_found, decisions_flagged=EXCLUDED.decisions_flagged, recommendations=EXCLUDED.recommendations, requires_legal_review=EXCLUDED.requires_legal_review, legal_review_reason=EXCLUDED.legal_review_reason`
	_, err = r.Pool.Exec(ctx, q, res.JobID, res.SystemicBiasDetected, res.OverallRisk, res.AuditScore, patterns, flagged, recs, res.RequiresLegalReview, res.LegalReviewReason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=audit_result.upsert: %w", err)
	}
	return nil
}

// GetByJobID loads a report by its job_id.
func (r *AuditResultRepo) GetByJobID(ctx domain.Context, jobID string) (domain.AuditReport, error) {
	tracer := otel.Tracer("repo.audit_results")
	ctx, span := tracer.Start(ctx, "audit_results.GetByJobID")
	defer span.End()

	q := `SELECT job_id, systemic_bias_detected, overall_risk, audit_score, patterns_found, decisions_flagged, recommendations, requires_legal_review, legal_review_reason, created_at FROM audit_results WHERE job_id=$1`
	row := r.Pool.QueryRow(ctx, q, jobID)
	var res domain.AuditReport
	var patterns, flagged, recs []byte
	if err := row.Scan(&res.JobID, &res.SystemicBiasDetected, &res.OverallRisk, &res.AuditScore, &patterns, &flagged, &recs, &res.RequiresLegalReview, &res.LegalReviewReason, &res.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AuditReport{}, fmt.Errorf("op=audit_result.get: %w", domain.ErrNotFound)
		}
		return domain.AuditReport{}, fmt.Errorf("op=audit_result.get: %w", err)
	}
	if err := json.Unmarshal(patterns, &res.PatternsFound); err != nil {
		return domain.AuditReport{}, fmt.Errorf("op=audit_result.get patterns: %w", err)
	}
	if err := json.Unmarshal(flagged, &res.DecisionsFlagged); err != nil {
		return domain.AuditReport{}, fmt.Errorf("op=audit_result.get flagged: %w", err)
	}
	if err := json.Unmarshal(recs, &res.Recommendations); err != nil {
		return domain.AuditReport{}, fmt.Errorf("op=audit_result.get recommendations: %w", err)
	}
	return res, nil
}

package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// DecisionRepo persists and loads hiring decisions.
type DecisionRepo struct{ Pool PgxPool }

// NewDecisionRepo constructs a DecisionRepo with the given pool.
func NewDecisionRepo(p PgxPool) *DecisionRepo { return &DecisionRepo{Pool: p} }

// Create inserts a decision and returns its id.
func (r *DecisionRepo) Create(ctx domain.Context, d domain.Decision) (string, error) {
	tracer := otel.Tracer("repo.decisions")
	ctx, span := tracer.Start(ctx, "decisions.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.sql.table", "decisions"),
	)
	id := d.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO decisions (id, candidate_name, position, verdict, confidence, reasoning, recommendation, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.Pool.Exec(ctx, q, id, d.CandidateName, d.Position, d.Verdict, d.Confidence, d.Reasoning, d.Recommendation, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("op=decision.create: %w", err)
	}
	return id, nil
}

// ListRecent loads the most recent decisions, newest first.
func (r *DecisionRepo) ListRecent(ctx domain.Context, limit int) ([]domain.Decision, error) {
	tracer := otel.Tracer("repo.decisions")
	ctx, span := tracer.Start(ctx, "decisions.ListRecent")
	defer span.End()
	q := `SELECT id, candidate_name, position, verdict, confidence, reasoning, recommendation, created_at FROM decisions ORDER BY created_at DESC LIMIT $1`
	rows, err := r.Pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("op=decision.list_recent: %w", err)
	}
	defer rows.Close()
	out := make([]domain.Decision, 0, limit)
	for rows.Next() {
		var d domain.Decision
		if err := rows.Scan(&d.ID, &d.CandidateName, &d.Position, &d.Verdict, &d.Confidence, &d.Reasoning, &d.Recommendation, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=decision.list_recent scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=decision.list_recent rows: %w", err)
	}
	return out, nil
}

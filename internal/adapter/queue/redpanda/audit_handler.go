package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/observability"
	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
	obsctx "github.com/01382253386/ai-hr-decision-platform/internal/observability"
	"github.com/01382253386/ai-hr-decision-platform/internal/usecase"
)

// handlerTimeout bounds a single audit, model call included.
const handlerTimeout = 2 * time.Minute

// HandleAudit runs one systemic-bias audit end to end: it marks the job
// processing, sends the decision batch to the model, and stores the report.
//
// Permanent failures (bad batch, unusable model output) mark the job failed
// and return nil so the record is not redelivered. Transient failures leave
// the job in processing and return the error for redelivery; the fetch path
// fails jobs that stay there too long.
func HandleAudit(
	ctx context.Context,
	jobs domain.AuditJobRepository,
	results domain.AuditResultRepository,
	ai domain.AIClient,
	maxTokens int,
	payload domain.AuditTaskPayload,
) error {
	tracer := otel.Tracer("queue.handler")
	ctx, span := tracer.Start(ctx, "HandleAudit")
	defer span.End()

	if jobs == nil {
		return fmt.Errorf("audit job repository is nil")
	}
	if results == nil {
		return fmt.Errorf("audit result repository is nil")
	}
	if ai == nil {
		return fmt.Errorf("AI client is nil")
	}

	observability.AuditsProcessing.Inc()
	defer observability.AuditsProcessing.Dec()

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	lg := obsctx.LoggerFromContext(ctx).With(slog.String("job_id", payload.JobID))

	if err := jobs.UpdateStatus(ctx, payload.JobID, domain.AuditProcessing, nil); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}

	system, user, err := usecase.AuditPrompt(payload.Decisions)
	if err != nil {
		return failPermanently(ctx, jobs, payload.JobID, "empty decision batch: "+err.Error())
	}

	out, err := ai.ChatJSON(ctx, system, user, maxTokens)
	if err != nil {
		if errors.Is(err, domain.ErrSchemaInvalid) || errors.Is(err, domain.ErrInvalidArgument) {
			return failPermanently(ctx, jobs, payload.JobID, "schema invalid: "+err.Error())
		}
		lg.Error("audit model call failed", slog.Any("error", err))
		return fmt.Errorf("audit model call: %w", err)
	}

	var report domain.AuditReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		return failPermanently(ctx, jobs, payload.JobID, "invalid json in audit payload: "+err.Error())
	}
	report.JobID = payload.JobID
	report.CreatedAt = time.Now().UTC()

	if err := results.Upsert(ctx, report); err != nil {
		lg.Error("failed to store audit report", slog.Any("error", err))
		return fmt.Errorf("store audit report: %w", err)
	}
	if err := jobs.UpdateStatus(ctx, payload.JobID, domain.AuditCompleted, nil); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}

	observability.AuditsCompletedTotal.WithLabelValues("completed").Inc()
	lg.Info("audit job completed",
		slog.Int("decisions_audited", len(payload.Decisions)),
		slog.String("overall_risk", report.OverallRisk),
		slog.Int("patterns_found", len(report.PatternsFound)))
	return nil
}

// failPermanently marks a job failed and swallows the processing error so
// the queue does not redeliver a record that can never succeed.
func failPermanently(ctx context.Context, jobs domain.AuditJobRepository, jobID, msg string) error {
	if err := jobs.UpdateStatus(ctx, jobID, domain.AuditFailed, &msg); err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	observability.AuditsCompletedTotal.WithLabelValues("failed").Inc()
	obsctx.LoggerFromContext(ctx).Warn("audit job failed permanently",
		slog.String("job_id", jobID), slog.String("reason", msg))
	return nil
}

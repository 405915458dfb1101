package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
	"github.com/01382253386/ai-hr-decision-platform/internal/observability"
)

// staleAfter is how long a queued or processing audit may sit before the
// fetch path marks it failed. Covers worker crashes between status writes.
const staleAfter = 2 * time.Minute

// AuditService enqueues batch audits of hiring decisions and serves their
// status and results.
type AuditService struct {
	Jobs        domain.AuditJobRepository
	Results     domain.AuditResultRepository
	Decisions   domain.DecisionRepository
	Queue       domain.Queue
	RecentLimit int
}

// NewAuditService constructs an AuditService with its dependencies.
func NewAuditService(j domain.AuditJobRepository, r domain.AuditResultRepository, d domain.DecisionRepository, q domain.Queue, recentLimit int) AuditService {
	return AuditService{Jobs: j, Results: r, Decisions: d, Queue: q, RecentLimit: recentLimit}
}

// Enqueue creates an audit job for the given decisions and queues it for
// the worker. With no inline decisions it audits the most recent persisted
// batch. An idempotency key returns the existing job on replay.
func (s AuditService) Enqueue(ctx domain.Context, decisions []domain.Decision, idemKey string) (string, error) {
	if idemKey != "" {
		if j, err := s.Jobs.FindByIdempotencyKey(ctx, idemKey); err == nil && j.ID != "" {
			return j.ID, nil
		}
	}
	if len(decisions) == 0 {
		recent, err := s.Decisions.ListRecent(ctx, s.RecentLimit)
		if err != nil {
			return "", err
		}
		decisions = recent
	}
	if len(decisions) == 0 {
		return "", fmt.Errorf("%w: no decisions to audit", domain.ErrInvalidArgument)
	}

	j := domain.AuditJob{Status: domain.AuditQueued, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if idemKey != "" {
		j.IdemKey = &idemKey
	}
	jobID, err := s.Jobs.Create(ctx, j)
	if err != nil {
		return "", err
	}
	payload := domain.AuditTaskPayload{
		JobID:     jobID,
		Decisions: decisions,
		RequestID: observability.RequestIDFromContext(ctx),
	}
	if _, err := s.Queue.EnqueueAudit(ctx, payload); err != nil {
		_ = s.Jobs.UpdateStatus(ctx, jobID, domain.AuditFailed, ptr("enqueue failed"))
		return "", err
	}
	return jobID, nil
}

// Fetch returns the HTTP status code, response body, and ETag for the
// given audit job. Conditional requests matching the ETag get 304 with a
// nil body.
func (s AuditService) Fetch(ctx domain.Context, id, ifNoneMatch string) (int, map[string]any, string, error) {
	job, err := s.Jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return http.StatusNotFound, nil, "", fmt.Errorf("%w: audit job not found", domain.ErrNotFound)
		}
		return http.StatusInternalServerError, nil, "", err
	}
	if job.Status != domain.AuditCompleted {
		now := time.Now().UTC()
		stale := (job.Status == domain.AuditQueued && now.Sub(job.CreatedAt) > staleAfter) ||
			(job.Status == domain.AuditProcessing && now.Sub(job.UpdatedAt) > staleAfter)
		if stale {
			slog.WarnContext(ctx, "audit job marked stale",
				slog.String("job_id", id), slog.String("status", string(job.Status)))
			msg := "timeout: audit exceeded " + staleAfter.String()
			_ = s.Jobs.UpdateStatus(ctx, id, domain.AuditFailed, &msg)
			job.Status = domain.AuditFailed
			job.Error = msg
		}
		m := map[string]any{"id": id, "status": string(job.Status)}
		if job.Status == domain.AuditFailed {
			m["error"] = map[string]any{"code": auditErrorCode(job.Error), "message": job.Error}
		}
		return withETag(m, ifNoneMatch)
	}

	res, err := s.Results.GetByJobID(ctx, id)
	if err != nil {
		return http.StatusInternalServerError, nil, "", err
	}
	m := map[string]any{
		"id":     id,
		"status": string(domain.AuditCompleted),
		"result": res,
	}
	return withETag(m, ifNoneMatch)
}

func withETag(m map[string]any, ifNoneMatch string) (int, map[string]any, string, error) {
	etag := makeETag(m)
	if etag == ifNoneMatch {
		return http.StatusNotModified, nil, etag, nil
	}
	return http.StatusOK, m, etag, nil
}

func makeETag(v any) string {
	b, _ := json.Marshal(v)
	s := sha256.Sum256(b)
	return hex.EncodeToString(s[:])
}

// auditErrorCode maps a stored job error message to a stable error code.
func auditErrorCode(msg string) string {
	switch {
	case containsAny(msg, "schema invalid", "invalid json", "empty"):
		return "SCHEMA_INVALID"
	case containsAny(msg, "rate limit"):
		return "UPSTREAM_RATE_LIMIT"
	case containsAny(msg, "timeout", "deadline exceeded"):
		return "UPSTREAM_TIMEOUT"
	case containsAny(msg, "enqueue failed"):
		return "INTERNAL"
	default:
		return "INTERNAL"
	}
}

func containsAny(msg string, needles ...string) bool {
	msg = strings.ToLower(msg)
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}

func ptr(s string) *string { return &s }

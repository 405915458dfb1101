package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

func auditDecisions() []domain.Decision {
	return []domain.Decision{
		{CandidateName: "Ada", Position: "Engineer", Verdict: "APPROVE"},
		{CandidateName: "Ben", Position: "Engineer", Verdict: "REJECT"},
	}
}

func newAuditService(jobs *fakeJobRepo, results *fakeResultRepo, decs *fakeDecisionRepo, q *fakeQueue) AuditService {
	return NewAuditService(jobs, results, decs, q, 50)
}

func TestAuditService_Enqueue_Inline(t *testing.T) {
	jobs, q := newFakeJobRepo(), &fakeQueue{}
	svc := newAuditService(jobs, newFakeResultRepo(), &fakeDecisionRepo{}, q)

	id, err := svc.Enqueue(context.Background(), auditDecisions(), "")
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)
	require.Len(t, q.payloads, 1)
	assert.Equal(t, "job-1", q.payloads[0].JobID)
	assert.Len(t, q.payloads[0].Decisions, 2)
	assert.Equal(t, domain.AuditQueued, jobs.jobs["job-1"].Status)
}

func TestAuditService_Enqueue_FallsBackToRecentDecisions(t *testing.T) {
	q := &fakeQueue{}
	svc := newAuditService(newFakeJobRepo(), newFakeResultRepo(), &fakeDecisionRepo{recent: auditDecisions()}, q)

	_, err := svc.Enqueue(context.Background(), nil, "")
	require.NoError(t, err)
	require.Len(t, q.payloads, 1)
	assert.Len(t, q.payloads[0].Decisions, 2)
}

func TestAuditService_Enqueue_NothingToAudit(t *testing.T) {
	svc := newAuditService(newFakeJobRepo(), newFakeResultRepo(), &fakeDecisionRepo{}, &fakeQueue{})
	_, err := svc.Enqueue(context.Background(), nil, "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAuditService_Enqueue_IdempotencyReplay(t *testing.T) {
	jobs, q := newFakeJobRepo(), &fakeQueue{}
	svc := newAuditService(jobs, newFakeResultRepo(), &fakeDecisionRepo{}, q)

	first, err := svc.Enqueue(context.Background(), auditDecisions(), "key-1")
	require.NoError(t, err)
	second, err := svc.Enqueue(context.Background(), auditDecisions(), "key-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, q.payloads, 1, "replay must not enqueue again")
}

func TestAuditService_Enqueue_QueueFailureMarksJobFailed(t *testing.T) {
	jobs := newFakeJobRepo()
	svc := newAuditService(jobs, newFakeResultRepo(), &fakeDecisionRepo{}, &fakeQueue{err: errors.New("broker down")})

	_, err := svc.Enqueue(context.Background(), auditDecisions(), "")
	require.Error(t, err)
	assert.Equal(t, domain.AuditFailed, jobs.jobs["job-1"].Status)
}

func TestAuditService_Fetch_Queued(t *testing.T) {
	jobs := newFakeJobRepo()
	id, _ := jobs.Create(context.Background(), domain.AuditJob{
		Status: domain.AuditQueued, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	})
	svc := newAuditService(jobs, newFakeResultRepo(), &fakeDecisionRepo{}, &fakeQueue{})

	code, body, etag, err := svc.Fetch(context.Background(), id, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "queued", body["status"])
	assert.NotEmpty(t, etag)
}

func TestAuditService_Fetch_ETagMatchReturns304(t *testing.T) {
	jobs := newFakeJobRepo()
	id, _ := jobs.Create(context.Background(), domain.AuditJob{
		Status: domain.AuditQueued, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	})
	svc := newAuditService(jobs, newFakeResultRepo(), &fakeDecisionRepo{}, &fakeQueue{})

	_, _, etag, err := svc.Fetch(context.Background(), id, "")
	require.NoError(t, err)

	code, body, _, err := svc.Fetch(context.Background(), id, etag)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, code)
	assert.Nil(t, body)
}

func TestAuditService_Fetch_Completed(t *testing.T) {
	jobs, results := newFakeJobRepo(), newFakeResultRepo()
	id, _ := jobs.Create(context.Background(), domain.AuditJob{
		Status: domain.AuditCompleted, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	})
	require.NoError(t, results.Upsert(context.Background(), domain.AuditReport{
		JobID: id, OverallRisk: "low", AuditScore: 12,
	}))
	svc := newAuditService(jobs, results, &fakeDecisionRepo{}, &fakeQueue{})

	code, body, _, err := svc.Fetch(context.Background(), id, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", body["status"])
	report, ok := body["result"].(domain.AuditReport)
	require.True(t, ok)
	assert.Equal(t, "low", report.OverallRisk)
}

func TestAuditService_Fetch_NotFound(t *testing.T) {
	svc := newAuditService(newFakeJobRepo(), newFakeResultRepo(), &fakeDecisionRepo{}, &fakeQueue{})
	code, _, _, err := svc.Fetch(context.Background(), "missing", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuditService_Fetch_StaleQueuedMarkedFailed(t *testing.T) {
	jobs := newFakeJobRepo()
	old := time.Now().UTC().Add(-10 * time.Minute)
	id, _ := jobs.Create(context.Background(), domain.AuditJob{
		Status: domain.AuditQueued, CreatedAt: old, UpdatedAt: old,
	})
	svc := newAuditService(jobs, newFakeResultRepo(), &fakeDecisionRepo{}, &fakeQueue{})

	code, body, _, err := svc.Fetch(context.Background(), id, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "failed", body["status"])
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "UPSTREAM_TIMEOUT", errObj["code"])
}

func TestAuditErrorCode(t *testing.T) {
	assert.Equal(t, "SCHEMA_INVALID", auditErrorCode("schema invalid: audit payload"))
	assert.Equal(t, "UPSTREAM_RATE_LIMIT", auditErrorCode("upstream rate limit"))
	assert.Equal(t, "UPSTREAM_TIMEOUT", auditErrorCode("timeout: audit exceeded 2m0s"))
	assert.Equal(t, "INTERNAL", auditErrorCode("enqueue failed"))
	assert.Equal(t, "INTERNAL", auditErrorCode("something else"))
}

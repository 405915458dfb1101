package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/ai/stub"
	"github.com/01382253386/ai-hr-decision-platform/internal/config"
	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
	"github.com/01382253386/ai-hr-decision-platform/internal/scoring"
	"github.com/01382253386/ai-hr-decision-platform/internal/usecase"
)

type memDecisionRepo struct {
	decisions []domain.Decision
	err       error
}

func (m *memDecisionRepo) Create(_ domain.Context, d domain.Decision) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.decisions = append(m.decisions, d)
	return fmt.Sprintf("dec-%d", len(m.decisions)), nil
}

func (m *memDecisionRepo) ListRecent(_ domain.Context, _ int) ([]domain.Decision, error) {
	return m.decisions, m.err
}

type memJobRepo struct {
	jobs   map[string]domain.AuditJob
	nextID int
}

func newMemJobRepo() *memJobRepo { return &memJobRepo{jobs: map[string]domain.AuditJob{}} }

func (m *memJobRepo) Create(_ domain.Context, j domain.AuditJob) (string, error) {
	m.nextID++
	j.ID = fmt.Sprintf("job-%d", m.nextID)
	m.jobs[j.ID] = j
	return j.ID, nil
}

func (m *memJobRepo) UpdateStatus(_ domain.Context, id string, st domain.AuditJobStatus, msg *string) error {
	j := m.jobs[id]
	j.Status = st
	if msg != nil {
		j.Error = *msg
	}
	j.UpdatedAt = time.Now().UTC()
	m.jobs[id] = j
	return nil
}

func (m *memJobRepo) Get(_ domain.Context, id string) (domain.AuditJob, error) {
	j, ok := m.jobs[id]
	if !ok {
		return domain.AuditJob{}, domain.ErrNotFound
	}
	return j, nil
}

func (m *memJobRepo) FindByIdempotencyKey(_ domain.Context, _ string) (domain.AuditJob, error) {
	return domain.AuditJob{}, domain.ErrNotFound
}

type memResultRepo struct{ reports map[string]domain.AuditReport }

func newMemResultRepo() *memResultRepo { return &memResultRepo{reports: map[string]domain.AuditReport{}} }

func (m *memResultRepo) Upsert(_ domain.Context, r domain.AuditReport) error {
	m.reports[r.JobID] = r
	return nil
}

func (m *memResultRepo) GetByJobID(_ domain.Context, id string) (domain.AuditReport, error) {
	r, ok := m.reports[id]
	if !ok {
		return domain.AuditReport{}, domain.ErrNotFound
	}
	return r, nil
}

type memQueue struct{ payloads []domain.AuditTaskPayload }

func (m *memQueue) EnqueueAudit(_ domain.Context, p domain.AuditTaskPayload) (string, error) {
	m.payloads = append(m.payloads, p)
	return "msg-1", nil
}

type pdfStub struct{}

func (pdfStub) Render(_ domain.Context, _ domain.ReportInput) ([]byte, error) {
	return []byte("%PDF-1.4 test"), nil
}

func testServer(t *testing.T) (*Server, *memDecisionRepo, *memJobRepo, *memResultRepo) {
	t.Helper()
	cfg := config.Config{AppEnv: "test", MaxUploadMB: 1, AuditRecentLimit: 50}
	ai := stub.New()
	engine := scoring.NewEngine(scoring.DefaultProfiles())
	decRepo := &memDecisionRepo{}
	jobs := newMemJobRepo()
	results := newMemResultRepo()
	srv := NewServer(cfg,
		usecase.NewAnalyzeService(ai, 800),
		usecase.NewScoreService(engine, ai, 800),
		usecase.NewDecisionService(ai, decRepo, 500),
		usecase.NewBiasService(ai, 1200),
		usecase.NewAuditService(jobs, results, decRepo, &memQueue{}, 50),
		usecase.NewReportService(pdfStub{}),
		nil, nil, nil)
	return srv, decRepo, jobs, results
}

func TestRootAndHealthz(t *testing.T) {
	srv, _, _, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.RootHandler()(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "AI HR Decision Platform is running")

	rec = httptest.NewRecorder()
	srv.HealthzHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestScoreHandler_Success(t *testing.T) {
	srv, _, _, _ := testServer(t)
	body := `{"candidates":[{"name":"Ada","skill_match":5,"culture_fit":5,"execution_speed":5,"cost_efficiency":5,"adaptability":5},{"name":"Ben"}],"role_type":"technical"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/candidates/score", strings.NewReader(body))
	srv.ScoreHandler()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res domain.ScoringResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Ranking, 2)
	assert.Equal(t, "Ada", res.Ranking[0].Name)
	assert.Equal(t, 100, res.Ranking[0].Score)
	// Ben sent no ratings, so every attribute defaulted to neutral.
	assert.Equal(t, 60, res.Ranking[1].Score)
	assert.Equal(t, "± 15", res.Ranking[1].Confidence)
}

func TestScoreHandler_InvalidRating(t *testing.T) {
	srv, _, _, _ := testServer(t)
	body := `{"candidates":[{"name":"Ada","skill_match":9}]}`
	rec := httptest.NewRecorder()
	srv.ScoreHandler()(rec, httptest.NewRequest(http.MethodPost, "/v1/candidates/score", strings.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_RATING")
}

func TestScoreHandler_NoCandidates(t *testing.T) {
	srv, _, _, _ := testServer(t)
	body := `{"candidates":[{"name":"  "}]}`
	rec := httptest.NewRecorder()
	srv.ScoreHandler()(rec, httptest.NewRequest(http.MethodPost, "/v1/candidates/score", strings.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "NO_CANDIDATES")
}

func TestScoreHandler_EmptyListRejectedByValidation(t *testing.T) {
	srv, _, _, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.ScoreHandler()(rec, httptest.NewRequest(http.MethodPost, "/v1/candidates/score", strings.NewReader(`{"candidates":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")
}

func TestScoreAuditedHandler_AttachesAudit(t *testing.T) {
	srv, _, _, _ := testServer(t)
	body := `{"candidates":[{"name":"Ada","skill_match":4}],"role_type":"executive"}`
	rec := httptest.NewRecorder()
	srv.ScoreAuditedHandler()(rec, httptest.NewRequest(http.MethodPost, "/v1/candidates/score-audited", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res domain.ScoringResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.BiasAudit)
	assert.Equal(t, "low", res.BiasAudit.ScoringBiasRisk)
}

func TestAnalyzeHandler(t *testing.T) {
	srv, _, _, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.AnalyzeHandler()(rec, httptest.NewRequest(http.MethodPost, "/v1/problems/analyze", strings.NewReader(`{"problem":"our lead engineer resigned"}`)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res domain.ProblemAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "hiring", res.ProblemType)
}

func TestAnalyzeHandler_MissingProblem(t *testing.T) {
	srv, _, _, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.AnalyzeHandler()(rec, httptest.NewRequest(http.MethodPost, "/v1/problems/analyze", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecisionCreateHandler_PersistsDecision(t *testing.T) {
	srv, decRepo, _, _ := testServer(t)
	body := `{"candidate_name":"Ada","position":"Engineer","experience_years":7,"skills":["Go"],"notes":"strong"}`
	rec := httptest.NewRecorder()
	srv.DecisionCreateHandler()(rec, httptest.NewRequest(http.MethodPost, "/v1/decisions", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var d domain.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "APPROVE", d.Verdict)
	assert.Equal(t, "Ada", d.CandidateName)
	assert.Len(t, decRepo.decisions, 1)
}

func TestDecisionsListHandler_BadLimit(t *testing.T) {
	srv, _, _, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.DecisionsListHandler()(rec, httptest.NewRequest(http.MethodGet, "/v1/decisions?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBiasDetectHandler_EmptyInput(t *testing.T) {
	srv, _, _, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.BiasDetectHandler()(rec, httptest.NewRequest(http.MethodPost, "/v1/bias/detect", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")
}

func TestBiasDetectHandler_Success(t *testing.T) {
	srv, _, _, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.BiasDetectHandler()(rec, httptest.NewRequest(http.MethodPost, "/v1/bias/detect", strings.NewReader(`{"job_description":"seeking a rockstar"}`)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res domain.BiasReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "low", res.OverallBiasRisk)
}

func multipartDoc(t *testing.T, filename, kind string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("document", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	if kind != "" {
		require.NoError(t, mw.WriteField("kind", kind))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestBiasDetectFileHandler_Success(t *testing.T) {
	srv, _, _, _ := testServer(t)
	buf, ctype := multipartDoc(t, "notes.txt", "interview_notes", []byte("He seemed too old for our young team."))
	req := httptest.NewRequest(http.MethodPost, "/v1/bias/detect-file", buf)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.BiasDetectFileHandler()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "overall_bias_risk")
}

func TestBiasDetectFileHandler_RejectsExtension(t *testing.T) {
	srv, _, _, _ := testServer(t)
	buf, ctype := multipartDoc(t, "notes.pdf", "", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/v1/bias/detect-file", buf)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.BiasDetectFileHandler()(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestBiasDetectFileHandler_RejectsBinaryContent(t *testing.T) {
	srv, _, _, _ := testServer(t)
	buf, ctype := multipartDoc(t, "notes.txt", "", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0})
	req := httptest.NewRequest(http.MethodPost, "/v1/bias/detect-file", buf)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.BiasDetectFileHandler()(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestBiasDetectFileHandler_UnknownKind(t *testing.T) {
	srv, _, _, _ := testServer(t)
	buf, ctype := multipartDoc(t, "notes.txt", "bogus", []byte("text"))
	req := httptest.NewRequest(http.MethodPost, "/v1/bias/detect-file", buf)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.BiasDetectFileHandler()(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type promptRecorder struct {
	inner      domain.AIClient
	userPrompt string
}

func (p *promptRecorder) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	p.userPrompt = userPrompt
	return p.inner.ChatJSON(ctx, systemPrompt, userPrompt, maxTokens)
}

func (p *promptRecorder) Complete(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return p.inner.Complete(ctx, systemPrompt, userPrompt, maxTokens)
}

func TestBiasDetectFileHandler_CapsDocumentLength(t *testing.T) {
	cfg := config.Config{AppEnv: "test", MaxUploadMB: 1, AuditRecentLimit: 50}
	rec := &promptRecorder{inner: stub.New()}
	srv := NewServer(cfg,
		usecase.NewAnalyzeService(rec, 800),
		usecase.NewScoreService(scoring.NewEngine(scoring.DefaultProfiles()), rec, 800),
		usecase.NewDecisionService(rec, &memDecisionRepo{}, 500),
		usecase.NewBiasService(rec, 1200),
		usecase.NewAuditService(newMemJobRepo(), newMemResultRepo(), &memDecisionRepo{}, &memQueue{}, 50),
		usecase.NewReportService(pdfStub{}),
		nil, nil, nil)

	// Well under the upload byte cap, but over the per-field character cap.
	buf, ctype := multipartDoc(t, "jd.txt", "job_description", bytes.Repeat([]byte("a"), 25000))
	req := httptest.NewRequest(http.MethodPost, "/v1/bias/detect-file", buf)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	srv.BiasDetectFileHandler()(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, rec.userPrompt, strings.Repeat("a", 20000)+"…")
	assert.NotContains(t, rec.userPrompt, strings.Repeat("a", 20001))
}

func TestAuditCreateAndGet(t *testing.T) {
	srv, _, jobs, results := testServer(t)
	body := `{"decisions":[{"candidate":"Ada","decision":"APPROVE"},{"candidate":"Ben","decision":"REJECT"}]}`
	rec := httptest.NewRecorder()
	srv.AuditCreateHandler()(rec, httptest.NewRequest(http.MethodPost, "/v1/audits", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	jobID := created["id"]
	require.NotEmpty(t, jobID)
	assert.Equal(t, "queued", created["status"])

	// Complete the job out of band, then fetch the result.
	require.NoError(t, results.Upsert(context.Background(), domain.AuditReport{JobID: jobID, OverallRisk: "low"}))
	require.NoError(t, jobs.UpdateStatus(context.Background(), jobID, domain.AuditCompleted, nil))

	r := chi.NewRouter()
	r.Get("/v1/audits/{id}", srv.AuditGetHandler())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/audits/"+jobID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Contains(t, rec.Body.String(), "completed")

	req := httptest.NewRequest(http.MethodGet, "/v1/audits/"+jobID, nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestAuditGetHandler_NotFound(t *testing.T) {
	srv, _, _, _ := testServer(t)
	r := chi.NewRouter()
	r.Get("/v1/audits/{id}", srv.AuditGetHandler())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/audits/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestReportHandler_ReturnsPDF(t *testing.T) {
	srv, _, _, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.ReportHandler()(rec, httptest.NewRequest(http.MethodPost, "/v1/reports", strings.NewReader(`{"problem_text":"hiring freeze"}`)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestReadyzHandler_FailingProbe(t *testing.T) {
	srv, _, _, _ := testServer(t)
	srv.DBCheck = func(context.Context) error { return nil }
	srv.RedisCheck = func(context.Context) error { return errors.New("redis down") }
	rec := httptest.NewRecorder()
	srv.ReadyzHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis down")
}

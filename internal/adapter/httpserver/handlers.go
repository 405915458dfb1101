package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/observability"
	"github.com/01382253386/ai-hr-decision-platform/internal/config"
	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
	"github.com/01382253386/ai-hr-decision-platform/internal/usecase"
	"github.com/01382253386/ai-hr-decision-platform/pkg/textx"
)

const apiVersion = "5.0.0"

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Analyze    usecase.AnalyzeService
	Scores     usecase.ScoreService
	Decisions  usecase.DecisionService
	Bias       usecase.BiasService
	Audits     usecase.AuditService
	Reports    usecase.ReportService
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	KafkaCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, analyze usecase.AnalyzeService, scores usecase.ScoreService, decisions usecase.DecisionService, bias usecase.BiasService, audits usecase.AuditService, reports usecase.ReportService, dbCheck, redisCheck, kafkaCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Analyze: analyze, Scores: scores, Decisions: decisions, Bias: bias, Audits: audits, Reports: reports, DBCheck: dbCheck, RedisCheck: redisCheck, KafkaCheck: kafkaCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// decodeJSON caps the body, decodes into dst, and runs struct validation.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument)
	}
	if err := getValidator().Struct(dst); err != nil {
		verrs := map[string]string{}
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		return fmt.Errorf("%w: validation failed: %v", domain.ErrInvalidArgument, verrs)
	}
	return nil
}

// RootHandler returns the service banner.
func (s *Server) RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "AI HR Decision Platform is running",
			"status":  "active",
		})
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": apiVersion})
	}
}

// ReadyzHandler probes Postgres, Redis and the Kafka brokers.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"db", s.DBCheck},
			{"redis", s.RedisCheck},
			{"kafka", s.KafkaCheck},
		}
		checks := make([]check, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				checks = append(checks, check{Name: p.name, OK: false, Details: err.Error()})
				ok = false
			} else {
				checks = append(checks, check{Name: p.name, OK: true})
			}
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

// AnalyzeHandler runs the model problem analysis.
func (s *Server) AnalyzeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Problem string `json:"problem" validate:"required,max=20000"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		out, err := s.Analyze.Analyze(r.Context(), req.Problem)
		if err != nil {
			writeError(w, r, fmt.Errorf("analyze: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// candidateReq is the wire shape of one candidate. Missing ratings default
// to the neutral value at this boundary.
type candidateReq struct {
	Name           string `json:"name"`
	SkillMatch     *int   `json:"skill_match"`
	CultureFit     *int   `json:"culture_fit"`
	ExecutionSpeed *int   `json:"execution_speed"`
	CostEfficiency *int   `json:"cost_efficiency"`
	Adaptability   *int   `json:"adaptability"`
}

func (c candidateReq) toDomain() domain.CandidateRating {
	return domain.CandidateRating{
		Name:           strings.TrimSpace(c.Name),
		SkillMatch:     orNeutral(c.SkillMatch),
		CultureFit:     orNeutral(c.CultureFit),
		ExecutionSpeed: orNeutral(c.ExecutionSpeed),
		CostEfficiency: orNeutral(c.CostEfficiency),
		Adaptability:   orNeutral(c.Adaptability),
	}
}

func orNeutral(v *int) int {
	if v == nil {
		return domain.RatingNeutral
	}
	return *v
}

type scoreReq struct {
	Candidates []candidateReq `json:"candidates" validate:"required,min=1"`
	RoleType   string         `json:"role_type"`
}

func (req scoreReq) toDomain() ([]domain.CandidateRating, domain.RoleType) {
	candidates := make([]domain.CandidateRating, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		candidates = append(candidates, c.toDomain())
	}
	role := domain.RoleType(req.RoleType)
	if role == "" {
		role = domain.RoleTechnical
	}
	return candidates, role
}

// ScoreHandler ranks candidates with the deterministic engine.
func (s *Server) ScoreHandler() http.HandlerFunc {
	return s.scoreWith(func(ctx context.Context, c []domain.CandidateRating, role domain.RoleType) (domain.ScoringResult, error) {
		return s.Scores.Score(ctx, c, role)
	})
}

// ScoreAuditedHandler ranks candidates and attaches a model bias audit.
func (s *Server) ScoreAuditedHandler() http.HandlerFunc {
	return s.scoreWith(func(ctx context.Context, c []domain.CandidateRating, role domain.RoleType) (domain.ScoringResult, error) {
		return s.Scores.ScoreAudited(ctx, c, role)
	})
}

func (s *Server) scoreWith(score func(context.Context, []domain.CandidateRating, domain.RoleType) (domain.ScoringResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scoreReq
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		candidates, role := req.toDomain()
		res, err := score(r.Context(), candidates, role)
		if err != nil {
			writeError(w, r, fmt.Errorf("score: %w", err), nil)
			return
		}
		observeScores(res)
		writeJSON(w, http.StatusOK, res)
	}
}

func observeScores(res domain.ScoringResult) {
	scores := make([]int, 0, len(res.Ranking))
	margins := make([]int, 0, len(res.Ranking))
	for _, c := range res.Ranking {
		scores = append(scores, c.Score)
		margins = append(margins, c.Margin)
	}
	observability.ObserveScores(scores, margins)
}

// DecisionCreateHandler asks the model for a hiring decision and persists it.
func (s *Server) DecisionCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CandidateName   string   `json:"candidate_name" validate:"required,max=200"`
			Position        string   `json:"position" validate:"required,max=200"`
			ExperienceYears int      `json:"experience_years" validate:"gte=0,lte=80"`
			Skills          []string `json:"skills" validate:"max=50"`
			Notes           string   `json:"notes" validate:"max=5000"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		d, err := s.Decisions.Create(r.Context(), domain.DecisionInput{
			CandidateName:   req.CandidateName,
			Position:        req.Position,
			ExperienceYears: req.ExperienceYears,
			Skills:          req.Skills,
			Notes:           req.Notes,
		})
		if err != nil {
			writeError(w, r, fmt.Errorf("decision: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// DecisionsListHandler returns the most recent persisted decisions.
func (s *Server) DecisionsListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := s.Cfg.AuditRecentLimit
		if q := r.URL.Query().Get("limit"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n < 1 || n > 500 {
				writeError(w, r, fmt.Errorf("%w: limit must be 1..500", domain.ErrInvalidArgument), nil)
				return
			}
			limit = n
		}
		out, err := s.Decisions.ListRecent(r.Context(), limit)
		if err != nil {
			writeError(w, r, fmt.Errorf("list decisions: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"decisions": out})
	}
}

// BiasDetectHandler analyses submitted HR text fragments for bias.
func (s *Server) BiasDetectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JobDescription    string `json:"job_description" validate:"max=20000"`
			InterviewNotes    string `json:"interview_notes" validate:"max=20000"`
			DecisionReasoning string `json:"decision_reasoning" validate:"max=20000"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		out, err := s.Bias.Detect(r.Context(), domain.BiasInput{
			JobDescription:    req.JobDescription,
			InterviewNotes:    req.InterviewNotes,
			DecisionReasoning: req.DecisionReasoning,
		})
		if err != nil {
			writeError(w, r, fmt.Errorf("bias detect: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// maxDocumentChars caps uploaded document content at the same length the
// JSON bias fields accept.
const maxDocumentChars = 20000

// BiasDetectFileHandler accepts a plain-text document upload and runs the
// same bias analysis on its content. The "kind" form value selects which
// fragment the document represents.
func (s *Server) BiasDetectFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code: "INVALID_ARGUMENT", Message: "payload too large",
					Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		file, header, err := r.FormFile("document")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: document file required", domain.ErrInvalidArgument), map[string]string{"field": "document"})
			return
		}
		defer func() { _ = file.Close() }()

		if !strings.HasSuffix(strings.ToLower(header.Filename), ".txt") {
			writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "unsupported media type (extension)",
				Details: map[string]any{"filename": header.Filename},
			}})
			return
		}
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: document read: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		if m := mimetype.Detect(data); !strings.HasPrefix(m.String(), "text/") {
			writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "unsupported media type (content)",
				Details: map[string]any{"mime": m.String(), "filename": header.Filename},
			}})
			return
		}
		text := textx.Truncate(textx.SanitizeText(string(data)), maxDocumentChars)

		in := domain.BiasInput{}
		switch kind := r.FormValue("kind"); kind {
		case "", "job_description":
			in.JobDescription = text
		case "interview_notes":
			in.InterviewNotes = text
		case "decision_reasoning":
			in.DecisionReasoning = text
		default:
			writeError(w, r, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidArgument, kind), nil)
			return
		}
		out, err := s.Bias.Detect(r.Context(), in)
		if err != nil {
			writeError(w, r, fmt.Errorf("bias detect: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// decisionReq mirrors domain.Decision on the wire for audit submissions.
type decisionReq struct {
	CandidateName  string `json:"candidate" validate:"required,max=200"`
	Position       string `json:"position" validate:"max=200"`
	Verdict        string `json:"decision" validate:"max=50"`
	Confidence     string `json:"confidence" validate:"max=50"`
	Reasoning      string `json:"reasoning" validate:"max=5000"`
	Recommendation string `json:"recommendation" validate:"max=5000"`
}

// AuditCreateHandler enqueues an asynchronous batch audit. Without inline
// decisions the most recent persisted batch is audited.
func (s *Server) AuditCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Decisions []decisionReq `json:"decisions" validate:"max=200,dive"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		decisions := make([]domain.Decision, 0, len(req.Decisions))
		for _, d := range req.Decisions {
			decisions = append(decisions, domain.Decision{
				CandidateName:  d.CandidateName,
				Position:       d.Position,
				Verdict:        d.Verdict,
				Confidence:     d.Confidence,
				Reasoning:      d.Reasoning,
				Recommendation: d.Recommendation,
			})
		}
		jobID, err := s.Audits.Enqueue(r.Context(), decisions, r.Header.Get("Idempotency-Key"))
		if err != nil {
			writeError(w, r, fmt.Errorf("enqueue audit: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": jobID, "status": string(domain.AuditQueued)})
	}
}

// AuditGetHandler returns audit job status and the report when completed.
func (s *Server) AuditGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		status, res, etag, err := s.Audits.Fetch(r.Context(), id, r.Header.Get("If-None-Match"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("ETag", etag)
		if status == http.StatusNotModified {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, status, res)
	}
}

// ReportHandler renders the submitted sections as a PDF document.
func (s *Server) ReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProblemText     string                  `json:"problem_text" validate:"max=20000"`
			ProblemAnalysis *domain.ProblemAnalysis `json:"problem_analysis"`
			ScoringResult   *domain.ScoringResult   `json:"scoring_result"`
			BiasResult      *domain.BiasReport      `json:"bias_result"`
			DecisionResult  *domain.Decision        `json:"decision_result"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		pdf, err := s.Reports.Generate(r.Context(), domain.ReportInput{
			ProblemText:     req.ProblemText,
			ProblemAnalysis: req.ProblemAnalysis,
			ScoringResult:   req.ScoringResult,
			BiasReport:      req.BiasResult,
			Decision:        req.DecisionResult,
		})
		if err != nil {
			writeError(w, r, fmt.Errorf("report: %w", err), nil)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename=hr_decision_report.pdf`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
	}
}

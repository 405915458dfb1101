package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNoCandidates      = errors.New("no candidates to score")
	ErrInvalidRating     = errors.New("rating out of range")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
)

// Attribute identifies one of the five candidate rating dimensions.
type Attribute string

const (
	AttrSkillMatch     Attribute = "skill_match"
	AttrCultureFit     Attribute = "culture_fit"
	AttrExecutionSpeed Attribute = "execution_speed"
	AttrCostEfficiency Attribute = "cost_efficiency"
	AttrAdaptability   Attribute = "adaptability"
)

// AttributeOrder is the fixed iteration order used for strength/risk
// tie-breaks. Changing it changes which attribute wins a tie.
var AttributeOrder = [5]Attribute{
	AttrSkillMatch,
	AttrCultureFit,
	AttrExecutionSpeed,
	AttrCostEfficiency,
	AttrAdaptability,
}

// Rating bounds and the neutral default for unrated attributes.
const (
	RatingMin     = 1
	RatingMax     = 5
	RatingNeutral = 3
)

// RoleType selects a weight profile for scoring.
type RoleType string

const (
	RoleTechnical   RoleType = "technical"
	RoleExecutive   RoleType = "executive"
	RoleOperational RoleType = "operational"
)

// CandidateRating holds a candidate's five attribute ratings, each in
// [RatingMin, RatingMax]. Missing ratings default to RatingNeutral at the
// API boundary, never here.
type CandidateRating struct {
	Name           string
	SkillMatch     int
	CultureFit     int
	ExecutionSpeed int
	CostEfficiency int
	Adaptability   int
}

// Rating returns the rating for the given attribute.
func (c CandidateRating) Rating(a Attribute) int {
	switch a {
	case AttrSkillMatch:
		return c.SkillMatch
	case AttrCultureFit:
		return c.CultureFit
	case AttrExecutionSpeed:
		return c.ExecutionSpeed
	case AttrCostEfficiency:
		return c.CostEfficiency
	case AttrAdaptability:
		return c.Adaptability
	}
	return RatingNeutral
}

// WeightProfile maps the five attributes to multipliers summing to 1.0.
type WeightProfile struct {
	SkillMatch     float64 `yaml:"skill_match" json:"skill_match"`
	CultureFit     float64 `yaml:"culture_fit" json:"culture_fit"`
	ExecutionSpeed float64 `yaml:"execution_speed" json:"execution_speed"`
	CostEfficiency float64 `yaml:"cost_efficiency" json:"cost_efficiency"`
	Adaptability   float64 `yaml:"adaptability" json:"adaptability"`
}

// Weight returns the multiplier for the given attribute.
func (p WeightProfile) Weight(a Attribute) float64 {
	switch a {
	case AttrSkillMatch:
		return p.SkillMatch
	case AttrCultureFit:
		return p.CultureFit
	case AttrExecutionSpeed:
		return p.ExecutionSpeed
	case AttrCostEfficiency:
		return p.CostEfficiency
	case AttrAdaptability:
		return p.Adaptability
	}
	return 0
}

// Sum returns the total of all five weights.
func (p WeightProfile) Sum() float64 {
	return p.SkillMatch + p.CultureFit + p.ExecutionSpeed + p.CostEfficiency + p.Adaptability
}

// ScoredCandidate is a derived, never-persisted scoring result.
type ScoredCandidate struct {
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	Confidence  string    `json:"confidence"`
	Margin      int       `json:"margin"`
	TopStrength Attribute `json:"top_strength"`
	TopRisk     Attribute `json:"top_risk"`
	RoleType    RoleType  `json:"role_type"`
}

// ScoringResult is the full engine output returned to callers.
type ScoringResult struct {
	Ranking     []ScoredCandidate `json:"ranking"`
	WeightsUsed WeightProfile     `json:"weights_used"`
	RoleType    RoleType          `json:"role_type"`
	Skipped     int               `json:"skipped_unnamed,omitempty"`
	BiasAudit   *ScoringBiasAudit `json:"bias_audit,omitempty"`
}

// ProblemAnalysis is the model's structured read of an HR problem statement.
type ProblemAnalysis struct {
	Urgency      string   `json:"urgency"`
	BusinessNeed string   `json:"business_need"`
	ProblemType  string   `json:"problem_type"`
	Constraints  []string `json:"constraints"`
	SuccessGoals []string `json:"success_goals"`
	HiddenRisks  []string `json:"hidden_risks"`
}

// DecisionInput describes a candidate being considered for a position.
type DecisionInput struct {
	CandidateName   string
	Position        string
	ExperienceYears int
	Skills          []string
	Notes           string
}

// Decision is a model-produced hiring decision, persisted for later audits.
type Decision struct {
	ID             string    `json:"id,omitempty"`
	CandidateName  string    `json:"candidate"`
	Position       string    `json:"position"`
	Verdict        string    `json:"decision"`
	Confidence     string    `json:"confidence"`
	Reasoning      string    `json:"reasoning"`
	Recommendation string    `json:"recommendation"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// BiasInput aggregates the HR text fragments submitted for bias detection.
// At least one field must be non-empty.
type BiasInput struct {
	JobDescription    string
	InterviewNotes    string
	DecisionReasoning string
}

// BiasFlag is a single finding in a bias report.
type BiasFlag struct {
	Type         string `json:"type"`
	Severity     string `json:"severity"`
	TriggerText  string `json:"trigger_text"`
	Explanation  string `json:"explanation"`
	SuggestedFix string `json:"suggested_fix"`
}

// BiasReport is the model's bias analysis of submitted HR content.
type BiasReport struct {
	OverallBiasRisk string     `json:"overall_bias_risk"`
	BiasScore       int        `json:"bias_score"`
	Flags           []BiasFlag `json:"flags"`
	CleanSummary    string     `json:"clean_summary"`
	ComplianceRisk  string     `json:"compliance_risk"`
	ComplianceNote  string     `json:"compliance_note"`
}

// ScoringBiasAudit is the model's second-opinion review of engine scores.
type ScoringBiasAudit struct {
	ScoringBiasRisk      string   `json:"scoring_bias_risk"`
	BiasWarnings         []string `json:"bias_warnings"`
	SuspiciousCandidates []string `json:"suspicious_candidates"`
	Recommendation       string   `json:"recommendation"`
}

// AuditJobStatus enumerates audit job states.
type AuditJobStatus string

const (
	AuditQueued     AuditJobStatus = "queued"
	AuditProcessing AuditJobStatus = "processing"
	AuditCompleted  AuditJobStatus = "completed"
	AuditFailed     AuditJobStatus = "failed"
)

// AuditJob tracks an asynchronous batch audit of hiring decisions.
type AuditJob struct {
	ID        string
	Status    AuditJobStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
	IdemKey   *string
}

// AuditPattern is one systemic bias pattern found across decisions.
type AuditPattern struct {
	Pattern       string `json:"pattern"`
	AffectedGroup string `json:"affected_group"`
	Evidence      string `json:"evidence"`
	Severity      string `json:"severity"`
}

// AuditReport is the model's systemic-bias audit over a decision batch.
type AuditReport struct {
	JobID                string         `json:"-"`
	SystemicBiasDetected bool           `json:"systemic_bias_detected"`
	OverallRisk          string         `json:"overall_risk"`
	AuditScore           int            `json:"audit_score"`
	PatternsFound        []AuditPattern `json:"patterns_found"`
	DecisionsFlagged     []string       `json:"decisions_flagged"`
	Recommendations      []string       `json:"recommendations"`
	RequiresLegalReview  bool           `json:"requires_legal_review"`
	LegalReviewReason    string         `json:"legal_review_reason"`
	CreatedAt            time.Time      `json:"-"`
}

// AuditTaskPayload is the queue message for an audit job.
type AuditTaskPayload struct {
	JobID     string     `json:"job_id"`
	Decisions []Decision `json:"decisions"`
	RequestID string     `json:"request_id,omitempty"`
}

// ReportInput bundles the sections to render into a PDF report. Nil
// sections are skipped by the renderer.
type ReportInput struct {
	ProblemText     string
	ProblemAnalysis *ProblemAnalysis
	ScoringResult   *ScoringResult
	BiasReport      *BiasReport
	Decision        *Decision
}

// Repositories (ports)

type DecisionRepository interface {
	Create(ctx Context, d Decision) (string, error)
	ListRecent(ctx Context, limit int) ([]Decision, error)
}

type AuditJobRepository interface {
	Create(ctx Context, j AuditJob) (string, error)
	UpdateStatus(ctx Context, id string, status AuditJobStatus, errMsg *string) error
	Get(ctx Context, id string) (AuditJob, error)
	FindByIdempotencyKey(ctx Context, key string) (AuditJob, error)
}

type AuditResultRepository interface {
	Upsert(ctx Context, r AuditReport) error
	GetByJobID(ctx Context, jobID string) (AuditReport, error)
}

// Queue (port)

type Queue interface {
	EnqueueAudit(ctx Context, payload AuditTaskPayload) (string, error)
}

// AIClient (port)

type AIClient interface {
	// ChatJSON returns raw JSON text matching the schema embedded in the
	// prompt; deterministic in stub mode.
	ChatJSON(ctx Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
	// Complete returns plain text for line-oriented prompts.
	Complete(ctx Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// ReportRenderer (port)

type ReportRenderer interface {
	Render(ctx Context, in ReportInput) ([]byte, error)
}

// ResponseCache (port)
// Caches cleaned model responses keyed by prompt hash.

type ResponseCache interface {
	Get(ctx Context, key string) (string, bool, error)
	Set(ctx Context, key, value string, ttl time.Duration) error
}

// Context is an alias so adapters and usecases share the std context type
// without the domain importing adapter packages.
type Context = context.Context

package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// AuditJobRepo persists and loads audit jobs.
type AuditJobRepo struct{ Pool PgxPool }

// NewAuditJobRepo constructs an AuditJobRepo with the given pool.
func NewAuditJobRepo(p PgxPool) *AuditJobRepo { return &AuditJobRepo{Pool: p} }

// Create inserts a new audit job and returns its id.
func (r *AuditJobRepo) Create(ctx domain.Context, j domain.AuditJob) (string, error) {
	tracer := otel.Tracer("repo.audit_jobs")
	ctx, span := tracer.Start(ctx, "audit_jobs.Create")
	defer span.End()
	id := j.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO audit_jobs (id, status, error, created_at, updated_at, idempotency_key) VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.Pool.Exec(ctx, q, id, j.Status, j.Error, time.Now().UTC(), time.Now().UTC(), j.IdemKey)
	if err != nil {
		return "", fmt.Errorf("op=audit_job.create: %w", err)
	}
	return id, nil
}

// UpdateStatus updates a job's status and optional error message.
func (r *AuditJobRepo) UpdateStatus(ctx domain.Context, id string, status domain.AuditJobStatus, errMsg *string) error {
	tracer := otel.Tracer("repo.audit_jobs")
	ctx, span := tracer.Start(ctx, "audit_jobs.UpdateStatus")
	defer span.End()
	// Nil errMsg maps to empty string; the error column is NOT NULL.
	errVal := ""
	if errMsg != nil {
		errVal = *errMsg
	}
	q := `UPDATE audit_jobs SET status=$2, error=$3, updated_at=$4 WHERE id=$1`
	if _, err := r.Pool.Exec(ctx, q, id, status, errVal, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=audit_job.update_status: %w", err)
	}
	return nil
}

// Get loads an audit job by id.
func (r *AuditJobRepo) Get(ctx domain.Context, id string) (domain.AuditJob, error) {
	tracer := otel.Tracer("repo.audit_jobs")
	ctx, span := tracer.Start(ctx, "audit_jobs.Get")
	defer span.End()
	q := `SELECT id, status, COALESCE(error,''), created_at, updated_at, idempotency_key FROM audit_jobs WHERE id=$1`
	return r.scanJob(r.Pool.QueryRow(ctx, q, id), "audit_job.get")
}

// FindByIdempotencyKey loads an audit job by idempotency key.
func (r *AuditJobRepo) FindByIdempotencyKey(ctx domain.Context, key string) (domain.AuditJob, error) {
	tracer := otel.Tracer("repo.audit_jobs")
	ctx, span := tracer.Start(ctx, "audit_jobs.FindByIdempotencyKey")
	defer span.End()
	q := `SELECT id, status, COALESCE(error,''), created_at, updated_at, idempotency_key FROM audit_jobs WHERE idempotency_key=$1 LIMIT 1`
	return r.scanJob(r.Pool.QueryRow(ctx, q, key), "audit_job.find_idem")
}

func (r *AuditJobRepo) scanJob(row pgx.Row, op string) (domain.AuditJob, error) {
	var j domain.AuditJob
	var idem *string
	if err := row.Scan(&j.ID, &j.Status, &j.Error, &j.CreatedAt, &j.UpdatedAt, &idem); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AuditJob{}, fmt.Errorf("op=%s: %w", op, domain.ErrNotFound)
		}
		return domain.AuditJob{}, fmt.Errorf("op=%s: %w", op, err)
	}
	j.IdemKey = idem
	return j, nil
}

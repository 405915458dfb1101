package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tx is the minimal transaction surface the cleanup service needs.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Beginner starts transactions.
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// PoolBeginner adapts a pgxpool.Pool to the Beginner interface.
type PoolBeginner struct{ Pool *pgxpool.Pool }

// Begin starts a transaction on the underlying pool.
func (b PoolBeginner) Begin(ctx context.Context) (Tx, error) { return b.Pool.Begin(ctx) }

// CleanupService deletes decisions and audit data past the retention
// window.
type CleanupService struct {
	DB            Beginner
	RetentionDays int
}

// NewCleanupService creates a cleanup service. Non-positive retention
// defaults to 90 days.
func NewCleanupService(db Beginner, retentionDays int) *CleanupService {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &CleanupService{DB: db, RetentionDays: retentionDays}
}

// CleanupOldData removes rows older than the retention period.
func (s *CleanupService) CleanupOldData(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.RetentionDays)

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("op=cleanup.begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	results, err := tx.Exec(ctx, `DELETE FROM audit_results WHERE job_id IN (SELECT id FROM audit_jobs WHERE created_at < $1)`, cutoff)
	if err != nil {
		return fmt.Errorf("op=cleanup.audit_results: %w", err)
	}
	jobs, err := tx.Exec(ctx, `DELETE FROM audit_jobs WHERE created_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("op=cleanup.audit_jobs: %w", err)
	}
	decisions, err := tx.Exec(ctx, `DELETE FROM decisions WHERE created_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("op=cleanup.decisions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=cleanup.commit: %w", err)
	}
	slog.Info("data cleanup completed",
		slog.Int64("deleted_decisions", decisions.RowsAffected()),
		slog.Int64("deleted_audit_jobs", jobs.RowsAffected()),
		slog.Int64("deleted_audit_results", results.RowsAffected()),
		slog.Time("cutoff", cutoff),
	)
	return nil
}

// RunPeriodic runs cleanup now and then on every tick until the context is
// cancelled.
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.CleanupOldData(ctx); err != nil {
		slog.Error("initial cleanup failed", slog.Any("error", err))
	}
	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup service stopping")
			return
		case <-ticker.C:
			if err := s.CleanupOldData(ctx); err != nil {
				slog.Error("periodic cleanup failed", slog.Any("error", err))
			}
		}
	}
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	dbtx "msgbridge/db/tx"
	"msgbridge/models"
)

type PostgresTokenJobsRepository struct {
	db     *sqlx.DB
	schema string
}

// Column names for token_refresh_jobs table
var tokenJobsColumns = []string{
	"id",
	"account_id",
	"priority",
	"status",
	"retry_count",
	"max_retries",
	"forced",
	"scheduled_for",
	"started_at",
	"completed_at",
	"error_message",
	"created_at",
	"updated_at",
}

func NewPostgresTokenJobsRepository(db *sqlx.DB, schema string) *PostgresTokenJobsRepository {
	return &PostgresTokenJobsRepository{db: db, schema: schema}
}

func (r *PostgresTokenJobsRepository) CreateTokenJob(ctx context.Context, job *models.TokenRefreshJob) error {
	db := dbtx.GetTransactional(ctx, r.db)
	returningStr := strings.Join(tokenJobsColumns, ", ")

	query := fmt.Sprintf(`
		INSERT INTO %s.token_refresh_jobs (
			id, account_id, priority, status, retry_count, max_retries, forced, scheduled_for
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s`, r.schema, returningStr)

	var returned models.TokenRefreshJob
	err := db.QueryRowxContext(ctx, query,
		job.ID, job.AccountID, job.Priority, job.Status, job.RetryCount,
		job.MaxRetries, job.Forced, job.ScheduledFor).
		StructScan(&returned)
	if err != nil {
		return fmt.Errorf("failed to create token refresh job: %w", err)
	}

	*job = returned
	return nil
}

func (r *PostgresTokenJobsRepository) GetTokenJobByID(
	ctx context.Context,
	id string,
) (mo.Option[*models.TokenRefreshJob], error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(tokenJobsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.token_refresh_jobs
		WHERE id = $1`, columnsStr, r.schema)

	var job models.TokenRefreshJob
	err := db.GetContext(ctx, &job, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.TokenRefreshJob](), nil
		}
		return mo.None[*models.TokenRefreshJob](), fmt.Errorf("failed to get token refresh job: %w", err)
	}
	return mo.Some(&job), nil
}

// GetDueJobs returns eligible jobs: PENDING, past scheduled_for, with retries
// remaining. HIGH priority sorts before MEDIUM before LOW, oldest schedule
// first within a priority, bounded by limit.
func (r *PostgresTokenJobsRepository) GetDueJobs(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*models.TokenRefreshJob, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(tokenJobsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.token_refresh_jobs
		WHERE status = $1 AND scheduled_for <= $2 AND retry_count < max_retries
		ORDER BY
			CASE priority
				WHEN 'HIGH' THEN 0
				WHEN 'MEDIUM' THEN 1
				ELSE 2
			END,
			scheduled_for
		LIMIT $3`, columnsStr, r.schema)

	var jobs []models.TokenRefreshJob
	if err := db.SelectContext(ctx, &jobs, query, models.TokenJobStatusPending, now, limit); err != nil {
		return nil, fmt.Errorf("failed to get due jobs: %w", err)
	}

	result := make([]*models.TokenRefreshJob, 0, len(jobs))
	for i := range jobs {
		result = append(result, &jobs[i])
	}
	return result, nil
}

// ClaimJob transitions a job from PENDING to PROCESSING. The conditional
// update is the claim: returning false means another tick already owns it.
func (r *PostgresTokenJobsRepository) ClaimJob(ctx context.Context, id string) (bool, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		UPDATE %s.token_refresh_jobs
		SET status = $2, started_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3`, r.schema)

	result, err := db.ExecContext(ctx, query, id, models.TokenJobStatusProcessing, models.TokenJobStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return rows == 1, nil
}

func (r *PostgresTokenJobsRepository) MarkJobCompleted(ctx context.Context, id, note string) error {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		UPDATE %s.token_refresh_jobs
		SET status = $2, completed_at = NOW(), error_message = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1`, r.schema)

	if _, err := db.ExecContext(ctx, query, id, models.TokenJobStatusCompleted, note); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	return nil
}

func (r *PostgresTokenJobsRepository) MarkJobFailed(ctx context.Context, id, errorMessage string) error {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		UPDATE %s.token_refresh_jobs
		SET status = $2, completed_at = NOW(), error_message = $3, updated_at = NOW()
		WHERE id = $1`, r.schema)

	if _, err := db.ExecContext(ctx, query, id, models.TokenJobStatusFailed, errorMessage); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

// DeleteCompletedJobsBefore removes COMPLETED jobs older than the cutoff.
// Retention cleanup only, not correctness-critical.
func (r *PostgresTokenJobsRepository) DeleteCompletedJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		DELETE FROM %s.token_refresh_jobs
		WHERE status = $1 AND completed_at < $2`, r.schema)

	result, err := db.ExecContext(ctx, query, models.TokenJobStatusCompleted, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete completed jobs: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return rows, nil
}

package tokenjobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/samber/mo"

	"msgbridge/core"
	"msgbridge/db"
	"msgbridge/models"
)

const (
	// DefaultMaxRetries bounds the retry chain for one refresh request
	DefaultMaxRetries = 3
	// BaseRetryDelay seeds the exponential backoff: base * 2^retry_count
	BaseRetryDelay = 5 * time.Minute
)

type TokenJobsService struct {
	tokenJobsRepo *db.PostgresTokenJobsRepository
}

func NewTokenJobsService(tokenJobsRepo *db.PostgresTokenJobsRepository) *TokenJobsService {
	return &TokenJobsService{tokenJobsRepo: tokenJobsRepo}
}

func (s *TokenJobsService) RequestRefresh(
	ctx context.Context,
	accountID string,
	priority models.TokenJobPriority,
	forced bool,
	scheduledFor time.Time,
) (*models.TokenRefreshJob, error) {
	log.Printf("📋 Starting to request token refresh for account: %s (priority: %s)", accountID, priority)

	if !core.IsValidULID(accountID) {
		return nil, fmt.Errorf("account ID must be a valid ULID")
	}
	switch priority {
	case models.TokenJobPriorityHigh, models.TokenJobPriorityMedium, models.TokenJobPriorityLow:
	default:
		return nil, fmt.Errorf("invalid priority: %s", priority)
	}
	if scheduledFor.IsZero() {
		scheduledFor = time.Now()
	}

	job := &models.TokenRefreshJob{
		ID:           core.NewID("tj"),
		AccountID:    accountID,
		Priority:     priority,
		Status:       models.TokenJobStatusPending,
		RetryCount:   0,
		MaxRetries:   DefaultMaxRetries,
		Forced:       forced,
		ScheduledFor: scheduledFor,
	}

	if err := s.tokenJobsRepo.CreateTokenJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create token refresh job: %w", err)
	}

	log.Printf("📋 Completed successfully - created token refresh job with ID: %s", job.ID)
	return job, nil
}

func (s *TokenJobsService) GetDueJobs(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*models.TokenRefreshJob, error) {
	log.Printf("📋 Starting to get due token refresh jobs (limit: %d)", limit)
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	jobs, err := s.tokenJobsRepo.GetDueJobs(ctx, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get due jobs: %w", err)
	}

	log.Printf("📋 Completed successfully - found %d due jobs", len(jobs))
	return jobs, nil
}

func (s *TokenJobsService) ClaimJob(ctx context.Context, id string) (bool, error) {
	log.Printf("📋 Starting to claim token refresh job: %s", id)
	if !core.IsValidULID(id) {
		return false, fmt.Errorf("job ID must be a valid ULID")
	}

	claimed, err := s.tokenJobsRepo.ClaimJob(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}

	if claimed {
		log.Printf("📋 Completed successfully - claimed job: %s", id)
	} else {
		log.Printf("📋 Completed successfully - job already claimed elsewhere: %s", id)
	}
	return claimed, nil
}

func (s *TokenJobsService) MarkJobCompleted(ctx context.Context, id, note string) error {
	log.Printf("📋 Starting to mark job completed: %s", id)
	if !core.IsValidULID(id) {
		return fmt.Errorf("job ID must be a valid ULID")
	}

	if err := s.tokenJobsRepo.MarkJobCompleted(ctx, id, note); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	log.Printf("📋 Completed successfully - job completed: %s", id)
	return nil
}

func (s *TokenJobsService) MarkJobFailed(ctx context.Context, id, errorMessage string) error {
	log.Printf("📋 Starting to mark job failed: %s", id)
	if !core.IsValidULID(id) {
		return fmt.Errorf("job ID must be a valid ULID")
	}

	if err := s.tokenJobsRepo.MarkJobFailed(ctx, id, errorMessage); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	log.Printf("📋 Completed successfully - job failed: %s", id)
	return nil
}

// ScheduleRetry creates the single follow-up PENDING job for a failed one.
// The new job carries retry_count+1 and a scheduled_for pushed out by
// BaseRetryDelay * 2^(failed job's retry_count), so consecutive failures
// for the same account double the wait. Returns None once retries are
// exhausted.
func (s *TokenJobsService) ScheduleRetry(
	ctx context.Context,
	failed *models.TokenRefreshJob,
) (mo.Option[*models.TokenRefreshJob], error) {
	log.Printf("📋 Starting to schedule retry for failed job: %s (retry %d/%d)",
		failed.ID, failed.RetryCount, failed.MaxRetries)

	nextRetry := failed.RetryCount + 1
	if nextRetry >= failed.MaxRetries {
		log.Printf("📋 Completed successfully - retries exhausted for job: %s", failed.ID)
		return mo.None[*models.TokenRefreshJob](), nil
	}

	job := &models.TokenRefreshJob{
		ID:           core.NewID("tj"),
		AccountID:    failed.AccountID,
		Priority:     failed.Priority,
		Status:       models.TokenJobStatusPending,
		RetryCount:   nextRetry,
		MaxRetries:   failed.MaxRetries,
		Forced:       failed.Forced,
		ScheduledFor: time.Now().Add(RetryDelay(failed.RetryCount)),
	}

	if err := s.tokenJobsRepo.CreateTokenJob(ctx, job); err != nil {
		return mo.None[*models.TokenRefreshJob](), fmt.Errorf("failed to create retry job: %w", err)
	}

	log.Printf("📋 Completed successfully - scheduled retry job %s for %s",
		job.ID, job.ScheduledFor.Format(time.RFC3339))
	return mo.Some(job), nil
}

func (s *TokenJobsService) CleanupCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	log.Printf("📋 Starting to clean up completed jobs before %s", cutoff.Format(time.RFC3339))

	count, err := s.tokenJobsRepo.DeleteCompletedJobsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up completed jobs: %w", err)
	}

	log.Printf("📋 Completed successfully - deleted %d completed jobs", count)
	return count, nil
}

// RetryDelay computes the backoff before the attempt with the given
// retry count: BaseRetryDelay * 2^retryCount.
func RetryDelay(retryCount int) time.Duration {
	return BaseRetryDelay * time.Duration(1<<retryCount)
}

package services

import (
	"context"
	"time"

	"github.com/samber/mo"

	"msgbridge/models"
)

// AccountsService defines the interface for social account operations
type AccountsService interface {
	GetAccountByID(ctx context.Context, id string) (mo.Option[*models.SocialAccount], error)
	// ResolveAccountByPageID matches external_page_id directly, then falls
	// back to scanning same-platform accounts' linked page settings.
	ResolveAccountByPageID(
		ctx context.Context,
		platform models.Platform,
		pageID string,
	) (mo.Option[*models.SocialAccount], error)
	ListAccountsExpiringBefore(ctx context.Context, cutoff time.Time) ([]*models.SocialAccount, error)
	UpdateAccountToken(ctx context.Context, accountID, encryptedToken string, expiresAt time.Time) error
}

// BusinessesService defines the interface for business lookups
type BusinessesService interface {
	GetBusinessByID(ctx context.Context, id string) (mo.Option[*models.Business], error)
}

// MessagesService defines the interface for normalized message persistence
type MessagesService interface {
	UpsertMessage(
		ctx context.Context,
		platform models.Platform,
		externalMessageID, senderID, senderName, content, accountID, businessID string,
		sentAt time.Time,
	) (*models.Message, error)
	MarkMessageReplied(ctx context.Context, messageID string) error
	MarkConversationDelivered(ctx context.Context, accountID, senderID string, watermark time.Time) (int64, error)
	MarkConversationRead(ctx context.Context, accountID, senderID string, watermark time.Time) (int64, error)
}

// AutoReplyRulesService defines the interface for auto reply rule access
type AutoReplyRulesService interface {
	ListActiveRules(ctx context.Context) ([]*models.AutoReplyRule, error)
	CreateRule(ctx context.Context, rule *models.AutoReplyRule) (*models.AutoReplyRule, error)
}

// AutoReplyService decides whether and how to answer a stored inbound message
type AutoReplyService interface {
	HandleIncomingMessage(ctx context.Context, message *models.Message, business *models.Business) error
}

// TokenJobsService defines the interface for token refresh job operations
type TokenJobsService interface {
	// RequestRefresh enqueues a refresh job for an account. Forced jobs skip
	// the scheduler's near-expiry gate.
	RequestRefresh(
		ctx context.Context,
		accountID string,
		priority models.TokenJobPriority,
		forced bool,
		scheduledFor time.Time,
	) (*models.TokenRefreshJob, error)
	GetDueJobs(ctx context.Context, now time.Time, limit int) ([]*models.TokenRefreshJob, error)
	ClaimJob(ctx context.Context, id string) (bool, error)
	MarkJobCompleted(ctx context.Context, id, note string) error
	MarkJobFailed(ctx context.Context, id, errorMessage string) error
	// ScheduleRetry creates the follow-up PENDING job for a failed one with
	// exponentially backed-off scheduling. Returns None once retries are
	// exhausted.
	ScheduleRetry(ctx context.Context, failed *models.TokenRefreshJob) (mo.Option[*models.TokenRefreshJob], error)
	CleanupCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TransactionManager handles database transactions via context
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

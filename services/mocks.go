package services

import (
	"context"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"msgbridge/models"
)

// MockAccountsService is a mock implementation of AccountsService
type MockAccountsService struct {
	mock.Mock
}

func (m *MockAccountsService) GetAccountByID(ctx context.Context, id string) (mo.Option[*models.SocialAccount], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(mo.Option[*models.SocialAccount]), args.Error(1)
}

func (m *MockAccountsService) ResolveAccountByPageID(ctx context.Context, platform models.Platform, pageID string) (mo.Option[*models.SocialAccount], error) {
	args := m.Called(ctx, platform, pageID)
	return args.Get(0).(mo.Option[*models.SocialAccount]), args.Error(1)
}

func (m *MockAccountsService) ListAccountsExpiringBefore(ctx context.Context, cutoff time.Time) ([]*models.SocialAccount, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]*models.SocialAccount), args.Error(1)
}

func (m *MockAccountsService) UpdateAccountToken(ctx context.Context, id, encryptedToken string, expiresAt time.Time) error {
	args := m.Called(ctx, id, encryptedToken, expiresAt)
	return args.Error(0)
}

// MockBusinessesService is a mock implementation of BusinessesService
type MockBusinessesService struct {
	mock.Mock
}

func (m *MockBusinessesService) GetBusinessByID(ctx context.Context, id string) (mo.Option[*models.Business], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(mo.Option[*models.Business]), args.Error(1)
}

// MockMessagesService is a mock implementation of MessagesService
type MockMessagesService struct {
	mock.Mock
}

func (m *MockMessagesService) UpsertMessage(
	ctx context.Context,
	platform models.Platform,
	externalMessageID, senderID, senderName, content, accountID, businessID string,
	sentAt time.Time,
) (*models.Message, error) {
	args := m.Called(ctx, platform, externalMessageID, senderID, senderName, content, accountID, businessID, sentAt)
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessagesService) MarkMessageReplied(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMessagesService) MarkConversationDelivered(ctx context.Context, accountID, senderID string, watermark time.Time) (int64, error) {
	args := m.Called(ctx, accountID, senderID, watermark)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessagesService) MarkConversationRead(ctx context.Context, accountID, senderID string, watermark time.Time) (int64, error) {
	args := m.Called(ctx, accountID, senderID, watermark)
	return args.Get(0).(int64), args.Error(1)
}

// MockAutoReplyRulesService is a mock implementation of AutoReplyRulesService
type MockAutoReplyRulesService struct {
	mock.Mock
}

func (m *MockAutoReplyRulesService) ListActiveRules(ctx context.Context) ([]*models.AutoReplyRule, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.AutoReplyRule), args.Error(1)
}

func (m *MockAutoReplyRulesService) CreateRule(ctx context.Context, rule *models.AutoReplyRule) (*models.AutoReplyRule, error) {
	args := m.Called(ctx, rule)
	return args.Get(0).(*models.AutoReplyRule), args.Error(1)
}

// MockAutoReplyService is a mock implementation of AutoReplyService
type MockAutoReplyService struct {
	mock.Mock
}

func (m *MockAutoReplyService) HandleIncomingMessage(ctx context.Context, message *models.Message, business *models.Business) error {
	args := m.Called(ctx, message, business)
	return args.Error(0)
}

// MockTokenJobsService is a mock implementation of TokenJobsService
type MockTokenJobsService struct {
	mock.Mock
}

func (m *MockTokenJobsService) RequestRefresh(
	ctx context.Context,
	accountID string,
	priority models.TokenJobPriority,
	forced bool,
	scheduledFor time.Time,
) (*models.TokenRefreshJob, error) {
	args := m.Called(ctx, accountID, priority, forced, scheduledFor)
	return args.Get(0).(*models.TokenRefreshJob), args.Error(1)
}

func (m *MockTokenJobsService) GetDueJobs(ctx context.Context, now time.Time, limit int) ([]*models.TokenRefreshJob, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]*models.TokenRefreshJob), args.Error(1)
}

func (m *MockTokenJobsService) ClaimJob(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(bool), args.Error(1)
}

func (m *MockTokenJobsService) MarkJobCompleted(ctx context.Context, id, note string) error {
	args := m.Called(ctx, id, note)
	return args.Error(0)
}

func (m *MockTokenJobsService) MarkJobFailed(ctx context.Context, id, errorMessage string) error {
	args := m.Called(ctx, id, errorMessage)
	return args.Error(0)
}

func (m *MockTokenJobsService) ScheduleRetry(ctx context.Context, failed *models.TokenRefreshJob) (mo.Option[*models.TokenRefreshJob], error) {
	args := m.Called(ctx, failed)
	return args.Get(0).(mo.Option[*models.TokenRefreshJob]), args.Error(1)
}

func (m *MockTokenJobsService) CleanupCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockTransactionManager is a mock implementation of TransactionManager
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) == nil {
		return fn(ctx)
	}
	return args.Error(0)
}

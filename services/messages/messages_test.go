package messages

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgbridge/core"
	"msgbridge/db"
	"msgbridge/models"
	"msgbridge/testutils"
)

type messagesTestFixture struct {
	service      *MessagesService
	messagesRepo *db.PostgresMessagesRepository
	dbConn       *sqlx.DB
	business     *models.Business
	account      *models.SocialAccount
}

func setupMessagesTest(t *testing.T) (*messagesTestFixture, func()) {
	cfg, err := testutils.LoadTestConfig()
	if err != nil {
		t.Skipf("skipping DB-backed test: %v", err)
	}

	dbConn, err := db.NewConnection(cfg.DatabaseURL)
	require.NoError(t, err, "Failed to create database connection")

	cipher, err := core.NewTokenCipher(cfg.TokenEncryptionKey)
	require.NoError(t, err, "Failed to create token cipher")

	messagesRepo := db.NewPostgresMessagesRepository(dbConn, cfg.DatabaseSchema)
	accountsRepo := db.NewPostgresAccountsRepository(dbConn, cfg.DatabaseSchema)
	businessesRepo := db.NewPostgresBusinessesRepository(dbConn, cfg.DatabaseSchema)

	business := testutils.CreateTestBusiness(t, businessesRepo)
	account := testutils.CreateTestAccount(t, accountsRepo, cipher, business.ID)

	fixture := &messagesTestFixture{
		service:      NewMessagesService(messagesRepo),
		messagesRepo: messagesRepo,
		dbConn:       dbConn,
		business:     business,
		account:      account,
	}
	cleanup := func() {
		testutils.CleanupTestBusiness(t, dbConn, cfg.DatabaseSchema, business.ID)()
		dbConn.Close()
	}
	return fixture, cleanup
}

func TestMessagesService_UpsertMessage_ReplayLandsOnExistingRow(t *testing.T) {
	fixture, cleanup := setupMessagesTest(t)
	defer cleanup()

	// Setup
	externalID := "test-mid-" + uuid.New().String()
	senderID := "test-sender-" + uuid.New().String()
	sentAt := time.Now().Add(-time.Minute)

	// Act - store the message, then replay the same delivery with new content
	first, err := fixture.service.UpsertMessage(context.Background(),
		fixture.account.Platform, externalID, senderID, "Jamie Doe", "Hello there",
		fixture.account.ID, fixture.business.ID, sentAt)
	require.NoError(t, err)

	second, err := fixture.service.UpsertMessage(context.Background(),
		fixture.account.Platform, externalID, senderID, "Jamie Doe", "Hello there, edited",
		fixture.account.ID, fixture.business.ID, sentAt)
	require.NoError(t, err)

	// Assert - same row, refreshed content
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Hello there, edited", second.Content)

	maybeMessage, err := fixture.messagesRepo.GetMessageByExternalID(
		context.Background(), fixture.account.Platform, externalID)
	require.NoError(t, err)
	require.True(t, maybeMessage.IsPresent())
	assert.Equal(t, first.ID, maybeMessage.MustGet().ID)
}

func TestMessagesService_UpsertMessage_ValidationErrors(t *testing.T) {
	fixture, cleanup := setupMessagesTest(t)
	defer cleanup()

	tests := []struct {
		name       string
		externalID string
		senderID   string
		accountID  string
		businessID string
	}{
		{"empty external id", "", "sender-1", fixture.account.ID, fixture.business.ID},
		{"empty sender id", "mid-1", "", fixture.account.ID, fixture.business.ID},
		{"invalid account id", "mid-1", "sender-1", "not-a-ulid", fixture.business.ID},
		{"invalid business id", "mid-1", "sender-1", fixture.account.ID, "not-a-ulid"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			message, err := fixture.service.UpsertMessage(context.Background(),
				models.PlatformFacebook, tc.externalID, tc.senderID, "Sender", "hi",
				tc.accountID, tc.businessID, time.Now())

			// Assert
			require.Error(t, err)
			assert.Nil(t, message)
		})
	}
}

func TestMessagesService_MarkMessageReplied(t *testing.T) {
	fixture, cleanup := setupMessagesTest(t)
	defer cleanup()

	// Setup
	externalID := "test-mid-" + uuid.New().String()
	message, err := fixture.service.UpsertMessage(context.Background(),
		fixture.account.Platform, externalID, "test-sender-"+uuid.New().String(),
		"Jamie Doe", "Do you ship abroad?", fixture.account.ID, fixture.business.ID, time.Now())
	require.NoError(t, err)
	require.False(t, message.IsReplied)

	// Act
	err = fixture.service.MarkMessageReplied(context.Background(), message.ID)

	// Assert
	require.NoError(t, err)
	maybeMessage, err := fixture.messagesRepo.GetMessageByExternalID(
		context.Background(), fixture.account.Platform, externalID)
	require.NoError(t, err)
	require.True(t, maybeMessage.IsPresent())
	assert.True(t, maybeMessage.MustGet().IsReplied)
}

func TestMessagesService_MarkMessageReplied_NotFound(t *testing.T) {
	fixture, cleanup := setupMessagesTest(t)
	defer cleanup()

	// Act
	err := fixture.service.MarkMessageReplied(context.Background(), core.NewID("msg"))

	// Assert
	require.Error(t, err)
	assert.True(t, core.IsNotFoundError(err))
}

func TestMessagesService_ConversationWatermarks(t *testing.T) {
	fixture, cleanup := setupMessagesTest(t)
	defer cleanup()

	// Setup - two messages from the same sender, one older than the watermark
	senderID := "test-sender-" + uuid.New().String()
	older, err := fixture.service.UpsertMessage(context.Background(),
		fixture.account.Platform, "test-mid-"+uuid.New().String(), senderID,
		"Jamie Doe", "First message", fixture.account.ID, fixture.business.ID,
		time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = fixture.service.UpsertMessage(context.Background(),
		fixture.account.Platform, "test-mid-"+uuid.New().String(), senderID,
		"Jamie Doe", "Second message", fixture.account.ID, fixture.business.ID,
		time.Now().Add(time.Hour))
	require.NoError(t, err)

	watermark := time.Now()

	// Act - delivery receipt covers only the older message
	delivered, err := fixture.service.MarkConversationDelivered(
		context.Background(), fixture.account.ID, senderID, watermark)
	require.NoError(t, err)
	assert.EqualValues(t, 1, delivered)

	// Act - read receipt with the same watermark
	read, err := fixture.service.MarkConversationRead(
		context.Background(), fixture.account.ID, senderID, watermark)
	require.NoError(t, err)
	assert.EqualValues(t, 1, read)

	// Assert - older message carries both marks now
	maybeMessage, err := fixture.messagesRepo.GetMessageByExternalID(
		context.Background(), fixture.account.Platform, older.ExternalMessageID)
	require.NoError(t, err)
	require.True(t, maybeMessage.IsPresent())
	marked := maybeMessage.MustGet()
	assert.NotNil(t, marked.DeliveredAt)
	assert.NotNil(t, marked.ReadAt)
	assert.True(t, marked.IsRead)

	// Act - replaying the same receipt touches nothing further
	delivered, err = fixture.service.MarkConversationDelivered(
		context.Background(), fixture.account.ID, senderID, watermark)
	require.NoError(t, err)
	assert.EqualValues(t, 0, delivered)
}

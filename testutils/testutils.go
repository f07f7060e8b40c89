package testutils

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"msgbridge/config"
	"msgbridge/core"
	"msgbridge/db"
	"msgbridge/models"
)

// LoadTestConfig loads configuration for integration tests from environment variables
func LoadTestConfig() (*config.AppConfig, error) {
	// Try to load environment variables from various possible locations
	_ = godotenv.Load("../.env.test") // From services/ directory
	_ = godotenv.Load(".env.test")    // From root directory
	_ = godotenv.Load()               // Default .env file

	databaseURL := os.Getenv("DB_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DB_URL is not set")
	}

	databaseSchema := os.Getenv("DB_SCHEMA")
	if databaseSchema == "" {
		return nil, fmt.Errorf("DB_SCHEMA is not set")
	}

	encryptionKey := os.Getenv("TOKEN_ENCRYPTION_KEY")
	if encryptionKey == "" {
		encryptionKey = "test-encryption-secret"
	}

	return &config.AppConfig{
		DatabaseURL:        databaseURL,
		DatabaseSchema:     databaseSchema,
		TokenEncryptionKey: encryptionKey,
	}, nil
}

// CreateTestBusiness creates a business with a unique name to avoid constraint violations
func CreateTestBusiness(t *testing.T, businessesRepo *db.PostgresBusinessesRepository) *models.Business {
	business := &models.Business{
		ID:               core.NewID("biz"),
		Name:             "Test Business " + uuid.New().String(),
		AutoReplyEnabled: true,
	}
	err := businessesRepo.CreateBusiness(context.Background(), business)
	require.NoError(t, err, "Failed to create test business")
	return business
}

// CreateTestAccount creates a social account owned by the given business with
// an encrypted access token and a unique external page id
func CreateTestAccount(
	t *testing.T,
	accountsRepo *db.PostgresAccountsRepository,
	cipher *core.TokenCipher,
	businessID string,
) *models.SocialAccount {
	encrypted, err := cipher.Encrypt("test-page-token-" + uuid.New().String())
	require.NoError(t, err, "Failed to encrypt test token")

	account := &models.SocialAccount{
		ID:             core.NewID("acc"),
		BusinessID:     businessID,
		Platform:       models.PlatformFacebook,
		ExternalPageID: "test-page-" + uuid.New().String(),
		PageName:       "Test Page",
		AccessToken:    encrypted,
		TokenExpiresAt: time.Now().Add(48 * time.Hour),
	}
	err = accountsRepo.CreateAccount(context.Background(), account)
	require.NoError(t, err, "Failed to create test account")
	return account
}

// CreateTestRule creates an active auto-reply rule with the given keywords
func CreateTestRule(
	t *testing.T,
	rulesRepo *db.PostgresAutoReplyRulesRepository,
	keywords []string,
) *models.AutoReplyRule {
	rule := &models.AutoReplyRule{
		ID:                  core.NewID("rule"),
		Name:                "test-rule-" + uuid.New().String(),
		TriggerKeywords:     keywords,
		ResponseTemplate:    "Test response template",
		ConfidenceThreshold: 0.8,
		IsActive:            true,
		Category:            models.MessageCategoryOther,
	}
	err := rulesRepo.CreateRule(context.Background(), rule)
	require.NoError(t, err, "Failed to create test rule")
	return rule
}

// CleanupTestBusiness returns a cleanup function that removes a test business
// and everything hanging off it: token jobs, messages, then accounts
func CleanupTestBusiness(t *testing.T, dbConn *sqlx.DB, schema, businessID string) func() {
	return func() {
		ctx := context.Background()
		statements := []string{
			fmt.Sprintf(`DELETE FROM %s.token_refresh_jobs
				WHERE account_id IN (SELECT id FROM %s.social_accounts WHERE business_id = $1)`, schema, schema),
			fmt.Sprintf(`DELETE FROM %s.messages WHERE business_id = $1`, schema),
			fmt.Sprintf(`DELETE FROM %s.social_accounts WHERE business_id = $1`, schema),
			fmt.Sprintf(`DELETE FROM %s.businesses WHERE id = $1`, schema),
		}
		for _, statement := range statements {
			if _, err := dbConn.ExecContext(ctx, statement, businessID); err != nil {
				t.Logf("⚠️ Failed to clean up test data for business %s: %v", businessID, err)
			}
		}
	}
}

// CreateTestMessage builds an unsaved normalized message for the account
func CreateTestMessage(account *models.SocialAccount, content string) *models.Message {
	return &models.Message{
		ID:                core.NewID("msg"),
		ExternalMessageID: "test-mid-" + uuid.New().String(),
		SenderID:          "test-sender-" + uuid.New().String(),
		SenderName:        "Test Sender",
		Content:           content,
		Platform:          account.Platform,
		AccountID:         account.ID,
		BusinessID:        account.BusinessID,
		SentAt:            time.Now(),
	}
}

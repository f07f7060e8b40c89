package accounts

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

type accountsTestFixture struct {
	service      *AccountsService
	accountsRepo *db.PostgresAccountsRepository
	cipher       *core.TokenCipher
	dbConn       *sqlx.DB
	schema       string
	business     *models.Business
}

func setupAccountsTest(t *testing.T) (*accountsTestFixture, func()) {
	cfg, err := testutils.LoadTestConfig()
	if err != nil {
		t.Skipf("skipping DB-backed test: %v", err)
	}

	dbConn, err := db.NewConnection(cfg.DatabaseURL)
	require.NoError(t, err, "Failed to create database connection")

	cipher, err := core.NewTokenCipher(cfg.TokenEncryptionKey)
	require.NoError(t, err, "Failed to create token cipher")

	accountsRepo := db.NewPostgresAccountsRepository(dbConn, cfg.DatabaseSchema)
	businessesRepo := db.NewPostgresBusinessesRepository(dbConn, cfg.DatabaseSchema)
	business := testutils.CreateTestBusiness(t, businessesRepo)

	fixture := &accountsTestFixture{
		service:      NewAccountsService(accountsRepo),
		accountsRepo: accountsRepo,
		cipher:       cipher,
		dbConn:       dbConn,
		schema:       cfg.DatabaseSchema,
		business:     business,
	}
	cleanup := func() {
		testutils.CleanupTestBusiness(t, dbConn, cfg.DatabaseSchema, business.ID)()
		dbConn.Close()
	}
	return fixture, cleanup
}

func TestAccountsService_GetAccountByID(t *testing.T) {
	fixture, cleanup := setupAccountsTest(t)
	defer cleanup()

	// Setup
	account := testutils.CreateTestAccount(t, fixture.accountsRepo, fixture.cipher, fixture.business.ID)

	// Act
	maybeAccount, err := fixture.service.GetAccountByID(context.Background(), account.ID)

	// Assert
	require.NoError(t, err)
	require.True(t, maybeAccount.IsPresent())
	found := maybeAccount.MustGet()
	assert.Equal(t, account.ID, found.ID)
	assert.Equal(t, fixture.business.ID, found.BusinessID)
	assert.Equal(t, account.ExternalPageID, found.ExternalPageID)
}

func TestAccountsService_GetAccountByID_InvalidID(t *testing.T) {
	fixture, cleanup := setupAccountsTest(t)
	defer cleanup()

	// Act
	_, err := fixture.service.GetAccountByID(context.Background(), "not-a-ulid")

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid ULID")
}

func TestAccountsService_ResolveAccountByPageID_DirectMatch(t *testing.T) {
	fixture, cleanup := setupAccountsTest(t)
	defer cleanup()

	// Setup
	account := testutils.CreateTestAccount(t, fixture.accountsRepo, fixture.cipher, fixture.business.ID)

	// Act
	maybeAccount, err := fixture.service.ResolveAccountByPageID(
		context.Background(), account.Platform, account.ExternalPageID)

	// Assert
	require.NoError(t, err)
	require.True(t, maybeAccount.IsPresent())
	assert.Equal(t, account.ID, maybeAccount.MustGet().ID)
}

func TestAccountsService_ResolveAccountByPageID_LinkedPageMatch(t *testing.T) {
	fixture, cleanup := setupAccountsTest(t)
	defer cleanup()

	// Setup - account whose settings carry an additional linked page id
	linkedPageID := "test-linked-page-" + uuid.New().String()
	encrypted, err := fixture.cipher.Encrypt("test-page-token-" + uuid.New().String())
	require.NoError(t, err)

	account := &models.SocialAccount{
		ID:             core.NewID("acc"),
		BusinessID:     fixture.business.ID,
		Platform:       models.PlatformFacebook,
		ExternalPageID: "test-page-" + uuid.New().String(),
		PageName:       "Test Page",
		AccessToken:    encrypted,
		TokenExpiresAt: time.Now().Add(48 * time.Hour),
		Settings:       models.AccountSettings{LinkedPageIDs: []string{linkedPageID}},
	}
	err = fixture.accountsRepo.CreateAccount(context.Background(), account)
	require.NoError(t, err)

	// Act
	maybeAccount, err := fixture.service.ResolveAccountByPageID(
		context.Background(), models.PlatformFacebook, linkedPageID)

	// Assert
	require.NoError(t, err)
	require.True(t, maybeAccount.IsPresent())
	assert.Equal(t, account.ID, maybeAccount.MustGet().ID)
}

func TestAccountsService_ResolveAccountByPageID_NoMatch(t *testing.T) {
	fixture, cleanup := setupAccountsTest(t)
	defer cleanup()

	// Act
	maybeAccount, err := fixture.service.ResolveAccountByPageID(
		context.Background(), models.PlatformFacebook, "test-unknown-page-"+uuid.New().String())

	// Assert
	require.NoError(t, err)
	assert.False(t, maybeAccount.IsPresent())
}

func TestAccountsService_UpdateAccountToken(t *testing.T) {
	fixture, cleanup := setupAccountsTest(t)
	defer cleanup()

	// Setup
	account := testutils.CreateTestAccount(t, fixture.accountsRepo, fixture.cipher, fixture.business.ID)
	newToken := "refreshed-token-" + uuid.New().String()
	encrypted, err := fixture.cipher.Encrypt(newToken)
	require.NoError(t, err)
	newExpiry := time.Now().Add(60 * 24 * time.Hour)

	// Act
	err = fixture.service.UpdateAccountToken(context.Background(), account.ID, encrypted, newExpiry)

	// Assert - stored token decrypts back to the fresh one
	require.NoError(t, err)
	maybeAccount, err := fixture.service.GetAccountByID(context.Background(), account.ID)
	require.NoError(t, err)
	require.True(t, maybeAccount.IsPresent())
	updated := maybeAccount.MustGet()

	decrypted, err := fixture.cipher.Decrypt(updated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, newToken, decrypted)
	assert.WithinDuration(t, newExpiry, updated.TokenExpiresAt, time.Second)
}

func TestAccountsService_ListAccountsExpiringBefore(t *testing.T) {
	fixture, cleanup := setupAccountsTest(t)
	defer cleanup()

	// Setup - test account token expires in 48 hours
	account := testutils.CreateTestAccount(t, fixture.accountsRepo, fixture.cipher, fixture.business.ID)

	containsAccount := func(accounts []*models.SocialAccount) bool {
		for _, candidate := range accounts {
			if candidate.ID == account.ID {
				return true
			}
		}
		return false
	}

	// Act - cutoff past the expiry includes the account
	expiring, err := fixture.service.ListAccountsExpiringBefore(context.Background(), time.Now().Add(72*time.Hour))
	require.NoError(t, err)
	assert.True(t, containsAccount(expiring))

	// Act - cutoff before the expiry excludes it
	expiring, err = fixture.service.ListAccountsExpiringBefore(context.Background(), time.Now())
	require.NoError(t, err)
	assert.False(t, containsAccount(expiring))
}

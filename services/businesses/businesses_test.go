package businesses

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgbridge/core"
	"msgbridge/db"
	"msgbridge/testutils"
)

func setupBusinessesTest(t *testing.T) (*BusinessesService, *db.PostgresBusinessesRepository, *sqlx.DB, string) {
	cfg, err := testutils.LoadTestConfig()
	if err != nil {
		t.Skipf("skipping DB-backed test: %v", err)
	}

	dbConn, err := db.NewConnection(cfg.DatabaseURL)
	require.NoError(t, err, "Failed to create database connection")

	businessesRepo := db.NewPostgresBusinessesRepository(dbConn, cfg.DatabaseSchema)
	businessesService := NewBusinessesService(businessesRepo)

	return businessesService, businessesRepo, dbConn, cfg.DatabaseSchema
}

func TestBusinessesService_GetBusinessByID(t *testing.T) {
	businessesService, businessesRepo, dbConn, schema := setupBusinessesTest(t)
	defer dbConn.Close()

	// Setup
	business := testutils.CreateTestBusiness(t, businessesRepo)
	defer testutils.CleanupTestBusiness(t, dbConn, schema, business.ID)()

	// Act
	maybeBusiness, err := businessesService.GetBusinessByID(context.Background(), business.ID)

	// Assert
	require.NoError(t, err)
	require.True(t, maybeBusiness.IsPresent())
	found := maybeBusiness.MustGet()
	assert.Equal(t, business.ID, found.ID)
	assert.Equal(t, business.Name, found.Name)
	assert.True(t, found.AutoReplyEnabled)
}

func TestBusinessesService_GetBusinessByID_NotFound(t *testing.T) {
	businessesService, _, dbConn, _ := setupBusinessesTest(t)
	defer dbConn.Close()

	// Act - a valid ULID that was never stored
	maybeBusiness, err := businessesService.GetBusinessByID(context.Background(), core.NewID("biz"))

	// Assert
	require.NoError(t, err)
	assert.False(t, maybeBusiness.IsPresent())
}

func TestBusinessesService_GetBusinessByID_InvalidID(t *testing.T) {
	businessesService, _, dbConn, _ := setupBusinessesTest(t)
	defer dbConn.Close()

	// Act
	_, err := businessesService.GetBusinessByID(context.Background(), "not-a-ulid")

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid ULID")
}

func TestBusinessesRepository_SetAutoReplyEnabled(t *testing.T) {
	businessesService, businessesRepo, dbConn, schema := setupBusinessesTest(t)
	defer dbConn.Close()

	// Setup
	business := testutils.CreateTestBusiness(t, businessesRepo)
	defer testutils.CleanupTestBusiness(t, dbConn, schema, business.ID)()
	require.True(t, business.AutoReplyEnabled)

	// Act - disable then read back through the service
	err := businessesRepo.SetAutoReplyEnabled(context.Background(), business.ID, false)
	require.NoError(t, err)

	maybeBusiness, err := businessesService.GetBusinessByID(context.Background(), business.ID)

	// Assert
	require.NoError(t, err)
	require.True(t, maybeBusiness.IsPresent())
	assert.False(t, maybeBusiness.MustGet().AutoReplyEnabled)
}

func TestBusinessesRepository_SetAutoReplyEnabled_NotFound(t *testing.T) {
	_, businessesRepo, dbConn, _ := setupBusinessesTest(t)
	defer dbConn.Close()

	// Act
	err := businessesRepo.SetAutoReplyEnabled(context.Background(), core.NewID("biz"), true)

	// Assert
	require.Error(t, err)
	assert.True(t, core.IsNotFoundError(err))
}

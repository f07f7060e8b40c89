package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	"msgbridge/core"
	dbtx "msgbridge/db/tx"
	"msgbridge/models"
)

type PostgresBusinessesRepository struct {
	db     *sqlx.DB
	schema string
}

// Column names for businesses table
var businessesColumns = []string{
	"id",
	"name",
	"auto_reply_enabled",
	"created_at",
	"updated_at",
}

func NewPostgresBusinessesRepository(db *sqlx.DB, schema string) *PostgresBusinessesRepository {
	return &PostgresBusinessesRepository{db: db, schema: schema}
}

func (r *PostgresBusinessesRepository) CreateBusiness(ctx context.Context, business *models.Business) error {
	db := dbtx.GetTransactional(ctx, r.db)
	returningStr := strings.Join(businessesColumns, ", ")

	query := fmt.Sprintf(`
		INSERT INTO %s.businesses (id, name, auto_reply_enabled)
		VALUES ($1, $2, $3)
		RETURNING %s`, r.schema, returningStr)

	var returned models.Business
	err := db.QueryRowxContext(ctx, query, business.ID, business.Name, business.AutoReplyEnabled).
		StructScan(&returned)
	if err != nil {
		return fmt.Errorf("failed to create business: %w", err)
	}

	*business = returned
	return nil
}

func (r *PostgresBusinessesRepository) GetBusinessByID(
	ctx context.Context,
	id string,
) (mo.Option[*models.Business], error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(businessesColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.businesses
		WHERE id = $1`, columnsStr, r.schema)

	var business models.Business
	err := db.GetContext(ctx, &business, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.Business](), nil
		}
		return mo.None[*models.Business](), fmt.Errorf("failed to get business: %w", err)
	}
	return mo.Some(&business), nil
}

// SetAutoReplyEnabled toggles the business auto-reply feature flag.
func (r *PostgresBusinessesRepository) SetAutoReplyEnabled(ctx context.Context, id string, enabled bool) error {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		UPDATE %s.businesses
		SET auto_reply_enabled = $2, updated_at = NOW()
		WHERE id = $1`, r.schema)

	result, err := db.ExecContext(ctx, query, id, enabled)
	if err != nil {
		return fmt.Errorf("failed to update auto reply flag: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return core.ErrNotFound
	}
	return nil
}

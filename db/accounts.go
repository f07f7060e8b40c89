package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	"msgbridge/core"
	dbtx "msgbridge/db/tx"
	"msgbridge/models"
)

type PostgresAccountsRepository struct {
	db     *sqlx.DB
	schema string
}

// DBSocialAccount represents the database schema for social_accounts,
// with the settings blob kept raw until conversion.
type DBSocialAccount struct {
	ID             string          `db:"id"`
	BusinessID     string          `db:"business_id"`
	Platform       models.Platform `db:"platform"`
	ExternalPageID string          `db:"external_page_id"`
	PageName       string          `db:"page_name"`
	AccessToken    string          `db:"access_token"`
	TokenExpiresAt time.Time       `db:"token_expires_at"`
	Settings       []byte          `db:"settings"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// Column names for social_accounts table
var accountsColumns = []string{
	"id",
	"business_id",
	"platform",
	"external_page_id",
	"page_name",
	"access_token",
	"token_expires_at",
	"settings",
	"created_at",
	"updated_at",
}

func NewPostgresAccountsRepository(db *sqlx.DB, schema string) *PostgresAccountsRepository {
	return &PostgresAccountsRepository{db: db, schema: schema}
}

func dbAccountToModel(dbAccount *DBSocialAccount) (*models.SocialAccount, error) {
	account := &models.SocialAccount{
		ID:             dbAccount.ID,
		BusinessID:     dbAccount.BusinessID,
		Platform:       dbAccount.Platform,
		ExternalPageID: dbAccount.ExternalPageID,
		PageName:       dbAccount.PageName,
		AccessToken:    dbAccount.AccessToken,
		TokenExpiresAt: dbAccount.TokenExpiresAt,
		CreatedAt:      dbAccount.CreatedAt,
		UpdatedAt:      dbAccount.UpdatedAt,
	}

	if len(dbAccount.Settings) > 0 {
		if err := json.Unmarshal(dbAccount.Settings, &account.Settings); err != nil {
			return nil, fmt.Errorf("failed to parse account settings: account_id=%s: %w", dbAccount.ID, err)
		}
	}
	return account, nil
}

func (r *PostgresAccountsRepository) CreateAccount(ctx context.Context, account *models.SocialAccount) error {
	db := dbtx.GetTransactional(ctx, r.db)

	settingsJSON, err := json.Marshal(account.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal account settings: %w", err)
	}

	returningStr := strings.Join(accountsColumns, ", ")
	query := fmt.Sprintf(`
		INSERT INTO %s.social_accounts (
			id, business_id, platform, external_page_id, page_name,
			access_token, token_expires_at, settings
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s`, r.schema, returningStr)

	var returned DBSocialAccount
	err = db.QueryRowxContext(ctx, query,
		account.ID, account.BusinessID, account.Platform, account.ExternalPageID,
		account.PageName, account.AccessToken, account.TokenExpiresAt, settingsJSON).
		StructScan(&returned)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	converted, err := dbAccountToModel(&returned)
	if err != nil {
		return fmt.Errorf("failed to convert created account: %w", err)
	}
	*account = *converted
	return nil
}

func (r *PostgresAccountsRepository) GetAccountByID(
	ctx context.Context,
	id string,
) (mo.Option[*models.SocialAccount], error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(accountsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.social_accounts
		WHERE id = $1`, columnsStr, r.schema)

	var dbAccount DBSocialAccount
	err := db.GetContext(ctx, &dbAccount, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.SocialAccount](), nil
		}
		return mo.None[*models.SocialAccount](), fmt.Errorf("failed to get account: %w", err)
	}

	converted, err := dbAccountToModel(&dbAccount)
	if err != nil {
		return mo.None[*models.SocialAccount](), err
	}
	return mo.Some(converted), nil
}

func (r *PostgresAccountsRepository) GetAccountByExternalPageID(
	ctx context.Context,
	platform models.Platform,
	externalPageID string,
) (mo.Option[*models.SocialAccount], error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(accountsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.social_accounts
		WHERE platform = $1 AND external_page_id = $2`, columnsStr, r.schema)

	var dbAccount DBSocialAccount
	err := db.GetContext(ctx, &dbAccount, query, platform, externalPageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.SocialAccount](), nil
		}
		return mo.None[*models.SocialAccount](), fmt.Errorf("failed to get account by page id: %w", err)
	}

	converted, err := dbAccountToModel(&dbAccount)
	if err != nil {
		return mo.None[*models.SocialAccount](), err
	}
	return mo.Some(converted), nil
}

func (r *PostgresAccountsRepository) ListAccountsByPlatform(
	ctx context.Context,
	platform models.Platform,
) ([]*models.SocialAccount, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(accountsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.social_accounts
		WHERE platform = $1
		ORDER BY created_at`, columnsStr, r.schema)

	var dbAccounts []DBSocialAccount
	if err := db.SelectContext(ctx, &dbAccounts, query, platform); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts := make([]*models.SocialAccount, 0, len(dbAccounts))
	for i := range dbAccounts {
		converted, err := dbAccountToModel(&dbAccounts[i])
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, converted)
	}
	return accounts, nil
}

// ListAccountsExpiringBefore returns accounts whose token expiry falls before
// the cutoff. Used to seed refresh jobs for near-expiry tokens.
func (r *PostgresAccountsRepository) ListAccountsExpiringBefore(
	ctx context.Context,
	cutoff time.Time,
) ([]*models.SocialAccount, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(accountsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.social_accounts
		WHERE token_expires_at < $1
		ORDER BY token_expires_at`, columnsStr, r.schema)

	var dbAccounts []DBSocialAccount
	if err := db.SelectContext(ctx, &dbAccounts, query, cutoff); err != nil {
		return nil, fmt.Errorf("failed to list expiring accounts: %w", err)
	}

	accounts := make([]*models.SocialAccount, 0, len(dbAccounts))
	for i := range dbAccounts {
		converted, err := dbAccountToModel(&dbAccounts[i])
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, converted)
	}
	return accounts, nil
}

// UpdateAccountToken stores a freshly exchanged (already encrypted) token.
func (r *PostgresAccountsRepository) UpdateAccountToken(
	ctx context.Context,
	accountID, encryptedToken string,
	expiresAt time.Time,
) error {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		UPDATE %s.social_accounts
		SET access_token = $2, token_expires_at = $3, updated_at = NOW()
		WHERE id = $1`, r.schema)

	result, err := db.ExecContext(ctx, query, accountID, encryptedToken, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to update account token: %w", err)
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

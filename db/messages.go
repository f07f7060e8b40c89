package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	// necessary import to wire up the postgres driver
	_ "github.com/lib/pq"

	"msgbridge/core"
	dbtx "msgbridge/db/tx"
	"msgbridge/models"
)

type PostgresMessagesRepository struct {
	db     *sqlx.DB
	schema string
}

// Column names for messages table
var messagesColumns = []string{
	"id",
	"external_message_id",
	"sender_id",
	"sender_name",
	"content",
	"platform",
	"account_id",
	"business_id",
	"sent_at",
	"is_read",
	"is_replied",
	"delivered_at",
	"read_at",
	"created_at",
	"updated_at",
}

func NewPostgresMessagesRepository(db *sqlx.DB, schema string) *PostgresMessagesRepository {
	return &PostgresMessagesRepository{db: db, schema: schema}
}

// UpsertMessage stores a message keyed by (platform, external_message_id).
// A second upsert with the same key refreshes the mutable fields instead of
// creating a duplicate row.
func (r *PostgresMessagesRepository) UpsertMessage(ctx context.Context, message *models.Message) error {
	db := dbtx.GetTransactional(ctx, r.db)
	returningStr := strings.Join(messagesColumns, ", ")

	query := fmt.Sprintf(`
		INSERT INTO %s.messages (
			id, external_message_id, sender_id, sender_name, content, platform,
			account_id, business_id, sent_at, is_read, is_replied
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (platform, external_message_id)
		DO UPDATE SET
			sender_name = EXCLUDED.sender_name,
			content = EXCLUDED.content,
			updated_at = NOW()
		RETURNING %s`, r.schema, returningStr)

	var returned models.Message
	err := db.QueryRowxContext(ctx, query,
		message.ID, message.ExternalMessageID, message.SenderID, message.SenderName,
		message.Content, message.Platform, message.AccountID, message.BusinessID,
		message.SentAt, message.IsRead, message.IsReplied).
		StructScan(&returned)
	if err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}

	*message = returned
	return nil
}

func (r *PostgresMessagesRepository) GetMessageByExternalID(
	ctx context.Context,
	platform models.Platform,
	externalMessageID string,
) (mo.Option[*models.Message], error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(messagesColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.messages
		WHERE platform = $1 AND external_message_id = $2`, columnsStr, r.schema)

	var message models.Message
	err := db.GetContext(ctx, &message, query, platform, externalMessageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.Message](), nil
		}
		return mo.None[*models.Message](), fmt.Errorf("failed to get message: %w", err)
	}
	return mo.Some(&message), nil
}

// MarkMessageReplied sets is_replied on a stored message. Called only after
// an outbound reply was actually sent.
func (r *PostgresMessagesRepository) MarkMessageReplied(ctx context.Context, messageID string) error {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		UPDATE %s.messages
		SET is_replied = TRUE, updated_at = NOW()
		WHERE id = $1`, r.schema)

	result, err := db.ExecContext(ctx, query, messageID)
	if err != nil {
		return fmt.Errorf("failed to mark message replied: %w", err)
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

// MarkMessagesDeliveredUpTo flags every message in the conversation sent at
// or before the delivery watermark.
func (r *PostgresMessagesRepository) MarkMessagesDeliveredUpTo(
	ctx context.Context,
	accountID, senderID string,
	watermark time.Time,
) (int64, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		UPDATE %s.messages
		SET delivered_at = $3, updated_at = NOW()
		WHERE account_id = $1 AND sender_id = $2 AND sent_at <= $3 AND delivered_at IS NULL`, r.schema)

	result, err := db.ExecContext(ctx, query, accountID, senderID, watermark)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages delivered: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return rows, nil
}

// MarkMessagesReadUpTo flags every message in the conversation sent at or
// before the read watermark.
func (r *PostgresMessagesRepository) MarkMessagesReadUpTo(
	ctx context.Context,
	accountID, senderID string,
	watermark time.Time,
) (int64, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		UPDATE %s.messages
		SET is_read = TRUE, read_at = $3, updated_at = NOW()
		WHERE account_id = $1 AND sender_id = $2 AND sent_at <= $3 AND read_at IS NULL`, r.schema)

	result, err := db.ExecContext(ctx, query, accountID, senderID, watermark)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return rows, nil
}

package messages

import (
	"context"
	"fmt"
	"log"
	"time"

	"msgbridge/core"
	"msgbridge/db"
	"msgbridge/models"
)

type MessagesService struct {
	messagesRepo *db.PostgresMessagesRepository
}

func NewMessagesService(messagesRepo *db.PostgresMessagesRepository) *MessagesService {
	return &MessagesService{messagesRepo: messagesRepo}
}

// UpsertMessage stores a normalized inbound message. Replayed deliveries of
// the same (platform, external id) land on the existing row.
func (s *MessagesService) UpsertMessage(
	ctx context.Context,
	platform models.Platform,
	externalMessageID, senderID, senderName, content, accountID, businessID string,
	sentAt time.Time,
) (*models.Message, error) {
	log.Printf("📋 Starting to upsert message: %s (%s)", externalMessageID, platform)

	if externalMessageID == "" {
		return nil, fmt.Errorf("external_message_id cannot be empty")
	}
	if senderID == "" {
		return nil, fmt.Errorf("sender_id cannot be empty")
	}
	if !core.IsValidULID(accountID) {
		return nil, fmt.Errorf("account_id must be a valid ULID")
	}
	if !core.IsValidULID(businessID) {
		return nil, fmt.Errorf("business_id must be a valid ULID")
	}

	message := &models.Message{
		ID:                core.NewID("msg"),
		ExternalMessageID: externalMessageID,
		SenderID:          senderID,
		SenderName:        senderName,
		Content:           content,
		Platform:          platform,
		AccountID:         accountID,
		BusinessID:        businessID,
		SentAt:            sentAt,
	}

	if err := s.messagesRepo.UpsertMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to upsert message: %w", err)
	}

	log.Printf("📋 Completed successfully - upserted message with ID: %s", message.ID)
	return message, nil
}

func (s *MessagesService) MarkMessageReplied(ctx context.Context, messageID string) error {
	log.Printf("📋 Starting to mark message replied: %s", messageID)
	if !core.IsValidULID(messageID) {
		return fmt.Errorf("message ID must be a valid ULID")
	}

	if err := s.messagesRepo.MarkMessageReplied(ctx, messageID); err != nil {
		return fmt.Errorf("failed to mark message replied: %w", err)
	}

	log.Printf("📋 Completed successfully - message marked replied: %s", messageID)
	return nil
}

func (s *MessagesService) MarkConversationDelivered(
	ctx context.Context,
	accountID, senderID string,
	watermark time.Time,
) (int64, error) {
	log.Printf("📋 Starting to mark conversation delivered for sender %s up to %s",
		senderID, watermark.Format(time.RFC3339))
	if !core.IsValidULID(accountID) {
		return 0, fmt.Errorf("account ID must be a valid ULID")
	}
	if senderID == "" {
		return 0, fmt.Errorf("sender_id cannot be empty")
	}

	count, err := s.messagesRepo.MarkMessagesDeliveredUpTo(ctx, accountID, senderID, watermark)
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation delivered: %w", err)
	}

	log.Printf("📋 Completed successfully - %d messages marked delivered", count)
	return count, nil
}

func (s *MessagesService) MarkConversationRead(
	ctx context.Context,
	accountID, senderID string,
	watermark time.Time,
) (int64, error) {
	log.Printf("📋 Starting to mark conversation read for sender %s up to %s",
		senderID, watermark.Format(time.RFC3339))
	if !core.IsValidULID(accountID) {
		return 0, fmt.Errorf("account ID must be a valid ULID")
	}
	if senderID == "" {
		return 0, fmt.Errorf("sender_id cannot be empty")
	}

	count, err := s.messagesRepo.MarkMessagesReadUpTo(ctx, accountID, senderID, watermark)
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %w", err)
	}

	log.Printf("📋 Completed successfully - %d messages marked read", count)
	return count, nil
}

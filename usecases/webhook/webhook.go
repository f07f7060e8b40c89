package webhook

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"msgbridge/clients"
	"msgbridge/core"
	"msgbridge/models"
	"msgbridge/services"
)

// WebhookUseCase routes classified webhook events into persistence, realtime
// notifications and the auto-reply engine. All per-item failures are logged
// and isolated; nothing here ever propagates back to the HTTP response.
type WebhookUseCase struct {
	accountsService   services.AccountsService
	businessesService services.BusinessesService
	messagesService   services.MessagesService
	autoReplyService  services.AutoReplyService
	metaClient        clients.MetaClient
	publisher         clients.RealtimePublisher
	cipher            *core.TokenCipher
}

func NewWebhookUseCase(
	accountsService services.AccountsService,
	businessesService services.BusinessesService,
	messagesService services.MessagesService,
	autoReplyService services.AutoReplyService,
	metaClient clients.MetaClient,
	publisher clients.RealtimePublisher,
	cipher *core.TokenCipher,
) *WebhookUseCase {
	return &WebhookUseCase{
		accountsService:   accountsService,
		businessesService: businessesService,
		messagesService:   messagesService,
		autoReplyService:  autoReplyService,
		metaClient:        metaClient,
		publisher:         publisher,
		cipher:            cipher,
	}
}

// ProcessPayload dispatches one webhook delivery. Entries and items are
// processed independently; a failure in one never stops its siblings.
func (u *WebhookUseCase) ProcessPayload(ctx context.Context, payload *models.WebhookPayload) {
	log.Printf("📋 Starting to process webhook payload (object: %s, entries: %d)",
		payload.Object, len(payload.Entry))

	platform, ok := models.PlatformForObject(payload.Object)
	if !ok {
		log.Printf("⚠️ Dropping webhook payload with unsupported object: %s", payload.Object)
		return
	}

	for _, entry := range payload.Entry {
		u.processEntry(ctx, platform, entry)
	}

	log.Printf("📋 Completed successfully - processed webhook payload with %d entries", len(payload.Entry))
}

func (u *WebhookUseCase) processEntry(ctx context.Context, platform models.Platform, entry models.WebhookEntry) {
	items := entry.Messaging
	items = append(items, entry.MessagingInstagram...)
	for _, item := range items {
		u.processMessagingItem(ctx, platform, entry.ID, item)
	}

	for _, change := range entry.Changes {
		u.processChangeItem(platform, entry.ID, change)
	}
}

// processMessagingItem isolates a single sub-item: a panic is logged and
// skipped without aborting the entry's remaining items.
func (u *WebhookUseCase) processMessagingItem(
	ctx context.Context,
	platform models.Platform,
	pageID string,
	item models.MessagingItem,
) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic while processing messaging item on page %s, skipping: %v", pageID, r)
		}
	}()

	event := models.ClassifyMessagingItem(platform, pageID, item)
	u.dispatchEvent(ctx, event)
}

func (u *WebhookUseCase) processChangeItem(platform models.Platform, pageID string, change models.ChangeItem) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic while processing change item on page %s, skipping: %v", pageID, r)
		}
	}()

	u.handleChange(platform, pageID, change)
}

func (u *WebhookUseCase) dispatchEvent(ctx context.Context, event models.WebhookEvent) {
	switch event.Kind {
	case models.EventKindMessage:
		if event.Message.IsEcho {
			log.Printf("📋 Skipping echo of our own outbound message: %s", event.Message.MID)
			return
		}
		u.handleIncomingMessage(ctx, event)
	case models.EventKindPostback:
		u.handlePostback(ctx, event)
	case models.EventKindDeliveryReceipt:
		u.handleDeliveryReceipt(ctx, event)
	case models.EventKindReadReceipt:
		u.handleReadReceipt(ctx, event)
	default:
		log.Printf("⚠️ Dropping unrecognized webhook event from sender %s on page %s",
			event.SenderID, event.PageID)
	}
}

// handleIncomingMessage runs the ingestion pipeline for one inbound message.
func (u *WebhookUseCase) handleIncomingMessage(ctx context.Context, event models.WebhookEvent) {
	// Optimistic notify before any lookups so dashboards see activity
	// immediately. Duplicate notifications with message:new are acceptable.
	u.publish("message:incoming", map[string]any{
		"platform":  event.Platform,
		"page_id":   event.PageID,
		"sender_id": event.SenderID,
		"mid":       event.Message.MID,
		"text":      event.Message.Text,
	})

	account, business, ok := u.resolveOwnership(ctx, event)
	if !ok {
		return
	}

	senderName := u.lookupSenderName(ctx, account, event.SenderID, event.Platform)

	content := event.Message.Text
	if content == "" && len(event.Message.Attachments) > 0 {
		content = fmt.Sprintf("[%s attachment]", event.Message.Attachments[0].Type)
	}

	message, err := u.messagesService.UpsertMessage(
		ctx,
		event.Platform,
		event.Message.MID,
		event.SenderID,
		senderName,
		content,
		account.ID,
		business.ID,
		event.Timestamp,
	)
	if err != nil {
		log.Printf("❌ Failed to store message %s: %v", event.Message.MID, err)
		return
	}

	u.publish("message:new", map[string]any{
		"message":       message,
		"business_id":   business.ID,
		"business_name": business.Name,
		"page_name":     account.PageName,
	})

	if err := u.autoReplyService.HandleIncomingMessage(ctx, message, business); err != nil {
		log.Printf("❌ Auto-reply evaluation failed for message %s: %v", message.ID, err)
	}
}

// handlePostback stores button presses as messages so conversations keep
// their full history. Postbacks never trigger auto-replies.
func (u *WebhookUseCase) handlePostback(ctx context.Context, event models.WebhookEvent) {
	account, business, ok := u.resolveOwnership(ctx, event)
	if !ok {
		return
	}

	content := event.Postback.Title
	if content == "" {
		content = event.Postback.Payload
	}
	externalID := fmt.Sprintf("postback:%s:%d", event.SenderID, event.Timestamp.UnixMilli())

	message, err := u.messagesService.UpsertMessage(
		ctx,
		event.Platform,
		externalID,
		event.SenderID,
		u.lookupSenderName(ctx, account, event.SenderID, event.Platform),
		content,
		account.ID,
		business.ID,
		event.Timestamp,
	)
	if err != nil {
		log.Printf("❌ Failed to store postback from sender %s: %v", event.SenderID, err)
		return
	}

	u.publish("message:new", map[string]any{
		"message":     message,
		"business_id": business.ID,
		"postback":    true,
	})
}

func (u *WebhookUseCase) handleDeliveryReceipt(ctx context.Context, event models.WebhookEvent) {
	account, _, ok := u.resolveOwnership(ctx, event)
	if !ok {
		return
	}

	watermark := time.UnixMilli(event.Delivery.Watermark)
	count, err := u.messagesService.MarkConversationDelivered(ctx, account.ID, event.SenderID, watermark)
	if err != nil {
		log.Printf("❌ Failed to mark conversation delivered for sender %s: %v", event.SenderID, err)
		return
	}
	log.Printf("📋 Marked %d messages delivered for sender %s", count, event.SenderID)
}

func (u *WebhookUseCase) handleReadReceipt(ctx context.Context, event models.WebhookEvent) {
	account, _, ok := u.resolveOwnership(ctx, event)
	if !ok {
		return
	}

	watermark := time.UnixMilli(event.Read.Watermark)
	count, err := u.messagesService.MarkConversationRead(ctx, account.ID, event.SenderID, watermark)
	if err != nil {
		log.Printf("❌ Failed to mark conversation read for sender %s: %v", event.SenderID, err)
		return
	}
	log.Printf("📋 Marked %d messages read for sender %s", count, event.SenderID)
}

func (u *WebhookUseCase) handleChange(platform models.Platform, pageID string, change models.ChangeItem) {
	kind := models.ClassifyChange(change)
	if kind == models.ChangeKindOther {
		log.Printf("⚠️ Dropping change with unsupported field %q on page %s", change.Field, pageID)
		return
	}

	u.publish(fmt.Sprintf("change:%s", kind), map[string]any{
		"platform": platform,
		"page_id":  pageID,
		"field":    change.Field,
		"value":    change.Value,
	})
}

// resolveOwnership maps the event's page id onto a stored account and its
// owning business. A miss on either is a warn-and-drop, not an error.
func (u *WebhookUseCase) resolveOwnership(
	ctx context.Context,
	event models.WebhookEvent,
) (*models.SocialAccount, *models.Business, bool) {
	maybeAccount, err := u.accountsService.ResolveAccountByPageID(ctx, event.Platform, event.PageID)
	if err != nil {
		log.Printf("❌ Failed to resolve account for page %s: %v", event.PageID, err)
		return nil, nil, false
	}
	account, ok := maybeAccount.Get()
	if !ok {
		log.Printf("⚠️ No account for page %s on %s, dropping event", event.PageID, event.Platform)
		return nil, nil, false
	}

	maybeBusiness, err := u.businessesService.GetBusinessByID(ctx, account.BusinessID)
	if err != nil {
		log.Printf("❌ Failed to load business %s: %v", account.BusinessID, err)
		return nil, nil, false
	}
	business, ok := maybeBusiness.Get()
	if !ok {
		log.Printf("⚠️ No business %s for account %s, dropping event", account.BusinessID, account.ID)
		return nil, nil, false
	}

	return account, business, true
}

// lookupSenderName fetches the sender's profile best-effort; any failure
// falls back to a platform placeholder.
func (u *WebhookUseCase) lookupSenderName(
	ctx context.Context,
	account *models.SocialAccount,
	senderID string,
	platform models.Platform,
) string {
	accessToken, err := u.cipher.Decrypt(account.AccessToken)
	if err != nil {
		log.Printf("⚠️ Failed to decrypt token for profile lookup, using placeholder: %v", err)
		return placeholderSenderName(platform)
	}

	profile, err := u.metaClient.GetUserProfile(ctx, accessToken, senderID)
	if err != nil {
		log.Printf("⚠️ Profile lookup failed for sender %s, using placeholder: %v", senderID, err)
		return placeholderSenderName(platform)
	}

	name := strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	if name == "" {
		return placeholderSenderName(platform)
	}
	return name
}

func placeholderSenderName(platform models.Platform) string {
	if platform == models.PlatformInstagram {
		return "Instagram User"
	}
	return "Facebook User"
}

func (u *WebhookUseCase) publish(topic string, payload any) {
	if err := u.publisher.Publish(topic, payload); err != nil {
		log.Printf("⚠️ Failed to publish %s notification, ignoring: %v", topic, err)
	}
}

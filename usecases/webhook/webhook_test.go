package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"msgbridge/clients"
	"msgbridge/clients/meta"
	"msgbridge/clients/socketio"
	"msgbridge/core"
	"msgbridge/models"
	"msgbridge/services"
)

type fixture struct {
	usecase    *WebhookUseCase
	accounts   *services.MockAccountsService
	businesses *services.MockBusinessesService
	messages   *services.MockMessagesService
	autoReply  *services.MockAutoReplyService
	metaClient *meta.MockMetaClient
	publisher  *socketio.MockRealtimePublisher
	cipher     *core.TokenCipher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cipher, err := core.NewTokenCipher("test-encryption-secret")
	require.NoError(t, err)

	f := &fixture{
		accounts:   new(services.MockAccountsService),
		businesses: new(services.MockBusinessesService),
		messages:   new(services.MockMessagesService),
		autoReply:  new(services.MockAutoReplyService),
		metaClient: meta.NewMockMetaClient(),
		publisher:  socketio.NewMockRealtimePublisher(),
		cipher:     cipher,
	}
	f.usecase = NewWebhookUseCase(
		f.accounts, f.businesses, f.messages, f.autoReply, f.metaClient, f.publisher, cipher,
	)
	return f
}

func (f *fixture) account(t *testing.T) *models.SocialAccount {
	t.Helper()
	encrypted, err := f.cipher.Encrypt("page-token")
	require.NoError(t, err)
	return &models.SocialAccount{
		ID:             core.NewID("acc"),
		BusinessID:     core.NewID("biz"),
		Platform:       models.PlatformFacebook,
		ExternalPageID: "P1",
		PageName:       "Test Page",
		AccessToken:    encrypted,
	}
}

func messagePayload(text string) *models.WebhookPayload {
	return &models.WebhookPayload{
		Object: "page",
		Entry: []models.WebhookEntry{{
			ID:   "P1",
			Time: 1700000000000,
			Messaging: []models.MessagingItem{{
				Sender:    models.Participant{ID: "U1"},
				Recipient: models.Participant{ID: "P1"},
				Timestamp: 1700000000000,
				Message:   &models.MessageContent{MID: "m1", Text: text},
			}},
		}},
	}
}

func TestProcessPayload_IncomingMessagePipeline(t *testing.T) {
	// Setup
	f := newFixture(t)
	account := f.account(t)
	business := &models.Business{ID: account.BusinessID, Name: "Acme", AutoReplyEnabled: true}
	stored := &models.Message{ID: core.NewID("msg"), ExternalMessageID: "m1"}

	f.publisher.On("Publish", "message:incoming", mock.Anything).Return(nil)
	f.accounts.On("ResolveAccountByPageID", mock.Anything, models.PlatformFacebook, "P1").
		Return(mo.Some(account), nil)
	f.businesses.On("GetBusinessByID", mock.Anything, account.BusinessID).
		Return(mo.Some(business), nil)
	f.metaClient.On("GetUserProfile", mock.Anything, "page-token", "U1").
		Return(&clients.UserProfile{FirstName: "Jamie", LastName: "Doe"}, nil)
	f.messages.On("UpsertMessage",
		mock.Anything, models.PlatformFacebook, "m1", "U1", "Jamie Doe", "hello there",
		account.ID, business.ID, time.UnixMilli(1700000000000)).
		Return(stored, nil)
	f.publisher.On("Publish", "message:new", mock.Anything).Return(nil)
	f.autoReply.On("HandleIncomingMessage", mock.Anything, stored, business).Return(nil)

	// Act
	f.usecase.ProcessPayload(context.Background(), messagePayload("hello there"))

	// Assert
	f.accounts.AssertExpectations(t)
	f.messages.AssertExpectations(t)
	f.autoReply.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestProcessPayload_ProfileLookupFailureUsesPlaceholder(t *testing.T) {
	// Setup
	f := newFixture(t)
	account := f.account(t)
	business := &models.Business{ID: account.BusinessID, Name: "Acme"}

	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	f.accounts.On("ResolveAccountByPageID", mock.Anything, models.PlatformFacebook, "P1").
		Return(mo.Some(account), nil)
	f.businesses.On("GetBusinessByID", mock.Anything, account.BusinessID).
		Return(mo.Some(business), nil)
	f.metaClient.On("GetUserProfile", mock.Anything, "page-token", "U1").
		Return(nil, assert.AnError)
	f.messages.On("UpsertMessage",
		mock.Anything, models.PlatformFacebook, "m1", "U1", "Facebook User", "hi",
		account.ID, business.ID, mock.Anything).
		Return(&models.Message{ID: core.NewID("msg")}, nil)
	f.autoReply.On("HandleIncomingMessage", mock.Anything, mock.Anything, business).Return(nil)

	// Act
	f.usecase.ProcessPayload(context.Background(), messagePayload("hi"))

	// Assert
	f.messages.AssertExpectations(t)
}

func TestProcessPayload_UnknownAccountDropsEvent(t *testing.T) {
	// Setup
	f := newFixture(t)
	f.publisher.On("Publish", "message:incoming", mock.Anything).Return(nil)
	f.accounts.On("ResolveAccountByPageID", mock.Anything, models.PlatformFacebook, "P1").
		Return(mo.None[*models.SocialAccount](), nil)

	// Act
	f.usecase.ProcessPayload(context.Background(), messagePayload("hello"))

	// Assert
	f.messages.AssertNotCalled(t, "UpsertMessage",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.autoReply.AssertNotCalled(t, "HandleIncomingMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessPayload_EchoMessageSkipped(t *testing.T) {
	// Setup
	f := newFixture(t)
	payload := messagePayload("our own reply")
	payload.Entry[0].Messaging[0].Message.IsEcho = true

	// Act
	f.usecase.ProcessPayload(context.Background(), payload)

	// Assert - no publish, no lookups, no persistence
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	f.accounts.AssertNotCalled(t, "ResolveAccountByPageID", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessPayload_UnsupportedObjectDropped(t *testing.T) {
	// Setup
	f := newFixture(t)
	payload := &models.WebhookPayload{Object: "whatsapp", Entry: []models.WebhookEntry{{ID: "P1"}}}

	// Act
	f.usecase.ProcessPayload(context.Background(), payload)

	// Assert
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestProcessPayload_DeliveryReceiptMarksWatermark(t *testing.T) {
	// Setup
	f := newFixture(t)
	account := f.account(t)
	business := &models.Business{ID: account.BusinessID}
	watermark := int64(1700000050000)

	f.accounts.On("ResolveAccountByPageID", mock.Anything, models.PlatformFacebook, "P1").
		Return(mo.Some(account), nil)
	f.businesses.On("GetBusinessByID", mock.Anything, account.BusinessID).
		Return(mo.Some(business), nil)
	f.messages.On("MarkConversationDelivered", mock.Anything, account.ID, "U1", time.UnixMilli(watermark)).
		Return(int64(3), nil)

	payload := &models.WebhookPayload{
		Object: "page",
		Entry: []models.WebhookEntry{{
			ID: "P1",
			Messaging: []models.MessagingItem{{
				Sender:    models.Participant{ID: "U1"},
				Recipient: models.Participant{ID: "P1"},
				Timestamp: watermark,
				Delivery:  &models.DeliveryReceipt{Watermark: watermark},
			}},
		}},
	}

	// Act
	f.usecase.ProcessPayload(context.Background(), payload)

	// Assert
	f.messages.AssertExpectations(t)
}

func TestProcessPayload_AmbiguousItemDropped(t *testing.T) {
	// Setup - both message and postback set classifies as unrecognized
	f := newFixture(t)
	payload := &models.WebhookPayload{
		Object: "page",
		Entry: []models.WebhookEntry{{
			ID: "P1",
			Messaging: []models.MessagingItem{{
				Sender:    models.Participant{ID: "U1"},
				Recipient: models.Participant{ID: "P1"},
				Message:   &models.MessageContent{MID: "m1", Text: "hi"},
				Postback:  &models.PostbackContent{Title: "Start"},
			}},
		}},
	}

	// Act
	f.usecase.ProcessPayload(context.Background(), payload)

	// Assert
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	f.accounts.AssertNotCalled(t, "ResolveAccountByPageID", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessPayload_PanicInOneItemDoesNotAbortSiblings(t *testing.T) {
	// Setup - two inbound messages in one entry; handling the first blows up
	// during account resolution
	f := newFixture(t)
	f.publisher.On("Publish", "message:incoming", mock.Anything).Return(nil)
	f.accounts.On("ResolveAccountByPageID", mock.Anything, models.PlatformFacebook, "P1").
		Run(func(mock.Arguments) { panic("account store corrupted") }).
		Return(mo.None[*models.SocialAccount](), nil).Once()
	f.accounts.On("ResolveAccountByPageID", mock.Anything, models.PlatformFacebook, "P1").
		Return(mo.None[*models.SocialAccount](), nil).Once()

	payload := &models.WebhookPayload{
		Object: "page",
		Entry: []models.WebhookEntry{{
			ID: "P1",
			Messaging: []models.MessagingItem{
				{
					Sender:    models.Participant{ID: "U1"},
					Recipient: models.Participant{ID: "P1"},
					Message:   &models.MessageContent{MID: "m1", Text: "first"},
				},
				{
					Sender:    models.Participant{ID: "U2"},
					Recipient: models.Participant{ID: "P1"},
					Message:   &models.MessageContent{MID: "m2", Text: "second"},
				},
			},
		}},
	}

	// Act
	f.usecase.ProcessPayload(context.Background(), payload)

	// Assert - the second item still ran its full pipeline
	f.accounts.AssertNumberOfCalls(t, "ResolveAccountByPageID", 2)
	f.publisher.AssertNumberOfCalls(t, "Publish", 2)
}

func TestProcessPayload_PanicInChangeDoesNotAbortSiblings(t *testing.T) {
	// Setup - publishing the first feed change blows up
	f := newFixture(t)
	f.publisher.On("Publish", "change:feed", mock.Anything).
		Run(func(mock.Arguments) { panic("socket buffer gone") }).
		Return(nil).Once()
	f.publisher.On("Publish", "change:feed", mock.Anything).Return(nil).Once()

	payload := &models.WebhookPayload{
		Object: "page",
		Entry: []models.WebhookEntry{{
			ID: "P1",
			Changes: []models.ChangeItem{
				{Field: "feed"},
				{Field: "feed"},
			},
		}},
	}

	// Act
	f.usecase.ProcessPayload(context.Background(), payload)

	// Assert
	f.publisher.AssertNumberOfCalls(t, "Publish", 2)
}

func TestProcessPayload_FeedChangePublished(t *testing.T) {
	// Setup
	f := newFixture(t)
	f.publisher.On("Publish", "change:feed", mock.Anything).Return(nil)

	payload := &models.WebhookPayload{
		Object: "page",
		Entry: []models.WebhookEntry{{
			ID:      "P1",
			Changes: []models.ChangeItem{{Field: "feed"}},
		}},
	}

	// Act
	f.usecase.ProcessPayload(context.Background(), payload)

	// Assert
	f.publisher.AssertExpectations(t)
}

package models

import (
	"encoding/json"
	"time"
)

// Wire shapes of the provider's webhook deliveries. Fields here are exactly
// what the platform sends; everything downstream works on the classified
// WebhookEvent variants instead.

type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID                 string          `json:"id"`
	Time               int64           `json:"time"`
	Messaging          []MessagingItem `json:"messaging,omitempty"`
	MessagingInstagram []MessagingItem `json:"messagingInstagram,omitempty"`
	Changes            []ChangeItem    `json:"changes,omitempty"`
}

type MessagingItem struct {
	Sender    Participant      `json:"sender"`
	Recipient Participant      `json:"recipient"`
	Timestamp int64            `json:"timestamp"`
	Message   *MessageContent  `json:"message,omitempty"`
	Postback  *PostbackContent `json:"postback,omitempty"`
	Delivery  *DeliveryReceipt `json:"delivery,omitempty"`
	Read      *ReadReceipt     `json:"read,omitempty"`
}

type Participant struct {
	ID string `json:"id"`
}

type MessageContent struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text"`
	IsEcho      bool         `json:"is_echo,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Type    string `json:"type"`
	Payload struct {
		URL string `json:"url,omitempty"`
	} `json:"payload"`
}

type PostbackContent struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

type DeliveryReceipt struct {
	MIDs      []string `json:"mids,omitempty"`
	Watermark int64    `json:"watermark"`
}

type ReadReceipt struct {
	Watermark int64 `json:"watermark"`
}

type ChangeItem struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value,omitempty"`
}

// WebhookEventKind is the closed set of event variants a messaging item can
// classify into. Unknown shapes become KindUnrecognized and are dropped by
// the router after logging, never crashing the parser.
type WebhookEventKind string

const (
	EventKindMessage         WebhookEventKind = "message"
	EventKindPostback        WebhookEventKind = "postback"
	EventKindDeliveryReceipt WebhookEventKind = "delivery_receipt"
	EventKindReadReceipt     WebhookEventKind = "read_receipt"
	EventKindUnrecognized    WebhookEventKind = "unrecognized"
)

// WebhookEvent is one classified messaging item. Exactly one payload pointer
// matching Kind is populated.
type WebhookEvent struct {
	Kind      WebhookEventKind
	Platform  Platform
	PageID    string
	SenderID  string
	Timestamp time.Time
	Message   *MessageContent
	Postback  *PostbackContent
	Delivery  *DeliveryReceipt
	Read      *ReadReceipt
}

// ChangeKind classifies entry-level change items by their field name.
type ChangeKind string

const (
	ChangeKindFeed          ChangeKind = "feed"
	ChangeKindConversations ChangeKind = "conversations"
	ChangeKindMessages      ChangeKind = "messages"
	ChangeKindOther         ChangeKind = "other"
)

// ClassifyMessagingItem converts a raw messaging item into exactly one tagged
// event variant by field presence. Items carrying zero or more than one
// payload field classify as unrecognized.
func ClassifyMessagingItem(platform Platform, pageID string, item MessagingItem) WebhookEvent {
	ev := WebhookEvent{
		Kind:      EventKindUnrecognized,
		Platform:  platform,
		PageID:    pageID,
		SenderID:  item.Sender.ID,
		Timestamp: time.UnixMilli(item.Timestamp),
	}
	if item.Recipient.ID != "" {
		ev.PageID = item.Recipient.ID
	}

	populated := 0
	if item.Message != nil {
		populated++
	}
	if item.Postback != nil {
		populated++
	}
	if item.Delivery != nil {
		populated++
	}
	if item.Read != nil {
		populated++
	}
	if populated != 1 {
		return ev
	}

	switch {
	case item.Message != nil:
		ev.Kind = EventKindMessage
		ev.Message = item.Message
	case item.Postback != nil:
		ev.Kind = EventKindPostback
		ev.Postback = item.Postback
	case item.Delivery != nil:
		ev.Kind = EventKindDeliveryReceipt
		ev.Delivery = item.Delivery
	case item.Read != nil:
		ev.Kind = EventKindReadReceipt
		ev.Read = item.Read
	}
	return ev
}

// ClassifyChange maps a change item's field name onto the closed ChangeKind set.
func ClassifyChange(item ChangeItem) ChangeKind {
	switch item.Field {
	case "feed":
		return ChangeKindFeed
	case "conversations":
		return ChangeKindConversations
	case "messages":
		return ChangeKindMessages
	default:
		return ChangeKindOther
	}
}

// PlatformForObject maps the payload's top-level object field to a platform.
// The second return is false for objects this system does not integrate.
func PlatformForObject(object string) (Platform, bool) {
	switch object {
	case "page":
		return PlatformFacebook, true
	case "instagram":
		return PlatformInstagram, true
	default:
		return "", false
	}
}

package models

import (
	"time"
)

type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

// Message is the normalized form of an inbound message after parsing and
// enrichment. Identity is (platform, external_message_id); storing the same
// key twice must never create a second row.
type Message struct {
	ID                string     `json:"id"                  db:"id"`
	ExternalMessageID string     `json:"external_message_id" db:"external_message_id"`
	SenderID          string     `json:"sender_id"           db:"sender_id"`
	SenderName        string     `json:"sender_name"         db:"sender_name"`
	Content           string     `json:"content"             db:"content"`
	Platform          Platform   `json:"platform"            db:"platform"`
	AccountID         string     `json:"account_id"          db:"account_id"`
	BusinessID        string     `json:"business_id"         db:"business_id"`
	SentAt            time.Time  `json:"sent_at"             db:"sent_at"`
	IsRead            bool       `json:"is_read"             db:"is_read"`
	IsReplied         bool       `json:"is_replied"          db:"is_replied"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
	ReadAt            *time.Time `json:"read_at,omitempty"      db:"read_at"`
	CreatedAt         time.Time  `json:"created_at"          db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"          db:"updated_at"`
}

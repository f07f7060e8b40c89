package models

import (
	"time"
)

type MessageCategory string

const (
	MessageCategoryGreeting   MessageCategory = "greeting"
	MessageCategoryInquiry    MessageCategory = "inquiry"
	MessageCategoryComplaint  MessageCategory = "complaint"
	MessageCategoryCompliment MessageCategory = "compliment"
	MessageCategoryOther      MessageCategory = "other"
)

type AutoReplyRule struct {
	ID                  string          `json:"id"                   db:"id"`
	Name                string          `json:"name"                 db:"name"`
	TriggerKeywords     []string        `json:"trigger_keywords"     db:"-"`
	ResponseTemplate    string          `json:"response_template"    db:"response_template"`
	ConfidenceThreshold float64         `json:"confidence_threshold" db:"confidence_threshold"`
	IsActive            bool            `json:"is_active"            db:"is_active"`
	Category            MessageCategory `json:"category"             db:"category"`
	ResponseDelayMs     int             `json:"response_delay_ms"    db:"response_delay_ms"`
	CreatedAt           time.Time       `json:"created_at"           db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"           db:"updated_at"`
}

package models

import (
	"time"
)

type TokenJobPriority string

const (
	TokenJobPriorityHigh   TokenJobPriority = "HIGH"
	TokenJobPriorityMedium TokenJobPriority = "MEDIUM"
	TokenJobPriorityLow    TokenJobPriority = "LOW"
)

type TokenJobStatus string

const (
	TokenJobStatusPending    TokenJobStatus = "PENDING"
	TokenJobStatusProcessing TokenJobStatus = "PROCESSING"
	TokenJobStatusCompleted  TokenJobStatus = "COMPLETED"
	TokenJobStatusFailed     TokenJobStatus = "FAILED"
)

// TokenRefreshJob is one scheduled attempt to renew a page access token.
// A job is eligible for processing only while status is PENDING,
// scheduled_for has passed, and retry_count < max_retries. A failed job with
// retries remaining produces exactly one follow-up PENDING job under a new id.
type TokenRefreshJob struct {
	ID           string           `json:"id"            db:"id"`
	AccountID    string           `json:"account_id"    db:"account_id"`
	Priority     TokenJobPriority `json:"priority"      db:"priority"`
	Status       TokenJobStatus   `json:"status"        db:"status"`
	RetryCount   int              `json:"retry_count"   db:"retry_count"`
	MaxRetries   int              `json:"max_retries"   db:"max_retries"`
	Forced       bool             `json:"forced"        db:"forced"`
	ScheduledFor time.Time        `json:"scheduled_for" db:"scheduled_for"`
	StartedAt    *time.Time       `json:"started_at,omitempty"    db:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"  db:"completed_at"`
	ErrorMessage *string          `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time        `json:"created_at"    db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"    db:"updated_at"`
}

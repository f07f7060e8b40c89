package clients

import (
	"context"
	"time"
)

// UserProfile is the subset of a platform user profile the pipeline needs to
// resolve a human-readable sender name.
type UserProfile struct {
	FirstName string
	LastName  string
}

// RefreshedToken is the result of a long-lived token exchange.
type RefreshedToken struct {
	AccessToken string
	ExpiresAt   time.Time
}

// MetaClient defines the interface for Meta Graph platform operations
type MetaClient interface {
	// Message operations
	SendMessage(ctx context.Context, accessToken, recipientID, text string) error

	// User operations
	GetUserProfile(ctx context.Context, accessToken, userID string) (*UserProfile, error)

	// Token operations
	RefreshToken(ctx context.Context, currentToken string) (*RefreshedToken, error)

	// Health operations
	CheckHealth(ctx context.Context) error
}

// CompletionClient defines the interface for the black-box text-generation
// provider behind the auto-reply AI fallback.
type CompletionClient interface {
	// Complete returns a short completion for the prompt. An empty string
	// with a nil error means the provider produced no usable text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// RealtimePublisher defines the fire-and-forget notification channel to
// connected dashboard clients. Callers on the main path log and ignore
// publish errors.
type RealtimePublisher interface {
	Publish(topic string, payload any) error
}

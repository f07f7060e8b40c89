package webhook

import (
	"context"

	"msgbridge/models"
)

// WebhookUseCaseInterface defines the interface for webhook event processing
type WebhookUseCaseInterface interface {
	// ProcessPayload dispatches one webhook delivery; per-item failures are
	// logged and isolated, never returned
	ProcessPayload(ctx context.Context, payload *models.WebhookPayload)
}

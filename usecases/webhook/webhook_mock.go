package webhook

import (
	"context"

	"github.com/stretchr/testify/mock"

	"msgbridge/models"
)

// MockWebhookUseCase is a mock implementation of the WebhookUseCase
type MockWebhookUseCase struct {
	mock.Mock
}

func (m *MockWebhookUseCase) ProcessPayload(ctx context.Context, payload *models.WebhookPayload) {
	m.Called(ctx, payload)
}

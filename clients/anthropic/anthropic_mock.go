package anthropic

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockCompletionClient is a mock implementation of clients.CompletionClient
type MockCompletionClient struct {
	mock.Mock
}

// NewMockCompletionClient creates a new mock client for testing
func NewMockCompletionClient() *MockCompletionClient {
	return &MockCompletionClient{}
}

func (m *MockCompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// WithCompletionResponse configures the mock to return specific text for any prompt
func (m *MockCompletionClient) WithCompletionResponse(text string) *MockCompletionClient {
	m.On("Complete", mock.Anything, mock.Anything).Return(text, nil)
	return m
}

package meta

import (
	"context"

	"github.com/stretchr/testify/mock"

	"msgbridge/clients"
)

// MockMetaClient is a mock implementation of clients.MetaClient
type MockMetaClient struct {
	mock.Mock
}

// NewMockMetaClient creates a new mock client for testing
func NewMockMetaClient() *MockMetaClient {
	return &MockMetaClient{}
}

func (m *MockMetaClient) SendMessage(ctx context.Context, accessToken, recipientID, text string) error {
	args := m.Called(ctx, accessToken, recipientID, text)
	return args.Error(0)
}

func (m *MockMetaClient) GetUserProfile(
	ctx context.Context,
	accessToken, userID string,
) (*clients.UserProfile, error) {
	args := m.Called(ctx, accessToken, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.UserProfile), args.Error(1)
}

func (m *MockMetaClient) RefreshToken(
	ctx context.Context,
	currentToken string,
) (*clients.RefreshedToken, error) {
	args := m.Called(ctx, currentToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.RefreshedToken), args.Error(1)
}

func (m *MockMetaClient) CheckHealth(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

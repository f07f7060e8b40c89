package socketio

import (
	"github.com/stretchr/testify/mock"
)

// MockRealtimePublisher is a mock implementation of clients.RealtimePublisher
type MockRealtimePublisher struct {
	mock.Mock
}

func NewMockRealtimePublisher() *MockRealtimePublisher {
	return &MockRealtimePublisher{}
}

func (m *MockRealtimePublisher) Publish(topic string, payload any) error {
	args := m.Called(topic, payload)
	return args.Error(0)
}

package models

import (
	"time"
)

type ConnectionChannel string

const (
	ConnectionChannelWebhook ConnectionChannel = "webhook"
	ConnectionChannelAPI     ConnectionChannel = "api"
)

// ConnectionStatus is the monitored up/down state of one dependent channel.
// It lives for the process lifetime of the health monitor and is mutated by
// the monitor alone.
type ConnectionStatus struct {
	Channel           ConnectionChannel `json:"channel"`
	Connected         bool              `json:"connected"`
	LastConnectedAt   *time.Time        `json:"last_connected_at,omitempty"`
	ReconnectAttempts int               `json:"reconnect_attempts"`
	ErrorCount        int               `json:"error_count"`
}

type ConnectionEventType string

const (
	ConnectionEventConnected ConnectionEventType = "connected"
	ConnectionEventError     ConnectionEventType = "error"
)

// ConnectionEvent is the transition record published on probe outcomes.
type ConnectionEvent struct {
	Channel   ConnectionChannel   `json:"channel"`
	Type      ConnectionEventType `json:"type"`
	Error     string              `json:"error,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

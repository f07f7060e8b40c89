package healthmonitor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"msgbridge/clients/meta"
	"msgbridge/clients/socketio"
	"msgbridge/core"
	"msgbridge/models"
	"msgbridge/opsalert"
)

func newTestMonitor(metaClient *meta.MockMetaClient, callbackURL string) (*Monitor, *socketio.MockRealtimePublisher, *core.DelayedTaskRunner) {
	publisher := socketio.NewMockRealtimePublisher()
	runner := core.NewDelayedTaskRunner()
	notifier := opsalert.NewNotifier("", "test", "msgbridge", "")
	monitor := NewMonitor(metaClient, publisher, notifier, runner, Config{
		WebhookCallbackURL: callbackURL,
		ReconnectBaseDelay: time.Minute,
		ReconnectMaxDelay:  5 * time.Minute,
	})
	return monitor, publisher, runner
}

func TestProbe_APISuccessResetsAttempts(t *testing.T) {
	// Setup
	metaClient := meta.NewMockMetaClient()
	metaClient.On("CheckHealth", mock.Anything).Return(nil)
	monitor, publisher, runner := newTestMonitor(metaClient, "")
	defer runner.StopAll()
	publisher.On("Publish", "connection:status", mock.Anything).Return(nil)
	monitor.statuses[models.ConnectionChannelAPI].ReconnectAttempts = 3
	monitor.statuses[models.ConnectionChannelAPI].Connected = false

	// Act
	monitor.Probe(context.Background(), models.ConnectionChannelAPI)

	// Assert
	snapshot := monitor.Snapshot()
	api := snapshot[1]
	assert.Equal(t, models.ConnectionChannelAPI, api.Channel)
	assert.True(t, api.Connected)
	assert.Equal(t, 0, api.ReconnectAttempts)
	assert.NotNil(t, api.LastConnectedAt)
	publisher.AssertExpectations(t)
}

func TestProbe_APIFailureSchedulesReconnect(t *testing.T) {
	// Setup
	metaClient := meta.NewMockMetaClient()
	metaClient.On("CheckHealth", mock.Anything).Return(fmt.Errorf("graph api unreachable"))
	monitor, publisher, runner := newTestMonitor(metaClient, "")
	defer runner.StopAll()
	publisher.On("Publish", "connection:status", mock.MatchedBy(func(payload any) bool {
		event, ok := payload.(models.ConnectionEvent)
		return ok && event.Type == models.ConnectionEventError && event.Error != ""
	})).Return(nil)

	// Act
	monitor.Probe(context.Background(), models.ConnectionChannelAPI)

	// Assert
	snapshot := monitor.Snapshot()
	api := snapshot[1]
	assert.False(t, api.Connected)
	assert.Equal(t, 1, api.ErrorCount)
	assert.Equal(t, 1, api.ReconnectAttempts)
	assert.Equal(t, 1, runner.PendingCount())
	assert.True(t, runner.Cancel("reconnect:api"))
}

func TestProbe_WebhookUsesCallbackEndpoint(t *testing.T) {
	// Setup
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	metaClient := meta.NewMockMetaClient()
	monitor, publisher, runner := newTestMonitor(metaClient, server.URL)
	defer runner.StopAll()
	publisher.On("Publish", "connection:status", mock.Anything).Return(nil)

	// Act
	monitor.Probe(context.Background(), models.ConnectionChannelWebhook)

	// Assert
	snapshot := monitor.Snapshot()
	webhook := snapshot[0]
	assert.Equal(t, models.ConnectionChannelWebhook, webhook.Channel)
	assert.True(t, webhook.Connected)
}

func TestProbe_WebhookServerErrorCountsAsFailure(t *testing.T) {
	// Setup
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	metaClient := meta.NewMockMetaClient()
	monitor, publisher, runner := newTestMonitor(metaClient, server.URL)
	defer runner.StopAll()
	publisher.On("Publish", "connection:status", mock.Anything).Return(nil)

	// Act
	monitor.Probe(context.Background(), models.ConnectionChannelWebhook)

	// Assert
	snapshot := monitor.Snapshot()
	webhook := snapshot[0]
	assert.False(t, webhook.Connected)
	assert.Equal(t, 1, webhook.ErrorCount)
}

func TestReconnectDelay_GrowsAndCaps(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, 5*time.Second, reconnectDelay(cfg, 0))
	assert.Equal(t, 10*time.Second, reconnectDelay(cfg, 1))
	assert.Equal(t, 20*time.Second, reconnectDelay(cfg, 2))
	assert.Equal(t, 5*time.Minute, reconnectDelay(cfg, 10))
	// overflow-safe for absurd attempt counts
	assert.Equal(t, 5*time.Minute, reconnectDelay(cfg, 80))
}

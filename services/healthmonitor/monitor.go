package healthmonitor

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"msgbridge/clients"
	"msgbridge/core"
	"msgbridge/models"
	"msgbridge/opsalert"
)

const (
	DefaultProbeInterval      = 30 * time.Second
	DefaultProbeTimeout       = 10 * time.Second
	DefaultReconnectBaseDelay = 5 * time.Second
	DefaultReconnectMaxDelay  = 5 * time.Minute
)

type Config struct {
	ProbeInterval      time.Duration
	ProbeTimeout       time.Duration
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
	// WebhookCallbackURL is the publicly reachable webhook endpoint probed
	// for the webhook channel.
	WebhookCallbackURL string
}

func (c Config) withDefaults() Config {
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = DefaultProbeInterval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.ReconnectMaxDelay <= 0 {
		c.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	return c
}

// Monitor tracks the health of the two channels the integration depends on:
// inbound webhook reachability and outbound Graph API access. Probe outcomes
// mutate per-channel ConnectionStatus records and publish transition events;
// failures schedule backed-off reconnect probes through the task runner.
type Monitor struct {
	metaClient clients.MetaClient
	publisher  clients.RealtimePublisher
	notifier   *opsalert.Notifier
	taskRunner *core.DelayedTaskRunner
	httpClient *http.Client
	cfg        Config

	mu       sync.Mutex
	statuses map[models.ConnectionChannel]*models.ConnectionStatus

	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped sync.Once
}

func NewMonitor(
	metaClient clients.MetaClient,
	publisher clients.RealtimePublisher,
	notifier *opsalert.Notifier,
	taskRunner *core.DelayedTaskRunner,
	cfg Config,
) *Monitor {
	cfg = cfg.withDefaults()
	return &Monitor{
		metaClient: metaClient,
		publisher:  publisher,
		notifier:   notifier,
		taskRunner: taskRunner,
		httpClient: &http.Client{Timeout: cfg.ProbeTimeout},
		cfg:        cfg,
		statuses: map[models.ConnectionChannel]*models.ConnectionStatus{
			models.ConnectionChannelWebhook: {Channel: models.ConnectionChannelWebhook},
			models.ConnectionChannelAPI:     {Channel: models.ConnectionChannelAPI},
		},
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the periodic probe loop.
func (m *Monitor) Start() {
	log.Printf("📋 Starting connection health monitor (interval: %s)", m.cfg.ProbeInterval)
	go func() {
		defer close(m.doneCh)
		ticker := time.NewTicker(m.cfg.ProbeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.ProbeAll(context.Background())
			}
		}
	}()
}

// Stop cancels the probe ticker and any pending reconnect timers.
func (m *Monitor) Stop() {
	m.stopped.Do(func() {
		close(m.stopCh)
		<-m.doneCh
		m.taskRunner.Cancel(reconnectTaskID(models.ConnectionChannelWebhook))
		m.taskRunner.Cancel(reconnectTaskID(models.ConnectionChannelAPI))
		log.Printf("📋 Connection health monitor stopped")
	})
}

// ProbeAll checks both channels once.
func (m *Monitor) ProbeAll(ctx context.Context) {
	m.Probe(ctx, models.ConnectionChannelWebhook)
	m.Probe(ctx, models.ConnectionChannelAPI)
}

// Probe checks one channel and records the outcome.
func (m *Monitor) Probe(ctx context.Context, channel models.ConnectionChannel) {
	var err error
	switch channel {
	case models.ConnectionChannelWebhook:
		err = m.probeWebhook(ctx)
	case models.ConnectionChannelAPI:
		err = m.metaClient.CheckHealth(ctx)
	default:
		log.Printf("⚠️ Unknown connection channel: %s", channel)
		return
	}

	if err != nil {
		m.recordFailure(channel, err)
		return
	}
	m.recordSuccess(channel)
}

func (m *Monitor) probeWebhook(ctx context.Context) error {
	if m.cfg.WebhookCallbackURL == "" {
		return fmt.Errorf("webhook callback URL not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.WebhookCallbackURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build webhook probe request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func (m *Monitor) recordSuccess(channel models.ConnectionChannel) {
	m.mu.Lock()
	status := m.statuses[channel]
	wasDown := !status.Connected
	now := time.Now()
	status.Connected = true
	status.ReconnectAttempts = 0
	status.LastConnectedAt = &now
	m.mu.Unlock()

	if wasDown {
		log.Printf("✅ Connection channel %s is up", channel)
	}
	m.publishEvent(models.ConnectionEvent{
		Channel:   channel,
		Type:      models.ConnectionEventConnected,
		Timestamp: now,
	})
}

func (m *Monitor) recordFailure(channel models.ConnectionChannel, cause error) {
	m.mu.Lock()
	status := m.statuses[channel]
	status.Connected = false
	status.ErrorCount++
	delay := reconnectDelay(m.cfg, status.ReconnectAttempts)
	status.ReconnectAttempts++
	m.mu.Unlock()

	log.Printf("❌ Connection channel %s probe failed, retrying in %s: %v", channel, delay, cause)
	m.notifier.ConnectionDown(string(channel), cause.Error())
	m.publishEvent(models.ConnectionEvent{
		Channel:   channel,
		Type:      models.ConnectionEventError,
		Error:     cause.Error(),
		Timestamp: time.Now(),
	})

	m.taskRunner.Schedule(reconnectTaskID(channel), delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ProbeTimeout)
		defer cancel()
		m.Probe(ctx, channel)
	})
}

func (m *Monitor) publishEvent(event models.ConnectionEvent) {
	if err := m.publisher.Publish("connection:status", event); err != nil {
		log.Printf("⚠️ Failed to publish connection event for %s, ignoring: %v", event.Channel, err)
	}
}

// Snapshot returns copies of both channel statuses.
func (m *Monitor) Snapshot() []models.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make([]models.ConnectionStatus, 0, len(m.statuses))
	for _, channel := range []models.ConnectionChannel{
		models.ConnectionChannelWebhook,
		models.ConnectionChannelAPI,
	} {
		snapshot = append(snapshot, *m.statuses[channel])
	}
	return snapshot
}

func reconnectTaskID(channel models.ConnectionChannel) string {
	return fmt.Sprintf("reconnect:%s", channel)
}

// reconnectDelay grows exponentially with the attempt count and is capped
// at the configured maximum.
func reconnectDelay(cfg Config, attempts int) time.Duration {
	delay := cfg.ReconnectBaseDelay * time.Duration(1<<attempts)
	if delay > cfg.ReconnectMaxDelay || delay <= 0 {
		return cfg.ReconnectMaxDelay
	}
	return delay
}

// Package mqtt publishes service availability and runtime statistics
// to an MQTT broker so a Vitala deployment can be monitored from
// dashboards or home automation without polling the HTTP API.
//
// The publisher uses Eclipse Paho v2's [autopaho] package for
// connection management with automatic reconnection. On every
// (re-)connect it publishes a retained "online" birth message to the
// availability topic; a will message ensures the topic transitions to
// "offline" on unexpected disconnects.
package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/seralba/vitala-health-agent/internal/config"
)

// StatsSource provides runtime data for the periodic stats payload.
// The concrete adapter is wired in main to avoid coupling this package
// to the API server or agent loop.
type StatsSource interface {
	// Uptime returns the process uptime.
	Uptime() time.Duration
	// Version returns the software version string.
	Version() string
	// Model returns the configured chat model name.
	Model() string
	// ActiveSessions returns the count of active conversation sessions.
	ActiveSessions() int
	// Turns returns the number of completed conversation turns.
	Turns() int64
	// Failures returns the number of failed conversation turns.
	Failures() int64
	// LastRequestTime returns when the most recent turn completed.
	LastRequestTime() time.Time
}

// statsPayload is the JSON document published to the stats topic.
type statsPayload struct {
	Uptime         string `json:"uptime"`
	Version        string `json:"version"`
	Model          string `json:"model"`
	ActiveSessions int    `json:"active_sessions"`
	Turns          int64  `json:"turns"`
	Failures       int64  `json:"failures"`
	LastRequest    string `json:"last_request"`
}

// publishInterval is how often runtime stats are pushed to the broker.
const publishInterval = 60 * time.Second

// Publisher manages the MQTT connection and runs a periodic loop that
// pushes stats updates to the broker.
type Publisher struct {
	cfg    config.MQTTConfig
	stats  StatsSource
	logger *slog.Logger
	cm     *autopaho.ConnectionManager
}

// New creates a Publisher but does not connect. Call [Publisher.Start]
// to begin the connection and publish loop.
func New(cfg config.MQTTConfig, stats StatsSource, logger *slog.Logger) *Publisher {
	return &Publisher{
		cfg:    cfg,
		stats:  stats,
		logger: logger,
	}
}

// Start connects to the MQTT broker and begins the periodic publish
// loop. It blocks until ctx is cancelled. On every (re-)connect it
// publishes a birth message to the availability topic.
func (p *Publisher) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	availTopic := p.availabilityTopic()

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: p.cfg.Username,
		ConnectPassword: []byte(p.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   availTopic,
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			p.logger.Info("mqtt connected to broker", "broker", p.cfg.URL)
			p.publishAvailability(ctx, cm, "online")
		},
		OnConnectError: func(err error) {
			p.logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: p.cfg.TopicPrefix + "-agent",
		},
	}

	// Enable TLS for mqtts:// or ssl:// schemes.
	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.cm = cm

	// Wait for the initial connection before starting the publish loop.
	connCtx, connCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connCancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		// Log but don't fail; autopaho keeps retrying in the background.
		p.logger.Warn("mqtt initial connection timed out, will retry in background", "error", err)
	}

	p.runLoop(ctx)
	return nil
}

// Stop gracefully disconnects by publishing an "offline" availability
// message before closing the MQTT connection. The provided context
// controls how long to wait for the publish and disconnect to complete.
func (p *Publisher) Stop(ctx context.Context) error {
	if p.cm == nil {
		return nil
	}
	p.publishAvailability(ctx, p.cm, "offline")
	return p.cm.Disconnect(ctx)
}

// --- Topic helpers ---

func (p *Publisher) availabilityTopic() string {
	return p.cfg.TopicPrefix + "/availability"
}

func (p *Publisher) statsTopic() string {
	return p.cfg.TopicPrefix + "/stats"
}

func (p *Publisher) publishAvailability(ctx context.Context, cm *autopaho.ConnectionManager, status string) {
	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   p.availabilityTopic(),
		Payload: []byte(status),
		QoS:     1,
		Retain:  true,
	}); err != nil {
		p.logger.Warn("mqtt availability publish failed",
			"status", status, "error", err)
	} else {
		p.logger.Info("mqtt availability published", "status", status)
	}
}

// --- Periodic stats loop ---

func (p *Publisher) runLoop(ctx context.Context) {
	ticker := time.NewTicker(publishInterval)
	defer ticker.Stop()

	// Publish immediately on start.
	p.publishStats(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishStats(ctx)
		}
	}
}

func (p *Publisher) publishStats(ctx context.Context) {
	if p.cm == nil {
		return
	}

	payload := statsPayload{
		Uptime:         p.stats.Uptime().Truncate(time.Second).String(),
		Version:        p.stats.Version(),
		Model:          p.stats.Model(),
		ActiveSessions: p.stats.ActiveSessions(),
		Turns:          p.stats.Turns(),
		Failures:       p.stats.Failures(),
		LastRequest:    "never",
	}
	if last := p.stats.LastRequestTime(); !last.IsZero() {
		payload.LastRequest = last.Format(time.RFC3339)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("mqtt marshal stats payload", "error", err)
		return
	}

	if _, err := p.cm.Publish(ctx, &paho.Publish{
		Topic:   p.statsTopic(),
		Payload: data,
		QoS:     0,
		Retain:  true,
	}); err != nil {
		p.logger.Debug("mqtt stats publish failed", "error", err)
		return
	}
	p.logger.Debug("mqtt stats published", "topic", p.statsTopic())
}

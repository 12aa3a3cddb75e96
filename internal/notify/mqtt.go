// Package notify publishes Daybook status and alarm events to an MQTT
// broker. It is optional: the server runs identically without a broker
// configured.
package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/natfisher/daybook/internal/config"
	"github.com/natfisher/daybook/internal/task"
)

// StatusSource provides the runtime data behind the published state
// topics. The concrete adapter is wired in main to keep this package
// decoupled from the stores and the API server.
type StatusSource interface {
	// TaskCounts returns (open, completed) task totals.
	TaskCounts() (open, done int)
	// Provider returns the active AI provider name.
	Provider() string
	// Uptime returns the process uptime.
	Uptime() time.Duration
	// Version returns the software version string.
	Version() string
}

// Configured reports whether cfg carries enough to attempt a connection.
func Configured(cfg config.MQTTConfig) bool {
	return cfg.Enabled && cfg.Broker != "" && cfg.DeviceName != ""
}

// Publisher manages the broker connection and runs a periodic loop that
// pushes status updates. Alarm events are published on demand.
type Publisher struct {
	cfg    config.MQTTConfig
	status StatusSource
	logger *slog.Logger
	cm     *autopaho.ConnectionManager
}

// New creates a Publisher but does not connect. Call [Publisher.Start]
// to begin the connection and publish loop.
func New(cfg config.MQTTConfig, status StatusSource, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{cfg: cfg, status: status, logger: logger.With("component", "mqtt")}
}

// Start connects to the broker and blocks in the publish loop until ctx
// is cancelled. A will message flips availability to offline if the
// process dies without a clean shutdown.
func (p *Publisher) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(p.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: p.cfg.Username,
		ConnectPassword: []byte(p.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   p.availabilityTopic(),
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			p.logger.Info("mqtt connected to broker", "broker", p.cfg.Broker)
			p.publishAvailability(ctx, cm, "online")
		},
		OnConnectError: func(err error) {
			p.logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "daybook-" + p.cfg.DeviceName,
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.cm = cm

	connCtx, connCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connCancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		// autopaho keeps retrying in the background.
		p.logger.Warn("mqtt initial connection timed out, will retry in background", "error", err)
	}

	p.runLoop(ctx)
	return nil
}

// Stop publishes an offline availability message before disconnecting.
func (p *Publisher) Stop(ctx context.Context) error {
	if p.cm == nil {
		return nil
	}
	p.publishAvailability(ctx, p.cm, "offline")
	return p.cm.Disconnect(ctx)
}

// PublishAlarm pushes a ringing task to the alarm topic so external
// automations can react (lights, speakers, phone push).
func (p *Publisher) PublishAlarm(ctx context.Context, t task.Task) {
	if p.cm == nil {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"taskId": t.ID,
		"title":  t.Title,
		"time":   t.ReminderTime,
	})
	if err != nil {
		p.logger.Error("mqtt marshal alarm payload", "task", t.ID, "error", err)
		return
	}

	if _, err := p.cm.Publish(ctx, &paho.Publish{
		Topic:   p.alarmTopic(),
		Payload: payload,
		QoS:     1,
	}); err != nil {
		p.logger.Warn("mqtt alarm publish failed", "task", t.ID, "error", err)
	} else {
		p.logger.Debug("mqtt alarm published", "task", t.ID)
	}
}

// --- Topic helpers ---

func (p *Publisher) baseTopic() string {
	return "daybook/" + p.cfg.DeviceName
}

func (p *Publisher) availabilityTopic() string {
	return p.baseTopic() + "/availability"
}

func (p *Publisher) stateTopic(entity string) string {
	return p.baseTopic() + "/" + entity + "/state"
}

func (p *Publisher) alarmTopic() string {
	return p.baseTopic() + "/alarm"
}

func (p *Publisher) publishAvailability(ctx context.Context, cm *autopaho.ConnectionManager, status string) {
	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   p.availabilityTopic(),
		Payload: []byte(status),
		QoS:     1,
		Retain:  true,
	}); err != nil {
		p.logger.Warn("mqtt availability publish failed", "status", status, "error", err)
	} else {
		p.logger.Info("mqtt availability published", "status", status)
	}
}

// --- Periodic state loop ---

func (p *Publisher) runLoop(ctx context.Context) {
	interval := time.Duration(p.cfg.PublishIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Publish immediately on start.
	p.publishStates(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishStates(ctx)
		}
	}
}

func (p *Publisher) publishStates(ctx context.Context) {
	if p.cm == nil || p.status == nil {
		return
	}

	open, done := p.status.TaskCounts()
	states := map[string]string{
		"tasks_open": strconv.Itoa(open),
		"tasks_done": strconv.Itoa(done),
		"provider":   p.status.Provider(),
		"uptime":     p.status.Uptime().Truncate(time.Second).String(),
		"version":    p.status.Version(),
	}

	for entity, value := range states {
		if _, err := p.cm.Publish(ctx, &paho.Publish{
			Topic:   p.stateTopic(entity),
			Payload: []byte(value),
			QoS:     0,
			Retain:  true,
		}); err != nil {
			p.logger.Debug("mqtt state publish failed", "entity", entity, "error", err)
		}
	}

	p.logger.Debug("mqtt states published", "entities", len(states))
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Event is the envelope published for every activation lifecycle change.
// Downstream dashboards subscribe to activation.> for live updates.
type Event struct {
	Type        string                 `json:"type"`
	CodeID      *uuid.UUID             `json:"code_id,omitempty"`
	WhitelistID *uuid.UUID             `json:"whitelist_id,omitempty"`
	UserID      *uuid.UUID             `json:"user_id,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// Publisher publishes activation events to NATS JetStream. Publishing is
// best effort: a missing or disconnected broker is logged, never surfaced
// to the request that triggered the event.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Logger
}

// NewPublisher connects to NATS and ensures the event stream exists. A
// connection failure returns a disabled publisher, not an error: the
// service must come up without its broker.
func NewPublisher(url string, logger *logrus.Logger) *Publisher {
	p := &Publisher{logger: logger}
	if url == "" {
		logger.Info("NATS URL not configured; event publishing disabled")
		return p
	}

	opts := []nats.Option{
		nats.Name("survey-service"),
		nats.Timeout(10 * time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		logger.WithError(err).Warn("Failed to connect to NATS; event publishing disabled")
		return p
	}

	js, err := conn.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		logger.WithError(err).Warn("Failed to create JetStream context; event publishing disabled")
		conn.Close()
		return p
	}

	p.conn = conn
	p.js = js
	if err := p.ensureStream(); err != nil {
		logger.WithError(err).Warn("Failed to ensure activation event stream")
	}
	return p
}

// Close drains the NATS connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
		p.conn.Close()
	}
}

func (p *Publisher) enabled() bool {
	return p.conn != nil && p.conn.IsConnected()
}

func (p *Publisher) ensureStream() error {
	streamCfg := nats.StreamConfig{
		Name:        "ACTIVATION_EVENTS",
		Description: "Activation lifecycle events for dashboard streaming",
		Subjects:    []string{"activation.>"},
		Storage:     nats.FileStorage,
		Retention:   nats.LimitsPolicy,
		MaxAge:      24 * time.Hour,
		MaxMsgs:     100000,
		Discard:     nats.DiscardOld,
		Replicas:    1,
	}

	_, err := p.js.StreamInfo(streamCfg.Name)
	if err == nats.ErrStreamNotFound {
		if _, err := p.js.AddStream(&streamCfg); err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		return nil
	}
	return err
}

// Publish sends one event on activation.{type}. Failures are logged only.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if !p.enabled() {
		return
	}
	event.OccurredAt = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("Failed to marshal activation event")
		return
	}

	subject := "activation." + event.Type
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		p.logger.WithFields(logrus.Fields{
			"subject": subject,
			"type":    event.Type,
		}).WithError(err).Warn("Failed to publish activation event")
	}
}

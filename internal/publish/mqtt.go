// Package publish forwards engine events to an MQTT broker.
package publish

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/roach88/mixer/internal/engine"
	"github.com/roach88/mixer/internal/ir"
)

// Config configures the publisher.
type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	// TopicPrefix is the first topic level; events go to
	// <prefix>/<session>/<event type>.
	TopicPrefix string
	QoS         byte
	// QueueSize bounds the events waiting to be sent. When the queue is
	// full new events are dropped and counted.
	QueueSize int
	Timeout   time.Duration
	// IncludeFrames also publishes frame_begin and frame_end.
	IncludeFrames bool
}

func (c Config) withDefaults() Config {
	if c.BrokerURL == "" {
		c.BrokerURL = "tcp://localhost:1883"
	}
	if c.ClientID == "" {
		c.ClientID = "mixer"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "mixer"
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// Broker is the part of a paho client the publisher needs.
type Broker interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct {
	Broker string
}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout: " + e.Broker
}

type message struct {
	topic   string
	payload []byte
}

// Publisher is an engine.Observer that publishes events asynchronously.
//
// Observe never blocks the frame loop: events are queued and sent by a
// background goroutine.
type Publisher struct {
	broker     Broker
	cfg        Config
	session    string
	logger     *slog.Logger
	disconnect func()

	queue     chan message
	done      chan struct{}
	closeOnce sync.Once

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// Connect connects to the broker and returns a publisher for session.
func Connect(cfg Config, session string, logger *slog.Logger) (*Publisher, error) {
	cfg = cfg.withDefaults()
	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	client := paho.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, &ConnectTimeoutError{Broker: cfg.BrokerURL}
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.BrokerURL, err)
	}

	p := New(client, cfg, session, logger)
	p.disconnect = func() { client.Disconnect(1000) }
	return p, nil
}

// New creates a publisher on an existing broker connection and starts its
// sender goroutine. Call Close to flush and stop it.
func New(broker Broker, cfg Config, session string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	p := &Publisher{
		broker:  broker,
		cfg:     cfg,
		session: session,
		logger:  logger,
		queue:   make(chan message, cfg.QueueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Topic returns the topic an event type is published to.
func (p *Publisher) Topic(typ engine.EventType) string {
	return fmt.Sprintf("%s/%s/%s", p.cfg.TopicPrefix, p.session, typ)
}

// Observe implements engine.Observer.
func (p *Publisher) Observe(ev engine.Event) {
	if !p.cfg.IncludeFrames && (ev.Type == engine.EventFrameBegin || ev.Type == engine.EventFrameEnd) {
		return
	}
	payload, err := ir.MarshalCanonical(ev.Canonical())
	if err != nil {
		p.logger.Error("mqtt payload encoding failed", "type", ev.Type, "error", err)
		p.failed.Add(1)
		return
	}

	select {
	case p.queue <- message{topic: p.Topic(ev.Type), payload: payload}:
	default:
		if p.dropped.Add(1) == 1 {
			p.logger.Warn("mqtt queue full, dropping events", "queue_size", p.cfg.QueueSize)
		}
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		token := p.broker.Publish(msg.topic, p.cfg.QoS, false, msg.payload)
		if !token.WaitTimeout(p.cfg.Timeout) {
			p.logger.Warn("mqtt publish timeout", "topic", msg.topic)
			p.failed.Add(1)
			continue
		}
		if err := token.Error(); err != nil {
			p.logger.Warn("mqtt publish failed", "topic", msg.topic, "error", err)
			p.failed.Add(1)
			continue
		}
		p.published.Add(1)
	}
}

// Close stops accepting events, waits for queued ones to be sent and
// disconnects a client opened by Connect. Observe must not be called after Close.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
		<-p.done
		if p.disconnect != nil {
			p.disconnect()
		}
		p.logger.Debug("mqtt publisher closed",
			"published", p.published.Load(),
			"dropped", p.dropped.Load(),
			"failed", p.failed.Load())
	})
}

// Stats reports how many events were published, dropped because the queue
// was full, and failed to send.
type Stats struct {
	Published uint64
	Dropped   uint64
	Failed    uint64
}

// Stats returns the publisher's counters.
func (p *Publisher) Stats() Stats {
	return Stats{
		Published: p.published.Load(),
		Dropped:   p.dropped.Load(),
		Failed:    p.failed.Load(),
	}
}

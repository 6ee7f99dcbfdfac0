package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eventgate/eventgate-go/contracts"
	"github.com/eventgate/eventgate-go/topics"
)

// DefaultExchange is the topic exchange events are routed through.
const DefaultExchange = "topic_exchange"

var (
	// ErrInvalidTopic means the topic failed registry membership; the message
	// was rejected locally, before any network contact.
	ErrInvalidTopic = errors.New("messaging: topic not in registry")

	// ErrNotConnected means a publish was attempted while the connection was
	// not in the connected state; the message was dropped without blocking.
	ErrNotConnected = errors.New("messaging: broker not connected")
)

// MessagePublisher is the sole write path to the broker. It validates the
// topic, builds and serializes the envelope, and hands the bytes to the
// transport. No publish-path failure ever escapes as an error or panic: the
// outcome is a boolean (plus an optional diagnostic), so a failed event can
// never abort the caller's transaction.
type MessagePublisher struct {
	transport      TransportPublisher
	registry       *topics.Registry
	logger         *slog.Logger
	exchange       string
	publishTimeout time.Duration
}

// PublisherOption configures the MessagePublisher
type PublisherOption func(*MessagePublisher)

// WithPublisherLogger sets the logger
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *MessagePublisher) {
		p.logger = logger
	}
}

// WithExchange overrides the target exchange.
func WithExchange(exchange string) PublisherOption {
	return func(p *MessagePublisher) {
		p.exchange = exchange
	}
}

// WithPublishTimeout bounds each publish call. The default of 0 applies no
// per-call timeout.
func WithPublishTimeout(timeout time.Duration) PublisherOption {
	return func(p *MessagePublisher) {
		p.publishTimeout = timeout
	}
}

// NewMessagePublisher creates a new message publisher
func NewMessagePublisher(transport TransportPublisher, registry *topics.Registry, options ...PublisherOption) *MessagePublisher {
	p := &MessagePublisher{
		transport: transport,
		registry:  registry,
		logger:    slog.Default(),
		exchange:  DefaultExchange,
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// PublishOptions configures delivery of a single message.
type PublishOptions struct {
	// Persistent marks the message to survive a broker restart. Defaults to
	// true.
	Persistent bool

	// Expiration is the per-message TTL. Zero means no TTL.
	Expiration time.Duration

	// Headers are forwarded as AMQP headers.
	Headers map[string]string
}

// PublishOption configures publish behavior
type PublishOption func(*PublishOptions)

// WithPersistent sets whether the message survives a broker restart.
func WithPersistent(persistent bool) PublishOption {
	return func(opts *PublishOptions) {
		opts.Persistent = persistent
	}
}

// WithExpiration sets the per-message TTL.
func WithExpiration(ttl time.Duration) PublishOption {
	return func(opts *PublishOptions) {
		opts.Expiration = ttl
	}
}

// WithHeaders merges custom headers into the message.
func WithHeaders(headers map[string]string) PublishOption {
	return func(opts *PublishOptions) {
		if opts.Headers == nil {
			opts.Headers = make(map[string]string)
		}
		for k, v := range headers {
			opts.Headers[k] = v
		}
	}
}

// WithHeader sets a single custom header.
func WithHeader(key, value string) PublishOption {
	return func(opts *PublishOptions) {
		if opts.Headers == nil {
			opts.Headers = make(map[string]string)
		}
		opts.Headers[key] = value
	}
}

// Publish publishes one event and reports whether the broker accepted it.
func (p *MessagePublisher) Publish(ctx context.Context, topic string, payload any, options ...PublishOption) bool {
	return p.PublishResult(ctx, topic, payload, options...).OK
}

// PublishResult publishes one event and returns the outcome with a
// diagnostic reason on failure.
func (p *MessagePublisher) PublishResult(ctx context.Context, topic string, payload any, options ...PublishOption) contracts.Result {
	if !p.registry.IsValid(topic) {
		p.logger.Warn("rejected message for unregistered topic", "topic", topic)
		return contracts.Failed(ErrInvalidTopic.Error())
	}

	// Fail fast: no blocking wait for the connection to come back.
	if !p.transport.Connected() {
		p.logger.Warn("dropped message, broker not connected", "topic", topic)
		return contracts.Failed(ErrNotConnected.Error())
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to serialize payload",
			"topic", topic,
			"error", err)
		return contracts.Failed("serialize payload: " + err.Error())
	}

	envelope := contracts.Envelope{
		Topic:     topic,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		MessageID: NewMessageID(),
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Error("failed to serialize envelope",
			"topic", topic,
			"messageId", envelope.MessageID,
			"error", err)
		return contracts.Failed("serialize envelope: " + err.Error())
	}

	opts := PublishOptions{Persistent: true}
	for _, opt := range options {
		opt(&opts)
	}

	publishing := amqp.Publishing{
		Body:         body,
		ContentType:  "application/json",
		MessageId:    envelope.MessageID,
		DeliveryMode: amqp.Transient,
	}
	if opts.Persistent {
		publishing.DeliveryMode = amqp.Persistent
	}
	if opts.Expiration > 0 {
		publishing.Expiration = strconv.FormatInt(opts.Expiration.Milliseconds(), 10)
	}
	if len(opts.Headers) > 0 {
		table := make(amqp.Table, len(opts.Headers))
		for k, v := range opts.Headers {
			table[k] = v
		}
		publishing.Headers = table
	}

	if p.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.publishTimeout)
		defer cancel()
	}

	// Routing key is the topic itself.
	if err := p.transport.Publish(ctx, p.exchange, topic, publishing); err != nil {
		p.logger.Error("failed to publish message",
			"topic", topic,
			"messageId", envelope.MessageID,
			"exchange", p.exchange,
			"error", err)
		return contracts.Failed(err.Error())
	}

	p.logger.Debug("message published",
		"topic", topic,
		"messageId", envelope.MessageID,
		"exchange", p.exchange)

	return contracts.Ok()
}

// Close closes the underlying transport.
func (p *MessagePublisher) Close() error {
	return p.transport.Close()
}

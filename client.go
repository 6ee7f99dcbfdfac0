package eventgate

import (
	"context"
	"log/slog"

	"github.com/eventgate/eventgate-go/config"
	"github.com/eventgate/eventgate-go/contracts"
	"github.com/eventgate/eventgate-go/internal/rabbitmq"
	"github.com/eventgate/eventgate-go/messaging"
	"github.com/eventgate/eventgate-go/topics"
	rabbitmqTransport "github.com/eventgate/eventgate-go/transports/rabbitmq"
)

// Client is the process-level entry point. Construct one at startup, call
// Initialize once, hand the client to every caller that publishes events,
// and call Shutdown from termination handling. There is no package-level
// singleton.
type Client struct {
	transport *rabbitmqTransport.Transport
	publisher *messaging.MessagePublisher
	registry  *topics.Registry
	logger    *slog.Logger
}

// ClientOption configures the client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	logger *slog.Logger
}

// WithClientLogger sets the logger used by every component.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// NewClient wires the registry, connection manager, topology and publisher
// from the given configuration. No connection is attempted until Initialize.
func NewClient(cfg *config.Config, options ...ClientOption) *Client {
	cc := &clientConfig{
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(cc)
	}

	registry := topics.NewRegistry()

	transport := rabbitmqTransport.NewTransport(cfg.Broker.URL(),
		rabbitmqTransport.WithTransportLogger(cc.logger),
		rabbitmqTransport.WithConnectionOptions(
			rabbitmq.WithReconnectDelay(cfg.Broker.ReconnectDelay),
			rabbitmq.WithMaxAttempts(cfg.Broker.MaxReconnectAttempts),
		),
	)

	publisher := messaging.NewMessagePublisher(transport, registry,
		messaging.WithPublisherLogger(cc.logger),
		messaging.WithExchange(cfg.Publish.Exchange),
		messaging.WithPublishTimeout(cfg.Publish.Timeout),
	)

	return &Client{
		transport: transport,
		publisher: publisher,
		registry:  registry,
		logger:    cc.logger,
	}
}

// Initialize connects to the broker and declares the topology. It reports
// whether the initial attempt succeeded; on failure the bounded reconnection
// routine keeps trying in the background.
func (c *Client) Initialize(ctx context.Context) bool {
	return c.transport.Initialize(ctx)
}

// Publish publishes one event and reports whether the broker accepted it.
func (c *Client) Publish(ctx context.Context, topic string, payload any, options ...messaging.PublishOption) bool {
	return c.publisher.Publish(ctx, topic, payload, options...)
}

// PublishResult is Publish with a diagnostic reason attached.
func (c *Client) PublishResult(ctx context.Context, topic string, payload any, options ...messaging.PublishOption) contracts.Result {
	return c.publisher.PublishResult(ctx, topic, payload, options...)
}

// SendBatch publishes the requests sequentially, partitioning the outcome
// into accepted and failed requests.
func (c *Client) SendBatch(ctx context.Context, requests []messaging.Request) messaging.BatchResult {
	return c.publisher.SendBatch(ctx, requests)
}

// State returns the current connection state.
func (c *Client) State() rabbitmq.State {
	return c.transport.State()
}

// Registry returns the topic registry.
func (c *Client) Registry() *topics.Registry {
	return c.registry
}

// Publisher returns the message publisher.
func (c *Client) Publisher() *messaging.MessagePublisher {
	return c.publisher
}

// Transport returns the underlying transport.
func (c *Client) Transport() *rabbitmqTransport.Transport {
	return c.transport
}

// Shutdown closes the channel and connection. Safe to call from signal
// handling; it never fails.
func (c *Client) Shutdown() {
	c.transport.Close()
	c.logger.Info("eventgate client shut down")
}

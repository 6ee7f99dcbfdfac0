package rabbitmq

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eventgate/eventgate-go/internal/rabbitmq"
)

// Transport binds the connection manager and the topology initializer
// together behind the messaging.TransportPublisher interface. It owns one
// logical connection and channel for the whole process.
type Transport struct {
	manager  *rabbitmq.ConnectionManager
	topology *rabbitmq.TopologyManager
	logger   *slog.Logger
}

// TransportConfig holds configuration for the transport
type TransportConfig struct {
	ConnectionOptions []rabbitmq.ConnectionOption
	Topology          rabbitmq.Topology
	Logger            *slog.Logger
}

// TransportOption configures the transport
type TransportOption func(*TransportConfig)

// WithConnectionOptions sets connection options
func WithConnectionOptions(opts ...rabbitmq.ConnectionOption) TransportOption {
	return func(cfg *TransportConfig) {
		cfg.ConnectionOptions = append(cfg.ConnectionOptions, opts...)
	}
}

// WithTopology replaces the default event topology.
func WithTopology(topology rabbitmq.Topology) TransportOption {
	return func(cfg *TransportConfig) {
		cfg.Topology = topology
	}
}

// WithTransportLogger sets the logger.
func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(cfg *TransportConfig) {
		cfg.Logger = logger
	}
}

// NewTransport creates a RabbitMQ transport for the given connection string.
// No connection is attempted yet; call Initialize.
func NewTransport(connectionString string, options ...TransportOption) *Transport {
	cfg := &TransportConfig{
		Topology: rabbitmq.EventTopology(),
		Logger:   slog.Default(),
	}
	for _, opt := range options {
		opt(cfg)
	}

	connOpts := append([]rabbitmq.ConnectionOption{rabbitmq.WithLogger(cfg.Logger)}, cfg.ConnectionOptions...)
	manager := rabbitmq.NewConnectionManager(connectionString, connOpts...)

	t := &Transport{
		manager:  manager,
		topology: rabbitmq.NewTopologyManager(cfg.Topology, cfg.Logger),
		logger:   cfg.Logger,
	}

	// Redeclare the topology on every successful connect. Declaration is
	// idempotent and best-effort: a failure leaves the connection usable for
	// publishing.
	manager.OnConnected(func() {
		err := manager.Execute(context.Background(), func(ch *amqp.Channel) error {
			return t.topology.Declare(ch)
		})
		if err != nil {
			t.logger.Warn("topology declaration failed, continuing with usable connection",
				"error", err)
		}
	})

	return t
}

// Initialize attempts the initial broker connection and reports whether it
// succeeded. On failure the bounded reconnection routine takes over.
func (t *Transport) Initialize(ctx context.Context) bool {
	return t.manager.Initialize(ctx)
}

// Connected reports whether the connection is in the connected state.
func (t *Transport) Connected() bool {
	return t.manager.Connected()
}

// State returns the connection state.
func (t *Transport) State() rabbitmq.State {
	return t.manager.State()
}

// Manager exposes the connection manager, e.g. for health checks.
func (t *Transport) Manager() *rabbitmq.ConnectionManager {
	return t.manager
}

// Publish dispatches one message on the shared channel under the
// single-writer lock.
func (t *Transport) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	return t.manager.Execute(ctx, func(ch *amqp.Channel) error {
		return ch.PublishWithContext(
			ctx,
			exchange,
			routingKey,
			false, // mandatory
			false, // immediate
			msg,
		)
	})
}

// Close shuts the connection down. It never returns an error; close
// failures are logged by the manager.
func (t *Transport) Close() error {
	t.manager.Shutdown()
	return nil
}

package messaging

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eventgate/eventgate-go/contracts"
)

// TransportPublisher is the broker-facing side of the publisher: the
// connection state check and the raw publish primitive. Implemented by
// transports/rabbitmq.Transport; mocked in tests.
type TransportPublisher interface {
	// Connected reports whether the underlying connection is usable.
	Connected() bool

	// Publish hands serialized bytes to the broker channel.
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error

	// Close releases transport resources.
	Close() error
}

// Publisher is the caller-facing write path to the broker.
type Publisher interface {
	// Publish publishes one event; failures surface only as a false return.
	Publish(ctx context.Context, topic string, payload any, options ...PublishOption) bool

	// PublishResult is Publish with a diagnostic reason attached.
	PublishResult(ctx context.Context, topic string, payload any, options ...PublishOption) contracts.Result

	// SendBatch publishes requests sequentially, partitioning the outcome.
	SendBatch(ctx context.Context, requests []Request) BatchResult

	// Close closes the publisher.
	Close() error
}

package rabbitmq

import (
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the single topic exchange all events are published to.
const ExchangeName = "topic_exchange"

// TopologyChannel is the subset of *amqp.Channel the topology manager needs.
type TopologyChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// ExchangeDeclaration defines an exchange to be declared
type ExchangeDeclaration struct {
	Name    string
	Type    string
	Durable bool
}

// QueueDeclaration defines a queue to be declared
type QueueDeclaration struct {
	Name    string
	Durable bool
}

// Binding defines a queue-to-exchange binding
type Binding struct {
	Queue      string
	Exchange   string
	RoutingKey string
}

// Topology represents the complete messaging topology
type Topology struct {
	Exchanges []ExchangeDeclaration
	Queues    []QueueDeclaration
	Bindings  []Binding
}

// EventTopology is the fixed topology declared once per successful connect:
// one durable topic exchange and the durable queues bound to it by
// routing-key pattern.
func EventTopology() Topology {
	return Topology{
		Exchanges: []ExchangeDeclaration{
			{Name: ExchangeName, Type: "topic", Durable: true},
		},
		Queues: []QueueDeclaration{
			{Name: "user_events", Durable: true},
			{Name: "order_events", Durable: true},
			{Name: "notification_events", Durable: true},
			{Name: "error_logs", Durable: true},
		},
		Bindings: []Binding{
			{Queue: "user_events", Exchange: ExchangeName, RoutingKey: "user.*"},
			{Queue: "order_events", Exchange: ExchangeName, RoutingKey: "order.*"},
			{Queue: "notification_events", Exchange: ExchangeName, RoutingKey: "notification.*"},
			{Queue: "error_logs", Exchange: ExchangeName, RoutingKey: "system.error.logged"},
		},
	}
}

// TopologyManager declares exchanges, queues and bindings. Declarations use
// fixed parameters, so re-running against an already-declared topology is a
// no-op on the broker rather than an error.
type TopologyManager struct {
	topology Topology
	logger   *slog.Logger
}

// NewTopologyManager creates a topology manager for the given topology.
func NewTopologyManager(topology Topology, logger *slog.Logger) *TopologyManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopologyManager{
		topology: topology,
		logger:   logger,
	}
}

// Declare declares the complete topology on the given channel. It returns
// the first error encountered; callers treat topology setup as best-effort
// and keep the connection usable regardless.
func (tm *TopologyManager) Declare(ch TopologyChannel) error {
	for _, exchange := range tm.topology.Exchanges {
		if err := ch.ExchangeDeclare(
			exchange.Name,
			exchange.Type,
			exchange.Durable,
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		); err != nil {
			return &TopologyError{
				Component: "exchange",
				Name:      exchange.Name,
				Err:       err,
				Timestamp: time.Now(),
			}
		}
	}

	for _, queue := range tm.topology.Queues {
		if _, err := ch.QueueDeclare(
			queue.Name,
			queue.Durable,
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		); err != nil {
			return &TopologyError{
				Component: "queue",
				Name:      queue.Name,
				Err:       err,
				Timestamp: time.Now(),
			}
		}
	}

	for _, binding := range tm.topology.Bindings {
		if err := ch.QueueBind(
			binding.Queue,
			binding.RoutingKey,
			binding.Exchange,
			false, // no-wait
			nil,
		); err != nil {
			return &TopologyError{
				Component: "binding",
				Name:      binding.Queue + " -> " + binding.RoutingKey,
				Err:       err,
				Timestamp: time.Now(),
			}
		}
	}

	tm.logger.Debug("topology declared",
		"exchanges", len(tm.topology.Exchanges),
		"queues", len(tm.topology.Queues),
		"bindings", len(tm.topology.Bindings))

	return nil
}

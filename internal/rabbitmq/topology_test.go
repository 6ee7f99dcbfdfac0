package rabbitmq

import (
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

type declaredExchange struct {
	name    string
	kind    string
	durable bool
}

type declaredQueue struct {
	name    string
	durable bool
}

type declaredBinding struct {
	queue      string
	routingKey string
	exchange   string
}

type fakeTopologyChannel struct {
	exchanges []declaredExchange
	queues    []declaredQueue
	bindings  []declaredBinding
	failQueue string
}

func (f *fakeTopologyChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.exchanges = append(f.exchanges, declaredExchange{name: name, kind: kind, durable: durable})
	return nil
}

func (f *fakeTopologyChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	if name == f.failQueue {
		return amqp.Queue{}, errors.New("access refused")
	}
	f.queues = append(f.queues, declaredQueue{name: name, durable: durable})
	return amqp.Queue{Name: name}, nil
}

func (f *fakeTopologyChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.bindings = append(f.bindings, declaredBinding{queue: name, routingKey: key, exchange: exchange})
	return nil
}

func TestEventTopology(t *testing.T) {
	topology := EventTopology()

	assert.Len(t, topology.Exchanges, 1)
	assert.Equal(t, ExchangeName, topology.Exchanges[0].Name)
	assert.Equal(t, "topic", topology.Exchanges[0].Type)
	assert.True(t, topology.Exchanges[0].Durable)

	assert.Len(t, topology.Queues, 4)
	for _, q := range topology.Queues {
		assert.True(t, q.Durable, "queue %s must be durable", q.Name)
	}

	patterns := make(map[string]string)
	for _, b := range topology.Bindings {
		assert.Equal(t, ExchangeName, b.Exchange)
		patterns[b.Queue] = b.RoutingKey
	}
	assert.Equal(t, map[string]string{
		"user_events":         "user.*",
		"order_events":        "order.*",
		"notification_events": "notification.*",
		"error_logs":          "system.error.logged",
	}, patterns)
}

func TestTopologyDeclare(t *testing.T) {
	t.Run("declares exchange, queues and bindings", func(t *testing.T) {
		ch := &fakeTopologyChannel{}
		tm := NewTopologyManager(EventTopology(), discardLogger())

		assert.NoError(t, tm.Declare(ch))
		assert.Len(t, ch.exchanges, 1)
		assert.Len(t, ch.queues, 4)
		assert.Len(t, ch.bindings, 4)
	})

	t.Run("declaring twice succeeds", func(t *testing.T) {
		ch := &fakeTopologyChannel{}
		tm := NewTopologyManager(EventTopology(), discardLogger())

		assert.NoError(t, tm.Declare(ch))
		assert.NoError(t, tm.Declare(ch))
	})

	t.Run("wraps declaration failures in a TopologyError", func(t *testing.T) {
		ch := &fakeTopologyChannel{failQueue: "order_events"}
		tm := NewTopologyManager(EventTopology(), discardLogger())

		err := tm.Declare(ch)

		var topoErr *TopologyError
		assert.ErrorAs(t, err, &topoErr)
		assert.Equal(t, "queue", topoErr.Component)
		assert.Equal(t, "order_events", topoErr.Name)
	})
}

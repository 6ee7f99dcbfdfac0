package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/eventgate/eventgate-go/topics"
)

func TestSendBatchPartition(t *testing.T) {
	t.Run("invalid request is recorded without stopping the batch", func(t *testing.T) {
		transport := &mockTransportPublisher{}
		transport.On("Connected").Return(true)
		transport.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		publisher := newTestPublisher(transport)

		requests := []Request{
			{Topic: topics.OrderCreated.String(), Payload: map[string]string{"id": "1"}},
			{Topic: "bogus.topic", Payload: map[string]string{"id": "2"}},
			{Topic: topics.OrderCompleted.String(), Payload: map[string]string{"id": "3"}},
		}

		result := publisher.SendBatch(context.Background(), requests)

		assert.Len(t, result.Success, 2)
		assert.Equal(t, topics.OrderCreated.String(), result.Success[0].Topic)
		assert.Equal(t, topics.OrderCompleted.String(), result.Success[1].Topic)

		assert.Len(t, result.Failed, 1)
		assert.Equal(t, "bogus.topic", result.Failed[0].Topic)
		assert.Equal(t, ErrInvalidTopic.Error(), result.Failed[0].Reason)

		// The invalid request never reached the transport.
		transport.AssertNumberOfCalls(t, "Publish", 2)
	})

	t.Run("broker failure on one request does not abort the rest", func(t *testing.T) {
		transport := &mockTransportPublisher{}
		transport.On("Connected").Return(true)
		transport.On("Publish", mock.Anything, mock.Anything, "user.created", mock.Anything).
			Return(errors.New("nacked")).Once()
		transport.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		publisher := newTestPublisher(transport)

		result := publisher.SendBatch(context.Background(), []Request{
			{Topic: topics.UserCreated.String()},
			{Topic: topics.UserUpdated.String()},
		})

		assert.Len(t, result.Success, 1)
		assert.Len(t, result.Failed, 1)
		assert.Equal(t, topics.UserCreated.String(), result.Failed[0].Topic)
		assert.Equal(t, "nacked", result.Failed[0].Reason)
	})

	t.Run("requests are dispatched in submission order", func(t *testing.T) {
		transport := &mockTransportPublisher{}
		transport.On("Connected").Return(true)

		var order []string
		transport.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				order = append(order, args.String(2))
			}).
			Return(nil)
		publisher := newTestPublisher(transport)

		publisher.SendBatch(context.Background(), []Request{
			{Topic: topics.OrderCreated.String()},
			{Topic: topics.OrderUpdated.String()},
			{Topic: topics.OrderCancelled.String()},
		})

		assert.Equal(t, []string{"order.created", "order.updated", "order.cancelled"}, order)
	})

	t.Run("empty batch yields empty partitions", func(t *testing.T) {
		transport := &mockTransportPublisher{}
		publisher := newTestPublisher(transport)

		result := publisher.SendBatch(context.Background(), nil)

		assert.Empty(t, result.Success)
		assert.Empty(t, result.Failed)
		assert.Empty(t, transport.Calls)
	})

	t.Run("per-request options are honored", func(t *testing.T) {
		transport := &mockTransportPublisher{}
		transport.On("Connected").Return(true)
		transport.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		publisher := newTestPublisher(transport)

		publisher.SendBatch(context.Background(), []Request{
			{Topic: topics.NotificationEmail.String(), Options: []PublishOption{WithPersistent(false)}},
		})

		publishing := transport.Calls[1].Arguments[3].(amqp.Publishing)
		assert.Equal(t, uint8(amqp.Transient), publishing.DeliveryMode)
	})
}

func TestBatchBuilder(t *testing.T) {
	t.Run("accumulates and sends", func(t *testing.T) {
		transport := &mockTransportPublisher{}
		transport.On("Connected").Return(true)
		transport.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		publisher := newTestPublisher(transport)

		batch := publisher.NewBatch()
		batch.Add(topics.OrderCreated.String(), map[string]int{"n": 1})
		batch.Add(topics.OrderUpdated.String(), map[string]int{"n": 2})
		assert.Equal(t, 2, batch.Size())

		result := batch.Send(context.Background())
		assert.Len(t, result.Success, 2)
		assert.Zero(t, batch.Size(), "batch is cleared after send")
	})

	t.Run("request added during a send stays queued for the next one", func(t *testing.T) {
		transport := &mockTransportPublisher{}
		transport.On("Connected").Return(true)
		publisher := newTestPublisher(transport)
		batch := publisher.NewBatch()

		var once sync.Once
		transport.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(func(mock.Arguments) {
				once.Do(func() { batch.Add(topics.UserUpdated.String(), nil) })
			}).
			Return(nil)

		batch.Add(topics.UserCreated.String(), nil)
		first := batch.Send(context.Background())

		assert.Len(t, first.Success, 1)
		assert.Equal(t, 1, batch.Size(), "late request must not be dropped")

		second := batch.Send(context.Background())
		assert.Len(t, second.Success, 1)
		assert.Equal(t, topics.UserUpdated.String(), second.Success[0].Topic)
	})

	t.Run("clear empties the batch", func(t *testing.T) {
		transport := &mockTransportPublisher{}
		publisher := newTestPublisher(transport)

		batch := publisher.NewBatch()
		batch.Add(topics.UserDeleted.String(), nil)
		batch.Clear()
		assert.Zero(t, batch.Size())

		result := batch.Send(context.Background())
		assert.Empty(t, result.Success)
		assert.Empty(t, result.Failed)
	})
}

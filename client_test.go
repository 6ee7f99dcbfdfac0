package eventgate

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventgate/eventgate-go/config"
	"github.com/eventgate/eventgate-go/internal/rabbitmq"
	"github.com/eventgate/eventgate-go/messaging"
	"github.com/eventgate/eventgate-go/topics"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(cfg, WithClientLogger(logger))
}

func TestNewClientWiring(t *testing.T) {
	client := newTestClient(t)

	assert.NotNil(t, client.Publisher())
	assert.NotNil(t, client.Transport())
	assert.NotNil(t, client.Registry())
	assert.Equal(t, rabbitmq.StateDisconnected, client.State())
	assert.True(t, client.Registry().IsValid(topics.OrderCreated.String()))
}

func TestClientPublishBeforeInitialize(t *testing.T) {
	client := newTestClient(t)

	t.Run("invalid topic fails locally", func(t *testing.T) {
		res := client.PublishResult(context.Background(), "payment.settled", nil)
		assert.False(t, res.OK)
		assert.Equal(t, messaging.ErrInvalidTopic.Error(), res.Reason)
	})

	t.Run("valid topic fails fast while disconnected", func(t *testing.T) {
		start := time.Now()
		res := client.PublishResult(context.Background(), topics.OrderCreated.String(), map[string]string{"id": "o-1"})
		assert.False(t, res.OK)
		assert.Equal(t, messaging.ErrNotConnected.Error(), res.Reason)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("batch partitions without a connection", func(t *testing.T) {
		result := client.SendBatch(context.Background(), []messaging.Request{
			{Topic: topics.UserCreated.String()},
			{Topic: "bogus"},
		})
		assert.Empty(t, result.Success)
		assert.Len(t, result.Failed, 2)
	})
}

func TestClientShutdownIsSafeWithoutConnection(t *testing.T) {
	client := newTestClient(t)
	client.Shutdown()
	assert.Equal(t, rabbitmq.StateDisconnected, client.State())
}

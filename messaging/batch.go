package messaging

import (
	"context"
	"sync"
)

// Request is one entry of a batch: a topic, its payload, and optional
// delivery options.
type Request struct {
	Topic   string
	Payload any
	Options []PublishOption
}

// FailedRequest is a request that could not be published, with the reason.
type FailedRequest struct {
	Request
	Reason string
}

// BatchResult partitions a batch into the requests the broker accepted and
// the ones it did not.
type BatchResult struct {
	Success []Request
	Failed  []FailedRequest
}

// SendBatch publishes the requests one after another on the shared channel.
// Iteration is strictly sequential so the caller's relative ordering is
// preserved and load on the single channel stays bounded. Each request is
// independent: a failure is recorded and the next request is still
// attempted, and there is no rollback of already-accepted requests.
func (p *MessagePublisher) SendBatch(ctx context.Context, requests []Request) BatchResult {
	result := BatchResult{}
	if len(requests) == 0 {
		return result
	}

	p.logger.Info("publishing batch", "requestCount", len(requests))

	for i, req := range requests {
		res := p.PublishResult(ctx, req.Topic, req.Payload, req.Options...)
		if res.OK {
			result.Success = append(result.Success, req)
			continue
		}
		p.logger.Warn("batch request failed",
			"index", i,
			"topic", req.Topic,
			"reason", res.Reason)
		result.Failed = append(result.Failed, FailedRequest{Request: req, Reason: res.Reason})
	}

	p.logger.Info("batch finished",
		"succeeded", len(result.Success),
		"failed", len(result.Failed))

	return result
}

// Batch accumulates requests for a single SendBatch call.
type Batch struct {
	publisher *MessagePublisher
	requests  []Request
	mu        sync.Mutex
}

// NewBatch creates an empty batch bound to the publisher.
func (p *MessagePublisher) NewBatch() *Batch {
	return &Batch{
		publisher: p,
		requests:  make([]Request, 0),
	}
}

// Add appends a request to the batch.
func (b *Batch) Add(topic string, payload any, options ...PublishOption) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, Request{Topic: topic, Payload: payload, Options: options})
}

// Size returns the number of requests in the batch.
func (b *Batch) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// Clear removes all requests from the batch.
func (b *Batch) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = b.requests[:0]
}

// Send publishes the accumulated requests and clears the batch. The drain is
// atomic: a request added while the send is in flight stays in the batch for
// the next Send instead of being silently dropped.
func (b *Batch) Send(ctx context.Context) BatchResult {
	b.mu.Lock()
	requests := make([]Request, len(b.requests))
	copy(requests, b.requests)
	b.requests = b.requests[:0]
	b.mu.Unlock()

	return b.publisher.SendBatch(ctx, requests)
}

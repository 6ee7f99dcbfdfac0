package contracts

import (
	"encoding/json"
)

// Envelope wraps an event payload for transport. One envelope is built per
// publish call and discarded once the call returns; nothing is persisted
// locally.
type Envelope struct {
	Topic     string          `json:"topic"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
	MessageID string          `json:"messageId"`
}

// Result is the outcome of a single publish attempt. The publish path never
// returns an error to callers; failure is carried here instead, so a failed
// event can never abort the business operation that emitted it.
type Result struct {
	OK     bool
	Reason string
}

// Ok returns a successful result.
func Ok() Result {
	return Result{OK: true}
}

// Failed returns a failed result with a diagnostic reason.
func Failed(reason string) Result {
	return Result{OK: false, Reason: reason}
}

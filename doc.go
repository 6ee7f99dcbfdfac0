// Package eventgate is a producer-side client for topic-routed event
// publishing over RabbitMQ. It owns the broker connection lifecycle with
// bounded reconnection, validates every outgoing message against a fixed
// topic taxonomy, and offers best-effort batch publishing. Delivery is
// at-least-once for persistent messages the broker accepts; there is no
// consumer side here.
package eventgate

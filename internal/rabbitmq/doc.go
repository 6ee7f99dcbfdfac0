// Package rabbitmq owns the broker connection lifecycle: dialing, failure
// detection, bounded reconnection, topology declaration, and the
// single-writer discipline over the one shared channel.
package rabbitmq

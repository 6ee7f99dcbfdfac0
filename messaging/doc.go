// Package messaging provides the producer-side publishing API: topic
// validation against the registry, envelope construction and serialization,
// delivery options, and best-effort batch dispatch. All failures on the
// publish path are reported as boolean results, never as errors or panics.
package messaging

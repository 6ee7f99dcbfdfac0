// Package contracts defines the wire-level envelope placed on the broker and
// the non-throwing result type shared by all publish paths.
package contracts

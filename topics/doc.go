// Package topics holds the fixed topic taxonomy. Every outgoing message must
// name a topic from this catalog; membership is checked before any network
// call is attempted.
package topics

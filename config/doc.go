// Package config loads broker and publish settings from an optional YAML
// file and EVENTGATE_* environment variables, with stock-RabbitMQ defaults.
package config

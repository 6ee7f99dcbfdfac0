// eventgate-probe connects to the configured broker, declares the event
// topology, publishes a probe event, and keeps the connection alive until
// interrupted. Useful for verifying broker reachability and queue bindings.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	eventgate "github.com/eventgate/eventgate-go"
	"github.com/eventgate/eventgate-go/config"
	"github.com/eventgate/eventgate-go/health"
	"github.com/eventgate/eventgate-go/messaging"
	"github.com/eventgate/eventgate-go/topics"
)

type probePayload struct {
	ProbeID string `json:"probeId"`
	Host    string `json:"host"`
	SentAt  string `json:"sentAt"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	client := eventgate.NewClient(cfg, eventgate.WithClientLogger(logger))

	ctx := context.Background()
	if !client.Initialize(ctx) {
		logger.Warn("initial connection failed, reconnection routine is running",
			"state", client.State().String())
	}

	hostname, _ := os.Hostname()
	payload := probePayload{
		ProbeID: uuid.New().String(),
		Host:    hostname,
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	}

	if client.Publish(ctx, topics.NotificationPush.String(), payload,
		messaging.WithHeader("x-probe", "true"),
		messaging.WithExpiration(time.Minute),
	) {
		logger.Info("probe event published", "probeId", payload.ProbeID)
	} else {
		logger.Warn("probe event not accepted", "state", client.State().String())
	}

	checker := health.NewConnectionChecker(client.Transport().Manager())
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			result := checker.Check(ctx)
			logger.Info("health check",
				"status", string(result.Status),
				"message", result.Message)

		case s := <-sig:
			logger.Info("shutting down", "signal", s.String())
			client.Shutdown()
			return
		}
	}
}

package health

import (
	"context"
	"time"

	"github.com/eventgate/eventgate-go/internal/rabbitmq"
)

// Status is the outcome of a health check.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult describes one health check run.
type CheckResult struct {
	Name      string
	Status    Status
	Message   string
	Error     string
	Timestamp time.Time
	Duration  time.Duration
	Details   map[string]interface{}
}

// Checker runs a single health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// ConnectionChecker reports the broker connection state.
type ConnectionChecker struct {
	manager *rabbitmq.ConnectionManager
}

// NewConnectionChecker creates a health checker for the connection manager.
func NewConnectionChecker(manager *rabbitmq.ConnectionManager) *ConnectionChecker {
	return &ConnectionChecker{manager: manager}
}

func (c *ConnectionChecker) Name() string {
	return "rabbitmq_connection"
}

func (c *ConnectionChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   make(map[string]interface{}),
	}

	state := c.manager.State()
	result.Details["state"] = state.String()
	result.Details["reconnect_attempts"] = c.manager.Attempts()

	switch state {
	case rabbitmq.StateConnected:
		result.Status = StatusHealthy
		result.Message = "Connection is healthy"
	case rabbitmq.StateConnecting, rabbitmq.StateReconnecting:
		result.Status = StatusDegraded
		result.Message = "Connection is recovering"
	default:
		result.Status = StatusUnhealthy
		result.Message = "Connection is down"
	}

	result.Duration = time.Since(start)
	result.Details["response_time_ms"] = result.Duration.Milliseconds()

	return result
}

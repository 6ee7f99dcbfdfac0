package rabbitmq

import (
	"context"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// State describes where the connection manager is in its lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DialFunc establishes a broker connection. Injectable for tests.
type DialFunc func(url string) (*amqp.Connection, error)

// BackoffPolicy returns the delay before the given reconnection attempt
// (1-based). The default is a fixed delay between attempts.
type BackoffPolicy func(attempt int) time.Duration

// FixedDelay returns a backoff policy that always waits the same duration.
// Under a sustained broker outage this produces a constant-rate reconnection
// stream; swap in a different policy via WithBackoffPolicy if that matters.
func FixedDelay(d time.Duration) BackoffPolicy {
	return func(int) time.Duration { return d }
}

const dialTimeout = 30 * time.Second

// ConnectionManager owns the single broker connection and channel shared by
// all publishers in the process, along with the bounded reconnection policy.
// Once the retry budget is exhausted the state settles at StateFailed and no
// further attempts are scheduled until Initialize is called again.
type ConnectionManager struct {
	url         string
	dial        DialFunc
	backoff     BackoffPolicy
	maxAttempts int
	logger      *slog.Logger

	mu               sync.Mutex
	state            State
	conn             *amqp.Connection
	ch               *amqp.Channel
	attempts         int
	reconnectPending bool
	dialing          bool
	timer            *time.Timer
	closed           bool
	gen              int
	hooks            []func()

	// writeMu serializes all use of the shared channel; concurrent writes to
	// one AMQP channel are not safe.
	writeMu sync.Mutex
}

// ConnectionOption configures the ConnectionManager
type ConnectionOption func(*ConnectionManager)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.logger = logger
	}
}

// WithReconnectDelay sets a fixed delay between reconnection attempts.
func WithReconnectDelay(delay time.Duration) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.backoff = FixedDelay(delay)
	}
}

// WithBackoffPolicy replaces the fixed-delay default with a custom policy.
func WithBackoffPolicy(policy BackoffPolicy) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.backoff = policy
	}
}

// WithMaxAttempts sets the maximum number of reconnection attempts.
func WithMaxAttempts(attempts int) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.maxAttempts = attempts
	}
}

// WithDialer overrides how the broker connection is established.
func WithDialer(dial DialFunc) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.dial = dial
	}
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(url string, options ...ConnectionOption) *ConnectionManager {
	cm := &ConnectionManager{
		url:         url,
		dial:        amqp.Dial,
		backoff:     FixedDelay(5 * time.Second),
		maxAttempts: 5,
		logger:      slog.Default(),
		state:       StateDisconnected,
	}

	for _, opt := range options {
		opt(cm)
	}

	return cm
}

// OnConnected registers a hook that runs after every successful connect,
// including reconnects. Hooks run on the connecting goroutine; the topology
// initializer is wired here so the exchange and queues exist on each new
// connection.
func (cm *ConnectionManager) OnConnected(hook func()) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.hooks = append(cm.hooks, hook)
}

// Initialize attempts the initial connection and reports whether it
// succeeded. On failure the reconnection routine takes over. Calling
// Initialize on a failed or shut-down manager restores the retry budget.
func (cm *ConnectionManager) Initialize(ctx context.Context) bool {
	cm.mu.Lock()
	if cm.state == StateConnected {
		cm.mu.Unlock()
		return true
	}
	if cm.closed || cm.state == StateFailed {
		cm.closed = false
		cm.attempts = 0
	}
	// An explicit Initialize supersedes any scheduled retry; only one
	// connection attempt may be live at a time.
	if cm.timer != nil {
		cm.timer.Stop()
		cm.timer = nil
	}
	cm.reconnectPending = false
	cm.mu.Unlock()

	return cm.connect(ctx)
}

// State returns the current connection state.
func (cm *ConnectionManager) State() State {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.state
}

// Connected reports whether the manager currently holds a usable connection.
func (cm *ConnectionManager) Connected() bool {
	return cm.State() == StateConnected
}

// Attempts returns how many reconnection attempts have been consumed from
// the current budget.
func (cm *ConnectionManager) Attempts() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.attempts
}

// Execute runs fn against the shared channel under the single-writer lock.
// It fails fast with ErrManagerClosed after Shutdown and with ErrNotConnected
// when the manager is not connected; there is no blocking wait for a
// connection to appear.
func (cm *ConnectionManager) Execute(ctx context.Context, fn func(*amqp.Channel) error) error {
	cm.writeMu.Lock()
	defer cm.writeMu.Unlock()

	cm.mu.Lock()
	ch := cm.ch
	state := cm.state
	closed := cm.closed
	cm.mu.Unlock()

	if closed {
		return ErrManagerClosed
	}
	if state != StateConnected || ch == nil {
		return ErrNotConnected
	}
	return fn(ch)
}

// Shutdown closes the channel, then the connection, and cancels any pending
// reconnect timer. Close errors are logged, never returned: shutdown runs
// from process-termination handling and must not fail.
func (cm *ConnectionManager) Shutdown() {
	cm.mu.Lock()
	if cm.closed {
		cm.mu.Unlock()
		return
	}
	cm.closed = true
	cm.reconnectPending = false
	if cm.timer != nil {
		cm.timer.Stop()
		cm.timer = nil
	}
	ch := cm.ch
	conn := cm.conn
	cm.ch = nil
	cm.conn = nil
	cm.state = StateDisconnected
	cm.mu.Unlock()

	if ch != nil {
		if err := ch.Close(); err != nil {
			cm.logger.Warn("channel close failed", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			cm.logger.Warn("connection close failed", "error", err)
		}
	}
	cm.logger.Info("connection manager shut down")
}

// connect performs one connection attempt and routes failure into the
// reconnection routine. At most one attempt runs at a time: a call that
// overlaps an in-flight attempt, or lands on an already connected manager,
// returns without dialing.
func (cm *ConnectionManager) connect(ctx context.Context) bool {
	cm.mu.Lock()
	if cm.dialing || cm.state == StateConnected {
		connected := cm.state == StateConnected
		cm.mu.Unlock()
		return connected
	}
	cm.dialing = true
	cm.state = StateConnecting
	cm.mu.Unlock()

	defer func() {
		cm.mu.Lock()
		cm.dialing = false
		cm.mu.Unlock()
	}()

	conn, err := cm.dialBroker(ctx)
	if err != nil {
		cm.logger.Error("failed to connect to RabbitMQ",
			"url", SanitizeURL(cm.url),
			"error", err)
		cm.scheduleReconnect()
		return false
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		cm.logger.Error("failed to open channel", "error", err)
		cm.scheduleReconnect()
		return false
	}

	cm.mu.Lock()
	if cm.closed {
		cm.mu.Unlock()
		ch.Close()
		conn.Close()
		return false
	}
	cm.conn = conn
	cm.ch = ch
	cm.attempts = 0
	cm.state = StateConnected
	cm.gen++
	gen := cm.gen
	hooks := make([]func(), len(cm.hooks))
	copy(hooks, cm.hooks)
	cm.mu.Unlock()

	notify := conn.NotifyClose(make(chan *amqp.Error, 1))

	cm.logger.Info("connected to RabbitMQ", "url", SanitizeURL(cm.url))

	go cm.watch(notify, gen)

	for _, hook := range hooks {
		hook()
	}

	return true
}

// dialBroker dials with a timeout; amqp.Dial itself takes no context.
func (cm *ConnectionManager) dialBroker(ctx context.Context) (*amqp.Connection, error) {
	connCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	connChan := make(chan *amqp.Connection, 1)
	errChan := make(chan error, 1)

	go func() {
		conn, err := cm.dial(cm.url)
		if err != nil {
			errChan <- err
			return
		}
		connChan <- conn
	}()

	select {
	case conn := <-connChan:
		return conn, nil

	case err := <-errChan:
		return nil, &ConnectionError{
			Op:        "connect",
			URL:       SanitizeURL(cm.url),
			Err:       err,
			Timestamp: time.Now(),
			Attempts:  1,
		}

	case <-connCtx.Done():
		return nil, &ConnectionError{
			Op:        "connect",
			URL:       SanitizeURL(cm.url),
			Err:       connCtx.Err(),
			Timestamp: time.Now(),
			Attempts:  1,
		}
	}
}

// watch waits for a broker-initiated close on the given connection
// generation and routes it into the reconnection routine. Notifications from
// superseded connections are ignored.
func (cm *ConnectionManager) watch(notify chan *amqp.Error, gen int) {
	amqpErr, ok := <-notify

	cm.mu.Lock()
	if cm.closed || gen != cm.gen {
		cm.mu.Unlock()
		return
	}
	cm.conn = nil
	cm.ch = nil
	cm.state = StateReconnecting
	cm.mu.Unlock()

	if ok && amqpErr != nil {
		cm.logger.Error("connection closed by broker", "error", amqpErr)
	} else {
		cm.logger.Error("connection closed by broker")
	}

	cm.scheduleReconnect()
}

// scheduleReconnect schedules exactly one retry after the backoff delay. At
// most one outstanding timer exists at any time: overlapping failure signals
// while a retry is pending do not create a second one. When the budget is
// exhausted the state settles at StateFailed and nothing further is
// scheduled.
func (cm *ConnectionManager) scheduleReconnect() {
	cm.mu.Lock()
	if cm.closed || cm.reconnectPending {
		cm.mu.Unlock()
		return
	}

	if cm.attempts >= cm.maxAttempts {
		cm.state = StateFailed
		attempts := cm.attempts
		cm.mu.Unlock()
		cm.logger.Error("reconnect attempts exhausted, staying failed until reinitialized",
			"attempts", attempts,
			"error", ErrMaxRetriesExceeded)
		return
	}

	cm.attempts++
	attempt := cm.attempts
	cm.reconnectPending = true
	cm.state = StateReconnecting
	delay := cm.backoff(attempt)

	cm.timer = time.AfterFunc(delay, func() {
		cm.mu.Lock()
		cm.reconnectPending = false
		// The manager may have been shut down, or reconnected through an
		// explicit Initialize, while the timer was pending.
		stale := cm.closed || cm.state == StateConnected
		cm.mu.Unlock()
		if stale {
			return
		}
		cm.connect(context.Background())
	})
	cm.mu.Unlock()

	cm.logger.Warn("reconnect scheduled",
		"attempt", attempt,
		"maxAttempts", cm.maxAttempts,
		"delay", delay)
}

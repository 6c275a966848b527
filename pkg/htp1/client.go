package htp1

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/htp1-protocol/htp1-go/pkg/connection"
	"github.com/htp1-protocol/htp1-go/pkg/log"
	"github.com/htp1-protocol/htp1-go/pkg/state"
	"github.com/htp1-protocol/htp1-go/pkg/subscription"
	"github.com/htp1-protocol/htp1-go/pkg/transport"
	"github.com/htp1-protocol/htp1-go/pkg/wire"
)

// Client errors.
var (
	// ErrConnect covers dial failure, initial-state timeout and
	// cancellation during Connect.
	ErrConnect = errors.New("failed to connect to HTP-1")

	// ErrNotConnected is returned when an operation needs an open socket.
	ErrNotConnected = errors.New("not connected")

	// ErrTxOpen is returned by Begin while a transaction is open.
	ErrTxOpen = errors.New("transaction already in progress")

	// ErrTxClosed is returned by operations on a discarded transaction.
	ErrTxClosed = errors.New("transaction is closed")

	// ErrUnknownLabel is returned when a selection label is not in the
	// device's catalog.
	ErrUnknownLabel = errors.New("label not found")
)

// Default timing for the HTP-1 control connection.
const (
	// DefaultMSOTimeout bounds the wait for the initial mso snapshot.
	DefaultMSOTimeout = 5 * time.Second
)

// Config holds client configuration.
type Config struct {
	// Host is the device host ("htp1.local", "192.168.1.40").
	Host string

	// Dialer opens the control websocket. Nil means the production
	// gorilla-based dialer.
	Dialer transport.Dialer

	// InitialBackoff is the first reconnect delay. Zero means 5s.
	InitialBackoff time.Duration

	// MaxBackoff caps the reconnect delay. Zero means 300s.
	MaxBackoff time.Duration

	// MSOTimeout bounds the wait for the initial state document during
	// Connect. Zero means DefaultMSOTimeout.
	MSOTimeout time.Duration

	// Logger receives operational logs. Nil means slog.Default().
	Logger *slog.Logger

	// ProtocolLogger captures protocol events. Nil disables capture.
	ProtocolLogger log.Logger
}

// DefaultConfig returns the default configuration for a device host.
func DefaultConfig(host string) Config {
	return Config{Host: host}
}

// handlerFunc processes one decoded inbound command payload.
type handlerFunc func(payload []byte) error

// Client connects to and manages one Monoprice HTP-1.
//
// A Client is safe for concurrent use. State mutation is confined to
// the receive loop; readers go through the client's lock.
type Client struct {
	host       string
	dialer     transport.Dialer
	msoTimeout time.Duration

	logger *slog.Logger
	plog   log.Logger

	// mu guards tree, tx, conn, connID, ready, readyCh, closing.
	mu sync.RWMutex

	tree *state.Tree
	tx   *Tx

	conn   transport.Conn
	connID string

	ready   bool
	readyCh chan struct{}

	// closing marks a deliberate local disconnect so the receive loop
	// does not re-arm reconnection.
	closing bool

	recvDone chan struct{}

	subs       *subscription.Registry
	supervisor *connection.Supervisor

	// Closed mapping from command verb to handler. Unknown inbound
	// commands are ignored for forward compatibility.
	handlers map[string]handlerFunc
}

// New creates a client for the device at cfg.Host. The client starts
// disconnected; call Connect or TryConnect.
func New(cfg Config) *Client {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &transport.WSDialer{}
	}
	msoTimeout := cfg.MSOTimeout
	if msoTimeout <= 0 {
		msoTimeout = DefaultMSOTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	plog := cfg.ProtocolLogger
	if plog == nil {
		plog = log.NoopLogger{}
	}

	c := &Client{
		host:       cfg.Host,
		dialer:     dialer,
		msoTimeout: msoTimeout,
		logger:     logger.With("component", "htp1", "host", cfg.Host),
		plog:       plog,
		tree:       state.NewTree(),
		readyCh:    make(chan struct{}),
		subs:       subscription.NewRegistry(),
	}

	c.handlers = map[string]handlerFunc{
		wire.CmdMSO:       c.handleMSO,
		wire.CmdMSOUpdate: c.handleMSOUpdate,
	}

	backoff := connection.NewBackoffWithConfig(connection.BackoffConfig{
		Initial: cfg.InitialBackoff,
		Max:     cfg.MaxBackoff,
	})
	c.supervisor = connection.NewSupervisor(c.Connect, backoff)
	c.supervisor.OnRetry(func(attempt int, delay time.Duration) {
		c.logger.Debug("reconnect attempt failed, backing off",
			"attempt", attempt, "delay", delay)
	})

	return c
}

// Host returns the configured device host.
func (c *Client) Host() string {
	return c.host
}

// Connected reports whether the initial state document has been
// received for the current session.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Subscribe registers a callback for a subject: an absolute state path,
// or subscription.SubjectConnection for lifecycle events. Callbacks run
// on the receive loop goroutine in registration order.
func (c *Client) Subscribe(subject string, fn subscription.Callback) *subscription.Subscription {
	return c.subs.Subscribe(subject, fn)
}

// Unsubscribe removes a registration made with Subscribe.
func (c *Client) Unsubscribe(sub *subscription.Subscription) bool {
	return c.subs.Unsubscribe(sub)
}

// Connect opens the control websocket, requests the full state document
// and waits for it.
//
// On any failure - dial error, initial-state timeout, cancellation -
// the socket and receive loop are torn down and an error wrapping
// ErrConnect is returned. On success the lifecycle subject is notified.
func (c *Client) Connect(ctx context.Context) error {
	// A stale session, if any, goes away first.
	c.disconnect()
	c.reset()

	url := transport.ControllerURL(c.host)
	c.logger.Debug("connecting", "url", url)

	conn, err := c.dialer.Dial(ctx, url)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}

	connID := uuid.NewString()
	recvDone := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.connID = connID
	c.closing = false
	c.recvDone = recvDone
	readyCh := c.readyCh
	c.mu.Unlock()

	c.plog.Log(log.NewStateChangeEvent(connID, "disconnected", "connecting", ""))

	go c.receive(conn, connID, recvDone)

	// Request the initial state.
	c.logger.Debug("requesting mso")
	if err := c.sendFrame(wire.CmdGetMSO, ""); err != nil {
		c.disconnect()
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}

	// Wait until the full state document arrives.
	select {
	case <-readyCh:
	case <-time.After(c.msoTimeout):
		c.logger.Warn("failed to connect and retrieve mso")
		c.disconnect()
		return fmt.Errorf("%w: timed out waiting for mso", ErrConnect)
	case <-ctx.Done():
		c.disconnect()
		return fmt.Errorf("%w: %w", ErrConnect, ctx.Err())
	}

	c.logger.Debug("received mso, ready")
	c.plog.Log(log.NewStateChangeEvent(connID, "connecting", "ready", ""))
	c.subs.Notify(subscription.SubjectConnection, nil)
	return nil
}

// TryConnect starts persistent background connection attempts and
// returns immediately. Failures are retried with exponential backoff
// (5s doubling to 300s); the supervisor exits once connected. Calling
// TryConnect while a supervisor run is in flight is a no-op.
func (c *Client) TryConnect() {
	if err := c.supervisor.Start(); err != nil {
		c.logger.Debug("reconnect supervisor already running")
	}
}

// StopConnect cancels background connection attempts and waits for the
// supervisor to terminate. Idempotent.
func (c *Client) StopConnect() {
	c.supervisor.Stop()
}

// Stop disconnects and shuts down all background tasks. Idempotent and
// safe to call on a client that never connected. After Stop returns no
// goroutines remain.
func (c *Client) Stop() {
	c.logger.Debug("stopping")
	c.StopConnect()
	c.disconnect()
	c.reset()
}

// disconnect closes the socket if open and waits for the receive loop
// to terminate. Idempotent.
func (c *Client) disconnect() {
	c.mu.Lock()
	conn := c.conn
	recvDone := c.recvDone
	connID := c.connID
	if conn != nil {
		c.closing = true
	}
	c.conn = nil
	c.recvDone = nil
	c.mu.Unlock()

	if conn == nil {
		return
	}

	_ = conn.Close()
	if recvDone != nil {
		<-recvDone
	}
	c.plog.Log(log.NewStateChangeEvent(connID, "ready", "disconnected", "local close"))
	c.logger.Debug("disconnected")
}

// reset drops all mirrored state: the state tree, any open transaction
// and the ready signal.
func (c *Client) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tree.Clear()
	if c.tx != nil {
		c.tx.invalidate()
		c.tx = nil
	}
	c.ready = false
	c.readyCh = make(chan struct{})
}

// sendFrame sends one text frame over the current socket.
func (c *Client) sendFrame(cmd, payload string) error {
	c.mu.RLock()
	conn := c.conn
	connID := c.connID
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	c.plog.Log(log.NewFrameEvent(connID, log.DirectionOut, cmd, payload))
	return conn.SendText(wire.Join(cmd, payload))
}

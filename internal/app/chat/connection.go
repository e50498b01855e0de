/*
Package chat is the real-time core: the connection registry, per-connection
liveness probing, direct message routing and presence broadcasting.

A Connection is one live duplex session. All shared state lives in the
Registry; other components reach live connections only through it.
*/
package chat

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"dmchat/internal/app/user"
	"dmchat/internal/pkg/errs"
	"dmchat/internal/pkg/logx"
	"dmchat/internal/pkg/randx"
)

const (
	// sendQueueSize is the number of outbound frames buffered per connection.
	sendQueueSize = 256

	// inboundQueueSize is the number of client frames buffered ahead of the dispatch pump.
	inboundQueueSize = 32
)

var (
	// ErrSendQueueFull is returned by Send when the outbound queue is saturated.
	ErrSendQueueFull = errors.New("connection send queue full")

	// ErrConnectionClosed is returned by Send after the connection was torn down.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrInboundQueueFull is returned by Enqueue when the client outpaces frame handling.
	ErrInboundQueueFull = errors.New("connection inbound queue full")
)

// Transport is the duplex channel under a Connection.
type Transport interface {
	// WriteText writes one text frame. It is only called from the write pump.
	WriteText(data []byte) error

	// Ping sends a liveness probe carrying payload. The peer echoes payload in its pong.
	Ping(payload []byte) error

	// Close releases the channel.
	Close() error
}

// Connection is a single live client session.
type Connection struct {
	id        string
	transport Transport

	// send queues outbound frames for the write pump. It is never closed;
	// done signals teardown instead.
	send chan []byte

	// inbound hands client frames from the read pump to the dispatch pump.
	inbound chan []byte

	done      chan struct{}
	closeOnce sync.Once

	mu       sync.RWMutex
	identity user.Identity

	monitor *Monitor

	logger zerolog.Logger
}

// NewConnection wraps transport in a Connection with a fresh id and no identity.
func NewConnection(transport Transport) *Connection {
	id := randx.ConnectionID()

	return &Connection{
		id:        id,
		transport: transport,
		send:      make(chan []byte, sendQueueSize),
		inbound:   make(chan []byte, inboundQueueSize),
		done:      make(chan struct{}),
		logger:    logx.Logger().With().Str("conn_id", id).Logger(),
	}
}

// ID returns the process-local connection id.
func (c *Connection) ID() string {
	return c.id
}

// Identity returns the attached identity, if any.
func (c *Connection) Identity() (user.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity, !c.identity.IsZero()
}

// setIdentity binds identity to the connection. It can succeed only once.
func (c *Connection) setIdentity(identity user.Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.identity.IsZero() {
		return errs.NewError(errs.ErrAlreadyAuthenticated)
	}
	c.identity = identity
	c.logger = c.logger.With().Str("user_id", identity.ID).Logger()
	return nil
}

// Logger returns the connection-scoped logger.
func (c *Connection) Logger() *zerolog.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l := c.logger
	return &l
}

// Monitor returns the liveness monitor, or nil before admission.
func (c *Connection) Monitor() *Monitor {
	return c.monitor
}

// Done is closed when the connection has been torn down.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Send queues payload without blocking.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		c.Logger().Warn().Int("queue_len", len(c.send)).Msg("Send queue full, dropping frame")
		return ErrSendQueueFull
	}
}

// SendJSON marshals v and queues it.
func (c *Connection) SendJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(payload)
}

// SendError queues an error frame describing err.
func (c *Connection) SendError(err error) {
	if sendErr := c.SendJSON(newErrorFrame(err)); sendErr != nil {
		c.Logger().Debug().Err(sendErr).Msg("Error frame not queued")
	}
}

// Enqueue hands a client frame to the dispatch pump without blocking.
func (c *Connection) Enqueue(raw []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.inbound <- raw:
		return nil
	default:
		return ErrInboundQueueFull
	}
}

// Pong forwards a pong carrying gen to the liveness monitor.
func (c *Connection) Pong(gen uint64) bool {
	if c.monitor == nil {
		return false
	}
	return c.monitor.Pong(gen)
}

// Close tears the connection down. Only the first call has an effect.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.transport.Close(); err != nil {
			c.Logger().Debug().Err(err).Msg("Transport close error")
		}
	})
}

// WritePump drains the send queue onto the transport until the connection closes.
// A write failure closes the connection.
func (c *Connection) WritePump() {
	for {
		select {
		case <-c.done:
			return

		case payload := <-c.send:
			if err := c.transport.WriteText(payload); err != nil {
				c.Logger().Info().Err(err).Msg("Write failed, closing connection")
				c.Close()
				return
			}
		}
	}
}

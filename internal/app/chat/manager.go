package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"dmchat/internal/app/message"
	"dmchat/internal/app/user"
	"dmchat/internal/pkg/clock"
	"dmchat/internal/pkg/errs"
	"dmchat/internal/pkg/logx"
)

// eventTimeout bounds the storage work done for a single inbound frame.
const eventTimeout = 10 * time.Second

// ErrShuttingDown is returned by Admit once Shutdown has started.
var ErrShuttingDown = errors.New("chat manager is shutting down")

// Verifier turns a signed credential into an identity.
type Verifier interface {
	Verify(credential string) (user.Identity, error)
}

// Options configures a Manager.
type Options struct {
	Store        message.Store
	Attachments  AttachmentStore
	Verifier     Verifier
	Clock        clock.Clock
	PingInterval time.Duration
	PongTimeout  time.Duration
}

// Manager ties connection lifecycle to the registry, liveness probing, routing and presence.
type Manager struct {
	registry *Registry
	router   *Router
	presence *Presence
	verifier Verifier
	clock    clock.Clock

	pingInterval time.Duration
	pongTimeout  time.Duration

	closed atomic.Bool

	logger zerolog.Logger
}

// NewManager constructs a Manager from opts.
func NewManager(opts Options) *Manager {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}

	registry := NewRegistry()

	return &Manager{
		registry:     registry,
		router:       NewRouter(registry, opts.Store, opts.Attachments, clk),
		presence:     NewPresence(registry),
		verifier:     opts.Verifier,
		clock:        clk,
		pingInterval: opts.PingInterval,
		pongTimeout:  opts.PongTimeout,
		logger:       logx.Component("Manager"),
	}
}

// Registry exposes the connection registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Presence exposes the presence broadcaster.
func (m *Manager) Presence() *Presence {
	return m.presence
}

// Admit registers conn, starts its liveness probing and announces presence.
// A non-empty credential is verified first; an invalid one leaves the
// connection unauthenticated and queues an error frame.
func (m *Manager) Admit(conn *Connection, credential string) error {
	if m.closed.Load() {
		return ErrShuttingDown
	}

	conn.monitor = NewMonitor(
		m.clock,
		m.pingInterval,
		m.pongTimeout,
		conn.transport.Ping,
		func() { m.Disconnect(conn, "liveness timeout") },
		*conn.Logger(),
	)

	m.registry.Register(conn)

	// Shutdown may have taken its snapshot between the check above and Register.
	if m.closed.Load() {
		m.Disconnect(conn, "server shutdown")
		return ErrShuttingDown
	}

	conn.monitor.Start()

	if credential != "" {
		if err := m.bind(conn, credential); err != nil {
			conn.SendError(err)
		}
	}

	conn.Logger().Info().Int("connections", m.registry.Len()).Msg("Connection admitted")
	m.presence.Announce()

	return nil
}

// Authenticate binds the identity behind credential to conn and announces presence.
func (m *Manager) Authenticate(conn *Connection, credential string) error {
	if err := m.bind(conn, credential); err != nil {
		return err
	}
	m.presence.Announce()
	return nil
}

func (m *Manager) bind(conn *Connection, credential string) error {
	if m.verifier == nil {
		return errs.NewError(errs.ErrInvalidCredential)
	}

	identity, err := m.verifier.Verify(credential)
	if err != nil {
		conn.Logger().Info().Err(err).Msg("Credential rejected")
		return err
	}

	if err := m.registry.AttachIdentity(conn.ID(), identity); err != nil {
		return err
	}

	if err := conn.SendJSON(AuthenticatedFrame{Authenticated: identity}); err != nil {
		conn.Logger().Debug().Err(err).Msg("Authenticated frame not queued")
	}

	conn.Logger().Info().Str("username", identity.Username).Msg("Connection authenticated")
	return nil
}

// HandleFrame decodes one raw client frame and dispatches it. Failures are
// reported to conn as error frames; the connection stays open.
func (m *Manager) HandleFrame(ctx context.Context, conn *Connection, raw []byte) {
	var event InboundEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		conn.Logger().Warn().Err(err).Msg("Client sent invalid JSON")
		conn.SendError(errs.NewError(errs.ErrMalformedEvent))
		return
	}

	if event.isAuth() {
		if err := m.Authenticate(conn, event.Token); err != nil {
			conn.SendError(err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	msg, err := m.router.HandleInbound(ctx, conn, event)
	if err != nil {
		conn.SendError(err)
		return
	}

	if event.TempID != "" {
		ack := AckFrame{Ack: Ack{TempID: event.TempID, ID: msg.ID, CreatedAt: msg.CreatedAt}}
		if err := conn.SendJSON(ack); err != nil {
			conn.Logger().Warn().Err(err).Msg("Ack not queued")
		}
	}
}

// Disconnect tears conn down: liveness stops, the connection leaves the
// registry, the transport closes and presence is announced. Only the call that
// actually removes the connection announces, so repeated calls are harmless.
func (m *Manager) Disconnect(conn *Connection, reason string) {
	if conn.monitor != nil {
		conn.monitor.Stop()
	}

	removed := m.registry.Unregister(conn.ID())
	conn.Close()

	if !removed {
		return
	}

	conn.Logger().Info().Str("reason", reason).Int("connections", m.registry.Len()).Msg("Connection removed")

	if !m.closed.Load() {
		m.presence.Announce()
	}
}

// Shutdown closes every connection without presence announcements. Admit
// fails afterwards.
func (m *Manager) Shutdown() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}

	m.logger.Info().Int("connections", m.registry.Len()).Msg("Shutting down chat manager...")

	for _, conn := range m.registry.All() {
		m.Disconnect(conn, "server shutdown")
	}

	m.logger.Info().Msg("Chat manager shutdown complete.")
}

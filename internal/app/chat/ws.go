package chat

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dmchat/internal/pkg/errs"
)

const (
	// writeWait bounds every websocket write.
	writeWait = 10 * time.Second

	// maxFrameSize admits a maximal attachment in base64 plus the JSON envelope.
	maxFrameSize = 8 << 20
)

// wsTransport adapts a gorilla websocket connection to Transport.
type wsTransport struct {
	conn *websocket.Conn

	// closeMu serializes Close so the close frame is written once.
	closeMu sync.Mutex
	closed  bool
}

// NewWebSocketTransport wraps conn.
func NewWebSocketTransport(conn *websocket.Conn) Transport {
	return &wsTransport{conn: conn}
}

// WriteText implements Transport. Only the write pump calls it.
func (t *wsTransport) WriteText(data []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// Ping implements Transport. WriteControl may run concurrently with WriteMessage.
func (t *wsTransport) Ping(payload []byte) error {
	return t.conn.WriteControl(websocket.PingMessage, payload, time.Now().Add(writeWait))
}

// Close implements Transport.
func (t *wsTransport) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	_ = t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return t.conn.Close()
}

// Serve runs an upgraded websocket connection until it closes. It blocks for
// the lifetime of the connection and always tears it down before returning.
func (m *Manager) Serve(ctx context.Context, wsConn *websocket.Conn, credential string) {
	conn := NewConnection(NewWebSocketTransport(wsConn))

	if err := m.Admit(conn, credential); err != nil {
		conn.Logger().Info().Err(err).Msg("Connection refused")
		conn.Close()
		return
	}

	go conn.WritePump()
	go m.dispatchPump(ctx, conn)

	m.readPump(conn, wsConn)
}

// dispatchPump handles queued client frames in arrival order until the
// connection closes. It runs apart from the read pump so pongs keep being read
// while a frame is persisted.
func (m *Manager) dispatchPump(ctx context.Context, conn *Connection) {
	for {
		select {
		case <-conn.Done():
			return

		case raw := <-conn.inbound:
			m.HandleFrame(ctx, conn, raw)
		}
	}
}

// readPump queues inbound frames for the dispatch pump and forwards pongs to
// the liveness monitor. Read deadlines are not used; liveness probing detects dead peers.
func (m *Manager) readPump(conn *Connection, wsConn *websocket.Conn) {
	reason := "closed by peer"
	defer func() {
		m.Disconnect(conn, reason)
	}()

	wsConn.SetReadLimit(maxFrameSize)

	wsConn.SetPongHandler(func(appData string) error {
		gen, err := strconv.ParseUint(appData, 10, 64)
		if err != nil {
			conn.Logger().Debug().Str("payload", appData).Msg("Ignoring pong with foreign payload")
			return nil
		}
		if !conn.Pong(gen) {
			conn.Logger().Debug().Uint64("generation", gen).Msg("Ignoring stale pong")
		}
		return nil
	})

	for {
		messageType, raw, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				conn.Logger().Info().Err(err).Msg("Unexpected websocket close")
				reason = "read error"
			}
			return
		}

		if messageType != websocket.TextMessage {
			conn.SendError(errs.NewError(errs.ErrMalformedEvent))
			continue
		}

		if err := conn.Enqueue(raw); err != nil {
			conn.Logger().Warn().Err(err).Msg("Dropping client frame")
			conn.SendError(errs.NewError(errs.ErrRateLimitExceeded))
		}
	}
}

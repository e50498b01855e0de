package chat

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmchat/internal/app/message"
)

func newWSServer(t *testing.T, interval, timeout time.Duration) (*Manager, *message.MemStore, string) {
	t.Helper()
	return newWSServerWithAttachments(t, interval, timeout, nil)
}

func newWSServerWithAttachments(t *testing.T, interval, timeout time.Duration, attachments AttachmentStore) (*Manager, *message.MemStore, string) {
	t.Helper()

	store := message.NewMemStore()
	m := NewManager(Options{
		Store:        store,
		Attachments:  attachments,
		Verifier:     fakeVerifier{"tok-alice": alice, "tok-bob": bob},
		PingInterval: interval,
		PongTimeout:  timeout,
	})

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		m.Serve(r.Context(), wsConn, r.URL.Query().Get("token"))
	}))

	t.Cleanup(func() {
		m.Shutdown()
		srv.Close()
	})

	return m, store, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()

	if token != "" {
		url += "?token=" + token
	}
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	return ws
}

// readUntil reads frames until one contains key. Reading also answers server pings.
func readUntil(t *testing.T, ws *websocket.Conn, key string) map[string]json.RawMessage {
	t.Helper()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, raw, err := ws.ReadMessage()
		require.NoError(t, err)

		var frame map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(raw, &frame))
		if _, ok := frame[key]; ok {
			return frame
		}
	}
}

func TestWebSocketDirectMessage(t *testing.T) {
	_, store, url := newWSServer(t, time.Minute, time.Second)

	aliceWS := dial(t, url, "tok-alice")
	readUntil(t, aliceWS, "authenticated")

	bobWS := dial(t, url, "")
	readUntil(t, bobWS, "online")
	require.NoError(t, bobWS.WriteJSON(map[string]string{"token": "tok-bob"}))
	readUntil(t, bobWS, "authenticated")

	require.NoError(t, aliceWS.WriteJSON(InboundEvent{Recipient: bob.ID, Text: "hello bob", TempID: "t-9"}))

	ackFrame := readUntil(t, aliceWS, "ack")
	var ack Ack
	require.NoError(t, json.Unmarshal(ackFrame["ack"], &ack))
	assert.Equal(t, "t-9", ack.TempID)

	delivered := readUntil(t, bobWS, "id")
	var msg message.Message
	raw, err := json.Marshal(delivered)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &msg))

	assert.Equal(t, ack.ID, msg.ID)
	assert.Equal(t, alice.ID, msg.Sender)
	assert.Equal(t, "hello bob", msg.Text)
	assert.Equal(t, 1, store.Len())
}

func TestWebSocketPeerCloseAnnouncesPresence(t *testing.T) {
	m, _, url := newWSServer(t, time.Minute, time.Second)

	aliceWS := dial(t, url, "tok-alice")
	readUntil(t, aliceWS, "authenticated")

	bobWS := dial(t, url, "tok-bob")
	readUntil(t, bobWS, "authenticated")

	require.NoError(t, bobWS.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	assert.Eventually(t, func() bool { return m.Registry().Len() == 1 }, 3*time.Second, 10*time.Millisecond)

	for {
		frame := readUntil(t, aliceWS, "online")
		if string(frame["online"]) == `[{"userId":"u-alice","username":"alice"}]` {
			break
		}
	}
}

func TestWebSocketSilentPeerIsReaped(t *testing.T) {
	m, _, url := newWSServer(t, 20*time.Millisecond, 50*time.Millisecond)

	// Stops reading after admission, so the client library never answers pings.
	silent := dial(t, url, "tok-alice")
	readUntil(t, silent, "authenticated")

	responsive := dial(t, url, "tok-bob")
	readUntil(t, responsive, "authenticated")
	require.NoError(t, responsive.SetReadDeadline(time.Time{}))
	go func() {
		for {
			if _, _, err := responsive.ReadMessage(); err != nil {
				return
			}
		}
	}()

	assert.Eventually(t, func() bool {
		return len(m.Registry().FindByUser(alice.ID)) == 0
	}, 3*time.Second, 10*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	assert.Len(t, m.Registry().FindByUser(bob.ID), 1)
}

func TestWebSocketSlowSendKeepsSenderAlive(t *testing.T) {
	attachments := &recordingAttachments{delay: 400 * time.Millisecond}
	m, store, url := newWSServerWithAttachments(t, 50*time.Millisecond, 100*time.Millisecond, attachments)

	aliceWS := dial(t, url, "tok-alice")
	readUntil(t, aliceWS, "authenticated")

	require.NoError(t, aliceWS.WriteJSON(InboundEvent{
		Recipient:  bob.ID,
		TempID:     "t-slow",
		Attachment: &AttachmentPayload{Name: "big.png", Data: base64.StdEncoding.EncodeToString([]byte("img"))},
	}))

	// Reading while the attachment is stored keeps answering pings.
	ackFrame := readUntil(t, aliceWS, "ack")
	var ack Ack
	require.NoError(t, json.Unmarshal(ackFrame["ack"], &ack))
	assert.Equal(t, "t-slow", ack.TempID)

	assert.Len(t, m.Registry().FindByUser(alice.ID), 1)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, attachments.count())
}

package chat

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmchat/internal/app/user"
	"dmchat/internal/pkg/clock"
	"dmchat/internal/pkg/errs"
)

func decodeError(t *testing.T, frame map[string]json.RawMessage) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(frame["error"], &body))
	return body
}

func TestManagerAdmitWithCredential(t *testing.T) {
	h := newHarness(t)
	conn := NewConnection(&fakeTransport{})

	require.NoError(t, h.manager.Admit(conn, "tok-alice"))

	identity, ok := conn.Identity()
	require.True(t, ok)
	assert.Equal(t, alice, identity)
	assert.Equal(t, StateAlive, conn.Monitor().State())

	frames := drain(conn)
	require.Len(t, frames, 2)
	assert.JSONEq(t, `{"authenticated":{"userId":"u-alice","username":"alice"}}`, string(frames[0]))
	assert.JSONEq(t, `{"online":[{"userId":"u-alice","username":"alice"}]}`, string(frames[1]))
}

func TestManagerAdmitWithInvalidCredentialStaysAnonymous(t *testing.T) {
	h := newHarness(t)
	conn := NewConnection(&fakeTransport{})

	require.NoError(t, h.manager.Admit(conn, "forged"))

	_, ok := conn.Identity()
	assert.False(t, ok)
	assert.Equal(t, 1, h.manager.Registry().Len())

	errFrames := framesWithKey(t, conn, "error")
	require.Len(t, errFrames, 1)
	assert.Equal(t, errs.ErrInvalidCredential, decodeError(t, errFrames[0]).Code)
}

func TestManagerInBandAuthentication(t *testing.T) {
	h := newHarness(t)
	watcher, _ := h.connect(t, "tok-carol")
	conn, _ := h.connect(t, "")

	h.manager.HandleFrame(context.Background(), conn, []byte(`{"token":"tok-bob"}`))

	identity, ok := conn.Identity()
	require.True(t, ok)
	assert.Equal(t, bob, identity)
	assert.Len(t, framesWithKey(t, conn, "authenticated"), 1)

	presence := framesWithKey(t, watcher, "online")
	require.Len(t, presence, 1)
	var online []user.Identity
	require.NoError(t, json.Unmarshal(presence[0]["online"], &online))
	assert.Equal(t, []user.Identity{bob, carol}, online)

	h.manager.HandleFrame(context.Background(), conn, []byte(`{"token":"tok-alice"}`))

	errFrames := framesWithKey(t, conn, "error")
	require.Len(t, errFrames, 1)
	assert.Equal(t, errs.ErrAlreadyAuthenticated, decodeError(t, errFrames[0]).Code)

	identity, _ = conn.Identity()
	assert.Equal(t, bob, identity)
}

func TestManagerHandleFrameSendsAck(t *testing.T) {
	h := newHarness(t)
	sender, _ := h.connect(t, "tok-alice")
	recipient, _ := h.connect(t, "tok-bob")

	h.manager.HandleFrame(context.Background(), sender, []byte(`{"recipient":"u-bob","text":"hi","tempId":"t-1"}`))

	acks := framesWithKey(t, sender, "ack")
	require.Len(t, acks, 1)

	var ack Ack
	require.NoError(t, json.Unmarshal(acks[0]["ack"], &ack))
	assert.Equal(t, "t-1", ack.TempID)
	assert.NotEmpty(t, ack.ID)
	assert.True(t, epoch.Equal(ack.CreatedAt))

	delivered := framesWithKey(t, recipient, "id")
	require.Len(t, delivered, 1)
	assert.JSONEq(t, `"`+ack.ID+`"`, string(delivered[0]["id"]))
	assert.JSONEq(t, `"hi"`, string(delivered[0]["text"]))
	_, hasFile := delivered[0]["file"]
	assert.False(t, hasFile)
}

func TestManagerHandleFrameErrorsKeepConnectionOpen(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		code int
	}{
		{"invalid json", `{"recipient":`, errs.ErrMalformedEvent},
		{"no content", `{"recipient":"u-bob"}`, errs.ErrMalformedEvent},
		{"too long", `{"recipient":"u-bob","text":"` + longText() + `"}`, errs.ErrMessageTooLong},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			sender, transport := h.connect(t, "tok-alice")

			h.manager.HandleFrame(context.Background(), sender, []byte(tc.raw))

			errFrames := framesWithKey(t, sender, "error")
			require.Len(t, errFrames, 1)
			assert.Equal(t, tc.code, decodeError(t, errFrames[0]).Code)

			_, registered := h.manager.Registry().Get(sender.ID())
			assert.True(t, registered)
			assert.Equal(t, 0, transport.closeCount())
			assert.Equal(t, 0, h.store.Len())
		})
	}
}

func longText() string {
	return strings.Repeat("x", MaxTextBytes+1)
}

func TestManagerStorageErrorFrame(t *testing.T) {
	clk := clock.NewFake(epoch)
	m := NewManager(Options{
		Store:    failingStore{},
		Verifier: fakeVerifier{"tok-alice": alice},
		Clock:    clk,
	})
	t.Cleanup(m.Shutdown)

	conn := NewConnection(&fakeTransport{})
	require.NoError(t, m.Admit(conn, "tok-alice"))
	drain(conn)

	m.HandleFrame(context.Background(), conn, []byte(`{"recipient":"u-bob","text":"hi","tempId":"t-1"}`))

	frames := drain(conn)
	require.Len(t, frames, 1)

	var frame ErrorFrame
	require.NoError(t, json.Unmarshal(frames[0], &frame))
	assert.Equal(t, errs.ErrStorage, frame.Error.Code)
	assert.NotContains(t, frame.Error.Message, "database unavailable")

	_, registered := m.Registry().Get(conn.ID())
	assert.True(t, registered)
}

func TestManagerLivenessTimeoutRemovesAndAnnouncesOnce(t *testing.T) {
	h := newHarness(t)
	silent, silentTransport := h.connect(t, "tok-alice")
	responsive, _ := h.connect(t, "tok-bob")

	h.clock.Advance(5 * time.Second)
	assert.Equal(t, 1, silentTransport.pingCount())
	require.True(t, responsive.Pong(responsive.Monitor().Generation()))

	h.clock.Advance(999 * time.Millisecond)
	_, registered := h.manager.Registry().Get(silent.ID())
	assert.True(t, registered)

	h.clock.Advance(time.Millisecond)

	_, registered = h.manager.Registry().Get(silent.ID())
	assert.False(t, registered)
	assert.Equal(t, StateDead, silent.Monitor().State())
	assert.Equal(t, 1, silentTransport.closeCount())

	presence := framesWithKey(t, responsive, "online")
	require.Len(t, presence, 1)
	assert.JSONEq(t, `[{"userId":"u-bob","username":"bob"}]`, string(presence[0]["online"]))

	assert.False(t, silent.Pong(1), "late pong after timeout")
	h.manager.Disconnect(silent, "read error")
	assert.Empty(t, framesWithKey(t, responsive, "online"))
	assert.Equal(t, 1, silentTransport.closeCount())
}

func TestManagerResponsiveConnectionStaysRegistered(t *testing.T) {
	h := newHarness(t)
	conn, _ := h.connect(t, "tok-alice")

	for i := 0; i < 20; i++ {
		h.clock.Advance(5 * time.Second)
		h.clock.Advance(900 * time.Millisecond)
		require.True(t, conn.Pong(conn.Monitor().Generation()))
	}

	_, registered := h.manager.Registry().Get(conn.ID())
	assert.True(t, registered)
}

func TestManagerDisconnectIsIdempotent(t *testing.T) {
	h := newHarness(t)
	conn, transport := h.connect(t, "tok-alice")
	watcher, _ := h.connect(t, "tok-bob")

	h.manager.Disconnect(conn, "closed by peer")
	h.manager.Disconnect(conn, "closed by peer")

	assert.Equal(t, 1, h.manager.Registry().Len())
	assert.Equal(t, 1, transport.closeCount())
	assert.Len(t, framesWithKey(t, watcher, "online"), 1)
	assert.Equal(t, 1, h.clock.Pending(), "only the watcher's probe remains scheduled")
}

func TestManagerReconnectCycles(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 5; i++ {
		conn, _ := h.connect(t, "tok-alice")
		assert.Equal(t, []user.Identity{alice}, h.manager.Presence().Snapshot())
		h.manager.Disconnect(conn, "closed by peer")
	}

	assert.Equal(t, 0, h.manager.Registry().Len())
	assert.Empty(t, h.manager.Registry().FindByUser(alice.ID))
	assert.Empty(t, h.manager.Presence().Snapshot())
}

func TestManagerShutdown(t *testing.T) {
	h := newHarness(t)
	_, first := h.connect(t, "tok-alice")
	_, second := h.connect(t, "")

	h.manager.Shutdown()

	assert.Equal(t, 0, h.manager.Registry().Len())
	assert.Equal(t, 1, first.closeCount())
	assert.Equal(t, 1, second.closeCount())
	assert.ErrorIs(t, h.manager.Admit(NewConnection(&fakeTransport{}), ""), ErrShuttingDown)
}

func TestManagerShutdownRacingAdmitLeavesNothingRegistered(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := NewConnection(&fakeTransport{})
			if err := h.manager.Admit(conn, "tok-alice"); err != nil {
				assert.ErrorIs(t, err, ErrShuttingDown)
			}
		}()
	}

	h.manager.Shutdown()
	wg.Wait()

	assert.Equal(t, 0, h.manager.Registry().Len())
	assert.Empty(t, h.manager.Presence().Snapshot())
}

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dmchat/internal/app/message"
	"dmchat/internal/app/user"
	"dmchat/internal/pkg/clock"
	"dmchat/internal/pkg/errs"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

var (
	alice = user.Identity{ID: "u-alice", Username: "alice"}
	bob   = user.Identity{ID: "u-bob", Username: "bob"}
	carol = user.Identity{ID: "u-carol", Username: "carol"}
)

type fakeTransport struct {
	mu      sync.Mutex
	pings   [][]byte
	writes  [][]byte
	closed  int
	pingErr error
}

func (t *fakeTransport) WriteText(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = append(t.writes, data)
	return nil
}

func (t *fakeTransport) Ping(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pings = append(t.pings, payload)
	return t.pingErr
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed++
	return nil
}

func (t *fakeTransport) closeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *fakeTransport) pingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pings)
}

type fakeVerifier map[string]user.Identity

func (v fakeVerifier) Verify(credential string) (user.Identity, error) {
	identity, ok := v[credential]
	if !ok {
		return user.Identity{}, errs.NewError(errs.ErrInvalidCredential)
	}
	return identity, nil
}

type failingStore struct{}

func (failingStore) Append(context.Context, message.Message) (string, error) {
	return "", errors.New("database unavailable")
}

func (failingStore) QueryBetween(context.Context, string, string) ([]message.Message, error) {
	return nil, errors.New("database unavailable")
}

type recordingAttachments struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
	err     error
	delay   time.Duration
}

func (a *recordingAttachments) Put(_ context.Context, name string, data []byte) error {
	if a.delay > 0 {
		time.Sleep(a.delay)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	if a.files == nil {
		a.files = make(map[string][]byte)
	}
	a.files[name] = data
	return nil
}

func (a *recordingAttachments) Delete(_ context.Context, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.files, name)
	a.deleted = append(a.deleted, name)
	return nil
}

func (a *recordingAttachments) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.files)
}

type harness struct {
	manager     *Manager
	clock       *clock.FakeClock
	store       *message.MemStore
	attachments *recordingAttachments
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		clock:       clock.NewFake(epoch),
		store:       message.NewMemStore(),
		attachments: &recordingAttachments{},
	}
	h.manager = NewManager(Options{
		Store:       h.store,
		Attachments: h.attachments,
		Verifier: fakeVerifier{
			"tok-alice": alice,
			"tok-bob":   bob,
			"tok-carol": carol,
		},
		Clock:        h.clock,
		PingInterval: 5 * time.Second,
		PongTimeout:  time.Second,
	})
	t.Cleanup(h.manager.Shutdown)

	return h
}

// connect admits a fresh connection, authenticating it when credential is set,
// and discards the frames admission queued on every connection.
func (h *harness) connect(t *testing.T, credential string) (*Connection, *fakeTransport) {
	t.Helper()

	transport := &fakeTransport{}
	conn := NewConnection(transport)
	require.NoError(t, h.manager.Admit(conn, credential))
	h.drainAll()

	return conn, transport
}

func (h *harness) drainAll() {
	for _, c := range h.manager.registry.All() {
		drain(c)
	}
}

// drain returns every frame queued on conn without blocking.
func drain(conn *Connection) [][]byte {
	var frames [][]byte
	for {
		select {
		case frame := <-conn.send:
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

// framesWithKey decodes the drained frames of conn that contain key.
func framesWithKey(t *testing.T, conn *Connection, key string) []map[string]json.RawMessage {
	t.Helper()

	var out []map[string]json.RawMessage
	for _, frame := range drain(conn) {
		var decoded map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(frame, &decoded))
		if _, ok := decoded[key]; ok {
			out = append(out, decoded)
		}
	}
	return out
}

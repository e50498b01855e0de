package chat

import (
	"sync"

	"dmchat/internal/app/user"
	"dmchat/internal/pkg/errs"
)

// Registry is the set of live connections, indexed by connection id and by user id.
// It is safe for concurrent use. Snapshots it returns are copies.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	byUser map[string]map[string]*Connection
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*Connection),
		byUser: make(map[string]map[string]*Connection),
	}
}

// Register adds conn. Registering the same connection twice is a no-op.
func (r *Registry) Register(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[conn.ID()] = conn
	if identity, ok := conn.Identity(); ok {
		r.indexLocked(identity.ID, conn)
	}
}

// Unregister removes the connection with id. It reports whether anything was removed,
// so a second call for the same id is a no-op that returns false.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok {
		return false
	}
	delete(r.conns, id)

	if identity, ok := conn.Identity(); ok {
		if set := r.byUser[identity.ID]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(r.byUser, identity.ID)
			}
		}
	}

	return true
}

// AttachIdentity binds identity to the registered connection with id and indexes it by user.
func (r *Registry) AttachIdentity(id string, identity user.Identity) error {
	if identity.IsZero() {
		return errs.NewError(errs.ErrInvalidParams)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if err := conn.setIdentity(identity); err != nil {
		return err
	}
	r.indexLocked(identity.ID, conn)

	return nil
}

func (r *Registry) indexLocked(userID string, conn *Connection) {
	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[string]*Connection)
		r.byUser[userID] = set
	}
	set[conn.ID()] = conn
}

// Get returns the registered connection with id.
func (r *Registry) Get(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// FindByUser returns a snapshot of every connection bound to userID.
func (r *Registry) FindByUser(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	out := make([]*Connection, 0, len(set))
	for _, conn := range set {
		out = append(out, conn)
	}
	return out
}

// All returns a snapshot of every registered connection.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		out = append(out, conn)
	}
	return out
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Broadcast queues payload on every registered connection and returns how many accepted it.
// Sends happen outside the lock.
func (r *Registry) Broadcast(payload []byte) int {
	sent := 0
	for _, conn := range r.All() {
		if err := conn.Send(payload); err == nil {
			sent++
		}
	}
	return sent
}

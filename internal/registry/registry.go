// Package registry maps logical user ids to their single live connection.
package registry

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Conn is the subset of a live websocket connection the registry needs.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

var ErrNotConnected = errors.New("no live connection for user")

// entry pairs a connection with a write lock. Fan-out from other users'
// workers can push to the same socket as its owner, and websocket
// connections do not allow concurrent writers.
type entry struct {
	mu   sync.Mutex
	conn Conn
}

// Registry holds at most one live connection per user. All methods are safe
// for arbitrary concurrent callers. Construct one per process and pass it by
// reference; there is deliberately no package-level instance.
type Registry struct {
	mu      sync.RWMutex
	entries map[int]*entry
	log     *zap.Logger
}

// New creates an empty Registry.
func New(log *zap.Logger) *Registry {
	return &Registry{
		entries: make(map[int]*entry),
		log:     log,
	}
}

// Register maps userID to conn, replacing any previous mapping. The
// superseded connection, if any, is returned so the caller may close it.
func (r *Registry) Register(userID int, conn Conn) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	var old Conn
	if prev, ok := r.entries[userID]; ok {
		old = prev.conn
	}
	r.entries[userID] = &entry{conn: conn}

	r.log.Info("user registered", zap.Int("userId", userID), zap.Bool("replaced", old != nil))
	return old
}

// Unregister removes the mapping for userID, but only if conn is the
// connection currently registered. A stale unregister from a superseded
// connection leaves the newer entry in place. Reports whether the entry was
// removed.
func (r *Registry) Unregister(userID int, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.entries[userID]
	if !ok || cur.conn != conn {
		return false
	}
	delete(r.entries, userID)

	r.log.Info("user unregistered", zap.Int("userId", userID))
	return true
}

// Lookup returns the live connection for userID, if any.
func (r *Registry) Lookup(userID int) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[userID]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// Online reports whether userID has a live connection.
func (r *Registry) Online(userID int) bool {
	_, ok := r.Lookup(userID)
	return ok
}

// Send writes v as JSON to userID's connection. A missing connection or a
// failed write is logged and reported; it is never retried.
func (r *Registry) Send(userID int, v any) error {
	r.mu.RLock()
	e, ok := r.entries[userID]
	r.mu.RUnlock()

	if !ok {
		r.log.Debug("no active connection, dropping envelope", zap.Int("userId", userID))
		return ErrNotConnected
	}

	e.mu.Lock()
	err := e.conn.WriteJSON(v)
	e.mu.Unlock()

	if err != nil {
		r.log.Warn("failed to write to connection", zap.Int("userId", userID), zap.Error(err))
		return err
	}
	return nil
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

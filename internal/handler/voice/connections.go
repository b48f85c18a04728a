package voice

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Registry tracks the live client connections so shutdown can close them.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*websocket.Conn
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*websocket.Conn)}
}

// Add registers a connection for a session. A previous connection for the
// same session is closed; one socket per session.
func (r *Registry) Add(sessionID string, conn *websocket.Conn) {
	r.mu.Lock()
	old := r.conns[sessionID]
	r.conns[sessionID] = conn
	r.mu.Unlock()

	if old != nil && old != conn {
		log.Printf("[voice] replacing connection session=%s", sessionID)
		_ = old.Close()
	}
}

// Remove drops the registration if it still points at conn.
func (r *Registry) Remove(sessionID string, conn *websocket.Conn) {
	r.mu.Lock()
	if r.conns[sessionID] == conn {
		delete(r.conns, sessionID)
	}
	r.mu.Unlock()
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll closes every live connection. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for sessionID, conn := range r.conns {
		_ = conn.Close()
		delete(r.conns, sessionID)
	}
}

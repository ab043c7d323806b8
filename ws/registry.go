package ws

import "sync"

// Registry tracks the live realtime sessions of a single server instance.
// It is the sole owner of session handles; nothing in it survives a restart.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Add registers the session as a delivery target.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Remove drops the session with the given id and stops its write pump.
// Removing an unknown or already removed id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	s.close()
}

// Others returns a snapshot of every registered session except the one with
// the given id. Deliveries happening after the snapshot may still race a
// disconnect; the send path tolerates that.
func (r *Registry) Others(excludeID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		if id == excludeID {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

package session

import "sync"

// Registry maps match identifiers to live sessions. It is the only
// shared mutable structure between sessions; lookups never block a
// running tick loop.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session under its id. Returns false when the id is
// already taken.
func (r *Registry) Add(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID()]; exists {
		return false
	}
	r.sessions[s.ID()] = s
	return true
}

// GetOrAdd returns the session registered under the candidate's id,
// registering the candidate when the id is free. The caller always gets
// the session every concurrent caller for that id sees.
func (r *Registry) GetOrAdd(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[s.ID()]; ok {
		return existing
	}
	r.sessions[s.ID()] = s
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

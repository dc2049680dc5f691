package conversation

import "sync"

// Registry holds the live Engine for every active session on this node.
// Engines are memory-only: a process restart loses them, and the service
// layer rebuilds from the persisted session on the next turn.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*Engine
}

// NewRegistry returns an empty engine registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]*Engine)}
}

// Put registers the engine under its session id, replacing any previous one.
func (r *Registry) Put(e *Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.SessionID()] = e
}

// Get returns the engine for the session, or nil when none is registered.
func (r *Registry) Get(sessionID string) *Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engines[sessionID]
}

// Drop removes the session's engine. Safe to call when none is registered.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, sessionID)
}

// DropAll removes the engines for every given session id and reports how many
// were actually registered. Used by the expiry sweep.
func (r *Registry) DropAll(sessionIDs []string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for _, id := range sessionIDs {
		if _, ok := r.engines[id]; ok {
			delete(r.engines, id)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of live engines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}

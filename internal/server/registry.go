package server

import (
	"sync"

	"github.com/rs/zerolog/log"

	"resume-rag/internal/rag"
)

type entry struct {
	session  *rag.Session
	provider string
}

// Registry maps a collection name to the one session serving it, so each
// chatbot keeps its own memory across requests.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]entry)}
}

// Lookup returns the session for collection regardless of provider.
func (r *Registry) Lookup(collection string) (*rag.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[collection]
	return e.session, ok
}

// GetOrCreate returns the session for collection and providerName, calling
// create under the registry lock when there is none. A session for another
// provider is closed once its replacement exists.
func (r *Registry) GetOrCreate(collection, providerName string, create func() (*rag.Session, error)) (*rag.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.sessions[collection]
	if ok && old.provider == providerName {
		return old.session, nil
	}
	sess, err := create()
	if err != nil {
		return nil, err
	}
	r.sessions[collection] = entry{session: sess, provider: providerName}
	if ok {
		closeSession(collection, old)
	}
	return sess, nil
}

// Move re-keys the session stored under from.
func (r *Registry) Move(from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[from]; ok {
		delete(r.sessions, from)
		r.sessions[to] = e
	}
}

// Delete forgets and closes the session for collection.
func (r *Registry) Delete(collection string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[collection]; ok {
		delete(r.sessions, collection)
		closeSession(collection, e)
	}
}

// Close closes and forgets every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, e := range r.sessions {
		closeSession(name, e)
	}
	r.sessions = make(map[string]entry)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func closeSession(collection string, e entry) {
	if err := e.session.Close(); err != nil {
		log.Warn().Err(err).Str("collection", collection).Str("provider", e.provider).Msg("Failed to close session")
	}
}

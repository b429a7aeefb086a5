package relay

import (
	"sync"

	"github.com/google/uuid"
	customlog "github.com/srivas-saksham/SpatialParallax/pkg/log"
)

// Registry is the single source of truth for live sessions, keyed by the
// generated client ID. All operations are safe under concurrent use from
// independent connection handlers.
type Registry struct {
	logger   customlog.Logger
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(logger customlog.Logger) *Registry {
	return &Registry{
		logger:   logger,
		sessions: make(map[string]*Session),
		mu:       sync.RWMutex{},
	}
}

// Register assigns the session a fresh client ID and makes it visible to
// broadcasts if it is a viewer. Returns the assigned ID.
func (r *Registry) Register(s *Session) string {
	id := uuid.NewString()

	r.mu.Lock()
	s.ID = id
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Infof("Registered %s session %s (%s)", s.Role, id, s.Remote)
	return id
}

// Unregister removes the session for the given client ID. Unknown IDs are a
// no-op, so double-unregister on racing close paths is harmless.
func (r *Registry) Unregister(clientID string) {
	r.mu.Lock()
	s, exists := r.sessions[clientID]
	if exists {
		delete(r.sessions, clientID)
	}
	r.mu.Unlock()

	if exists {
		r.logger.Infof("Unregistered %s session %s (%s)", s.Role, clientID, s.Remote)
	}
}

// Get returns the session for a client ID.
func (r *Registry) Get(clientID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[clientID]
	return s, exists
}

// Viewers returns a snapshot of the currently registered viewer sessions.
// A viewer disconnecting mid-broadcast only affects its own delivery.
func (r *Registry) Viewers() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	viewers := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.Role == RoleViewer {
			viewers = append(viewers, s)
		}
	}
	return viewers
}

// Counts returns the number of active sessions by role.
func (r *Registry) Counts() (senders, viewers int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		switch s.Role {
		case RoleSender:
			senders++
		case RoleViewer:
			viewers++
		}
	}
	return senders, viewers
}

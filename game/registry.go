package game

import (
	"context"
	"sync"

	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/logging"
	"go.uber.org/zap"
)

// RecordStore removes persisted session records. Implemented by the session
// store.
type RecordStore interface {
	// DeleteSessionRecord deletes the persisted record of the session with the
	// given id.
	DeleteSessionRecord(ctx context.Context, sessionID string) error
}

// Registry holds all live sessions keyed by id.
type Registry struct {
	m        sync.RWMutex
	sessions map[string]*Session
	records  RecordStore
	logger   *zap.Logger
}

// NewRegistry creates an empty Registry. The records store may be nil when no
// persistence is wired, Remove then only drops the in-memory session.
func NewRegistry(records RecordStore) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		records:  records,
		logger:   logging.GameLogger,
	}
}

// Add adds the given session and reports whether it was added. A session with
// an already known id is not added.
func (r *Registry) Add(session *Session) bool {
	r.m.Lock()
	defer r.m.Unlock()
	if _, ok := r.sessions[session.ID()]; ok {
		return false
	}
	r.sessions[session.ID()] = session
	r.logger.Info("session registered", zap.String("session_id", session.ID()))
	return true
}

// Remove removes the session with the given id and deletes its persisted
// record.
func (r *Registry) Remove(ctx context.Context, sessionID string) error {
	r.m.Lock()
	_, ok := r.sessions[sessionID]
	if !ok {
		r.m.Unlock()
		return errors.NewResourceNotFoundError("session not found",
			errors.Details{"session_id": sessionID})
	}
	delete(r.sessions, sessionID)
	r.m.Unlock()
	if r.records != nil {
		err := r.records.DeleteSessionRecord(ctx, sessionID)
		if err != nil {
			return errors.Wrap(err, "delete session record",
				errors.Details{"session_id": sessionID})
		}
	}
	r.logger.Info("session removed", zap.String("session_id", sessionID))
	return nil
}

// ByID returns the session with the given id.
func (r *Registry) ByID(sessionID string) (*Session, bool) {
	r.m.RLock()
	defer r.m.RUnlock()
	session, ok := r.sessions[sessionID]
	return session, ok
}

// ByParticipant returns the session the player with the given identity
// currently participates in. Sessions are scanned linearly which is fine for
// the expected low session count.
func (r *Registry) ByParticipant(identity string) (*Session, bool) {
	r.m.RLock()
	defer r.m.RUnlock()
	for _, session := range r.sessions {
		if session.HasParticipant(identity) {
			return session, true
		}
	}
	return nil, false
}

// All returns all registered sessions in no particular order.
func (r *Registry) All() []*Session {
	r.m.RLock()
	defer r.m.RUnlock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// IdentitiesBySession returns the participant identities of the session with
// the given id. Unknown sessions yield an empty list.
func (r *Registry) IdentitiesBySession(sessionID string) []string {
	session, ok := r.ByID(sessionID)
	if !ok {
		return nil
	}
	return session.ParticipantIdentities()
}

package web_server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/game"
	"github.com/lefinal/dodgeball-server/logging"
	"github.com/lefinal/dodgeball-server/worlds"
)

// EnabledStore persists the enabled flag of a session. Implemented by
// stores.Mall.
type EnabledStore interface {
	// SetSessionRecordEnabled updates the persisted enabled flag.
	SetSessionRecordEnabled(ctx context.Context, sessionID string, enabled bool) error
}

type apiHandlers struct {
	registry *game.Registry
	// enabledStore may be nil when no persistence is wired.
	enabledStore EnabledStore
	// provisioner may be nil when no world provisioning is wired.
	provisioner worlds.Provisioner
}

// sessionSummary is the list representation of a session.
type sessionSummary struct {
	ID               string     `json:"id"`
	State            game.State `json:"state"`
	Enabled          bool       `json:"enabled"`
	ArenaRef         string     `json:"arena_ref"`
	ParticipantCount int        `json:"participant_count"`
}

// sessionDetails is the full representation of a session.
type sessionDetails struct {
	sessionSummary
	CountdownSeconds int                `json:"countdown_seconds"`
	Participants     []game.Participant `json:"participants"`
	Teams            []game.TeamInfo    `json:"teams"`
}

func summarize(session *game.Session) sessionSummary {
	return sessionSummary{
		ID:               session.ID(),
		State:            session.State(),
		Enabled:          session.Enabled(),
		ArenaRef:         session.ArenaRef(),
		ParticipantCount: session.ParticipantCount(),
	}
}

func (h apiHandlers) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := h.registry.All()
	summaries := make([]sessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, summarize(session))
	}
	respondJSON(w, http.StatusOK, summaries)
}

func (h apiHandlers) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.registry.ByID(mux.Vars(r)["sessionID"])
	if !ok {
		respondError(w, errors.NewResourceNotFoundError("session not found", nil))
		return
	}
	respondJSON(w, http.StatusOK, sessionDetails{
		sessionSummary:   summarize(session),
		CountdownSeconds: session.CountdownSeconds(),
		Participants:     session.Participants(),
		Teams:            session.Teams(),
	})
}

// handleDeleteSession removes the session and tears down its arena world.
// Remaining participants leave the session first so the host is told about
// them before the world goes away.
func (h apiHandlers) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.registry.ByID(mux.Vars(r)["sessionID"])
	if !ok {
		respondError(w, errors.NewResourceNotFoundError("session not found", nil))
		return
	}
	for _, identity := range session.ParticipantIdentities() {
		if err := session.Leave(identity); err != nil {
			errors.Log(logging.WebServerLogger, errors.Wrap(err, "remove participant from deleted session",
				errors.Details{"session_id": session.ID(), "identity": identity}))
		}
	}
	err := h.registry.Remove(r.Context(), session.ID())
	if err != nil {
		respondError(w, err)
		return
	}
	if h.provisioner != nil && session.ArenaRef() != "" {
		h.provisioner.DestroyArena(session.ArenaRef())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h apiHandlers) handleSetSessionEnabled(w http.ResponseWriter, r *http.Request) {
	session, ok := h.registry.ByID(mux.Vars(r)["sessionID"])
	if !ok {
		respondError(w, errors.NewResourceNotFoundError("session not found", nil))
		return
	}
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindDecodeJSON,
			Err:     err,
			Message: "decode request body",
		})
		return
	}
	session.SetEnabled(body.Enabled)
	if h.enabledStore != nil {
		err := h.enabledStore.SetSessionRecordEnabled(r.Context(), session.ID(), body.Enabled)
		if err != nil {
			respondError(w, errors.Wrap(err, "persist enabled flag", nil))
			return
		}
	}
	respondJSON(w, http.StatusOK, summarize(session))
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		errors.Log(logging.WebServerLogger, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindEncodeJSON,
			Err:     err,
			Message: "encode response",
		})
	}
}

func respondError(w http.ResponseWriter, err error) {
	e, _ := errors.Cast(err)
	status := http.StatusInternalServerError
	switch e.Code {
	case errors.ErrBadRequest:
		status = http.StatusBadRequest
	case errors.ErrNotFound:
		status = http.StatusNotFound
	}
	if !errors.BlameUser(err) {
		errors.Log(logging.WebServerLogger, err)
	}
	respondJSON(w, status, map[string]string{
		"kind":    string(e.Kind),
		"message": e.Message,
	})
}

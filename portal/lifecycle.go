package portal

import (
	"context"

	"github.com/lefinal/dodgeball-server/event"
	"github.com/lefinal/dodgeball-server/game"
)

// SessionAnnouncer publishes committed session state transitions to
// TopicSessionState.
type SessionAnnouncer struct {
	portal Portal
}

// NewSessionAnnouncer creates a SessionAnnouncer publishing via the given
// Portal.
func NewSessionAnnouncer(portal Portal) *SessionAnnouncer {
	return &SessionAnnouncer{portal: portal}
}

// Listener returns the game.TransitionListener to register with sessions.
func (a *SessionAnnouncer) Listener() game.TransitionListener {
	return func(sessionID string, from game.State, to game.State) {
		a.portal.Publish(context.Background(), TopicSessionState, event.SessionStateChangedPayload{
			SessionID: sessionID,
			From:      from,
			To:        to,
		})
	}
}

// ParticipantJoined implements game.SessionObserver.
func (a *SessionAnnouncer) ParticipantJoined(sessionID string, identity string) {
	a.portal.Publish(context.Background(), TopicSessionJoins, event.ParticipantEventPayload{
		SessionID: sessionID,
		Identity:  identity,
	})
}

// ParticipantLeft implements game.SessionObserver.
func (a *SessionAnnouncer) ParticipantLeft(sessionID string, identity string) {
	a.portal.Publish(context.Background(), TopicSessionLeaves, event.ParticipantEventPayload{
		SessionID: sessionID,
		Identity:  identity,
	})
}

// ParticipantEliminated implements game.SessionObserver.
func (a *SessionAnnouncer) ParticipantEliminated(sessionID string, shooterIdentity string,
	targetIdentity string) {
	a.portal.Publish(context.Background(), TopicSessionEliminations, event.EliminationEventPayload{
		SessionID: sessionID,
		Shooter:   shooterIdentity,
		Target:    targetIdentity,
	})
}

// RoundWon implements game.SessionObserver.
func (a *SessionAnnouncer) RoundWon(sessionID string, teamID string) {
	a.portal.Publish(context.Background(), TopicSessionWinners, event.RoundWonPayload{
		SessionID: sessionID,
		TeamID:    teamID,
	})
}

// AnnounceError publishes the given error to TopicServerErrors so external
// integrations can alert on it. Internal errors are masked.
func (a *SessionAnnouncer) AnnounceError(ctx context.Context, err error) {
	a.portal.Publish(ctx, TopicServerErrors, event.ErrorEventPayloadFromError(err))
}

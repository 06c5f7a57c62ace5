// Provide basic event payload functionality for MQTT traffic.

package event

import (
	"github.com/eclipse/paho.golang/paho"
	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/game"
)

type Event[T any] struct {
	Publish *paho.Publish
	Payload T
}

// SessionStateChangedPayload announces a committed session state transition.
type SessionStateChangedPayload struct {
	// SessionID of the affected session.
	SessionID string `json:"session_id"`
	// From is the previous state.
	From game.State `json:"from"`
	// To is the new state.
	To game.State `json:"to"`
}

// ParticipantEventPayload announces a player joining or leaving a session.
type ParticipantEventPayload struct {
	// SessionID of the affected session.
	SessionID string `json:"session_id"`
	// Identity of the player.
	Identity string `json:"identity"`
}

// EliminationEventPayload announces an elimination during an active round.
type EliminationEventPayload struct {
	// SessionID of the affected session.
	SessionID string `json:"session_id"`
	// Shooter is the identity of the eliminating player.
	Shooter string `json:"shooter"`
	// Target is the identity of the eliminated player.
	Target string `json:"target"`
}

// RoundWonPayload announces the winning team of a finished round.
type RoundWonPayload struct {
	// SessionID of the affected session.
	SessionID string `json:"session_id"`
	// TeamID of the winning team.
	TeamID string `json:"team_id"`
}

// ErrorEventPayload is used for errors that need to be published.
type ErrorEventPayload struct {
	// Code is the error code from errors.Error.
	Code string `json:"code"`
	// Err is the error from errors.Error.
	Err string `json:"err"`
	// Message is the message from errors.Error.
	Message string `json:"message"`
	// Details are error details from errors.Error.
	Details map[string]interface{} `json:"details"`
}

// ErrorEventPayloadFromError creates an ErrorEventPayload from the given
// error.
func ErrorEventPayloadFromError(err error) ErrorEventPayload {
	e, _ := errors.Cast(err)
	if !errors.BlameUser(err) {
		return ErrorEventPayload{
			Code:    string(e.Code),
			Message: "internal server error",
		}
	}
	return ErrorEventPayload{
		Code:    string(e.Code),
		Err:     e.Error(),
		Message: e.Message,
		Details: e.Details,
	}
}

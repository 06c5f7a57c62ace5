// Package game implements the dodgeball session state machine including team
// assignment, elimination tracking, countdown handling and win detection.
package game

// State is the lifecycle state of a Session.
type State string

const (
	// StateSetup is used while an admin is still configuring the session. The
	// session does not accept joins.
	StateSetup State = "setup"
	// StatePreWaiting is used when the session idles below the join threshold.
	StatePreWaiting State = "pre-waiting"
	// StateWaiting is used when enough participants have joined and the
	// countdown runs.
	StateWaiting State = "waiting"
	// StateActive is used while a round is being played.
	StateActive State = "active"
	// StateEnd is used when a round has finished and the session awaits its
	// reset.
	StateEnd State = "end"
)

// IsWaiting reports whether the state is one of the two waiting states in
// which participants idle in the lobby.
func (s State) IsWaiting() bool {
	return s == StatePreWaiting || s == StateWaiting
}

// TransitionGuard is asked before a state transition commits. Returning false
// rejects the transition and leaves the session state unchanged. Guards are
// evaluated in registration order and must not call back into the session.
type TransitionGuard func(sessionID string, from State, to State) bool

// TransitionListener is called after a state transition has committed.
type TransitionListener func(sessionID string, from State, to State)

// SessionObserver receives round events after they have been applied. Calls
// happen outside the session lock so observers may perform blocking work but
// must not assume the session still is in the observed state.
type SessionObserver interface {
	// ParticipantJoined is called when a player joined the session.
	ParticipantJoined(sessionID string, identity string)
	// ParticipantLeft is called when a player left the session.
	ParticipantLeft(sessionID string, identity string)
	// ParticipantEliminated is called when the target was eliminated by the
	// shooter.
	ParticipantEliminated(sessionID string, shooterIdentity string, targetIdentity string)
	// RoundWon is called when a round ended with the given team as winner.
	RoundWon(sessionID string, teamID string)
}

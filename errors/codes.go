package errors

type Code string

const (
	ErrAborted       Code = "aborted"
	ErrBadRequest    Code = "bad-request"
	ErrCommunication Code = "communication"
	ErrFatal         Code = "fatal"
	ErrNotFound      Code = "not-found"
	ErrInternal      Code = "internal"
	ErrUnexpected    Code = "unexpected"
)

type Kind string

const (
	// KindAlreadyEliminated is used when an elimination is recorded for a
	// participant that no longer holds an alive-roster slot.
	KindAlreadyEliminated Kind = "already-eliminated"
	// KindContextAborted is used when we were currently performing an operation
	// but the context got aborted.
	KindContextAborted Kind = "context-aborted"
	KindDB             Kind = "db"
	// KindDBRollback is used when rolling back a transaction fails.
	KindDBRollback Kind = "db-rollback"
	KindDecodeJSON Kind = "parse-request-body-as-json"
	KindEncodeJSON Kind = "encode-json"
	// KindMalformedLocation is used when a persisted location string cannot be
	// parsed.
	KindMalformedLocation Kind = "malformed-location"
	// KindMalformedID is used when a passed ID is not in uuid.UUID format.
	KindMalformedID Kind = "malformed-id"
	// KindMaxTeamsReached is used when a playable team is added to a session
	// that already has the full set of playable teams.
	KindMaxTeamsReached Kind = "max-teams-reached"
	// KindPlayerAlreadyJoined is used when a player wants to join a session but
	// has already joined.
	KindPlayerAlreadyJoined Kind = "player-already-joined"
	// KindPlayerNotJoined is used when a player has not joined the session.
	KindPlayerNotJoined  Kind = "player-not-joined"
	KindResourceNotFound Kind = "resource-not-found"
	// KindReservedTeam is used when a reserved team is targeted by an operation
	// that only applies to custom teams.
	KindReservedTeam Kind = "reserved-team"
	// KindSessionAlreadyExists is used when a session is created under an id
	// that is already taken.
	KindSessionAlreadyExists Kind = "session-already-exists"
	// KindSessionDisabled is used when a join is requested for a session that
	// does not accept joins.
	KindSessionDisabled Kind = "session-disabled"
	// KindSetupActive is used when an admin starts a setup while already having
	// an active one.
	KindSetupActive Kind = "setup-active"
	// KindSetupIncomplete is used when completing a session setup fails its
	// checklist. The failed checks are found in the error details.
	KindSetupIncomplete Kind = "setup-incomplete"
	// KindShouldNotHappen is used for checks that are expected to be
	// unreachable.
	KindShouldNotHappen Kind = "should-not-happen"
	// KindTeamAlreadyExists is used when a team is added under an id that is
	// already taken within the session.
	KindTeamAlreadyExists Kind = "team-already-exists"
	// KindTeamNotFound is used when a team is requested by an unknown id.
	KindTeamNotFound Kind = "team-not-found"
	// KindTransitionVetoed is used when a requested state transition was
	// rejected by a transition guard.
	KindTransitionVetoed Kind = "transition-vetoed"
	KindUnexpected       Kind = "unexpected"
	// KindUnknown is used for different unknown type values that are too
	// special for creating separate error kinds.
	KindUnknown Kind = "unknown"
	// KindWorldProvisioning is used when creating or deleting an arena world
	// fails.
	KindWorldProvisioning Kind = "world-provisioning"
	// KindWrongState is used for operations that were performed although the
	// session is not in the expected state.
	KindWrongState Kind = "wrong-state"
)

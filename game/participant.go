package game

// Participant is the membership record of a player within one Session. It is
// created on join and dropped on leave. The counters only ever increase for
// the lifetime of the membership.
type Participant struct {
	// Identity is the stable external player id.
	Identity string
	// TeamID is the id of the team the participant currently belongs to.
	// Defaults to TeamIDNone until the round split assigns a playable team.
	TeamID string
	// BallsThrown counts thrown balls.
	BallsThrown int
	// Hits counts successful hits on opponents.
	Hits int
}

func newParticipant(identity string) *Participant {
	return &Participant{
		Identity: identity,
		TeamID:   TeamIDNone,
	}
}

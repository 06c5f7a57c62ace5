package game

import (
	"github.com/lefinal/dodgeball-server/arena"
)

// Reserved team ids that exist in every session and are never playable.
const (
	// TeamIDNone holds participants that have not been assigned yet.
	TeamIDNone = "none"
	// TeamIDSpectator holds eliminated participants.
	TeamIDSpectator = "spectator"
)

// MaxPlayableTeams is the number of playable teams a session holds.
const MaxPlayableTeams = 2

// Team is a team within a Session. Identity and presentation metadata are
// immutable. The area is set during session setup and the alive roster is
// mutated while a round runs. Teams are not safe for concurrent use on their
// own, the owning Session serializes access.
type Team struct {
	// ID identifies the team within its session.
	ID string
	// DisplayName is shown to participants.
	DisplayName string
	// ChatPrefix is prepended to chat messages of team members.
	ChatPrefix string
	// ColorID selects the presentation color.
	ColorID string
	// Playable determines whether the team takes part in rounds. False for the
	// reserved teams.
	Playable bool
	// Area is the part of the arena the team plays in.
	Area arena.AreaPair

	aliveRoster map[string]struct{}
}

// NewTeam creates a Team with an empty alive roster.
func NewTeam(id string, displayName string, chatPrefix string, colorID string, playable bool) *Team {
	return &Team{
		ID:          id,
		DisplayName: displayName,
		ChatPrefix:  chatPrefix,
		ColorID:     colorID,
		Playable:    playable,
		aliveRoster: make(map[string]struct{}),
	}
}

// AddAlive adds the given participant identity to the alive roster.
func (t *Team) AddAlive(identity string) {
	t.aliveRoster[identity] = struct{}{}
}

// RemoveAlive removes the given participant identity from the alive roster
// and reports whether it held a slot. Removing an identity twice is a no-op
// that reports false.
func (t *Team) RemoveAlive(identity string) bool {
	if _, ok := t.aliveRoster[identity]; !ok {
		return false
	}
	delete(t.aliveRoster, identity)
	return true
}

// IsAlive reports whether the given participant identity holds an
// alive-roster slot.
func (t *Team) IsAlive(identity string) bool {
	_, ok := t.aliveRoster[identity]
	return ok
}

// AliveCount returns the size of the alive roster.
func (t *Team) AliveCount() int {
	return len(t.aliveRoster)
}

// Alive returns the identities on the alive roster in no particular order.
func (t *Team) Alive() []string {
	alive := make([]string, 0, len(t.aliveRoster))
	for identity := range t.aliveRoster {
		alive = append(alive, identity)
	}
	return alive
}

// ClearAlive empties the alive roster.
func (t *Team) ClearAlive() {
	t.aliveRoster = make(map[string]struct{})
}

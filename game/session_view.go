package game

import "github.com/lefinal/dodgeball-server/arena"

// TeamInfo is a read-only snapshot of a team.
type TeamInfo struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	ChatPrefix  string         `json:"chat_prefix"`
	ColorID     string         `json:"color_id"`
	Playable    bool           `json:"playable"`
	Area        arena.AreaPair `json:"-"`
	Alive       []string       `json:"alive"`
}

// Teams returns snapshots of all teams in insertion order.
func (s *Session) Teams() []TeamInfo {
	s.m.RLock()
	defer s.m.RUnlock()
	teams := make([]TeamInfo, 0, len(s.teams))
	for _, team := range s.teams {
		teams = append(teams, TeamInfo{
			ID:          team.ID,
			DisplayName: team.DisplayName,
			ChatPrefix:  team.ChatPrefix,
			ColorID:     team.ColorID,
			Playable:    team.Playable,
			Area:        team.Area,
			Alive:       team.Alive(),
		})
	}
	return teams
}

// TeamInfoByID returns the snapshot of the team with the given id.
func (s *Session) TeamInfoByID(id string) (TeamInfo, bool) {
	for _, team := range s.Teams() {
		if team.ID == id {
			return team, true
		}
	}
	return TeamInfo{}, false
}

// Participants returns snapshots of all participants in join order.
func (s *Session) Participants() []Participant {
	s.m.RLock()
	defer s.m.RUnlock()
	participants := make([]Participant, 0, len(s.participants))
	for _, p := range s.participants {
		participants = append(participants, *p)
	}
	return participants
}

// ParticipantByIdentity returns the snapshot of the participant with the
// given identity.
func (s *Session) ParticipantByIdentity(identity string) (Participant, bool) {
	s.m.RLock()
	defer s.m.RUnlock()
	p := s.participantByIdentityLocked(identity)
	if p == nil {
		return Participant{}, false
	}
	return *p, true
}

// HasParticipant reports whether the player with the given identity is a
// participant.
func (s *Session) HasParticipant(identity string) bool {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.participantByIdentityLocked(identity) != nil
}

// ParticipantCount returns the number of participants.
func (s *Session) ParticipantCount() int {
	s.m.RLock()
	defer s.m.RUnlock()
	return len(s.participants)
}

// ParticipantIdentities returns the identities of all participants in join
// order.
func (s *Session) ParticipantIdentities() []string {
	s.m.RLock()
	defer s.m.RUnlock()
	identities := make([]string, 0, len(s.participants))
	for _, p := range s.participants {
		identities = append(identities, p.Identity)
	}
	return identities
}

package game

import (
	"github.com/lefinal/dodgeball-server/arena"
	"github.com/lefinal/dodgeball-server/errors"
)

// Setup failure reasons as reported by CompleteSetup in the error details.
const (
	SetupCheckLobbySpawn    = "lobby-spawn-not-set"
	SetupCheckArenaRef      = "arena-not-set"
	SetupCheckPlayableTeams = "playable-teams-incomplete"
	SetupCheckTeamArea      = "team-area-incomplete"
)

// AddTeam adds the given team to the session. Only allowed during setup. The
// team id must be unique within the session and no more than MaxPlayableTeams
// playable teams may exist.
func (s *Session) AddTeam(team *Team) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.state != StateSetup {
		return errors.NewWrongStateError("add team", string(s.state),
			errors.Details{"session_id": s.id, "team_id": team.ID})
	}
	if s.teamByIDLocked(team.ID) != nil {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindTeamAlreadyExists,
			Message: "team already exists",
			Details: errors.Details{"session_id": s.id, "team_id": team.ID},
		}
	}
	if team.Playable && len(s.playableTeamsLocked()) >= MaxPlayableTeams {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindMaxTeamsReached,
			Message: "max playable teams reached",
			Details: errors.Details{"session_id": s.id, "team_id": team.ID, "max": MaxPlayableTeams},
		}
	}
	s.teams = append(s.teams, team)
	return nil
}

// RemoveTeam removes the team with the given id from the session. Only
// allowed during setup. The reserved teams cannot be removed.
func (s *Session) RemoveTeam(teamID string) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.state != StateSetup {
		return errors.NewWrongStateError("remove team", string(s.state),
			errors.Details{"session_id": s.id, "team_id": teamID})
	}
	if teamID == TeamIDNone || teamID == TeamIDSpectator {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindReservedTeam,
			Message: "reserved teams cannot be removed",
			Details: errors.Details{"session_id": s.id, "team_id": teamID},
		}
	}
	for i, team := range s.teams {
		if team.ID == teamID {
			s.teams = append(s.teams[:i], s.teams[i+1:]...)
			return nil
		}
	}
	return errors.NewTeamNotFoundError(teamID)
}

// SetTeamPositionOne sets the first corner of the given team's area. Only
// allowed during setup.
func (s *Session) SetTeamPositionOne(teamID string, l arena.Location) error {
	return s.setTeamPosition(teamID, l, true)
}

// SetTeamPositionTwo sets the second corner of the given team's area. Only
// allowed during setup.
func (s *Session) SetTeamPositionTwo(teamID string, l arena.Location) error {
	return s.setTeamPosition(teamID, l, false)
}

func (s *Session) setTeamPosition(teamID string, l arena.Location, first bool) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.state != StateSetup {
		return errors.NewWrongStateError("set team position", string(s.state),
			errors.Details{"session_id": s.id, "team_id": teamID})
	}
	team := s.teamByIDLocked(teamID)
	if team == nil {
		return errors.NewTeamNotFoundError(teamID)
	}
	if first {
		team.Area.SetPositionOne(l)
	} else {
		team.Area.SetPositionTwo(l)
	}
	return nil
}

// CompleteSetup checks the setup checklist and moves the session to the
// pre-waiting state. Failed checks are reported in the error details so an
// admin knows what is missing. The session stays disabled until SetEnabled is
// called.
func (s *Session) CompleteSetup() error {
	s.m.Lock()
	if s.state != StateSetup {
		s.m.Unlock()
		return errors.NewWrongStateError("complete setup", string(s.state),
			errors.Details{"session_id": s.id})
	}
	failed := make([]string, 0)
	if !s.lobbySpawnSet {
		failed = append(failed, SetupCheckLobbySpawn)
	}
	if s.arenaRef == "" {
		failed = append(failed, SetupCheckArenaRef)
	}
	playable := s.playableTeamsLocked()
	if len(playable) != MaxPlayableTeams {
		failed = append(failed, SetupCheckPlayableTeams)
	}
	for _, team := range playable {
		if !team.Area.BothSet() {
			failed = append(failed, SetupCheckTeamArea+":"+team.ID)
		}
	}
	if len(failed) > 0 {
		s.m.Unlock()
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindSetupIncomplete,
			Message: "setup incomplete",
			Details: errors.Details{"session_id": s.id, "failed_checks": failed},
		}
	}
	from, ok := s.transitionLocked(StatePreWaiting)
	s.m.Unlock()
	if !ok {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindTransitionVetoed,
			Message: "setup completion vetoed",
			Details: errors.Details{"session_id": s.id},
		}
	}
	s.announce([]transition{{from: from, to: StatePreWaiting}})
	return nil
}

package stores

import (
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/dodgeball-server/arena"
	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/game"
)

// RecordFromSession builds the persistable record of the given session. The
// reserved teams are not part of the record as every session recreates them
// itself.
func RecordFromSession(s *game.Session) SessionRecord {
	record := SessionRecord{
		ID:       s.ID(),
		Enabled:  s.Enabled(),
		ArenaRef: s.ArenaRef(),
		Teams:    make([]TeamRecord, 0),
	}
	if lobbySpawn, ok := s.LobbySpawn(); ok {
		record.LobbySpawn = nulls.NewString(lobbySpawn.String())
	}
	for _, team := range s.Teams() {
		if team.ID == game.TeamIDNone || team.ID == game.TeamIDSpectator {
			continue
		}
		teamRecord := TeamRecord{
			ID:          team.ID,
			DisplayName: team.DisplayName,
			ChatPrefix:  team.ChatPrefix,
			ColorID:     team.ColorID,
			Playable:    team.Playable,
		}
		if positionOne, ok := team.Area.PositionOne(); ok {
			teamRecord.PositionOne = nulls.NewString(positionOne.String())
		}
		if positionTwo, ok := team.Area.PositionTwo(); ok {
			teamRecord.PositionTwo = nulls.NewString(positionTwo.String())
		}
		record.Teams = append(record.Teams, teamRecord)
	}
	return record
}

// SessionFromRecord rebuilds a session from the given record. The session is
// returned in setup state with the enabled flag still unset so the caller can
// complete setup and enable it once the arena world is available. Malformed
// encoded locations fail the load of this record only.
func SessionFromRecord(record SessionRecord, cfg game.Config, deps game.Dependencies) (*game.Session, error) {
	s := game.NewSession(record.ID, cfg, deps)
	s.SetArenaRef(record.ArenaRef)
	if record.LobbySpawn.Valid {
		lobbySpawn, err := arena.ParseLocation(record.LobbySpawn.String)
		if err != nil {
			return nil, errors.Wrap(err, "parse lobby spawn", errors.Details{"session": record.ID})
		}
		s.SetLobbySpawn(lobbySpawn)
	}
	for _, teamRecord := range record.Teams {
		team := game.NewTeam(teamRecord.ID, teamRecord.DisplayName, teamRecord.ChatPrefix,
			teamRecord.ColorID, teamRecord.Playable)
		err := s.AddTeam(team)
		if err != nil {
			return nil, errors.Wrap(err, "add team", errors.Details{"team": teamRecord.ID})
		}
		if teamRecord.PositionOne.Valid {
			positionOne, err := arena.ParseLocation(teamRecord.PositionOne.String)
			if err != nil {
				return nil, errors.Wrap(err, "parse first area corner", errors.Details{"team": teamRecord.ID})
			}
			err = s.SetTeamPositionOne(team.ID, positionOne)
			if err != nil {
				return nil, errors.Wrap(err, "set first area corner", errors.Details{"team": teamRecord.ID})
			}
		}
		if teamRecord.PositionTwo.Valid {
			positionTwo, err := arena.ParseLocation(teamRecord.PositionTwo.String)
			if err != nil {
				return nil, errors.Wrap(err, "parse second area corner", errors.Details{"team": teamRecord.ID})
			}
			err = s.SetTeamPositionTwo(team.ID, positionTwo)
			if err != nil {
				return nil, errors.Wrap(err, "set second area corner", errors.Details{"team": teamRecord.ID})
			}
		}
	}
	return s, nil
}

package stores

import (
	"testing"

	"github.com/gobuffalo/nulls"
	"github.com/lefinal/dodgeball-server/arena"
	"github.com/lefinal/dodgeball-server/game"
	"github.com/lefinal/dodgeball-server/notify"
	"github.com/stretchr/testify/suite"
)

// MappingSuite covers building records from sessions and rebuilding sessions
// from records.
type MappingSuite struct {
	suite.Suite
	deps game.Dependencies
}

func (suite *MappingSuite) SetupTest() {
	suite.deps = game.Dependencies{Notifier: notify.NewRecorder()}
}

func (suite *MappingSuite) buildSession() *game.Session {
	s := game.NewSession("s1", game.DefaultConfig(), suite.deps)
	s.SetArenaRef("arena_s1")
	s.SetLobbySpawn(arena.NewLocation("lobby", 0, 64, 0))
	red := game.NewTeam("red", "Red", "[R]", "red", true)
	suite.Require().NoError(s.AddTeam(red), "adding the red team should not fail")
	suite.Require().NoError(s.SetTeamPositionOne("red", arena.NewLocation("arena_s1", 0, 64, 0)),
		"setting the first red corner should not fail")
	suite.Require().NoError(s.SetTeamPositionTwo("red", arena.NewLocation("arena_s1", 15, 64, 15)),
		"setting the second red corner should not fail")
	blue := game.NewTeam("blue", "Blue", "[B]", "blue", true)
	suite.Require().NoError(s.AddTeam(blue), "adding the blue team should not fail")
	suite.Require().NoError(s.SetTeamPositionOne("blue", arena.NewLocation("arena_s1", 20, 64, 0)),
		"setting the first blue corner should not fail")
	suite.Require().NoError(s.SetTeamPositionTwo("blue", arena.NewLocation("arena_s1", 35, 64, 15)),
		"setting the second blue corner should not fail")
	s.SetEnabled(true)
	return s
}

func (suite *MappingSuite) TestRecordFromSession() {
	s := suite.buildSession()
	record := RecordFromSession(s)
	suite.Equal("s1", record.ID, "record should carry the session id")
	suite.True(record.Enabled, "record should carry the enabled flag")
	suite.Equal("arena_s1", record.ArenaRef, "record should carry the arena reference")
	suite.True(record.LobbySpawn.Valid, "record should carry the lobby spawn")
	suite.Len(record.Teams, 2, "record should only carry the custom teams")
	suite.Equal("red", record.Teams[0].ID, "record should keep the team creation order")
	suite.Equal("blue", record.Teams[1].ID, "record should keep the team creation order")
	suite.True(record.Teams[0].PositionOne.Valid, "record should carry the first corner")
	suite.True(record.Teams[0].PositionTwo.Valid, "record should carry the second corner")
}

func (suite *MappingSuite) TestRecordFromSessionIncompleteSetup() {
	s := game.NewSession("s2", game.DefaultConfig(), suite.deps)
	red := game.NewTeam("red", "Red", "[R]", "red", true)
	suite.Require().NoError(s.AddTeam(red), "adding the red team should not fail")
	record := RecordFromSession(s)
	suite.False(record.LobbySpawn.Valid, "record should not invent a lobby spawn")
	suite.Require().Len(record.Teams, 1, "record should carry the custom team")
	suite.False(record.Teams[0].PositionOne.Valid, "record should not invent an area corner")
	suite.False(record.Teams[0].PositionTwo.Valid, "record should not invent an area corner")
}

func (suite *MappingSuite) TestRoundTrip() {
	original := suite.buildSession()
	record := RecordFromSession(original)
	rebuilt, err := SessionFromRecord(record, game.DefaultConfig(), suite.deps)
	suite.Require().NoError(err, "rebuilding from the record should not fail")
	suite.Equal(game.StateSetup, rebuilt.State(), "rebuilt session should start in setup")
	suite.Equal(original.ArenaRef(), rebuilt.ArenaRef(), "arena reference should survive the round trip")
	originalSpawn, _ := original.LobbySpawn()
	rebuiltSpawn, ok := rebuilt.LobbySpawn()
	suite.Require().True(ok, "lobby spawn should survive the round trip")
	suite.Equal(originalSpawn, rebuiltSpawn, "lobby spawn should survive the round trip")
	suite.Equal(RecordFromSession(original).Teams, RecordFromSession(rebuilt).Teams,
		"teams should survive the round trip")
	suite.NoError(rebuilt.CompleteSetup(), "rebuilt session should pass the setup checklist")
}

func (suite *MappingSuite) TestMalformedLobbySpawn() {
	record := SessionRecord{
		ID:         "s3",
		ArenaRef:   "arena_s3",
		LobbySpawn: nulls.NewString("lobby,not-a-number,64,0"),
	}
	_, err := SessionFromRecord(record, game.DefaultConfig(), suite.deps)
	suite.Error(err, "a malformed lobby spawn should fail the load")
}

func (suite *MappingSuite) TestMalformedAreaCorner() {
	record := SessionRecord{
		ID:       "s4",
		ArenaRef: "arena_s4",
		Teams: []TeamRecord{
			{
				ID:          "red",
				DisplayName: "Red",
				Playable:    true,
				PositionOne: nulls.NewString("broken"),
			},
		},
	}
	_, err := SessionFromRecord(record, game.DefaultConfig(), suite.deps)
	suite.Error(err, "a malformed area corner should fail the load")
}

func TestMapping(t *testing.T) {
	suite.Run(t, new(MappingSuite))
}

package game

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/lefinal/dodgeball-server/arena"
	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/notify"
	"github.com/stretchr/testify/suite"
)

// manualDelayer queues scheduled functions until Flush is called which allows
// tests to control when delayed transitions fire.
type manualDelayer struct {
	m     sync.Mutex
	queue []func()
}

func (d *manualDelayer) Later(_ time.Duration, run func()) {
	d.m.Lock()
	defer d.m.Unlock()
	d.queue = append(d.queue, run)
}

// FlushOne runs the functions queued so far but not ones queued by them.
func (d *manualDelayer) FlushOne() {
	d.m.Lock()
	queued := d.queue
	d.queue = nil
	d.m.Unlock()
	for _, run := range queued {
		run()
	}
}

// Flush runs all queued functions including ones queued while flushing.
func (d *manualDelayer) Flush() {
	for {
		d.m.Lock()
		if len(d.queue) == 0 {
			d.m.Unlock()
			return
		}
		run := d.queue[0]
		d.queue = d.queue[1:]
		d.m.Unlock()
		run()
	}
}

type fakeProfile struct {
	kills  int
	deaths int
	coins  int
}

func (p *fakeProfile) AddKill()            { p.kills++ }
func (p *fakeProfile) AddDeath()           { p.deaths++ }
func (p *fakeProfile) AddCoins(amount int) { p.coins += amount }

type fakeProfileStore struct {
	profiles map[string]*fakeProfile
}

func newFakeProfileStore(identities ...string) *fakeProfileStore {
	profiles := make(map[string]*fakeProfile)
	for _, identity := range identities {
		profiles[identity] = &fakeProfile{}
	}
	return &fakeProfileStore{profiles: profiles}
}

func (s *fakeProfileStore) CachedProfile(identity string) (Profile, bool) {
	profile, ok := s.profiles[identity]
	return profile, ok
}

// testSession bundles a ready session with its test collaborators.
type testSession struct {
	session  *Session
	notifier *notify.Recorder
	delayer  *manualDelayer
	profiles *fakeProfileStore
}

func newTestSession(cfg Config, seed int64) testSession {
	notifier := notify.NewRecorder()
	delayer := &manualDelayer{}
	profiles := newFakeProfileStore("p1", "p2", "p3", "p4", "p5")
	session := NewSession("s1", cfg, Dependencies{
		Notifier: notifier,
		Profiles: profiles,
		Delayer:  delayer,
		Rand:     rand.New(rand.NewSource(seed)),
	})
	session.SetArenaRef("arena_s1")
	session.SetLobbySpawn(arena.NewLocation("arena_s1", 0, 64, 0))
	red := NewTeam("red", "Red", "[R]", "red", true)
	red.Area = arena.NewAreaPair(arena.NewLocation("arena_s1", 0, 64, 0), arena.NewLocation("arena_s1", 20, 64, 20))
	blue := NewTeam("blue", "Blue", "[B]", "blue", true)
	blue.Area = arena.NewAreaPair(arena.NewLocation("arena_s1", 0, 64, 30), arena.NewLocation("arena_s1", 20, 64, 50))
	if err := session.AddTeam(red); err != nil {
		panic(err)
	}
	if err := session.AddTeam(blue); err != nil {
		panic(err)
	}
	if err := session.CompleteSetup(); err != nil {
		panic(err)
	}
	session.SetEnabled(true)
	return testSession{
		session:  session,
		notifier: notifier,
		delayer:  delayer,
		profiles: profiles,
	}
}

// SessionJoinSuite tests Session.Join.
type SessionJoinSuite struct {
	suite.Suite
	ts testSession
}

func (suite *SessionJoinSuite) SetupTest() {
	suite.ts = newTestSession(Config{JoinThreshold: 2, MaxPlayers: 4, CountdownStart: 30}, 1)
}

func (suite *SessionJoinSuite) TestDisabled() {
	suite.ts.session.SetEnabled(false)
	_, err := suite.ts.session.Join("p1")
	suite.Require().Error(err, "should fail")
	e, _ := errors.Cast(err)
	suite.Equal(errors.KindSessionDisabled, e.Kind, "should return correct error kind")
	suite.Equal(0, suite.ts.session.ParticipantCount(), "should not add participant")
}

func (suite *SessionJoinSuite) TestAlreadyJoined() {
	_, err := suite.ts.session.Join("p1")
	suite.Require().NoError(err, "first join should not fail")
	_, err = suite.ts.session.Join("p1")
	suite.Require().Error(err, "second join should fail")
	e, _ := errors.Cast(err)
	suite.Equal(errors.KindPlayerAlreadyJoined, e.Kind, "should return correct error kind")
	suite.Equal(1, suite.ts.session.ParticipantCount(), "should not add participant twice")
}

func (suite *SessionJoinSuite) TestStartsUnassigned() {
	p, err := suite.ts.session.Join("p1")
	suite.Require().NoError(err, "should not fail")
	suite.Equal(TeamIDNone, p.TeamID, "should start unassigned")
	suite.Equal(StatePreWaiting, suite.ts.session.State(), "should stay below join threshold")
}

func (suite *SessionJoinSuite) TestTeleportsAndResetsUI() {
	_, err := suite.ts.session.Join("p1")
	suite.Require().NoError(err, "should not fail")
	kinds := suite.ts.notifier.KindsFor("p1")
	suite.Contains(kinds, notify.EventKindUIReset, "should reset ui")
	suite.Contains(kinds, notify.EventKindTeleport, "should teleport to lobby")
}

func (suite *SessionJoinSuite) TestJoinOrderKept() {
	for _, identity := range []string{"p1", "p2", "p3"} {
		_, err := suite.ts.session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	suite.Equal([]string{"p1", "p2", "p3"}, suite.ts.session.ParticipantIdentities(),
		"should keep join order")
}

func (suite *SessionJoinSuite) TestThresholdStartsCountdown() {
	_, err := suite.ts.session.Join("p1")
	suite.Require().NoError(err, "join should not fail")
	_, err = suite.ts.session.Join("p2")
	suite.Require().NoError(err, "join should not fail")
	suite.Equal(StateWaiting, suite.ts.session.State(), "should enter waiting state")
	suite.Equal(30, suite.ts.session.CountdownSeconds(), "should start with configured countdown")
}

func (suite *SessionJoinSuite) TestMaxPlayersStartsRoundImmediately() {
	for _, identity := range []string{"p1", "p2"} {
		_, err := suite.ts.session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	// Let the countdown run partially.
	for i := 0; i < 5; i++ {
		suite.ts.session.AdvanceCountdown()
	}
	suite.Equal(StateWaiting, suite.ts.session.State(), "should still wait")
	for _, identity := range []string{"p3", "p4"} {
		_, err := suite.ts.session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	suite.Equal(StateActive, suite.ts.session.State(), "should start round without waiting for countdown")
}

func (suite *SessionJoinSuite) TestRejectedWhileRoundRunning() {
	suite.ts = newTestSession(Config{JoinThreshold: 2, MaxPlayers: 2, CountdownStart: 30}, 1)
	for _, identity := range []string{"p1", "p2"} {
		_, err := suite.ts.session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	suite.Require().Equal(StateActive, suite.ts.session.State(), "max players should start the round")
	_, err := suite.ts.session.Join("p3")
	suite.Require().Error(err, "join during running round should fail")
	e, _ := errors.Cast(err)
	suite.Equal(errors.KindWrongState, e.Kind, "should return correct error kind")
	suite.Equal(2, suite.ts.session.ParticipantCount(), "should not add participant mid-round")
}

func TestSession_Join(t *testing.T) {
	suite.Run(t, new(SessionJoinSuite))
}

// SessionLeaveSuite tests Session.Leave.
type SessionLeaveSuite struct {
	suite.Suite
	ts testSession
}

func (suite *SessionLeaveSuite) SetupTest() {
	suite.ts = newTestSession(Config{JoinThreshold: 2, MaxPlayers: 4, CountdownStart: 30}, 1)
}

func (suite *SessionLeaveSuite) TestNotJoined() {
	err := suite.ts.session.Leave("p1")
	suite.Require().Error(err, "should fail")
	e, _ := errors.Cast(err)
	suite.Equal(errors.KindPlayerNotJoined, e.Kind, "should return correct error kind")
}

func (suite *SessionLeaveSuite) TestBelowThresholdResetsCountdown() {
	for _, identity := range []string{"p1", "p2"} {
		_, err := suite.ts.session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	for i := 0; i < 12; i++ {
		suite.ts.session.AdvanceCountdown()
	}
	suite.Equal(18, suite.ts.session.CountdownSeconds(), "countdown should have progressed")
	suite.Require().NoError(suite.ts.session.Leave("p2"), "leave should not fail")
	suite.Equal(StatePreWaiting, suite.ts.session.State(), "should fall back to pre-waiting")
	suite.Equal(30, suite.ts.session.CountdownSeconds(), "should reset countdown to configured default")
}

func (suite *SessionLeaveSuite) TestEmptyingTeamEndsRound() {
	for _, identity := range []string{"p1", "p2", "p3"} {
		_, err := suite.ts.session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	_, ok := suite.ts.session.RequestTransition(StateActive)
	suite.Require().True(ok, "round start should not be rejected")
	// Find the team holding a single participant.
	var loneIdentity string
	for _, team := range suite.ts.session.Teams() {
		if team.Playable && len(team.Alive) == 1 {
			loneIdentity = team.Alive[0]
		}
	}
	suite.Require().NotEmpty(loneIdentity, "split should produce a lone team")
	suite.Require().NoError(suite.ts.session.Leave(loneIdentity), "leave should not fail")
	suite.ts.delayer.FlushOne()
	suite.Equal(StateEnd, suite.ts.session.State(), "should end the round")
}

func TestSession_Leave(t *testing.T) {
	suite.Run(t, new(SessionLeaveSuite))
}

// SessionEliminationSuite tests Session.RecordElimination.
type SessionEliminationSuite struct {
	suite.Suite
	ts           testSession
	loneIdentity string
	majority     []string
	loneTeamID   string
}

func (suite *SessionEliminationSuite) SetupTest() {
	suite.ts = newTestSession(Config{JoinThreshold: 2, MaxPlayers: 8, CountdownStart: 30, KillCoins: 10, WinCoins: 50}, 1)
	for _, identity := range []string{"p1", "p2", "p3"} {
		_, err := suite.ts.session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	_, ok := suite.ts.session.RequestTransition(StateActive)
	suite.Require().True(ok, "round start should not be rejected")
	suite.majority = nil
	for _, team := range suite.ts.session.Teams() {
		if !team.Playable {
			continue
		}
		if len(team.Alive) == 1 {
			suite.loneIdentity = team.Alive[0]
			suite.loneTeamID = team.ID
		} else {
			suite.majority = team.Alive
		}
	}
	suite.Require().NotEmpty(suite.loneIdentity, "split should produce a lone team")
	suite.Require().Len(suite.majority, 2, "split should produce a majority team")
}

func (suite *SessionEliminationSuite) TestWrongState() {
	ts := newTestSession(Config{}, 1)
	err := ts.session.RecordElimination("p1", "p2")
	suite.Require().Error(err, "should fail")
	e, _ := errors.Cast(err)
	suite.Equal(errors.KindWrongState, e.Kind, "should return correct error kind")
}

func (suite *SessionEliminationSuite) TestMovesTargetToSpectator() {
	err := suite.ts.session.RecordElimination(suite.majority[0], suite.loneIdentity)
	suite.Require().NoError(err, "should not fail")
	p, ok := suite.ts.session.ParticipantByIdentity(suite.loneIdentity)
	suite.Require().True(ok, "target should still be a participant")
	suite.Equal(TeamIDSpectator, p.TeamID, "target should spectate")
}

func (suite *SessionEliminationSuite) TestCounts() {
	shooter := suite.majority[0]
	err := suite.ts.session.RecordElimination(shooter, suite.loneIdentity)
	suite.Require().NoError(err, "should not fail")
	p, _ := suite.ts.session.ParticipantByIdentity(shooter)
	suite.Equal(1, p.Hits, "should count hit for shooter")
	suite.Equal(1, suite.ts.profiles.profiles[shooter].kills, "should count kill on profile")
	suite.Equal(1, suite.ts.profiles.profiles[suite.loneIdentity].deaths, "should count death on profile")
}

func (suite *SessionEliminationSuite) TestIdempotent() {
	shooter := suite.majority[0]
	suite.Require().NoError(suite.ts.session.RecordElimination(shooter, suite.loneIdentity),
		"first elimination should not fail")
	err := suite.ts.session.RecordElimination(shooter, suite.loneIdentity)
	suite.Require().Error(err, "second elimination should fail")
	e, _ := errors.Cast(err)
	suite.Equal(errors.KindAlreadyEliminated, e.Kind, "should return correct error kind")
	p, _ := suite.ts.session.ParticipantByIdentity(shooter)
	suite.Equal(1, p.Hits, "should not double-count hit")
}

func (suite *SessionEliminationSuite) TestEmptyRosterEndsRound() {
	winner := suite.majority[0]
	suite.Require().NoError(suite.ts.session.RecordElimination(winner, suite.loneIdentity),
		"elimination should not fail")
	team, ok := suite.ts.session.TeamInfoByID(suite.loneTeamID)
	suite.Require().True(ok, "lone team should exist")
	suite.Empty(team.Alive, "lone team roster should be empty")
	suite.ts.delayer.FlushOne()
	suite.Equal(StateEnd, suite.ts.session.State(), "should end the round")
	suite.Equal(50+10, suite.ts.profiles.profiles[winner].coins,
		"winner should receive kill and win coins")
}

func TestSession_RecordElimination(t *testing.T) {
	suite.Run(t, new(SessionEliminationSuite))
}

// SessionTransitionSuite tests the transition guard chain and listeners.
type SessionTransitionSuite struct {
	suite.Suite
	ts testSession
}

func (suite *SessionTransitionSuite) SetupTest() {
	suite.ts = newTestSession(Config{JoinThreshold: 2, MaxPlayers: 4, CountdownStart: 30}, 1)
}

func (suite *SessionTransitionSuite) TestGuardVeto() {
	suite.ts.session.RegisterGuard(func(_ string, _ State, to State) bool {
		return to != StateWaiting
	})
	for _, identity := range []string{"p1", "p2"} {
		_, err := suite.ts.session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	suite.Equal(StatePreWaiting, suite.ts.session.State(), "vetoed transition should not commit")
	from, ok := suite.ts.session.RequestTransition(StateWaiting)
	suite.False(ok, "should report rejection")
	suite.Equal(StatePreWaiting, from, "should report unchanged state")
}

func (suite *SessionTransitionSuite) TestListener() {
	var got []State
	suite.ts.session.RegisterListener(func(sessionID string, from State, to State) {
		suite.Equal("s1", sessionID, "should pass session id")
		got = append(got, from, to)
	})
	for _, identity := range []string{"p1", "p2"} {
		_, err := suite.ts.session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	suite.Equal([]State{StatePreWaiting, StateWaiting}, got, "should announce committed transition")
}

func (suite *SessionTransitionSuite) TestRejectsActiveWithoutParticipants() {
	_, ok := suite.ts.session.RequestTransition(StateActive)
	suite.False(ok, "should reject round start without participants")
	suite.Equal(StatePreWaiting, suite.ts.session.State(), "state should stay unchanged")
}

func (suite *SessionTransitionSuite) TestSameStateIsNoOp() {
	_, ok := suite.ts.session.RequestTransition(StatePreWaiting)
	suite.False(ok, "should not commit no-op transition")
}

func (suite *SessionTransitionSuite) TestDelayedLastWriteWins() {
	for _, identity := range []string{"p1", "p2"} {
		_, err := suite.ts.session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	suite.ts.session.RequestDelayedTransition(StatePreWaiting, time.Second)
	suite.ts.session.RequestDelayedTransition(StateActive, time.Second)
	suite.ts.delayer.Flush()
	suite.Equal(StateActive, suite.ts.session.State(), "later scheduled transition should win")
}

func TestSession_Transitions(t *testing.T) {
	suite.Run(t, new(SessionTransitionSuite))
}

// SessionCountdownSuite tests Session.AdvanceCountdown.
type SessionCountdownSuite struct {
	suite.Suite
	ts testSession
}

func (suite *SessionCountdownSuite) SetupTest() {
	suite.ts = newTestSession(Config{JoinThreshold: 2, MaxPlayers: 8, CountdownStart: 3}, 1)
}

func (suite *SessionCountdownSuite) TestNoOpOutsideWaiting() {
	suite.ts.session.AdvanceCountdown()
	suite.Equal(3, suite.ts.session.CountdownSeconds(), "should not decrement outside waiting state")
}

func (suite *SessionCountdownSuite) TestCountsDownToRoundStart() {
	for _, identity := range []string{"p1", "p2"} {
		_, err := suite.ts.session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	for i := 0; i < 3; i++ {
		suite.ts.session.AdvanceCountdown()
		suite.Equal(StateWaiting, suite.ts.session.State(), "should still wait")
	}
	suite.Equal(0, suite.ts.session.CountdownSeconds(), "should have counted down")
	suite.ts.session.AdvanceCountdown()
	suite.Equal(StateActive, suite.ts.session.State(), "should start round at zero")
}

func TestSession_AdvanceCountdown(t *testing.T) {
	suite.Run(t, new(SessionCountdownSuite))
}

// SessionSplitSuite tests the team split performed at round start.
type SessionSplitSuite struct {
	suite.Suite
}

func (suite *SessionSplitSuite) split(seed int64, count int) map[string][]string {
	ts := newTestSession(Config{JoinThreshold: 2, MaxPlayers: 16, CountdownStart: 30}, seed)
	identities := []string{"p1", "p2", "p3", "p4", "p5"}[:count]
	for _, identity := range identities {
		_, err := ts.session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	_, ok := ts.session.RequestTransition(StateActive)
	suite.Require().True(ok, "round start should not be rejected")
	assignment := make(map[string][]string)
	for _, team := range ts.session.Teams() {
		if team.Playable {
			assignment[team.ID] = team.Alive
		}
	}
	return assignment
}

func (suite *SessionSplitSuite) TestPartition() {
	assignment := suite.split(7, 5)
	seen := make(map[string]int)
	for _, alive := range assignment {
		for _, identity := range alive {
			seen[identity]++
		}
	}
	suite.Len(seen, 5, "every participant should be assigned")
	for identity, count := range seen {
		suite.Equal(1, count, "participant %s should be on exactly one team", identity)
	}
}

func (suite *SessionSplitSuite) TestFirstTeamGetsExtraParticipant() {
	assignment := suite.split(7, 5)
	suite.Len(assignment["red"], 3, "first playable team should receive the extra participant")
	suite.Len(assignment["blue"], 2, "second playable team should hold the rest")
}

func (suite *SessionSplitSuite) TestDeterministicForSeed() {
	first := suite.split(7, 5)
	second := suite.split(7, 5)
	suite.Equal(first, second, "same seed should produce same assignment")
}

func (suite *SessionSplitSuite) TestSmallerTeamGetsSpeedBoost() {
	ts := newTestSession(Config{JoinThreshold: 2, MaxPlayers: 16, CountdownStart: 30}, 7)
	for _, identity := range []string{"p1", "p2", "p3"} {
		_, err := ts.session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	_, ok := ts.session.RequestTransition(StateActive)
	suite.Require().True(ok, "round start should not be rejected")
	var loneIdentity string
	for _, team := range ts.session.Teams() {
		if team.Playable && len(team.Alive) == 1 {
			loneIdentity = team.Alive[0]
		}
	}
	suite.Require().NotEmpty(loneIdentity, "split should produce a lone team")
	suite.Contains(ts.notifier.KindsFor(loneIdentity), notify.EventKindEffect,
		"lone participant should receive compensation effect")
}

func TestSession_Split(t *testing.T) {
	suite.Run(t, new(SessionSplitSuite))
}

// recordingObserver captures observer calls for assertions.
type recordingObserver struct {
	m            sync.Mutex
	joined       []string
	left         []string
	eliminations [][2]string
	winners      []string
}

func (o *recordingObserver) ParticipantJoined(_ string, identity string) {
	o.m.Lock()
	defer o.m.Unlock()
	o.joined = append(o.joined, identity)
}

func (o *recordingObserver) ParticipantLeft(_ string, identity string) {
	o.m.Lock()
	defer o.m.Unlock()
	o.left = append(o.left, identity)
}

func (o *recordingObserver) ParticipantEliminated(_ string, shooter string, target string) {
	o.m.Lock()
	defer o.m.Unlock()
	o.eliminations = append(o.eliminations, [2]string{shooter, target})
}

func (o *recordingObserver) RoundWon(_ string, teamID string) {
	o.m.Lock()
	defer o.m.Unlock()
	o.winners = append(o.winners, teamID)
}

// SessionObserverSuite tests the round events handed to the configured
// SessionObserver.
type SessionObserverSuite struct {
	suite.Suite
	session  *Session
	delayer  *manualDelayer
	observer *recordingObserver
}

func (suite *SessionObserverSuite) SetupTest() {
	suite.delayer = &manualDelayer{}
	suite.observer = &recordingObserver{}
	suite.session = NewSession("s1", Config{JoinThreshold: 2, MaxPlayers: 8, CountdownStart: 30},
		Dependencies{
			Notifier: notify.NewRecorder(),
			Delayer:  suite.delayer,
			Observer: suite.observer,
			Rand:     rand.New(rand.NewSource(1)),
		})
	suite.session.SetArenaRef("arena_s1")
	suite.session.SetLobbySpawn(arena.NewLocation("arena_s1", 0, 64, 0))
	red := NewTeam("red", "Red", "[R]", "red", true)
	red.Area = arena.NewAreaPair(arena.NewLocation("arena_s1", 0, 64, 0), arena.NewLocation("arena_s1", 20, 64, 20))
	blue := NewTeam("blue", "Blue", "[B]", "blue", true)
	blue.Area = arena.NewAreaPair(arena.NewLocation("arena_s1", 0, 64, 30), arena.NewLocation("arena_s1", 20, 64, 50))
	suite.Require().NoError(suite.session.AddTeam(red), "add team should not fail")
	suite.Require().NoError(suite.session.AddTeam(blue), "add team should not fail")
	suite.Require().NoError(suite.session.CompleteSetup(), "complete setup should not fail")
	suite.session.SetEnabled(true)
}

func (suite *SessionObserverSuite) TestJoinAndLeave() {
	_, err := suite.session.Join("p1")
	suite.Require().NoError(err, "join should not fail")
	suite.Require().NoError(suite.session.Leave("p1"), "leave should not fail")
	suite.Equal([]string{"p1"}, suite.observer.joined, "should observe join")
	suite.Equal([]string{"p1"}, suite.observer.left, "should observe leave")
}

func (suite *SessionObserverSuite) TestFailedJoinNotObserved() {
	suite.session.SetEnabled(false)
	_, err := suite.session.Join("p1")
	suite.Require().Error(err, "join should fail")
	suite.Empty(suite.observer.joined, "should not observe failed join")
}

func (suite *SessionObserverSuite) TestEliminationAndWinner() {
	for _, identity := range []string{"p1", "p2", "p3"} {
		_, err := suite.session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	_, ok := suite.session.RequestTransition(StateActive)
	suite.Require().True(ok, "round start should not be rejected")
	var loneIdentity, shooter, winningTeamID string
	for _, team := range suite.session.Teams() {
		if !team.Playable {
			continue
		}
		if len(team.Alive) == 1 {
			loneIdentity = team.Alive[0]
		} else {
			shooter = team.Alive[0]
			winningTeamID = team.ID
		}
	}
	suite.Require().NoError(suite.session.RecordElimination(shooter, loneIdentity),
		"elimination should not fail")
	suite.delayer.FlushOne()
	suite.Equal([][2]string{{shooter, loneIdentity}}, suite.observer.eliminations,
		"should observe elimination")
	suite.Equal([]string{winningTeamID}, suite.observer.winners, "should observe winner")
}

func TestSession_Observer(t *testing.T) {
	suite.Run(t, new(SessionObserverSuite))
}

// SessionResetSuite tests Session.ResetForNextRound.
type SessionResetSuite struct {
	suite.Suite
	ts testSession
}

func (suite *SessionResetSuite) SetupTest() {
	suite.ts = newTestSession(Config{JoinThreshold: 2, MaxPlayers: 8, CountdownStart: 30}, 1)
	for _, identity := range []string{"p1", "p2", "p3"} {
		_, err := suite.ts.session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	_, ok := suite.ts.session.RequestTransition(StateActive)
	suite.Require().True(ok, "round start should not be rejected")
}

func (suite *SessionResetSuite) TestFullRoundCycle() {
	suite.Require().NoError(suite.ts.session.RecordThrow("p1", "ball-1"), "throw should not fail")
	suite.Equal(1, suite.ts.session.BallCount(), "should track thrown ball")
	var loneIdentity, shooter string
	for _, team := range suite.ts.session.Teams() {
		if !team.Playable {
			continue
		}
		if len(team.Alive) == 1 {
			loneIdentity = team.Alive[0]
		} else {
			shooter = team.Alive[0]
		}
	}
	suite.Require().NoError(suite.ts.session.RecordElimination(shooter, loneIdentity),
		"elimination should not fail")
	// Runs the delayed round end as well as the reset and the delayed return to
	// pre-waiting.
	suite.ts.delayer.Flush()
	suite.Equal(StatePreWaiting, suite.ts.session.State(), "should return to pre-waiting")
	suite.Equal(0, suite.ts.session.BallCount(), "should clear tracked balls")
	suite.Equal(30, suite.ts.session.CountdownSeconds(), "should restore countdown")
	for _, p := range suite.ts.session.Participants() {
		suite.Equal(TeamIDNone, p.TeamID, "participant %s should be unassigned", p.Identity)
	}
	for _, team := range suite.ts.session.Teams() {
		suite.Empty(team.Alive, "team %s roster should be cleared", team.ID)
	}
}

func TestSession_ResetForNextRound(t *testing.T) {
	suite.Run(t, new(SessionResetSuite))
}

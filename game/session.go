package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/lefinal/dodgeball-server/arena"
	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/logging"
	"github.com/lefinal/dodgeball-server/notify"
	"go.uber.org/zap"
)

// Profile exposes the persistent counters a session increments as round side
// effects. Persistence is owned by the store handing out the profile.
type Profile interface {
	// AddKill increments the kill counter.
	AddKill()
	// AddDeath increments the death counter.
	AddDeath()
	// AddCoins adds the given amount of coins.
	AddCoins(amount int)
}

// ProfileStore hands out cached profiles by player identity.
type ProfileStore interface {
	// CachedProfile returns the cached profile for the given identity or false
	// when none is loaded.
	CachedProfile(identity string) (Profile, bool)
}

// Delayer schedules a function for later execution. Implementations must
// never run the function inline from Later as callers may hold locks.
type Delayer interface {
	Later(delay time.Duration, run func())
}

// Dependencies bundles the collaborators a Session needs. Notifier and
// Delayer are required. All others are optional.
type Dependencies struct {
	// Notifier delivers presentation effects to participants.
	Notifier notify.Notifier
	// Profiles hands out cached player profiles for stat side effects. May be
	// nil in which case no stats are recorded.
	Profiles ProfileStore
	// Delayer schedules delayed transitions and the post-round reset.
	Delayer Delayer
	// Passability is consulted for spawn point generation. May be nil.
	Passability PassabilityProbe
	// Listeners are transition listeners registered on every created session.
	Listeners []TransitionListener
	// Observer receives round events. May be nil.
	Observer SessionObserver
	// Logger defaults to logging.GameLogger.
	Logger *zap.Logger
	// Rand is the random source for team split and spawn generation. Defaults
	// to a time-seeded source.
	Rand *rand.Rand
}

// Session is one dodgeball match including its arena, teams and participants.
// It owns the lifecycle state machine and serializes all mutations behind one
// lock so joins, leaves, eliminations and countdown ticks never observe a
// half-applied change.
type Session struct {
	m sync.RWMutex

	id            string
	state         State
	enabled       bool
	arenaRef      string
	lobbySpawn    arena.Location
	lobbySpawnSet bool
	teams         []*Team
	participants  []*Participant
	balls         map[string]struct{}
	countdown     int

	cfg       Config
	guards    []TransitionGuard
	listeners []TransitionListener
	observer  SessionObserver
	notifier  notify.Notifier
	profiles  ProfileStore
	delayer   Delayer
	spawner   *SpawnAllocator
	rnd       *rand.Rand
	logger    *zap.Logger
}

// NewSession creates a Session in StateSetup with the two reserved teams
// already present.
func NewSession(id string, cfg Config, deps Dependencies) *Session {
	cfg = cfg.withDefaults()
	rnd := deps.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.GameLogger
	}
	listeners := make([]TransitionListener, 0, len(deps.Listeners))
	listeners = append(listeners, deps.Listeners...)
	return &Session{
		id:        id,
		state:     StateSetup,
		listeners: listeners,
		observer:  deps.Observer,
		teams: []*Team{
			NewTeam(TeamIDNone, "None", "", "gray", false),
			NewTeam(TeamIDSpectator, "Spectator", "", "gray", false),
		},
		balls:     make(map[string]struct{}),
		countdown: cfg.CountdownStart,
		cfg:       cfg,
		notifier:  deps.Notifier,
		profiles:  deps.Profiles,
		delayer:   deps.Delayer,
		spawner:   NewSpawnAllocator(deps.Passability, rnd),
		rnd:       rnd,
		logger:    logger.With(zap.String("session_id", id)),
	}
}

// ID returns the immutable session id.
func (s *Session) ID() string {
	return s.id
}

// Config returns the session's configuration. Immutable after construction.
func (s *Session) Config() Config {
	return s.cfg
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.state
}

// Enabled reports whether the session accepts joins.
func (s *Session) Enabled() bool {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.enabled
}

// SetEnabled sets whether the session accepts joins.
func (s *Session) SetEnabled(enabled bool) {
	s.m.Lock()
	defer s.m.Unlock()
	s.enabled = enabled
}

// ArenaRef returns the reference of the arena world the session plays in.
func (s *Session) ArenaRef() string {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.arenaRef
}

// SetArenaRef sets the arena world reference.
func (s *Session) SetArenaRef(arenaRef string) {
	s.m.Lock()
	defer s.m.Unlock()
	s.arenaRef = arenaRef
}

// LobbySpawn returns the location participants wait at and whether it has
// been set.
func (s *Session) LobbySpawn() (arena.Location, bool) {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.lobbySpawn, s.lobbySpawnSet
}

// SetLobbySpawn sets the location participants wait at.
func (s *Session) SetLobbySpawn(l arena.Location) {
	s.m.Lock()
	defer s.m.Unlock()
	s.lobbySpawn = l
	s.lobbySpawnSet = true
}

// CountdownSeconds returns the remaining countdown seconds.
func (s *Session) CountdownSeconds() int {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.countdown
}

// RegisterGuard appends the given guard to the transition guard chain.
func (s *Session) RegisterGuard(guard TransitionGuard) {
	s.m.Lock()
	defer s.m.Unlock()
	s.guards = append(s.guards, guard)
}

// RegisterListener appends the given listener which is called after each
// committed transition.
func (s *Session) RegisterListener(listener TransitionListener) {
	s.m.Lock()
	defer s.m.Unlock()
	s.listeners = append(s.listeners, listener)
}

// transition is a committed state change awaiting listener announcement.
type transition struct {
	from State
	to   State
}

// announce calls all registered listeners for the given committed
// transitions. Callers must not hold the session lock.
func (s *Session) announce(committed []transition) {
	if len(committed) == 0 {
		return
	}
	s.m.RLock()
	listeners := append([]TransitionListener(nil), s.listeners...)
	s.m.RUnlock()
	for _, t := range committed {
		for _, listener := range listeners {
			listener(s.id, t.from, t.to)
		}
		if t.to == StateEnd && s.observer != nil {
			if winner, ok := s.Winner(); ok {
				s.observer.RoundWon(s.id, winner.ID)
			}
		}
	}
}

// Winner returns the last playable team with a non-empty alive roster. Only
// meaningful while the session is in the end state, before the reset clears
// the rosters.
func (s *Session) Winner() (TeamInfo, bool) {
	for _, team := range s.Teams() {
		if team.Playable && len(team.Alive) > 0 {
			return team, true
		}
	}
	return TeamInfo{}, false
}

// RequestTransition asks the session to change to the given state. The guard
// chain may reject the request in which case false is returned and the state
// stays unchanged. On commit, the previous state and true are returned.
func (s *Session) RequestTransition(to State) (State, bool) {
	s.m.Lock()
	from, ok := s.transitionLocked(to)
	s.m.Unlock()
	if ok {
		s.announce([]transition{{from: from, to: to}})
	}
	return from, ok
}

// RequestDelayedTransition schedules a transition to the given state after
// the given delay. There is no cancel handle. If another transition commits
// before the delay expires, the delayed one still runs its guard chain
// against the state found at that time and the last applied transition wins.
func (s *Session) RequestDelayedTransition(to State, delay time.Duration) {
	s.delayer.Later(delay, func() {
		s.RequestTransition(to)
	})
}

// transitionLocked runs the guard chain and commits the transition including
// its enter behavior. No-op transitions to the current state are rejected.
func (s *Session) transitionLocked(to State) (State, bool) {
	from := s.state
	if from == to {
		return from, false
	}
	for _, guard := range s.guards {
		if !guard(s.id, from, to) {
			s.logger.Debug("state transition vetoed",
				zap.String("from", string(from)), zap.String("to", string(to)))
			return from, false
		}
	}
	if to == StateActive && !s.canStartRoundLocked() {
		s.logger.Warn("rejecting transition to active state",
			zap.String("from", string(from)),
			zap.Int("participants", len(s.participants)),
			zap.Int("playable_teams", len(s.playableTeamsLocked())))
		return from, false
	}
	s.state = to
	s.logger.Info("session state changed",
		zap.String("from", string(from)), zap.String("to", string(to)))
	switch to {
	case StatePreWaiting:
		s.countdown = s.cfg.CountdownStart
	case StateActive:
		s.beginRoundLocked()
	case StateEnd:
		s.finishRoundLocked()
	}
	return from, true
}

// canStartRoundLocked checks that a round split would leave both playable
// teams with at least one alive participant.
func (s *Session) canStartRoundLocked() bool {
	return len(s.playableTeamsLocked()) == MaxPlayableTeams && len(s.participants) >= 2
}

func (s *Session) playableTeamsLocked() []*Team {
	playable := make([]*Team, 0, MaxPlayableTeams)
	for _, team := range s.teams {
		if team.Playable {
			playable = append(playable, team)
		}
	}
	return playable
}

func (s *Session) teamByIDLocked(id string) *Team {
	for _, team := range s.teams {
		if team.ID == id {
			return team
		}
	}
	return nil
}

func (s *Session) participantByIdentityLocked(identity string) *Participant {
	for _, p := range s.participants {
		if p.Identity == identity {
			return p
		}
	}
	return nil
}

// Join adds the player with the given identity as participant. Joins are
// only accepted while the session waits for players. The participant starts
// unassigned and is teleported to the lobby spawn. When
// the join lifts the participant count over the join threshold or the player
// maximum, the matching transition is requested right away.
func (s *Session) Join(identity string) (Participant, error) {
	s.m.Lock()
	if !s.enabled || s.state == StateSetup {
		s.m.Unlock()
		return Participant{}, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindSessionDisabled,
			Message: "session does not accept joins",
			Details: errors.Details{"session_id": s.id},
		}
	}
	if !s.state.IsWaiting() {
		s.m.Unlock()
		return Participant{}, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindWrongState,
			Message: "session round already running",
			Details: errors.Details{"session_id": s.id, "state": string(s.state)},
		}
	}
	if s.participantByIdentityLocked(identity) != nil {
		s.m.Unlock()
		return Participant{}, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindPlayerAlreadyJoined,
			Message: "player already joined",
			Details: errors.Details{"session_id": s.id, "identity": identity},
		}
	}
	p := newParticipant(identity)
	s.participants = append(s.participants, p)
	s.notifyLocked(identity, notify.Event{Kind: notify.EventKindUIReset})
	s.notifyLocked(identity, notify.Event{
		Kind:    notify.EventKindTeleport,
		Payload: notify.TeleportPayload{Location: s.lobbySpawn.String()},
	})
	s.broadcastLocked(notify.Event{
		Kind: notify.EventKindChat,
		Payload: notify.ChatPayload{
			Message: fmt.Sprintf("%s joined the game (%d/%d)", identity, len(s.participants), s.cfg.MaxPlayers),
		},
	})
	committed := make([]transition, 0, 2)
	if s.state == StatePreWaiting && len(s.participants) >= s.cfg.JoinThreshold {
		if from, ok := s.transitionLocked(StateWaiting); ok {
			committed = append(committed, transition{from: from, to: StateWaiting})
		}
	}
	if s.state == StateWaiting && len(s.participants) >= s.cfg.MaxPlayers {
		if from, ok := s.transitionLocked(StateActive); ok {
			committed = append(committed, transition{from: from, to: StateActive})
		}
	}
	joined := *p
	s.m.Unlock()
	if s.observer != nil {
		s.observer.ParticipantJoined(s.id, identity)
	}
	s.announce(committed)
	return joined, nil
}

// Leave removes the participant with the given identity. Dropping below the
// join threshold while waiting reverts the session to the pre-waiting state.
// Emptying a playable team's alive roster during an active round schedules
// the round end.
func (s *Session) Leave(identity string) error {
	s.m.Lock()
	p := s.participantByIdentityLocked(identity)
	if p == nil {
		s.m.Unlock()
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindPlayerNotJoined,
			Message: "player has not joined",
			Details: errors.Details{"session_id": s.id, "identity": identity},
		}
	}
	for i, candidate := range s.participants {
		if candidate == p {
			s.participants = append(s.participants[:i], s.participants[i+1:]...)
			break
		}
	}
	team := s.teamByIDLocked(p.TeamID)
	emptiedPlayable := false
	if team != nil && team.Playable {
		team.RemoveAlive(identity)
		emptiedPlayable = team.AliveCount() == 0
	}
	s.broadcastLocked(notify.Event{
		Kind:    notify.EventKindChat,
		Payload: notify.ChatPayload{Message: fmt.Sprintf("%s left the game", identity)},
	})
	var committed []transition
	if s.state == StateWaiting && len(s.participants) < s.cfg.JoinThreshold {
		if from, ok := s.transitionLocked(StatePreWaiting); ok {
			committed = append(committed, transition{from: from, to: StatePreWaiting})
		}
	}
	if s.state == StateActive && emptiedPlayable {
		s.RequestDelayedTransition(StateEnd, s.cfg.TransitionDelay)
	}
	s.m.Unlock()
	if s.observer != nil {
		s.observer.ParticipantLeft(s.id, identity)
	}
	s.announce(committed)
	return nil
}

// RecordElimination marks the target as eliminated by the shooter. The
// target moves to the spectator team and both players' stats are updated.
// Eliminating an already eliminated participant is a no-op that reports the
// failure. Emptying the target team's alive roster schedules the round end.
func (s *Session) RecordElimination(shooterIdentity string, targetIdentity string) error {
	s.m.Lock()
	err := s.recordEliminationLocked(shooterIdentity, targetIdentity)
	s.m.Unlock()
	if err != nil {
		return err
	}
	if s.observer != nil {
		s.observer.ParticipantEliminated(s.id, shooterIdentity, targetIdentity)
	}
	return nil
}

func (s *Session) recordEliminationLocked(shooterIdentity string, targetIdentity string) error {
	if s.state != StateActive {
		return errors.NewWrongStateError("record elimination", string(s.state),
			errors.Details{"session_id": s.id})
	}
	target := s.participantByIdentityLocked(targetIdentity)
	if target == nil {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindPlayerNotJoined,
			Message: "target has not joined",
			Details: errors.Details{"session_id": s.id, "identity": targetIdentity},
		}
	}
	team := s.teamByIDLocked(target.TeamID)
	if team == nil || !team.Playable || !team.RemoveAlive(targetIdentity) {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindAlreadyEliminated,
			Message: "target already eliminated",
			Details: errors.Details{"session_id": s.id, "identity": targetIdentity},
		}
	}
	target.TeamID = TeamIDSpectator
	if shooter := s.participantByIdentityLocked(shooterIdentity); shooter != nil {
		shooter.Hits++
	}
	if s.profiles != nil {
		if profile, ok := s.profiles.CachedProfile(shooterIdentity); ok {
			profile.AddKill()
			profile.AddCoins(s.cfg.KillCoins)
		}
		if profile, ok := s.profiles.CachedProfile(targetIdentity); ok {
			profile.AddDeath()
		}
	}
	s.notifyLocked(targetIdentity, notify.Event{
		Kind:    notify.EventKindTitle,
		Payload: notify.TitlePayload{Title: "Eliminated"},
	})
	s.broadcastLocked(notify.Event{
		Kind: notify.EventKindChat,
		Payload: notify.ChatPayload{
			Message: fmt.Sprintf("%s was hit by %s", targetIdentity, shooterIdentity),
		},
	})
	if team.AliveCount() == 0 {
		s.RequestDelayedTransition(StateEnd, s.cfg.TransitionDelay)
	}
	return nil
}

// RecordThrow counts a thrown ball for the given participant and tracks the
// ball reference until the session resets or RemoveBall is called.
func (s *Session) RecordThrow(identity string, ballRef string) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.state != StateActive {
		return errors.NewWrongStateError("record throw", string(s.state),
			errors.Details{"session_id": s.id})
	}
	p := s.participantByIdentityLocked(identity)
	if p == nil {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindPlayerNotJoined,
			Message: "player has not joined",
			Details: errors.Details{"session_id": s.id, "identity": identity},
		}
	}
	p.BallsThrown++
	s.balls[ballRef] = struct{}{}
	return nil
}

// RemoveBall stops tracking the given ball reference.
func (s *Session) RemoveBall(ballRef string) {
	s.m.Lock()
	defer s.m.Unlock()
	delete(s.balls, ballRef)
}

// BallCount returns the number of tracked in-flight or dropped balls.
func (s *Session) BallCount() int {
	s.m.RLock()
	defer s.m.RUnlock()
	return len(s.balls)
}

// AdvanceCountdown performs one countdown step. Outside the waiting state
// this is a no-op. At zero, the transition to the active state is requested.
// Otherwise participants are notified of the remaining time and the countdown
// is decremented.
func (s *Session) AdvanceCountdown() {
	s.m.Lock()
	if s.state != StateWaiting {
		s.m.Unlock()
		return
	}
	if s.countdown == 0 {
		from, ok := s.transitionLocked(StateActive)
		s.m.Unlock()
		if ok {
			s.announce([]transition{{from: from, to: StateActive}})
		}
		return
	}
	s.broadcastLocked(notify.Event{
		Kind:    notify.EventKindActionBar,
		Payload: notify.ActionBarPayload{Text: fmt.Sprintf("Starting in %ds", s.countdown)},
	})
	if s.countdown <= 10 {
		s.broadcastLocked(notify.Event{
			Kind:    notify.EventKindTitle,
			Payload: notify.TitlePayload{Title: fmt.Sprintf("%d", s.countdown)},
		})
		s.broadcastLocked(notify.Event{
			Kind:    notify.EventKindSound,
			Payload: notify.SoundPayload{Sound: "countdown-tick"},
		})
	}
	s.countdown--
	s.m.Unlock()
}

// beginRoundLocked splits participants into the playable teams, spawns them
// in their areas and announces the round start.
func (s *Session) beginRoundLocked() {
	s.splitIntoTeamsLocked()
	for _, team := range s.playableTeamsLocked() {
		points := s.spawner.Allocate(team.Area, team.AliveCount())
		for i, identity := range team.Alive() {
			s.notifyLocked(identity, notify.Event{
				Kind:    notify.EventKindTeleport,
				Payload: notify.TeleportPayload{Location: points[i].String()},
			})
		}
	}
	s.broadcastLocked(notify.Event{
		Kind:    notify.EventKindTitle,
		Payload: notify.TitlePayload{Title: "Go!", Subtitle: "Eliminate the other team"},
	})
	s.broadcastLocked(notify.Event{
		Kind:    notify.EventKindSound,
		Payload: notify.SoundPayload{Sound: "round-start"},
	})
}

// splitIntoTeamsLocked shuffles all participants and assigns even positions
// to the first playable team and odd positions to the second one. The first
// team therefore receives the extra participant on odd counts and the second
// team gets a speed boost to compensate.
func (s *Session) splitIntoTeamsLocked() {
	playable := s.playableTeamsLocked()
	teamOne, teamTwo := playable[0], playable[1]
	teamOne.ClearAlive()
	teamTwo.ClearAlive()
	shuffled := append([]*Participant(nil), s.participants...)
	s.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	for i, p := range shuffled {
		team := teamOne
		if i%2 != 0 {
			team = teamTwo
		}
		p.TeamID = team.ID
		team.AddAlive(p.Identity)
		s.notifyLocked(p.Identity, notify.Event{
			Kind:    notify.EventKindChat,
			Payload: notify.ChatPayload{Message: fmt.Sprintf("You play for team %s", team.DisplayName)},
		})
	}
	if teamTwo.AliveCount() < teamOne.AliveCount() {
		for _, identity := range teamTwo.Alive() {
			s.notifyLocked(identity, notify.Event{
				Kind: notify.EventKindEffect,
				// Zero seconds keep the effect until the next presentation reset.
				Payload: notify.EffectPayload{Effect: "speed", Seconds: 0, Amplifier: 1},
			})
		}
	}
}

// finishRoundLocked announces the winning team, rewards its members and
// schedules the session reset.
func (s *Session) finishRoundLocked() {
	var winner *Team
	for _, team := range s.playableTeamsLocked() {
		if team.AliveCount() > 0 {
			winner = team
			break
		}
	}
	if winner != nil {
		s.broadcastLocked(notify.Event{
			Kind:    notify.EventKindTitle,
			Payload: notify.TitlePayload{Title: fmt.Sprintf("Team %s wins!", winner.DisplayName)},
		})
		s.broadcastLocked(notify.Event{
			Kind:    notify.EventKindSound,
			Payload: notify.SoundPayload{Sound: "victory"},
		})
		if s.profiles != nil {
			for _, p := range s.participants {
				if p.TeamID != winner.ID {
					continue
				}
				if profile, ok := s.profiles.CachedProfile(p.Identity); ok {
					profile.AddCoins(s.cfg.WinCoins)
				}
			}
		}
	} else {
		s.broadcastLocked(notify.Event{
			Kind:    notify.EventKindTitle,
			Payload: notify.TitlePayload{Title: "Round over"},
		})
	}
	s.delayer.Later(s.cfg.PostMatchDelay, s.ResetForNextRound)
}

// ResetForNextRound returns the session to a fresh waiting round. Alive
// rosters and tracked balls are cleared, the countdown is restored, all
// participants are unassigned and returned to the lobby and the transition
// back to the pre-waiting state is scheduled.
func (s *Session) ResetForNextRound() {
	s.m.Lock()
	for _, team := range s.teams {
		team.ClearAlive()
	}
	s.balls = make(map[string]struct{})
	s.countdown = s.cfg.CountdownStart
	for _, p := range s.participants {
		p.TeamID = TeamIDNone
		s.notifyLocked(p.Identity, notify.Event{Kind: notify.EventKindUIReset})
		s.notifyLocked(p.Identity, notify.Event{
			Kind:    notify.EventKindTeleport,
			Payload: notify.TeleportPayload{Location: s.lobbySpawn.String()},
		})
	}
	s.RequestDelayedTransition(StatePreWaiting, s.cfg.TransitionDelay)
	s.m.Unlock()
}

func (s *Session) notifyLocked(identity string, event notify.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(identity, event)
}

func (s *Session) broadcastLocked(event notify.Event) {
	if s.notifier == nil {
		return
	}
	for _, p := range s.participants {
		s.notifier.Notify(p.Identity, event)
	}
}

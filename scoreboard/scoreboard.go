// Package scoreboard renders the per-participant sidebar from a line
// template and refreshes it periodically for all sessions.
package scoreboard

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/lefinal/dodgeball-server/game"
	"github.com/lefinal/dodgeball-server/notify"
)

// Placeholders usable in scoreboard line templates.
const (
	// PlaceholderPlayers is replaced with the session's participant count.
	PlaceholderPlayers = "{players}"
	// PlaceholderBallsThrown is replaced with the viewer's thrown ball count.
	PlaceholderBallsThrown = "{balls_thrown}"
	// PlaceholderHits is replaced with the viewer's hit count.
	PlaceholderHits = "{hits}"
	// PlaceholderTeamLeft is replaced with the alive count of the viewer's
	// team.
	PlaceholderTeamLeft = "{team_left}"
	// PlaceholderOppositeLeft is replaced with the alive count of the opposing
	// team.
	PlaceholderOppositeLeft = "{opposite_left}"
	// PlaceholderCountdown is replaced with the remaining countdown seconds.
	PlaceholderCountdown = "{countdown}"
)

// Renderer renders scoreboard payloads from a template.
type Renderer struct {
	// Title of the sidebar.
	Title string
	// Lines are the template lines containing placeholders.
	Lines []string
}

// DefaultRenderer returns the Renderer used when no template is configured.
func DefaultRenderer() Renderer {
	return Renderer{
		Title: "Dodgeball",
		Lines: []string{
			"Players: " + PlaceholderPlayers,
			"Starting in: " + PlaceholderCountdown,
			"Team left: " + PlaceholderTeamLeft,
			"Opponents left: " + PlaceholderOppositeLeft,
			"Balls thrown: " + PlaceholderBallsThrown,
			"Hits: " + PlaceholderHits,
		},
	}
}

// Render renders the sidebar for the participant with the given identity.
// Team placeholders render as a dash while the viewer is not on a playable
// team.
func (r Renderer) Render(session *game.Session, identity string) notify.ScoreboardPayload {
	teamLeft := "-"
	oppositeLeft := "-"
	p, ok := session.ParticipantByIdentity(identity)
	if ok && onPlayableTeam(session, p.TeamID) {
		for _, team := range session.Teams() {
			if !team.Playable {
				continue
			}
			if team.ID == p.TeamID {
				teamLeft = strconv.Itoa(len(team.Alive))
			} else {
				oppositeLeft = strconv.Itoa(len(team.Alive))
			}
		}
	}
	replacer := strings.NewReplacer(
		PlaceholderPlayers, strconv.Itoa(session.ParticipantCount()),
		PlaceholderBallsThrown, strconv.Itoa(p.BallsThrown),
		PlaceholderHits, strconv.Itoa(p.Hits),
		PlaceholderTeamLeft, teamLeft,
		PlaceholderOppositeLeft, oppositeLeft,
		PlaceholderCountdown, strconv.Itoa(session.CountdownSeconds()),
	)
	lines := make([]string, 0, len(r.Lines))
	for _, line := range r.Lines {
		lines = append(lines, replacer.Replace(line))
	}
	return notify.ScoreboardPayload{
		Title: r.Title,
		Lines: lines,
	}
}

func onPlayableTeam(session *game.Session, teamID string) bool {
	team, ok := session.TeamInfoByID(teamID)
	return ok && team.Playable
}

// LobbyRenderer renders the sidebar shown to players that are not in any
// session.
type LobbyRenderer struct {
	// Title of the sidebar.
	Title string
	// Lines shown as-is.
	Lines []string
}

// DefaultLobbyRenderer returns the LobbyRenderer used when no template is
// configured.
func DefaultLobbyRenderer() LobbyRenderer {
	return LobbyRenderer{
		Title: "Dodgeball",
		Lines: []string{
			"Join a session",
			"to play!",
		},
	}
}

func (r LobbyRenderer) Render() notify.ScoreboardPayload {
	return notify.ScoreboardPayload{
		Title: r.Title,
		Lines: r.Lines,
	}
}

// IdentityLister provides the identities of all connected players.
// Implemented by the gateway.
type IdentityLister interface {
	// BoundIdentities returns the identities of all bound connections.
	BoundIdentities() []string
}

// Refresher periodically pushes rendered scoreboards to all participants of
// all sessions and the lobby sidebar to everyone else.
type Refresher struct {
	registry *game.Registry
	notifier notify.Notifier
	renderer Renderer
	lobby    LobbyRenderer
	// identities may be nil in which case no lobby sidebars are pushed.
	identities IdentityLister
	interval   time.Duration
}

// NewRefresher creates a Refresher with the given refresh interval. The
// identity lister may be nil, lobby sidebars are then skipped.
func NewRefresher(registry *game.Registry, notifier notify.Notifier, renderer Renderer,
	identities IdentityLister, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Refresher{
		registry:   registry,
		notifier:   notifier,
		renderer:   renderer,
		lobby:      DefaultLobbyRenderer(),
		identities: identities,
		interval:   interval,
	}
}

func (r *Refresher) ID() string {
	return "scoreboard"
}

func (r *Refresher) Interval() time.Duration {
	return r.interval
}

func (r *Refresher) Run(_ context.Context) {
	inSession := make(map[string]struct{})
	for _, session := range r.registry.All() {
		for _, identity := range session.ParticipantIdentities() {
			inSession[identity] = struct{}{}
			r.notifier.Notify(identity, notify.Event{
				Kind:    notify.EventKindScoreboard,
				Payload: r.renderer.Render(session, identity),
			})
		}
	}
	if r.identities == nil {
		return
	}
	for _, identity := range r.identities.BoundIdentities() {
		if _, ok := inSession[identity]; ok {
			continue
		}
		r.notifier.Notify(identity, notify.Event{
			Kind:    notify.EventKindScoreboard,
			Payload: r.lobby.Render(),
		})
	}
}

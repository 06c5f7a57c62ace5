package scheduling

import (
	"context"
	"time"

	"github.com/lefinal/dodgeball-server/game"
)

// Countdown advances the pre-match countdown of all waiting sessions once per
// second. It also starts the countdown for sessions that sit above the join
// threshold after a round reset.
type Countdown struct {
	registry *game.Registry
}

// NewCountdown creates a Countdown runnable for the given registry.
func NewCountdown(registry *game.Registry) *Countdown {
	return &Countdown{registry: registry}
}

func (c *Countdown) ID() string {
	return "countdown"
}

func (c *Countdown) Interval() time.Duration {
	return time.Second
}

func (c *Countdown) Run(_ context.Context) {
	for _, session := range c.registry.All() {
		switch session.State() {
		case game.StatePreWaiting:
			if session.ParticipantCount() >= session.Config().JoinThreshold {
				session.RequestTransition(game.StateWaiting)
			}
		case game.StateWaiting:
			session.AdvanceCountdown()
		}
	}
}

package game

import "time"

// Config holds the tunables of a Session.
type Config struct {
	// JoinThreshold is the participant count at which the countdown starts.
	JoinThreshold int `json:"join_threshold"`
	// MaxPlayers is the participant count at which a round starts regardless of
	// the remaining countdown.
	MaxPlayers int `json:"max_players"`
	// CountdownStart is the countdown value in seconds a session starts the
	// waiting state with.
	CountdownStart int `json:"countdown_start"`
	// TransitionDelay is how long event-driven transitions like round end are
	// deferred so effects can play out first.
	TransitionDelay time.Duration `json:"transition_delay"`
	// PostMatchDelay is how long a finished round stays in the end state before
	// the session resets.
	PostMatchDelay time.Duration `json:"post_match_delay"`
	// KillCoins is the coin reward for a hit.
	KillCoins int `json:"kill_coins"`
	// WinCoins is the coin reward for each member of the winning team.
	WinCoins int `json:"win_coins"`
}

// DefaultConfig returns the Config used when no explicit values are given.
func DefaultConfig() Config {
	return Config{
		JoinThreshold:   2,
		MaxPlayers:      8,
		CountdownStart:  30,
		TransitionDelay: time.Second,
		PostMatchDelay:  10 * time.Second,
		KillCoins:       10,
		WinCoins:        50,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.JoinThreshold <= 0 {
		c.JoinThreshold = defaults.JoinThreshold
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = defaults.MaxPlayers
	}
	if c.CountdownStart <= 0 {
		c.CountdownStart = defaults.CountdownStart
	}
	if c.TransitionDelay <= 0 {
		c.TransitionDelay = defaults.TransitionDelay
	}
	if c.PostMatchDelay <= 0 {
		c.PostMatchDelay = defaults.PostMatchDelay
	}
	if c.KillCoins <= 0 {
		c.KillCoins = defaults.KillCoins
	}
	if c.WinCoins <= 0 {
		c.WinCoins = defaults.WinCoins
	}
	return c
}

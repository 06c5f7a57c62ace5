// Package scheduling provides the periodic tick loop that drives countdowns
// and presentation refreshes as well as delayed one-shot calls.
package scheduling

import (
	"context"
	"sync"
	"time"

	"github.com/lefinal/dodgeball-server/logging"
	"go.uber.org/zap"
)

// Runnable is a periodic task driven by the Manager.
type Runnable interface {
	// ID identifies the runnable in logs.
	ID() string
	// Interval is how often Run is called.
	Interval() time.Duration
	// Run performs one iteration. Called from the manager's loop goroutine so
	// iterations of all runnables never overlap.
	Run(ctx context.Context)
}

// delayedCall is a one-shot function waiting for its due time.
type delayedCall struct {
	due time.Time
	run func()
}

// Manager runs all registered Runnables and delayed calls from a single loop
// goroutine. This keeps session mutations from timed sources on one logical
// thread. Later never runs a function inline which makes it safe to call
// while holding locks.
type Manager struct {
	m         sync.Mutex
	tick      time.Duration
	runnables []Runnable
	lastRun   map[string]time.Time
	delayed   []delayedCall
	logger    *zap.Logger
}

// NewManager creates a Manager with the given tick resolution.
func NewManager(tick time.Duration) *Manager {
	return &Manager{
		tick:    tick,
		lastRun: make(map[string]time.Time),
		logger:  logging.SchedulerLogger,
	}
}

// Register adds the given Runnable. Must be called before Run.
func (m *Manager) Register(r Runnable) {
	m.m.Lock()
	defer m.m.Unlock()
	m.runnables = append(m.runnables, r)
	m.logger.Debug("runnable registered", zap.String("runnable_id", r.ID()),
		zap.Duration("interval", r.Interval()))
}

// Later schedules the given function to run on the loop goroutine after the
// given delay. There is no cancel handle.
func (m *Manager) Later(delay time.Duration, run func()) {
	m.m.Lock()
	defer m.m.Unlock()
	m.delayed = append(m.delayed, delayedCall{
		due: time.Now().Add(delay),
		run: run,
	})
}

// Run drives the tick loop until the given context is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			m.runDue(ctx, now)
		}
	}
}

func (m *Manager) runDue(ctx context.Context, now time.Time) {
	m.m.Lock()
	due := make([]func(), 0, len(m.delayed))
	remaining := m.delayed[:0]
	for _, call := range m.delayed {
		if !call.due.After(now) {
			due = append(due, call.run)
		} else {
			remaining = append(remaining, call)
		}
	}
	m.delayed = remaining
	runnables := make([]Runnable, 0, len(m.runnables))
	for _, r := range m.runnables {
		if now.Sub(m.lastRun[r.ID()]) >= r.Interval() {
			m.lastRun[r.ID()] = now
			runnables = append(runnables, r)
		}
	}
	m.m.Unlock()
	for _, run := range due {
		run()
	}
	for _, r := range runnables {
		r.Run(ctx)
	}
}

// Package setup drives the creation of new dodgeball sessions. Every admin
// gets a typed setup context that owns exactly one session under construction
// so concurrent setups never interfere.
package setup

import (
	"context"
	"fmt"
	"sync"

	"github.com/lefinal/dodgeball-server/arena"
	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/game"
	"github.com/lefinal/dodgeball-server/logging"
	"github.com/lefinal/dodgeball-server/stores"
	"github.com/lefinal/dodgeball-server/worlds"
	"go.uber.org/zap"
)

// RecordStore persists session records during setup. Implemented by
// stores.Mall.
type RecordStore interface {
	// CreateSessionRecord persists the record of a freshly started setup.
	CreateSessionRecord(ctx context.Context, record stores.SessionRecord) error
	// SaveSessionRecord overwrites the persisted record when setup completes.
	SaveSessionRecord(ctx context.Context, record stores.SessionRecord) error
}

// Manager hands out setup contexts. One setup may be active per admin at a
// time.
type Manager struct {
	m           sync.Mutex
	registry    *game.Registry
	records     RecordStore
	provisioner worlds.Provisioner
	sessionCfg  game.Config
	sessionDeps game.Dependencies
	active      map[string]*Context
	logger      *zap.Logger
}

// NewManager creates a Manager. The records store may be nil when no
// persistence is wired. sessionCfg and sessionDeps are handed to every session
// created through a setup context.
func NewManager(registry *game.Registry, records RecordStore, provisioner worlds.Provisioner,
	sessionCfg game.Config, sessionDeps game.Dependencies) *Manager {
	return &Manager{
		registry:    registry,
		records:     records,
		provisioner: provisioner,
		sessionCfg:  sessionCfg,
		sessionDeps: sessionDeps,
		active:      make(map[string]*Context),
		logger:      logging.SetupLogger,
	}
}

// StartSetup provisions an arena world, creates a disabled session with the
// given id and returns the setup context for it. Fails when the admin already
// has an active setup or the session id is taken.
func (mgr *Manager) StartSetup(ctx context.Context, admin string, sessionID string) (*Context, error) {
	mgr.m.Lock()
	defer mgr.m.Unlock()
	if _, ok := mgr.active[admin]; ok {
		return nil, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindSetupActive,
			Message: "admin already has an active setup",
			Details: errors.Details{"admin": admin},
		}
	}
	if _, ok := mgr.registry.ByID(sessionID); ok {
		return nil, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindSessionAlreadyExists,
			Message: fmt.Sprintf("session %s already exists", sessionID),
			Details: errors.Details{"session_id": sessionID},
		}
	}
	arenaRef, err := mgr.provisioner.CreateArena(ctx, fmt.Sprintf("arena_%s", sessionID))
	if err != nil {
		return nil, errors.Wrap(err, "provision arena world", errors.Details{"session_id": sessionID})
	}
	session := game.NewSession(sessionID, mgr.sessionCfg, mgr.sessionDeps)
	session.SetArenaRef(arenaRef)
	if !mgr.registry.Add(session) {
		mgr.provisioner.DestroyArena(arenaRef)
		return nil, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindShouldNotHappen,
			Message: fmt.Sprintf("session %s registered during setup start", sessionID),
			Details: errors.Details{"session_id": sessionID},
		}
	}
	if mgr.records != nil {
		err = mgr.records.CreateSessionRecord(ctx, stores.RecordFromSession(session))
		if err != nil {
			_ = mgr.registry.Remove(context.Background(), sessionID)
			mgr.provisioner.DestroyArena(arenaRef)
			return nil, errors.Wrap(err, "create session record", errors.Details{"session_id": sessionID})
		}
	}
	setupCtx := &Context{
		admin:   admin,
		session: session,
		manager: mgr,
	}
	mgr.active[admin] = setupCtx
	mgr.logger.Info("setup started",
		zap.String("admin", admin),
		zap.String("session_id", sessionID),
		zap.String("arena_ref", arenaRef))
	return setupCtx, nil
}

// ContextFor returns the active setup context of the given admin.
func (mgr *Manager) ContextFor(admin string) (*Context, bool) {
	mgr.m.Lock()
	defer mgr.m.Unlock()
	setupCtx, ok := mgr.active[admin]
	return setupCtx, ok
}

func (mgr *Manager) release(admin string) {
	mgr.m.Lock()
	defer mgr.m.Unlock()
	delete(mgr.active, admin)
}

// Context is the setup of one session, owned by one admin. All operations
// forward to the session under construction which enforces its setup-only
// rules.
type Context struct {
	admin   string
	session *game.Session
	manager *Manager
}

// Admin returns the identity of the owning admin.
func (c *Context) Admin() string {
	return c.admin
}

// Session returns the session under construction.
func (c *Context) Session() *game.Session {
	return c.session
}

// SetLobbySpawn sets the lobby spawn location of the session.
func (c *Context) SetLobbySpawn(l arena.Location) {
	c.session.SetLobbySpawn(l)
}

// CreateTeam adds a team to the session.
func (c *Context) CreateTeam(id string, displayName string, chatPrefix string, colorID string,
	playable bool) error {
	return c.session.AddTeam(game.NewTeam(id, displayName, chatPrefix, colorID, playable))
}

// RemoveTeam removes the team with the given id from the session.
func (c *Context) RemoveTeam(teamID string) error {
	return c.session.RemoveTeam(teamID)
}

// SetTeamPositionOne sets the first corner of the given team's area.
func (c *Context) SetTeamPositionOne(teamID string, l arena.Location) error {
	return c.session.SetTeamPositionOne(teamID, l)
}

// SetTeamPositionTwo sets the second corner of the given team's area.
func (c *Context) SetTeamPositionTwo(teamID string, l arena.Location) error {
	return c.session.SetTeamPositionTwo(teamID, l)
}

// Complete runs the session's setup checklist, persists the finished record
// and releases the setup context. The session stays disabled until explicitly
// enabled.
func (c *Context) Complete(ctx context.Context) error {
	err := c.session.CompleteSetup()
	if err != nil {
		return errors.Wrap(err, "complete session setup", errors.Details{"session_id": c.session.ID()})
	}
	if c.manager.records != nil {
		err = c.manager.records.SaveSessionRecord(ctx, stores.RecordFromSession(c.session))
		if err != nil {
			return errors.Wrap(err, "save session record", errors.Details{"session_id": c.session.ID()})
		}
	}
	c.manager.release(c.admin)
	c.manager.logger.Info("setup completed",
		zap.String("admin", c.admin),
		zap.String("session_id", c.session.ID()))
	return nil
}

// Abandon destroys the provisioned arena world, removes the session together
// with its persisted record and releases the setup context.
func (c *Context) Abandon(ctx context.Context) error {
	c.manager.provisioner.DestroyArena(c.session.ArenaRef())
	err := c.manager.registry.Remove(ctx, c.session.ID())
	if err != nil {
		return errors.Wrap(err, "remove session", errors.Details{"session_id": c.session.ID()})
	}
	c.manager.release(c.admin)
	c.manager.logger.Info("setup abandoned",
		zap.String("admin", c.admin),
		zap.String("session_id", c.session.ID()))
	return nil
}

package stores

import (
	"context"
	"sync"

	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/game"
	"github.com/lefinal/dodgeball-server/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Profile is a cached user with pending stat changes. All mutation happens in
// memory, persisting is left to ProfileCache.Flush.
type Profile struct {
	m     sync.Mutex
	user  User
	dirty bool
}

// AddKill increments the kill counter.
func (p *Profile) AddKill() {
	p.m.Lock()
	defer p.m.Unlock()
	p.user.Kills++
	p.dirty = true
}

// AddDeath increments the death counter.
func (p *Profile) AddDeath() {
	p.m.Lock()
	defer p.m.Unlock()
	p.user.Deaths++
	p.dirty = true
}

// AddCoins adds the given amount of coins.
func (p *Profile) AddCoins(amount int) {
	p.m.Lock()
	defer p.m.Unlock()
	p.user.Coins += amount
	p.dirty = true
}

// User returns a snapshot of the cached user.
func (p *Profile) User() User {
	p.m.Lock()
	defer p.m.Unlock()
	return p.user
}

// snapshotForFlush returns a snapshot of the cached user and clears the dirty
// flag. The second return value states whether the profile had pending
// changes.
func (p *Profile) snapshotForFlush() (User, bool) {
	p.m.Lock()
	defer p.m.Unlock()
	if !p.dirty {
		return User{}, false
	}
	p.dirty = false
	return p.user, true
}

// markDirty restores the dirty flag after a failed flush so the changes are
// retried on the next one.
func (p *Profile) markDirty() {
	p.m.Lock()
	defer p.m.Unlock()
	p.dirty = true
}

// ProfileCache is an in-memory cache of user stats in front of the Mall.
// Sessions read and mutate cached profiles synchronously, persisting happens
// via Flush with immutable snapshots so no database call ever blocks game
// state mutation.
type ProfileCache struct {
	m        sync.RWMutex
	mall     *Mall
	profiles map[string]*Profile
	logger   *zap.Logger
}

// NewProfileCache creates a ProfileCache backed by the given Mall.
func NewProfileCache(mall *Mall) *ProfileCache {
	return &ProfileCache{
		mall:     mall,
		profiles: make(map[string]*Profile),
		logger:   logging.DBLogger,
	}
}

// CachedProfile returns the cached profile for the given identity or false
// when the identity has not been loaded.
func (c *ProfileCache) CachedProfile(identity string) (game.Profile, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	profile, ok := c.profiles[identity]
	if !ok {
		return nil, false
	}
	return profile, true
}

// LoadProfile loads the user with the given identity into the cache. Unknown
// identities get a fresh persisted user. Loading an already cached identity is
// a no-op.
func (c *ProfileCache) LoadProfile(ctx context.Context, identity string) error {
	c.m.RLock()
	_, ok := c.profiles[identity]
	c.m.RUnlock()
	if ok {
		return nil
	}
	user, err := c.mall.UserByID(ctx, identity)
	if err != nil {
		if e, castOK := errors.Cast(err); !castOK || e.Code != errors.ErrNotFound {
			return errors.Wrap(err, "retrieve user", errors.Details{"user": identity})
		}
		user = User{ID: identity}
		err = c.mall.CreateUser(ctx, user)
		if err != nil {
			return errors.Wrap(err, "create user", errors.Details{"user": identity})
		}
	}
	c.m.Lock()
	defer c.m.Unlock()
	if _, ok := c.profiles[identity]; !ok {
		c.profiles[identity] = &Profile{user: user}
	}
	return nil
}

// Flush persists all pending profile changes. Snapshots are taken first so
// cached profiles stay usable while the database writes run concurrently.
// Profiles that fail to persist keep their changes for the next flush.
func (c *ProfileCache) Flush(ctx context.Context) error {
	c.m.RLock()
	dirty := make(map[*Profile]User)
	for _, profile := range c.profiles {
		if user, ok := profile.snapshotForFlush(); ok {
			dirty[profile] = user
		}
	}
	c.m.RUnlock()
	if len(dirty) == 0 {
		return nil
	}
	eg, egCtx := errgroup.WithContext(ctx)
	for profile, user := range dirty {
		profile := profile
		user := user
		eg.Go(func() error {
			err := c.mall.SaveUserStats(egCtx, user)
			if err != nil {
				profile.markDirty()
				return errors.Wrap(err, "save user stats", errors.Details{"user": user.ID})
			}
			return nil
		})
	}
	err := eg.Wait()
	if err != nil {
		return errors.Wrap(err, "flush profiles", nil)
	}
	c.logger.Debug("flushed profiles", zap.Int("flushed", len(dirty)))
	return nil
}

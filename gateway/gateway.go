// Package gateway translates messages from the host game server into session
// operations and delivers presentation effects back over the same
// connections. Each connection is bound to one player identity via a hello
// message.
package gateway

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/lefinal/dodgeball-server/arena"
	"github.com/lefinal/dodgeball-server/client"
	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/game"
	"github.com/lefinal/dodgeball-server/logging"
	"github.com/lefinal/dodgeball-server/notify"
	"go.uber.org/zap"
)

// ProfileLoader loads player profiles into the cache when a player gets
// bound. Implemented by stores.ProfileCache.
type ProfileLoader interface {
	// LoadProfile loads the profile for the given identity.
	LoadProfile(ctx context.Context, identity string) error
}

// Gateway accepts host connections, routes their messages to sessions and
// acts as the notify.Notifier for all sessions.
type Gateway struct {
	m          sync.RWMutex
	registry   *game.Registry
	profiles   ProfileLoader
	byIdentity map[string]*client.Client
	identities map[*client.Client]string
	logger     *zap.Logger
}

// NewGateway creates a Gateway routing to sessions in the given registry. The
// profile loader may be nil in which case no stats are recorded.
func NewGateway(registry *game.Registry, profiles ProfileLoader) *Gateway {
	return &Gateway{
		registry:   registry,
		profiles:   profiles,
		byIdentity: make(map[string]*client.Client),
		identities: make(map[*client.Client]string),
		logger:     logging.GatewayLogger,
	}
}

// AcceptClient reads messages from the given client until the connection or
// the context closes.
func (g *Gateway) AcceptClient(ctx context.Context, c *client.Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-c.Receive:
			if !ok {
				return
			}
			g.handleMessage(c, raw)
		}
	}
}

// SayGoodbyeToClient unbinds the connection. A bound player still in a
// session leaves it as a host disconnect means the player is gone.
func (g *Gateway) SayGoodbyeToClient(_ context.Context, c *client.Client) {
	g.m.Lock()
	identity, bound := g.identities[c]
	if bound {
		delete(g.identities, c)
		delete(g.byIdentity, identity)
	}
	g.m.Unlock()
	if !bound {
		return
	}
	if session, ok := g.registry.ByParticipant(identity); ok {
		if err := session.Leave(identity); err != nil {
			errors.Log(g.logger, errors.Wrap(err, "leave session on disconnect",
				errors.Details{"identity": identity}))
		}
	}
}

func (g *Gateway) handleMessage(c *client.Client, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		g.sendError(c, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindDecodeJSON,
			Err:     err,
			Message: "decode message",
		})
		return
	}
	var err error
	switch msg.Type {
	case MessageTypeHello:
		err = g.handleHello(c, msg.Payload)
	case MessageTypeJoin:
		err = g.handleJoin(c, msg.Payload)
	case MessageTypeLeave:
		err = g.handleLeave(c)
	case MessageTypeThrow:
		err = g.handleThrow(c, msg.Payload)
	case MessageTypeHit:
		err = g.handleHit(c, msg.Payload)
	case MessageTypeMove:
		err = g.handleMove(c, msg.Payload)
	default:
		err = errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindUnknown,
			Message: "unknown message type",
			Details: errors.Details{"type": string(msg.Type)},
		}
	}
	if err != nil {
		if !errors.BlameUser(err) {
			errors.Log(g.logger, err)
		}
		g.sendError(c, err)
	}
}

func (g *Gateway) handleHello(c *client.Client, payload json.RawMessage) error {
	var hello HelloPayload
	if err := decode(payload, &hello); err != nil {
		return err
	}
	g.m.Lock()
	defer g.m.Unlock()
	if previous, ok := g.byIdentity[hello.PlayerID]; ok && previous != c {
		// The host reconnected for this player, the old binding is stale.
		delete(g.identities, previous)
	}
	if old, ok := g.identities[c]; ok && old != hello.PlayerID {
		// The connection switched players, drop its old identity binding.
		delete(g.byIdentity, old)
	}
	g.byIdentity[hello.PlayerID] = c
	g.identities[c] = hello.PlayerID
	g.logger.Info("player bound", zap.String("identity", hello.PlayerID),
		zap.String("client_id", c.ID))
	if g.profiles != nil {
		// A missing profile only costs the player their stats so the hello still
		// succeeds.
		go func() {
			err := g.profiles.LoadProfile(context.Background(), hello.PlayerID)
			if err != nil {
				errors.Log(g.logger, errors.Wrap(err, "load profile",
					errors.Details{"identity": hello.PlayerID}))
			}
		}()
	}
	return nil
}

// boundIdentity returns the identity the connection was bound to via hello.
func (g *Gateway) boundIdentity(c *client.Client) (string, error) {
	g.m.RLock()
	defer g.m.RUnlock()
	identity, ok := g.identities[c]
	if !ok {
		return "", errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindUnexpected,
			Message: "connection not bound, send hello first",
		}
	}
	return identity, nil
}

func (g *Gateway) handleJoin(c *client.Client, payload json.RawMessage) error {
	identity, err := g.boundIdentity(c)
	if err != nil {
		return err
	}
	var join JoinPayload
	if err := decode(payload, &join); err != nil {
		return err
	}
	if current, ok := g.registry.ByParticipant(identity); ok {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindPlayerAlreadyJoined,
			Message: "player already in a session",
			Details: errors.Details{"identity": identity, "session_id": current.ID()},
		}
	}
	session, ok := g.registry.ByID(join.SessionID)
	if !ok {
		return errors.NewResourceNotFoundError("session not found",
			errors.Details{"session_id": join.SessionID})
	}
	_, err = session.Join(identity)
	return err
}

func (g *Gateway) handleLeave(c *client.Client) error {
	identity, session, err := g.boundSession(c)
	if err != nil {
		return err
	}
	return session.Leave(identity)
}

func (g *Gateway) handleThrow(c *client.Client, payload json.RawMessage) error {
	identity, session, err := g.boundSession(c)
	if err != nil {
		return err
	}
	var throw ThrowPayload
	if err := decode(payload, &throw); err != nil {
		return err
	}
	return session.RecordThrow(identity, throw.BallRef)
}

func (g *Gateway) handleHit(c *client.Client, payload json.RawMessage) error {
	identity, session, err := g.boundSession(c)
	if err != nil {
		return err
	}
	var hit HitPayload
	if err := decode(payload, &hit); err != nil {
		return err
	}
	return session.RecordElimination(identity, hit.Target)
}

// handleMove checks boundary containment during active rounds and sends the
// player back into their team area when they left it.
func (g *Gateway) handleMove(c *client.Client, payload json.RawMessage) error {
	identity, session, err := g.boundSession(c)
	if err != nil {
		return err
	}
	if session.State() != game.StateActive {
		return nil
	}
	var move MovePayload
	if err := decode(payload, &move); err != nil {
		return err
	}
	location, err := arena.ParseLocation(move.Location)
	if err != nil {
		return err
	}
	p, ok := session.ParticipantByIdentity(identity)
	if !ok {
		return nil
	}
	team, ok := session.TeamInfoByID(p.TeamID)
	if !ok || !team.Playable || !team.Area.BothSet() {
		return nil
	}
	if team.Area.Contains(location) {
		return nil
	}
	g.Notify(identity, notify.Event{
		Kind:    notify.EventKindTeleport,
		Payload: notify.TeleportPayload{Location: team.Area.RandomPointAt(0.5, 0.5).String()},
	})
	return nil
}

// boundSession resolves the connection's identity and the session the player
// participates in.
func (g *Gateway) boundSession(c *client.Client) (string, *game.Session, error) {
	identity, err := g.boundIdentity(c)
	if err != nil {
		return "", nil, err
	}
	session, ok := g.registry.ByParticipant(identity)
	if !ok {
		return "", nil, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindPlayerNotJoined,
			Message: "player not in a session",
			Details: errors.Details{"identity": identity},
		}
	}
	return identity, session, nil
}

// BoundIdentities returns the identities of all players with a bound
// connection.
func (g *Gateway) BoundIdentities() []string {
	g.m.RLock()
	defer g.m.RUnlock()
	identities := make([]string, 0, len(g.byIdentity))
	for identity := range g.byIdentity {
		identities = append(identities, identity)
	}
	return identities
}

// Notify implements notify.Notifier. Events for players without a bound
// connection are dropped.
func (g *Gateway) Notify(identity string, event notify.Event) {
	g.m.RLock()
	c, ok := g.byIdentity[identity]
	g.m.RUnlock()
	if !ok {
		return
	}
	g.send(c, Message{Type: MessageTypeNotify}, NotifyPayload{Event: event})
}

// Broadcast implements notify.Notifier.
func (g *Gateway) Broadcast(sessionID string, event notify.Event) {
	for _, identity := range g.registry.IdentitiesBySession(sessionID) {
		g.Notify(identity, event)
	}
}

func (g *Gateway) sendError(c *client.Client, err error) {
	e, _ := errors.Cast(err)
	g.send(c, Message{Type: MessageTypeError}, ErrorPayload{
		Kind:    string(e.Kind),
		Message: e.Message,
	})
}

func (g *Gateway) send(c *client.Client, msg Message, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		errors.Log(g.logger, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindEncodeJSON,
			Err:     err,
			Message: "encode payload",
		})
		return
	}
	msg.Payload = raw
	out, err := json.Marshal(msg)
	if err != nil {
		errors.Log(g.logger, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindEncodeJSON,
			Err:     err,
			Message: "encode message",
		})
		return
	}
	select {
	case c.Send <- out:
	default:
		g.logger.Warn("dropping message for congested client",
			zap.String("client_id", c.ID))
	}
}

func decode(payload json.RawMessage, target interface{}) error {
	if err := json.Unmarshal(payload, target); err != nil {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindDecodeJSON,
			Err:     err,
			Message: "decode payload",
		}
	}
	return nil
}

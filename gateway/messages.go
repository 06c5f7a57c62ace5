package gateway

import (
	"encoding/json"

	"github.com/lefinal/dodgeball-server/notify"
)

// MessageType determines the payload of a Message.
type MessageType string

// Message types received from the host game server.
const (
	// MessageTypeHello binds a connection to a player identity. Must be the
	// first message on a connection.
	MessageTypeHello MessageType = "hello"
	// MessageTypeJoin requests joining a session.
	MessageTypeJoin MessageType = "join"
	// MessageTypeLeave requests leaving the current session.
	MessageTypeLeave MessageType = "leave"
	// MessageTypeThrow reports a thrown ball.
	MessageTypeThrow MessageType = "throw"
	// MessageTypeHit reports a hit on another player.
	MessageTypeHit MessageType = "hit"
	// MessageTypeMove reports the player's current location for boundary
	// checks.
	MessageTypeMove MessageType = "move"
)

// Message types sent to the host game server.
const (
	// MessageTypeNotify carries a presentation effect for the bound player.
	MessageTypeNotify MessageType = "notify"
	// MessageTypeError reports a failed request.
	MessageTypeError MessageType = "error"
)

// Message is the envelope for all gateway traffic.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HelloPayload is the payload for MessageTypeHello.
type HelloPayload struct {
	PlayerID string `json:"player_id"`
}

// JoinPayload is the payload for MessageTypeJoin.
type JoinPayload struct {
	SessionID string `json:"session_id"`
}

// ThrowPayload is the payload for MessageTypeThrow.
type ThrowPayload struct {
	BallRef string `json:"ball_ref"`
}

// HitPayload is the payload for MessageTypeHit. The shooter is the bound
// player.
type HitPayload struct {
	Target string `json:"target"`
}

// MovePayload is the payload for MessageTypeMove. Location uses the
// world,x,y,z,yaw,pitch wire format.
type MovePayload struct {
	Location string `json:"location"`
}

// NotifyPayload is the payload for MessageTypeNotify.
type NotifyPayload struct {
	Event notify.Event `json:"event"`
}

// ErrorPayload is the payload for MessageTypeError.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

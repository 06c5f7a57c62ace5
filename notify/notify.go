// Package notify defines how sessions reach their participants with chat,
// title, sound and other presentation effects. Delivery is left to
// implementations, sessions only describe the effect.
package notify

// EventKind is the type of presentation effect carried by an Event.
type EventKind string

const (
	// EventKindChat is a chat message.
	EventKindChat EventKind = "chat"
	// EventKindTitle is a large on-screen title with optional subtitle.
	EventKindTitle EventKind = "title"
	// EventKindActionBar is a short text above the hotbar.
	EventKindActionBar EventKind = "action-bar"
	// EventKindSound plays a sound for the receiver.
	EventKindSound EventKind = "sound"
	// EventKindScoreboard replaces the receiver's sidebar scoreboard.
	EventKindScoreboard EventKind = "scoreboard"
	// EventKindTeleport moves the receiver to a location.
	EventKindTeleport EventKind = "teleport"
	// EventKindEffect applies a status effect to the receiver.
	EventKindEffect EventKind = "effect"
	// EventKindUIReset clears all presentation state of the receiver.
	EventKindUIReset EventKind = "ui-reset"
)

// Event is a single presentation effect for one or many receivers.
type Event struct {
	// Kind determines the type of Payload.
	Kind EventKind `json:"kind"`
	// Payload holds the kind-specific content.
	Payload interface{} `json:"payload"`
}

// ChatPayload is the payload for EventKindChat.
type ChatPayload struct {
	Message string `json:"message"`
}

// TitlePayload is the payload for EventKindTitle.
type TitlePayload struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// ActionBarPayload is the payload for EventKindActionBar.
type ActionBarPayload struct {
	Text string `json:"text"`
}

// SoundPayload is the payload for EventKindSound.
type SoundPayload struct {
	Sound string `json:"sound"`
}

// ScoreboardPayload is the payload for EventKindScoreboard.
type ScoreboardPayload struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// TeleportPayload is the payload for EventKindTeleport. Location uses the
// world,x,y,z,yaw,pitch wire format.
type TeleportPayload struct {
	Location string `json:"location"`
}

// EffectPayload is the payload for EventKindEffect.
type EffectPayload struct {
	Effect    string `json:"effect"`
	Seconds   int    `json:"seconds"`
	Amplifier int    `json:"amplifier"`
}

// Notifier delivers presentation effects to participants.
type Notifier interface {
	// Notify delivers the Event to the player with the given identity.
	Notify(identity string, event Event)
	// Broadcast delivers the Event to all participants of the session with the
	// given id.
	Broadcast(sessionID string, event Event)
}

package notify

import "sync"

// Recorder is a Notifier that keeps all delivered events in memory. Meant for
// tests.
type Recorder struct {
	m sync.Mutex
	// ByIdentity holds events delivered via Notify, keyed by identity.
	ByIdentity map[string][]Event
	// Broadcasts holds events delivered via Broadcast, keyed by session id.
	Broadcasts map[string][]Event
}

// NewRecorder creates a ready-to-use Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		ByIdentity: make(map[string][]Event),
		Broadcasts: make(map[string][]Event),
	}
}

func (r *Recorder) Notify(identity string, event Event) {
	r.m.Lock()
	defer r.m.Unlock()
	r.ByIdentity[identity] = append(r.ByIdentity[identity], event)
}

func (r *Recorder) Broadcast(sessionID string, event Event) {
	r.m.Lock()
	defer r.m.Unlock()
	r.Broadcasts[sessionID] = append(r.Broadcasts[sessionID], event)
}

// EventsFor returns all events delivered to the given identity.
func (r *Recorder) EventsFor(identity string) []Event {
	r.m.Lock()
	defer r.m.Unlock()
	return append([]Event(nil), r.ByIdentity[identity]...)
}

// BroadcastsFor returns all events broadcast to the given session.
func (r *Recorder) BroadcastsFor(sessionID string) []Event {
	r.m.Lock()
	defer r.m.Unlock()
	return append([]Event(nil), r.Broadcasts[sessionID]...)
}

// KindsFor returns the kinds of all events delivered to the given identity in
// delivery order.
func (r *Recorder) KindsFor(identity string) []EventKind {
	kinds := make([]EventKind, 0)
	for _, event := range r.EventsFor(identity) {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}
